package utils

import (
	"context"

	"github.com/Samsiani/gn1-invoice-dash-sub001/appctx"
)

var (
	ContextKeyToken            = appctx.ContextKeyToken
	ContextKeyUserId           = appctx.ContextKeyUserId
	ContextKeyUsername         = appctx.ContextKeyUsername
	ContextKeyCorrelationId    = appctx.ContextKeyCorrelationId
	ContextKeyCanEditCompleted = appctx.ContextKeyCanEditCompleted
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetCanEditCompletedFromContext(ctx context.Context) bool {
	v, ok := appctx.GetBool(ctx, ContextKeyCanEditCompleted)
	return ok && v
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetCanEditCompletedInContext(ctx context.Context, allowed bool) context.Context {
	return appctx.Set(ctx, ContextKeyCanEditCompleted, allowed)
}
