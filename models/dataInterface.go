package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Collaborator boundaries. Request wiring, auth decisions and the product
// stock quantity itself live outside this module; these interfaces are the
// only contracts it consumes.

// Authorizer gates the privileged paths: toggle, mark-as-sold, and full
// saves of completed invoices.
type Authorizer interface {
	CanEditCompleted(ctx context.Context) bool
	Authorize(ctx context.Context, capability string) error
}

// InventoryReader supplies the tracked stock ceiling per product.
// tracked=false means the product has no ceiling and reports unlimited
// availability.
type InventoryReader interface {
	TrackedStock(ctx context.Context, productId int) (qty decimal.Decimal, tracked bool, err error)
}

// CustomerDirectory resolves raw buyer fields to a customer identifier.
type CustomerDirectory interface {
	ResolveCustomer(ctx context.Context, buyer RawBuyer) (int, error)
}

// CacheInvalidator is fire-and-forget: failures are logged by callers and
// never fail the invoice operation.
type CacheInvalidator interface {
	Invalidate(key string) error
}

/* default implementations */

type dbAuthorizer struct{}

func (dbAuthorizer) CanEditCompleted(ctx context.Context) bool {
	if utils.GetCanEditCompletedFromContext(ctx) {
		return true
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return false
	}
	user, err := getUser(ctx, userId)
	if err != nil {
		return false
	}
	return user.Role == UserRoleAdmin
}

func (a dbAuthorizer) Authorize(ctx context.Context, capability string) error {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return utils.ErrPermissionDenied
	}
	switch capability {
	case CapabilityToggleStatus, CapabilityMarkAsSold:
		if !a.CanEditCompleted(ctx) {
			return utils.ErrPermissionDenied
		}
		return nil
	case CapabilitySaveInvoice:
		return nil
	}
	return utils.ErrPermissionDenied
}

const (
	CapabilitySaveInvoice  = "invoice:save"
	CapabilityToggleStatus = "invoice:toggle-status"
	CapabilityMarkAsSold   = "invoice:mark-as-sold"
)

// retrieve user from redis or db; the cache is an optimization and never
// fails the fetch
func getUser(ctx context.Context, userId int) (*User, error) {
	cached, err := utils.RetrieveRedis[User](userId)
	if err == nil && cached != nil {
		return cached, nil
	}
	if err != nil {
		config.LogWarn(config.GetLogger(), "models", "getUser", "failed to read user cache", userId)
	}

	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, userId).Error; err != nil {
		return nil, err
	}
	if err := utils.StoreRedis[User](&user, userId); err != nil {
		config.LogWarn(config.GetLogger(), "models", "getUser", "failed to cache user", userId)
	}
	return &user, nil
}

type dbInventoryReader struct{}

func (dbInventoryReader) TrackedStock(ctx context.Context, productId int) (decimal.Decimal, bool, error) {
	product, err := GetProduct(ctx, productId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	if !utils.DereferencePtr(product.TrackStock, true) {
		return decimal.Zero, false, nil
	}
	return product.StockQty, true, nil
}

type dbCustomerDirectory struct{}

func (dbCustomerDirectory) ResolveCustomer(ctx context.Context, buyer RawBuyer) (int, error) {
	if buyer.Name == "" && buyer.Phone == "" {
		return 0, nil
	}
	db := config.GetDB()
	var customer Customer
	query := db.WithContext(ctx)
	if buyer.Phone != "" {
		query = query.Where("phone = ?", buyer.Phone)
	} else {
		query = query.Where("name = ?", buyer.Name)
	}
	err := query.First(&customer).Error
	if err == nil {
		return customer.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	customer = Customer{Name: buyer.Name, Phone: buyer.Phone, Email: buyer.Email}
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return 0, err
	}
	return customer.ID, nil
}

type redisCacheInvalidator struct{}

func (redisCacheInvalidator) Invalidate(key string) error {
	return config.RemoveRedisKey(key)
}

var (
	DefaultAuthorizer        Authorizer        = dbAuthorizer{}
	DefaultInventoryReader   InventoryReader   = dbInventoryReader{}
	DefaultCustomerDirectory CustomerDirectory = dbCustomerDirectory{}
	DefaultCacheInvalidator  CacheInvalidator  = redisCacheInvalidator{}
)

// InvalidateInvoiceCaches is called after every mutating operation. Failure
// is logged, never propagated.
func InvalidateInvoiceCaches(invalidator CacheInvalidator, authorId int) {
	logger := config.GetLogger()
	keys := []string{
		utils.CacheKeyStatisticsSummary,
		utils.UserInvoicesCacheKey(authorId),
	}
	for _, key := range keys {
		if err := invalidator.Invalidate(key); err != nil {
			config.LogError(logger, "models", "InvalidateInvoiceCaches",
				fmt.Sprintf("failed to invalidate %s", key), authorId, err)
		}
	}
}
