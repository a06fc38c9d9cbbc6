package utils

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/bsm/redislock"
)

// Cache keys the collaborators invalidate after every mutating operation.
const (
	CacheKeyStatisticsSummary = "statistics_summary"
	cacheKeyUserInvoices      = "user_invoices_"
)

func UserInvoicesCacheKey(authorId int) string {
	return cacheKeyUserInvoices + fmt.Sprint(authorId)
}

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// store instance under Type:$id
func StoreRedis[T any](obj any, id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// returns nil if the key does not exist
func RetrieveRedis[T any](id int) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

func RemoveRedisItem[T any](id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.RemoveRedisKey(key)
}

// ObtainReservationLock serializes reservation posting across instances.
// The caller must Release the returned lock; nil locker (no Redis) returns a
// nil lock and the caller falls back to DB row locks alone.
func ObtainReservationLock(ctx context.Context, scope string, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	lockKey := fmt.Sprintf("reservationLock:%s", scope)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain reservation lock", scope, err)
		return nil, fmt.Errorf("could not obtain reservation lock for %s", scope)
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining reservation lock", scope, err)
		return nil, err
	}
	return lock, nil
}

func ReleaseReservationLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	_ = lock.Release(ctx)
}
