package models

import (
	"context"
	"fmt"
	"sync"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/google/uuid"
)

var sequenceMutex sync.Mutex

const invoiceNumberPrefix = "INV-"

// NextInvoiceNumber allocates the next unique invoice number from a Redis
// counter seeded from the DB maximum, re-checking uniqueness against the
// invoices table before handing it out.
func NextInvoiceNumber(ctx context.Context) (string, error) {
	sequenceMutex.Lock()
	defer sequenceMutex.Unlock()

	db := config.GetDB()
	const cacheKey = "invoice_number_seq"

	for {
		seqNo, err := config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return "", err
		}
		// if not found in redis, seed from db
		if seqNo == 1 {
			var dbSeq *int64
			if err := db.WithContext(ctx).Model(&Invoice{}).
				Select("max(cast(replace(invoice_number, ?, '') as unsigned))", invoiceNumberPrefix).
				Scan(&dbSeq).Error; err != nil {
				return "", err
			}
			if dbSeq != nil {
				seqNo = *dbSeq + 1
			}
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return "", err
			}
		}

		number := invoiceNumberPrefix + fmt.Sprint(seqNo)
		var count int64
		if err := db.WithContext(ctx).Model(&Invoice{}).
			Where("invoice_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
}

// FallbackInvoiceNumber derives a number straight from the id for writes
// that cannot reach the canonical sequence (StoreUnavailable mode).
func FallbackInvoiceNumber(invoiceId int) string {
	return invoiceNumberPrefix + fmt.Sprint(invoiceId)
}

// CorrelationIdFromContextOrNew tags log lines and degraded-mode warnings.
func CorrelationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
