package workflow

import (
	"context"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"gorm.io/gorm"
)

// ResyncMirrors rebuilds the legacy mirror row of every canonical invoice.
// Idempotent: re-running converges on the same mirror state. This is the
// compensating step for mirrors written before mirror updates became part
// of the invoice transaction.
func ResyncMirrors(ctx context.Context) (int, error) {
	db := config.GetDB()
	if !models.CanonicalStoreReady(db) {
		return 0, utils.ErrStoreUnavailable
	}

	var ids []int
	if err := db.WithContext(ctx).Model(&models.Invoice{}).
		Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	logger := config.GetLogger()
	synced := 0
	for _, id := range ids {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var invoice models.Invoice
			if err := tx.Preload("Items").Preload("Payments").
				First(&invoice, id).Error; err != nil {
				return err
			}
			return models.SyncInvoiceMirror(tx, &invoice)
		})
		if err != nil {
			config.LogError(logger, "workflow", "ResyncMirrors", "failed to resync invoice mirror", id, err)
			return synced, err
		}
		synced++
	}
	return synced, nil
}
