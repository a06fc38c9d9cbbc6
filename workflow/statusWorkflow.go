package workflow

import (
	"context"
	"errors"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleFinancialStatus flips an invoice between fictive and standard
// without a full save. Toggling to fictive is rejected while anything has
// been paid; toggling to standard validates availability for every item and
// recomputes the sale date (the activation moment).
func ToggleFinancialStatus(ctx context.Context, invoiceId int, target models.FinancialStatus) (*models.Invoice, error) {
	if !target.IsValid() {
		return nil, utils.NewValidationError("financial_status", "invalid financial status: "+string(target))
	}
	if err := authorizer.Authorize(ctx, models.CapabilityToggleStatus); err != nil {
		return nil, err
	}

	db := config.GetDB()
	// Status toggles move reservations; without the canonical store there
	// are no counters to validate against.
	if !models.CanonicalStoreReady(db) {
		return nil, utils.ErrStoreUnavailable
	}

	lock, err := utils.ObtainReservationLock(ctx, "posting", "workflow", "ToggleFinancialStatus")
	if err != nil {
		return nil, err
	}
	defer utils.ReleaseReservationLock(ctx, lock)

	var toggled *models.Invoice
	err = withReservationRetry(func() error {
		tx := db.Begin()
		if tx.Error != nil {
			return tx.Error
		}
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback().Error
				panic(r)
			}
		}()
		defer func() { _ = tx.Rollback().Error }()

		invoice, oldItems, err := lockInvoiceForChange(tx, ctx, invoiceId)
		if err != nil {
			return err
		}

		if invoice.FinancialStatus == target {
			toggled = invoice
			return nil
		}
		if err := models.CheckStatusToggle(invoice.LifecycleStatus, target, invoice.PaidAmount); err != nil {
			return err
		}
		oldStatus := invoice.FinancialStatus

		items := append([]models.InvoiceItem(nil), oldItems...)
		switch target {
		case models.FinancialStatusFictive:
			models.EnforceFictiveItems(items)
			invoice.SaleDate = nil
		case models.FinancialStatusStandard:
			models.ApplyStandardItemDefaults(items)
			if err := models.LockReservationCounters(tx, oldItems, items); err != nil {
				return err
			}
			if err := models.ValidateItemStock(ctx, tx, inventory, items, invoice.ID); err != nil {
				return err
			}
			invoice.SaleDate = models.ResolveSaleDate(invoice.SaleDate, oldStatus, target, invoice.Payments, nowFunc())
		}
		invoice.FinancialStatus = target

		if err := tx.WithContext(ctx).Model(invoice).
			Select("FinancialStatus", "SaleDate").
			Updates(invoice).Error; err != nil {
			return err
		}
		if err := updateItemStatuses(tx, ctx, items); err != nil {
			return err
		}

		oldSide := oldItems
		if oldStatus == models.FinancialStatusFictive {
			oldSide = nil
		}
		newSide := items
		if target == models.FinancialStatusFictive {
			newSide = nil
		}
		if err := models.ApplyReservationDelta(tx, invoice.ID, oldSide, newSide); err != nil {
			return err
		}

		invoice.Items = items
		if err := models.SyncInvoiceMirror(tx, invoice); err != nil {
			return err
		}

		if err := tx.Commit().Error; err != nil {
			return err
		}
		toggled = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	models.InvalidateInvoiceCaches(cacheInvalidator, toggled.AuthorId)

	return toggled, nil
}

// MarkInvoiceSold is the one-way completion: every reserved item becomes
// sold, the lifecycle becomes completed and the financial status is forced
// standard. Returns utils.ErrNothingToDo (not a failure) when no item was
// reserved.
func MarkInvoiceSold(ctx context.Context, invoiceId int) (*models.Invoice, error) {
	if err := authorizer.Authorize(ctx, models.CapabilityMarkAsSold); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if !models.CanonicalStoreReady(db) {
		return nil, utils.ErrStoreUnavailable
	}

	lock, err := utils.ObtainReservationLock(ctx, "posting", "workflow", "MarkInvoiceSold")
	if err != nil {
		return nil, err
	}
	defer utils.ReleaseReservationLock(ctx, lock)

	var completed *models.Invoice
	err = withReservationRetry(func() error {
		tx := db.Begin()
		if tx.Error != nil {
			return tx.Error
		}
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback().Error
				panic(r)
			}
		}()
		defer func() { _ = tx.Rollback().Error }()

		invoice, oldItems, err := lockInvoiceForChange(tx, ctx, invoiceId)
		if err != nil {
			return err
		}

		if invoice.LifecycleStatus == models.LifecycleStatusCompleted {
			return utils.ErrInvalidTransition
		}

		items := append([]models.InvoiceItem(nil), oldItems...)
		if models.MarkItemsSold(items) == 0 {
			return utils.ErrNothingToDo
		}

		oldStatus := invoice.FinancialStatus
		// An invoice cannot be "sold" while fictive; (fictive, completed)
		// is never observable committed.
		invoice.FinancialStatus = models.FinancialStatusStandard
		invoice.LifecycleStatus = models.LifecycleStatusCompleted
		invoice.SaleDate = models.ResolveSaleDate(invoice.SaleDate, oldStatus, models.FinancialStatusStandard, invoice.Payments, nowFunc())

		if err := tx.WithContext(ctx).Model(invoice).
			Select("FinancialStatus", "LifecycleStatus", "SaleDate").
			Updates(invoice).Error; err != nil {
			return err
		}
		if err := updateItemStatuses(tx, ctx, items); err != nil {
			return err
		}

		oldSide := oldItems
		if oldStatus == models.FinancialStatusFictive {
			oldSide = nil
		}
		if err := models.ApplyReservationDelta(tx, invoice.ID, oldSide, items); err != nil {
			return err
		}

		invoice.Items = items
		if err := models.SyncInvoiceMirror(tx, invoice); err != nil {
			return err
		}

		if err := tx.Commit().Error; err != nil {
			return err
		}
		completed = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	models.InvalidateInvoiceCaches(cacheInvalidator, completed.AuthorId)

	return completed, nil
}

// lockInvoiceForChange locks the header row and loads its items and
// payments for a status transition.
func lockInvoiceForChange(tx *gorm.DB, ctx context.Context, invoiceId int) (*models.Invoice, []models.InvoiceItem, error) {
	var invoice models.Invoice
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, invoiceId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.ErrorRecordNotFound
		}
		return nil, nil, err
	}
	var items []models.InvoiceItem
	if err := tx.WithContext(ctx).Where("invoice_id = ?", invoice.ID).
		Order("id").Find(&items).Error; err != nil {
		return nil, nil, err
	}
	var payments []models.PaymentRecord
	if err := tx.WithContext(ctx).Where("invoice_id = ?", invoice.ID).
		Order("id").Find(&payments).Error; err != nil {
		return nil, nil, err
	}
	invoice.Payments = payments
	return &invoice, items, nil
}

func updateItemStatuses(tx *gorm.DB, ctx context.Context, items []models.InvoiceItem) error {
	for i := range items {
		if err := tx.WithContext(ctx).Model(&models.InvoiceItem{}).
			Where("id = ?", items[i].ID).
			Updates(map[string]interface{}{
				"item_status":      items[i].ItemStatus,
				"reservation_days": items[i].ReservationDays,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}
