package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Collaborators are package vars so tests can substitute fakes.
var (
	authorizer       = models.DefaultAuthorizer
	inventory        = models.DefaultInventoryReader
	customers        = models.DefaultCustomerDirectory
	cacheInvalidator = models.DefaultCacheInvalidator
)

// nowFunc is the injected clock for sale-date math.
var nowFunc = time.Now

// SaveOutcome reports a committed save. StoreDegraded is true when the
// canonical tables were absent and only the mirror was written.
type SaveOutcome struct {
	Invoice       *models.Invoice
	StoreDegraded bool
}

const reservationRetryAttempts = 3

// withReservationRetry re-runs the transactional section when MySQL reports
// a deadlock or lock wait timeout, so validation always re-reads fresh
// counters instead of committing over stale data.
func withReservationRetry(fn func() error) error {
	var err error
	for attempt := 1; attempt <= reservationRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !isRetryableLockError(err) {
			return err
		}
	}
	return err
}

func isRetryableLockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1213 = deadlock, 1205 = lock wait timeout
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

// SaveInvoice is the full create/update path: one logical unit of work that
// either commits the whole {header, items, payments, reservation counters,
// mirror} set or none of it. Pass invoiceId = 0 to create.
func SaveInvoice(ctx context.Context, invoiceId int, input *models.NewInvoice) (*SaveOutcome, error) {
	authorId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || authorId <= 0 {
		return nil, utils.ErrPermissionDenied
	}
	if err := authorizer.Authorize(ctx, models.CapabilitySaveInvoice); err != nil {
		return nil, err
	}

	// Strict parse at the boundary; the rest of the flow never sees
	// untyped data.
	items, err := models.NormalizeItems(input.Items)
	if err != nil {
		return nil, err
	}
	payments, err := models.NormalizePayments(input.Payments, authorId)
	if err != nil {
		return nil, err
	}

	customerId := input.CustomerId
	if customerId == 0 && input.Buyer != nil {
		customerId, err = customers.ResolveCustomer(ctx, *input.Buyer)
		if err != nil {
			return nil, err
		}
	}

	paidTotal, _ := models.SummarizePayments(payments)
	financial := models.DeriveFinancialStatus(paidTotal)
	if financial == models.FinancialStatusFictive {
		models.EnforceFictiveItems(items)
	} else {
		models.ApplyStandardItemDefaults(items)
	}
	total := models.InvoiceTotal(items)

	db := config.GetDB()
	if !models.CanonicalStoreReady(db) {
		return saveMirrorOnly(ctx, db, invoiceId, authorId, customerId, input.Note, financial, items, payments)
	}

	lock, err := utils.ObtainReservationLock(ctx, "posting", "workflow", "SaveInvoice")
	if err != nil {
		return nil, err
	}
	defer utils.ReleaseReservationLock(ctx, lock)

	var saved *models.Invoice
	err = withReservationRetry(func() error {
		tx := db.Begin()
		if tx.Error != nil {
			return tx.Error
		}
		// always rollback on early-return or panic to avoid leaking locks
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback().Error
				panic(r)
			}
		}()
		defer func() { _ = tx.Rollback().Error }()

		var invoice models.Invoice
		var oldItems []models.InvoiceItem
		oldStatus := models.FinancialStatusFictive
		var oldSaleDate *time.Time

		if invoiceId > 0 {
			// Serialize same-invoice saves on the header row.
			if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&invoice, invoiceId).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return utils.ErrorRecordNotFound
				}
				return err
			}
			if err := models.CheckEditAllowed(invoice.LifecycleStatus, authorizer.CanEditCompleted(ctx)); err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Where("invoice_id = ?", invoice.ID).
				Find(&oldItems).Error; err != nil {
				return err
			}
			oldStatus = invoice.FinancialStatus
			oldSaleDate = invoice.SaleDate
		} else {
			if err := AcquireNumberingLock(tx); err != nil {
				return err
			}
			number, err := models.NextInvoiceNumber(ctx)
			if err != nil {
				ReleaseNumberingLock(tx)
				return err
			}
			invoice = models.Invoice{
				InvoiceNumber:   number,
				AuthorId:        authorId,
				LifecycleStatus: models.LifecycleStatusUnfinished,
				RsUploadedFlag:  utils.NewFalse(),
			}
			if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
				ReleaseNumberingLock(tx)
				return err
			}
			ReleaseNumberingLock(tx)
		}

		// Check-then-act: the counter rows are locked first, then availability
		// is validated inside the same transaction that will apply the delta.
		if financial == models.FinancialStatusStandard {
			if err := models.LockReservationCounters(tx, oldItems, items); err != nil {
				return err
			}
			if err := models.ValidateItemStock(ctx, tx, inventory, items, invoice.ID); err != nil {
				return err
			}
		}

		invoice.CustomerId = customerId
		invoice.FinancialStatus = financial
		invoice.TotalAmount = total
		invoice.PaidAmount = paidTotal
		invoice.SaleDate = models.ResolveSaleDate(oldSaleDate, oldStatus, financial, payments, nowFunc())
		invoice.Note = input.Note

		if err := tx.WithContext(ctx).Save(&invoice).Error; err != nil {
			return err
		}

		// Full replace of items, then payments (no partial patch).
		if err := replaceInvoiceItems(tx, ctx, invoice.ID, items); err != nil {
			return err
		}
		if err := replaceInvoicePayments(tx, ctx, invoice.ID, payments); err != nil {
			return err
		}

		// Reservation delta as a set replacement; fictive sides are empty.
		oldSide := oldItems
		if oldStatus == models.FinancialStatusFictive {
			oldSide = nil
		}
		newSide := items
		if financial == models.FinancialStatusFictive {
			newSide = nil
		}
		if err := models.ApplyReservationDelta(tx, invoice.ID, oldSide, newSide); err != nil {
			return err
		}

		invoice.Items = items
		invoice.Payments = payments
		if err := models.SyncInvoiceMirror(tx, &invoice); err != nil {
			return err
		}

		if err := tx.Commit().Error; err != nil {
			return err
		}
		saved = &invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	models.InvalidateInvoiceCaches(cacheInvalidator, saved.AuthorId)

	return &SaveOutcome{Invoice: saved}, nil
}

func replaceInvoiceItems(tx *gorm.DB, ctx context.Context, invoiceId int, items []models.InvoiceItem) error {
	if err := tx.WithContext(ctx).Where("invoice_id = ?", invoiceId).
		Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ID = 0
		items[i].InvoiceId = invoiceId
	}
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func replaceInvoicePayments(tx *gorm.DB, ctx context.Context, invoiceId int, payments []models.PaymentRecord) error {
	if err := tx.WithContext(ctx).Where("invoice_id = ?", invoiceId).
		Delete(&models.PaymentRecord{}).Error; err != nil {
		return err
	}
	for i := range payments {
		payments[i].ID = 0
		payments[i].InvoiceId = invoiceId
	}
	if len(payments) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&payments).Error
}

const mirrorCreateAttempts = 3

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// saveMirrorOnly is the StoreUnavailable degradation: the canonical tables
// are not provisioned, so the write lands on the mirror alone and the
// outcome reports the degraded mode instead of failing.
func saveMirrorOnly(ctx context.Context, db *gorm.DB, invoiceId int, authorId int, customerId int, note string,
	financial models.FinancialStatus, items []models.InvoiceItem, payments []models.PaymentRecord) (*SaveOutcome, error) {
	logger := config.GetLogger()

	invoice := models.Invoice{
		ID:              invoiceId,
		CustomerId:      customerId,
		FinancialStatus: financial,
		LifecycleStatus: models.LifecycleStatusUnfinished,
		Note:            note,
		AuthorId:        authorId,
		Items:           items,
		Payments:        payments,
	}
	invoice.TotalAmount = models.InvoiceTotal(items)
	paid, _ := models.SummarizePayments(payments)
	invoice.PaidAmount = paid

	if invoiceId > 0 {
		var mirror models.InvoiceMirror
		if err := db.WithContext(ctx).Where("invoice_id = ?", invoiceId).First(&mirror).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.ErrorRecordNotFound
			}
			return nil, err
		}
		if err := models.CheckEditAllowed(mirror.LifecycleStatus, authorizer.CanEditCompleted(ctx)); err != nil {
			return nil, err
		}
		invoice.InvoiceNumber = mirror.InvoiceNumber
		invoice.LifecycleStatus = mirror.LifecycleStatus
		invoice.SaleDate = models.ResolveSaleDate(mirror.SaleDate, mirror.FinancialStatus, financial, payments, nowFunc())

		if err := models.SyncInvoiceMirror(db.WithContext(ctx), &invoice); err != nil {
			return nil, err
		}
	} else {
		invoice.SaleDate = models.ResolveSaleDate(nil, models.FinancialStatusFictive, financial, payments, nowFunc())

		// No canonical sequence available; derive the next id from the
		// mirror itself and retry when a concurrent create takes it first.
		created := false
		for attempt := 0; attempt < mirrorCreateAttempts && !created; attempt++ {
			var maxId *int
			if err := db.WithContext(ctx).Model(&models.InvoiceMirror{}).
				Select("max(invoice_id)").Scan(&maxId).Error; err != nil {
				return nil, err
			}
			next := 1
			if maxId != nil {
				next = *maxId + 1
			}
			invoice.ID = next
			invoice.InvoiceNumber = models.FallbackInvoiceNumber(next)

			err := models.CreateInvoiceMirror(db.WithContext(ctx), &invoice)
			if err == nil {
				created = true
			} else if !isDuplicateKeyError(err) {
				return nil, err
			}
		}
		if !created {
			return nil, fmt.Errorf("could not allocate a mirror invoice id after %d attempts", mirrorCreateAttempts)
		}
	}

	config.LogWarn(logger, "workflow", "SaveInvoice",
		utils.ErrStoreUnavailable.Error()+"; wrote mirror only",
		map[string]any{"invoice_id": invoice.ID, "correlation_id": models.CorrelationIdFromContextOrNew(ctx)})

	models.InvalidateInvoiceCaches(cacheInvalidator, authorId)

	return &SaveOutcome{Invoice: &invoice, StoreDegraded: true}, nil
}
