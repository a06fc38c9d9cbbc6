package models

import (
	"context"
	"errors"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceMirror is the legacy denormalized copy of an invoice: the header
// subset older readers need plus a serialized snapshot of items/payments.
// It is a write-through cache of the canonical tables, written in the same
// transaction; reads fall back to it only for fields the canonical store
// has not backfilled.
type InvoiceMirror struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InvoiceId       int             `gorm:"uniqueIndex;not null" json:"invoice_id"`
	InvoiceNumber   string          `gorm:"size:255;index" json:"invoice_number"`
	FinancialStatus FinancialStatus `gorm:"type:enum('Fictive','Standard');not null;default:'Fictive'" json:"financial_status"`
	LifecycleStatus LifecycleStatus `gorm:"type:enum('Unfinished','Completed');not null;default:'Unfinished'" json:"lifecycle_status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	SaleDate        *time.Time      `json:"sale_date"`
	Note            string          `gorm:"type:text" json:"note"`
	AuthorId        int             `gorm:"index" json:"author_id"`
	ItemsJSON       string          `gorm:"type:text" json:"items_json"`
	PaymentsJSON    string          `gorm:"type:text" json:"payments_json"`
	SyncedAt        time.Time       `gorm:"autoUpdateTime" json:"synced_at"`
}

// CanonicalStoreReady reports whether the canonical tables are provisioned.
// When they are not, writes degrade to the mirror (StoreUnavailable mode).
func CanonicalStoreReady(db *gorm.DB) bool {
	return db.Migrator().HasTable(&Invoice{}) &&
		db.Migrator().HasTable(&InvoiceItem{}) &&
		db.Migrator().HasTable(&PaymentRecord{})
}

func buildInvoiceMirror(inv *Invoice) (*InvoiceMirror, error) {
	itemsJSON, err := utils.MarshalToJSON(inv.Items)
	if err != nil {
		return nil, err
	}
	paymentsJSON, err := utils.MarshalToJSON(inv.Payments)
	if err != nil {
		return nil, err
	}
	return &InvoiceMirror{
		InvoiceId:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		FinancialStatus: inv.FinancialStatus,
		LifecycleStatus: inv.LifecycleStatus,
		TotalAmount:     inv.TotalAmount,
		PaidAmount:      inv.PaidAmount,
		SaleDate:        inv.SaleDate,
		Note:            inv.Note,
		AuthorId:        inv.AuthorId,
		ItemsJSON:       itemsJSON,
		PaymentsJSON:    paymentsJSON,
	}, nil
}

// SyncInvoiceMirror upserts the mirror row from the canonical invoice.
// Idempotent: re-mirroring the same invoice converges on the same row.
func SyncInvoiceMirror(tx *gorm.DB, inv *Invoice) error {
	mirror, err := buildInvoiceMirror(inv)
	if err != nil {
		return err
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"invoice_number", "financial_status", "lifecycle_status",
			"total_amount", "paid_amount", "sale_date", "note", "author_id",
			"items_json", "payments_json",
		}),
	}).Create(mirror).Error
}

// CreateInvoiceMirror inserts a brand-new mirror row. Unlike
// SyncInvoiceMirror it fails on an invoice_id collision instead of
// overwriting, so degraded-mode creates can detect a concurrent allocation
// of the same id.
func CreateInvoiceMirror(tx *gorm.DB, inv *Invoice) error {
	mirror, err := buildInvoiceMirror(inv)
	if err != nil {
		return err
	}
	return tx.Create(mirror).Error
}

// GetInvoice reads the canonical record, falling back to the mirror for
// fields not yet backfilled (sale_date, note). When the canonical store is
// absent the mirror alone serves the read.
func GetInvoice(ctx context.Context, invoiceId int) (*Invoice, error) {
	db := config.GetDB()

	if !CanonicalStoreReady(db) {
		return getInvoiceFromMirror(ctx, db, invoiceId)
	}

	var invoice Invoice
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&invoice, invoiceId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	if invoice.SaleDate == nil || invoice.Note == "" {
		var mirror InvoiceMirror
		if merr := db.WithContext(ctx).Where("invoice_id = ?", invoiceId).First(&mirror).Error; merr == nil {
			if invoice.SaleDate == nil {
				invoice.SaleDate = mirror.SaleDate
			}
			if invoice.Note == "" {
				invoice.Note = mirror.Note
			}
		}
	}

	return &invoice, nil
}

func getInvoiceFromMirror(ctx context.Context, db *gorm.DB, invoiceId int) (*Invoice, error) {
	var mirror InvoiceMirror
	if err := db.WithContext(ctx).Where("invoice_id = ?", invoiceId).First(&mirror).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return mirror.ToInvoice()
}

// ToInvoice rebuilds an Invoice view from the denormalized mirror row.
func (m *InvoiceMirror) ToInvoice() (*Invoice, error) {
	invoice := Invoice{
		ID:              m.InvoiceId,
		InvoiceNumber:   m.InvoiceNumber,
		FinancialStatus: m.FinancialStatus,
		LifecycleStatus: m.LifecycleStatus,
		TotalAmount:     m.TotalAmount,
		PaidAmount:      m.PaidAmount,
		SaleDate:        m.SaleDate,
		Note:            m.Note,
		AuthorId:        m.AuthorId,
	}
	if m.ItemsJSON != "" {
		if err := utils.UnmarshalFromJSON([]byte(m.ItemsJSON), &invoice.Items); err != nil {
			return nil, err
		}
	}
	if m.PaymentsJSON != "" {
		if err := utils.UnmarshalFromJSON([]byte(m.PaymentsJSON), &invoice.Payments); err != nil {
			return nil, err
		}
	}
	return &invoice, nil
}

// ListInvoicesByAuthor backs the user_invoices_<authorId> cache.
func ListInvoicesByAuthor(ctx context.Context, authorId int) ([]*Invoice, error) {
	db := config.GetDB()
	if !CanonicalStoreReady(db) {
		var mirrors []InvoiceMirror
		if err := db.WithContext(ctx).Where("author_id = ?", authorId).
			Order("invoice_id").Find(&mirrors).Error; err != nil {
			return nil, err
		}
		invoices := make([]*Invoice, 0, len(mirrors))
		for i := range mirrors {
			inv, err := mirrors[i].ToInvoice()
			if err != nil {
				return nil, err
			}
			invoices = append(invoices, inv)
		}
		return invoices, nil
	}

	var invoices []*Invoice
	if err := db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where("author_id = ?", authorId).
		Order("id").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
