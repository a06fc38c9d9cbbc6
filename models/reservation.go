package models

import (
	"context"
	"sort"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductReservation is the per-product reservation counter. It is derived
// state: reserved_qty always equals the scan definition (sum of quantity
// over Reserved items on Standard invoices) and is recomputed under a row
// lock on every delta, which is what makes retries idempotent.
type ProductReservation struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ProductId   int             `gorm:"uniqueIndex;not null" json:"product_id"`
	ReservedQty decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved_qty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReservedQuantity is the scan definition, optionally excluding one invoice
// ("recompute as if this invoice's old items didn't exist yet"). The scan is
// a locking read: under REPEATABLE READ a plain SELECT would reuse the
// transaction's snapshot and miss rows committed while this transaction was
// waiting on a counter-row lock.
func ReservedQuantity(tx *gorm.DB, productId int, excludeInvoiceId int) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := tx.Raw(`
		SELECT COALESCE(SUM(ii.quantity), 0)
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		WHERE ii.product_id = ?
		  AND ii.item_status = ?
		  AND i.financial_status = ?
		  AND ii.invoice_id <> ?
		FOR UPDATE`,
		productId, ItemStatusReserved, FinancialStatusStandard, excludeInvoiceId,
	).Scan(&qty).Error
	if err != nil {
		return decimal.Zero, err
	}
	return qty, nil
}

// AvailableQuantity returns tracked stock minus reserved, floored at zero.
// unlimited=true when the product does not track stock.
func AvailableQuantity(ctx context.Context, tx *gorm.DB, inventory InventoryReader, productId int, excludeInvoiceId int) (decimal.Decimal, bool, error) {
	stock, tracked, err := inventory.TrackedStock(ctx, productId)
	if err != nil {
		return decimal.Zero, false, err
	}
	if !tracked {
		return decimal.Zero, true, nil
	}
	reserved, err := ReservedQuantity(tx, productId, excludeInvoiceId)
	if err != nil {
		return decimal.Zero, false, err
	}
	available := stock.Sub(reserved)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return available, false, nil
}

// ValidateItemStock checks every stock-holding line of a save against
// availability, excluding the invoice's own current reservations. Requested
// quantities are accumulated per product within the request so multiple
// lines cannot over-consume the same stock. Returns a ShortageListError
// naming every short item, or nil.
func ValidateItemStock(ctx context.Context, tx *gorm.DB, inventory InventoryReader, items []InvoiceItem, excludeInvoiceId int) error {
	var shortages utils.ShortageListError
	requested := make(map[int]decimal.Decimal)

	for _, item := range items {
		if item.ProductId <= 0 || item.ItemStatus != ItemStatusReserved {
			continue
		}
		available, unlimited, err := AvailableQuantity(ctx, tx, inventory, item.ProductId, excludeInvoiceId)
		if err != nil {
			return err
		}
		if unlimited {
			continue
		}
		already := requested[item.ProductId]
		remaining := available.Sub(already)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		if item.Quantity.GreaterThan(remaining) {
			shortages = append(shortages, utils.ShortageError{
				ProductId: item.ProductId,
				Name:      item.Name,
				Requested: item.Quantity,
				Available: remaining,
			})
			continue
		}
		requested[item.ProductId] = already.Add(item.Quantity)
	}

	if len(shortages) > 0 {
		return shortages
	}
	return nil
}

// FirstOrCreateProductReservation finds or creates the counter row for a
// product, locked FOR UPDATE for the rest of the transaction.
func FirstOrCreateProductReservation(tx *gorm.DB, productId int) (*ProductReservation, error) {
	reservation := ProductReservation{ProductId: productId}
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productId).
		FirstOrCreate(&reservation)
	if result.Error != nil {
		// A concurrent transaction can win the first-contact insert; by the
		// time the duplicate error surfaces the row exists, so lock it.
		var existing ProductReservation
		if ferr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", productId).
			First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, result.Error
	}
	return &reservation, nil
}

// LockReservationCounters takes the counter-row locks for every product a
// save or toggle will touch, before availability is read. Without this the
// check-then-act section would only be serialized by the Redis posting
// lock, which is absent when the service runs without Redis; the counter
// row is the per-product mutex either way.
func LockReservationCounters(tx *gorm.DB, oldItems []InvoiceItem, newItems []InvoiceItem) error {
	productIds := affectedProductIds(oldItems, newItems)
	sort.Ints(productIds)
	for _, productId := range productIds {
		if _, err := FirstOrCreateProductReservation(tx, productId); err != nil {
			return err
		}
	}
	return nil
}

// ApplyReservationDelta settles the counters for a set replacement of one
// invoice's items. It must run inside the same transaction that replaced
// the item rows, after the replacement: each affected product's counter row
// is locked and recomputed from the scan definition, so applying the same
// (oldItems, newItems) pair twice yields the same end state as once.
// Fictive sides must be passed as empty sets by the caller.
func ApplyReservationDelta(tx *gorm.DB, invoiceId int, oldItems []InvoiceItem, newItems []InvoiceItem) error {
	productIds := affectedProductIds(oldItems, newItems)
	// Deterministic lock order across concurrent saves.
	sort.Ints(productIds)

	for _, productId := range productIds {
		reservation, err := FirstOrCreateProductReservation(tx, productId)
		if err != nil {
			return err
		}
		reserved, err := ReservedQuantity(tx, productId, 0)
		if err != nil {
			return err
		}
		if err := tx.Model(&ProductReservation{}).
			Where("id = ?", reservation.ID).
			Update("reserved_qty", reserved).Error; err != nil {
			return err
		}
	}
	return nil
}

func affectedProductIds(oldItems []InvoiceItem, newItems []InvoiceItem) []int {
	ids := make([]int, 0, len(oldItems)+len(newItems))
	for _, set := range [][]InvoiceItem{oldItems, newItems} {
		for _, item := range set {
			if item.ProductId > 0 {
				ids = append(ids, item.ProductId)
			}
		}
	}
	return utils.UniqueSlice(ids)
}

// ReservationContribution is the in-memory scan definition for one invoice:
// what its items add to each product's reserved quantity. Fictive invoices
// contribute nothing.
func ReservationContribution(status FinancialStatus, items []InvoiceItem) map[int]decimal.Decimal {
	contribution := make(map[int]decimal.Decimal)
	if status != FinancialStatusStandard {
		return contribution
	}
	for _, item := range items {
		if item.ProductId <= 0 || item.ItemStatus != ItemStatusReserved {
			continue
		}
		contribution[item.ProductId] = contribution[item.ProductId].Add(item.Quantity)
	}
	return contribution
}

// ReservedByProduct folds the scan definition over a set of invoices.
func ReservedByProduct(invoices []Invoice) map[int]decimal.Decimal {
	reserved := make(map[int]decimal.Decimal)
	for _, inv := range invoices {
		for productId, qty := range ReservationContribution(inv.FinancialStatus, inv.Items) {
			reserved[productId] = reserved[productId].Add(qty)
		}
	}
	return reserved
}
