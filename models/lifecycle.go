package models

import (
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/shopspring/decimal"
)

// PaidEpsilon is the tolerance below which an invoice counts as unpaid for
// the fictive toggle.
var PaidEpsilon = decimal.NewFromFloat(0.001)

// DeriveFinancialStatus implements the auto-derivation rule of a full save:
// Standard iff the submitted payments sum to more than zero. It overrides
// any explicitly requested status on create/update.
func DeriveFinancialStatus(paidTotal decimal.Decimal) FinancialStatus {
	if paidTotal.IsPositive() {
		return FinancialStatusStandard
	}
	return FinancialStatusFictive
}

// EnforceFictiveItems forces every item to None with no reservation window.
// Fictive invoices never hold stock.
func EnforceFictiveItems(items []InvoiceItem) {
	for i := range items {
		items[i].ItemStatus = ItemStatusNone
		items[i].ReservationDays = 0
	}
}

// ApplyStandardItemDefaults promotes None items to Reserved on a standard
// save. Sold and Canceled submissions are kept as submitted.
func ApplyStandardItemDefaults(items []InvoiceItem) {
	for i := range items {
		if items[i].ItemStatus == ItemStatusNone {
			items[i].ItemStatus = ItemStatusReserved
		}
	}
}

// CheckFictiveToggle rejects marking a part-paid or fully-paid invoice
// fictive.
func CheckFictiveToggle(paidTotal decimal.Decimal) error {
	if paidTotal.GreaterThan(PaidEpsilon) {
		return utils.ErrInvalidTransition
	}
	return nil
}

// CheckStatusToggle validates a financial-status toggle as a whole:
// completed invoices are frozen (Completed never pairs with Fictive), and
// anything paid cannot go fictive.
func CheckStatusToggle(lifecycle LifecycleStatus, target FinancialStatus, paidTotal decimal.Decimal) error {
	if lifecycle == LifecycleStatusCompleted {
		return utils.ErrInvalidTransition
	}
	if target == FinancialStatusFictive {
		return CheckFictiveToggle(paidTotal)
	}
	return nil
}

// MarkItemsSold promotes every Reserved item to Sold with a zeroed
// reservation window and reports how many items changed.
func MarkItemsSold(items []InvoiceItem) int {
	changed := 0
	for i := range items {
		if items[i].ItemStatus != ItemStatusReserved {
			continue
		}
		items[i].ItemStatus = ItemStatusSold
		items[i].ReservationDays = 0
		changed++
	}
	return changed
}

// CheckEditAllowed is the edit lock: once completed, full saves are rejected
// for every caller except one the authorization collaborator elevates.
func CheckEditAllowed(lifecycle LifecycleStatus, canEditCompleted bool) error {
	if lifecycle == LifecycleStatusCompleted && !canEditCompleted {
		return utils.ErrPermissionDenied
	}
	return nil
}
