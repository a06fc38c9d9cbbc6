package models

// FinancialStatus is the money axis of an invoice: Fictive invoices have
// received no money and never hold stock; Standard invoices have payments
// and reserve inventory.
type FinancialStatus string

const (
	FinancialStatusFictive  FinancialStatus = "Fictive"
	FinancialStatusStandard FinancialStatus = "Standard"
)

func (s FinancialStatus) IsValid() bool {
	return s == FinancialStatusFictive || s == FinancialStatusStandard
}

// LifecycleStatus is the completion axis. Completed is terminal within this
// module: no exposed operation reverts it.
type LifecycleStatus string

const (
	LifecycleStatusUnfinished LifecycleStatus = "Unfinished"
	LifecycleStatusCompleted  LifecycleStatus = "Completed"
)

func (s LifecycleStatus) IsValid() bool {
	return s == LifecycleStatusUnfinished || s == LifecycleStatusCompleted
}

type ItemStatus string

const (
	ItemStatusNone     ItemStatus = "None"
	ItemStatusReserved ItemStatus = "Reserved"
	ItemStatusSold     ItemStatus = "Sold"
	ItemStatusCanceled ItemStatus = "Canceled"
)

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusNone, ItemStatusReserved, ItemStatusSold, ItemStatusCanceled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
	PaymentMethodConsignment  PaymentMethod = "Consignment"
	PaymentMethodCredit       PaymentMethod = "Credit"
	PaymentMethodOther        PaymentMethod = "Other"
	PaymentMethodMixed        PaymentMethod = "Mixed"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodConsignment,
		PaymentMethodCredit, PaymentMethodOther, PaymentMethodMixed:
		return true
	}
	return false
}
