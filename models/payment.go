package models

import (
	"strings"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/shopspring/decimal"
)

// PaymentRecord rows are append/replace-as-a-batch: every save replaces the
// invoice's full payment set with the submitted one.
type PaymentRecord struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Method      PaymentMethod   `gorm:"type:enum('Cash','BankTransfer','Consignment','Credit','Other','Mixed');not null;default:'Cash'" json:"method"`
	UserId      int             `gorm:"index;default:0" json:"user_id"`
	Comment     string          `gorm:"type:text" json:"comment"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPaymentRecord struct {
	Amount      FlexDecimal   `json:"amount"`
	PaymentDate string        `json:"payment_date"`
	Method      PaymentMethod `json:"method"`
	Comment     string        `json:"comment"`
}

// NormalizePayments parses the submitted batch. Records with amount <= 0 are
// dropped, not persisted. Dates accept ISO date or RFC3339.
func NormalizePayments(inputs []NewPaymentRecord, userId int) ([]PaymentRecord, error) {
	payments := make([]PaymentRecord, 0, len(inputs))
	for _, input := range inputs {
		if !input.Amount.Decimal.IsPositive() {
			continue
		}
		date, err := parsePaymentDate(input.PaymentDate)
		if err != nil {
			return nil, utils.NewValidationError("payment_date", "invalid payment date: "+input.PaymentDate)
		}
		method := input.Method
		if method == "" {
			method = PaymentMethodCash
		}
		if !method.IsValid() {
			return nil, utils.NewValidationError("method", "invalid payment method: "+string(input.Method))
		}
		payments = append(payments, PaymentRecord{
			Amount:      input.Amount.Decimal,
			PaymentDate: date,
			Method:      method,
			UserId:      userId,
			Comment:     input.Comment,
		})
	}
	return payments, nil
}

func parsePaymentDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// SummarizePayments derives the paid total and the latest payment date.
// Only positive amounts count; undated records never win the latest date.
// Ties on the date go to the later record in the batch.
func SummarizePayments(payments []PaymentRecord) (decimal.Decimal, *time.Time) {
	paidTotal := decimal.Zero
	var latest *time.Time
	for i := range payments {
		p := payments[i]
		if !p.Amount.IsPositive() {
			continue
		}
		paidTotal = paidTotal.Add(p.Amount)
		if p.PaymentDate.IsZero() {
			continue
		}
		if latest == nil || !p.PaymentDate.Before(*latest) {
			d := p.PaymentDate
			latest = &d
		}
	}
	return paidTotal, latest
}

// DeriveSaleDate computes the backdated timestamp an invoice is considered
// financially realized: the latest payment date combined with the current
// time-of-day, falling back to now. Fictive invoices carry no sale date.
func DeriveSaleDate(status FinancialStatus, payments []PaymentRecord, now time.Time) *time.Time {
	if status != FinancialStatusStandard {
		return nil
	}
	_, latest := SummarizePayments(payments)
	if latest == nil {
		t := now
		return &t
	}
	t := time.Date(latest.Year(), latest.Month(), latest.Day(),
		now.Hour(), now.Minute(), now.Second(), 0, now.Location())
	return &t
}

// ResolveSaleDate applies the write-once rule: a standing invoice keeps its
// sale date on re-save unless it is currently null or this save transitions
// fictive -> standard (the activation moment).
func ResolveSaleDate(existing *time.Time, oldStatus FinancialStatus, newStatus FinancialStatus, payments []PaymentRecord, now time.Time) *time.Time {
	if newStatus != FinancialStatusStandard {
		return nil
	}
	activating := oldStatus == FinancialStatusFictive && newStatus == FinancialStatusStandard
	if existing != nil && !activating {
		return existing
	}
	return DeriveSaleDate(newStatus, payments, now)
}
