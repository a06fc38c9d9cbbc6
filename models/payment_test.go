package models_test

import (
	"testing"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/shopspring/decimal"
)

func flex(s string) models.FlexDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return models.FlexDecimal{Decimal: d}
}

func TestNormalizePayments_DropsNonPositiveAndDefaultsMethod(t *testing.T) {
	payments, err := models.NormalizePayments([]models.NewPaymentRecord{
		{Amount: flex("0"), PaymentDate: "2026-01-10"},
		{Amount: flex("-5"), PaymentDate: "2026-01-10"},
		{Amount: flex("150.50"), PaymentDate: "2026-01-12"},
	}, 7)
	if err != nil {
		t.Fatalf("NormalizePayments: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected 1 surviving payment; got %d", len(payments))
	}
	p := payments[0]
	if p.Amount.Cmp(decimal.RequireFromString("150.50")) != 0 {
		t.Fatalf("expected amount 150.50; got %s", p.Amount.String())
	}
	if p.Method != models.PaymentMethodCash {
		t.Fatalf("expected default method Cash; got %s", p.Method)
	}
	if p.UserId != 7 {
		t.Fatalf("expected user_id 7; got %d", p.UserId)
	}
	if p.PaymentDate.Format("2006-01-02") != "2026-01-12" {
		t.Fatalf("unexpected payment date: %s", p.PaymentDate)
	}
}

func TestNormalizePayments_InvalidDateRejected(t *testing.T) {
	_, err := models.NormalizePayments([]models.NewPaymentRecord{
		{Amount: flex("10"), PaymentDate: "12.01.2026"},
	}, 1)
	if err == nil {
		t.Fatalf("expected validation error for malformed date")
	}
}

func TestNormalizePayments_InvalidMethodRejected(t *testing.T) {
	_, err := models.NormalizePayments([]models.NewPaymentRecord{
		{Amount: flex("10"), PaymentDate: "2026-01-10", Method: "Barter"},
	}, 1)
	if err == nil {
		t.Fatalf("expected validation error for unknown method")
	}
}

func TestSummarizePayments_LatestDateTieGoesToLaterRecord(t *testing.T) {
	d1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	payments := []models.PaymentRecord{
		{Amount: decimal.NewFromInt(100), PaymentDate: d2, Comment: "first at d2"},
		{Amount: decimal.NewFromInt(50), PaymentDate: d1},
		{Amount: decimal.NewFromInt(25), PaymentDate: d2, Comment: "second at d2"},
	}
	total, latest := models.SummarizePayments(payments)
	if total.Cmp(decimal.NewFromInt(175)) != 0 {
		t.Fatalf("expected paid total 175; got %s", total.String())
	}
	if latest == nil || !latest.Equal(d2) {
		t.Fatalf("expected latest date %s; got %v", d2, latest)
	}
}

func TestSummarizePayments_UndatedRecordsNeverWin(t *testing.T) {
	d := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	payments := []models.PaymentRecord{
		{Amount: decimal.NewFromInt(10), PaymentDate: d},
		{Amount: decimal.NewFromInt(20)},
	}
	total, latest := models.SummarizePayments(payments)
	if total.Cmp(decimal.NewFromInt(30)) != 0 {
		t.Fatalf("expected paid total 30; got %s", total.String())
	}
	if latest == nil || !latest.Equal(d) {
		t.Fatalf("expected latest %s; got %v", d, latest)
	}
}

func TestDeriveSaleDate_BackdatesToLatestPaymentWithCurrentTimeOfDay(t *testing.T) {
	now := time.Date(2026, 4, 20, 14, 35, 9, 0, time.UTC)
	paid := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)
	payments := []models.PaymentRecord{
		{Amount: decimal.NewFromInt(100), PaymentDate: paid},
	}
	got := models.DeriveSaleDate(models.FinancialStatusStandard, payments, now)
	if got == nil {
		t.Fatalf("expected a sale date")
	}
	want := time.Date(2026, 4, 3, 14, 35, 9, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected sale date %s; got %s", want, got)
	}
}

func TestDeriveSaleDate_NoDatedPaymentsFallsBackToNow(t *testing.T) {
	now := time.Date(2026, 4, 20, 14, 35, 9, 0, time.UTC)
	got := models.DeriveSaleDate(models.FinancialStatusStandard, nil, now)
	if got == nil || !got.Equal(now) {
		t.Fatalf("expected sale date = now; got %v", got)
	}
}

func TestDeriveSaleDate_FictiveHasNoSaleDate(t *testing.T) {
	now := time.Now()
	payments := []models.PaymentRecord{
		{Amount: decimal.NewFromInt(100), PaymentDate: now},
	}
	if got := models.DeriveSaleDate(models.FinancialStatusFictive, payments, now); got != nil {
		t.Fatalf("fictive invoice must not get a sale date; got %s", got)
	}
}

func TestResolveSaleDate_WriteOnce(t *testing.T) {
	existing := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	payments := []models.PaymentRecord{
		{Amount: decimal.NewFromInt(10), PaymentDate: time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)},
	}

	// Re-save of a standing standard invoice keeps the date.
	got := models.ResolveSaleDate(&existing, models.FinancialStatusStandard, models.FinancialStatusStandard, payments, now)
	if got == nil || !got.Equal(existing) {
		t.Fatalf("re-save must keep the existing sale date; got %v", got)
	}

	// Null date gets backfilled.
	got = models.ResolveSaleDate(nil, models.FinancialStatusStandard, models.FinancialStatusStandard, payments, now)
	if got == nil || got.Equal(existing) {
		t.Fatalf("null sale date must be derived; got %v", got)
	}

	// Activation (fictive -> standard) re-derives even over an old value.
	got = models.ResolveSaleDate(&existing, models.FinancialStatusFictive, models.FinancialStatusStandard, payments, now)
	if got == nil || got.Equal(existing) {
		t.Fatalf("activation must re-derive the sale date; got %v", got)
	}

	// Going fictive clears it.
	if got = models.ResolveSaleDate(&existing, models.FinancialStatusStandard, models.FinancialStatusFictive, payments, now); got != nil {
		t.Fatalf("fictive target must clear the sale date; got %s", got)
	}
}
