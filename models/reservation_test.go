package models_test

import (
	"testing"

	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/shopspring/decimal"
)

func TestReservationContribution_FictiveContributesNothing(t *testing.T) {
	items := []models.InvoiceItem{
		{ProductId: 1, Quantity: decimal.NewFromInt(5), ItemStatus: models.ItemStatusReserved},
	}
	got := models.ReservationContribution(models.FinancialStatusFictive, items)
	if len(got) != 0 {
		t.Fatalf("fictive invoice must contribute nothing; got %v", got)
	}
}

func TestReservationContribution_OnlyReservedTrackedLinesCount(t *testing.T) {
	items := []models.InvoiceItem{
		{ProductId: 1, Quantity: decimal.NewFromInt(5), ItemStatus: models.ItemStatusReserved},
		{ProductId: 1, Quantity: decimal.NewFromInt(2), ItemStatus: models.ItemStatusReserved},
		{ProductId: 1, Quantity: decimal.NewFromInt(9), ItemStatus: models.ItemStatusSold},
		{ProductId: 2, Quantity: decimal.NewFromInt(3), ItemStatus: models.ItemStatusCanceled},
		// free-text line, no product reference
		{ProductId: 0, Quantity: decimal.NewFromInt(4), ItemStatus: models.ItemStatusReserved},
	}
	got := models.ReservationContribution(models.FinancialStatusStandard, items)
	if len(got) != 1 {
		t.Fatalf("expected 1 contributing product; got %v", got)
	}
	if got[1].Cmp(decimal.NewFromInt(7)) != 0 {
		t.Fatalf("expected product 1 reserved 7; got %s", got[1].String())
	}
}

func TestReservedByProduct_FoldsAcrossInvoices(t *testing.T) {
	invoices := []models.Invoice{
		{
			FinancialStatus: models.FinancialStatusStandard,
			Items: []models.InvoiceItem{
				{ProductId: 1, Quantity: decimal.NewFromInt(2), ItemStatus: models.ItemStatusReserved},
				{ProductId: 2, Quantity: decimal.NewFromInt(1), ItemStatus: models.ItemStatusReserved},
			},
		},
		{
			FinancialStatus: models.FinancialStatusStandard,
			Items: []models.InvoiceItem{
				{ProductId: 1, Quantity: decimal.NewFromInt(3), ItemStatus: models.ItemStatusReserved},
			},
		},
		{
			FinancialStatus: models.FinancialStatusFictive,
			Items: []models.InvoiceItem{
				{ProductId: 1, Quantity: decimal.NewFromInt(100), ItemStatus: models.ItemStatusReserved},
			},
		},
	}
	got := models.ReservedByProduct(invoices)
	if got[1].Cmp(decimal.NewFromInt(5)) != 0 {
		t.Fatalf("expected product 1 reserved 5; got %s", got[1].String())
	}
	if got[2].Cmp(decimal.NewFromInt(1)) != 0 {
		t.Fatalf("expected product 2 reserved 1; got %s", got[2].String())
	}

	// Recomputing from the same set is stable; the scan is a pure function
	// of invoice state, which is what makes delta retries idempotent.
	again := models.ReservedByProduct(invoices)
	if len(again) != len(got) {
		t.Fatalf("recompute changed the product set: %v vs %v", again, got)
	}
	for id, qty := range got {
		if again[id].Cmp(qty) != 0 {
			t.Fatalf("recompute changed product %d: %s vs %s", id, again[id].String(), qty.String())
		}
	}
}
