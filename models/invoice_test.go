package models_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/shopspring/decimal"
)

func TestNormalizeItem(t *testing.T) {
	cases := []struct {
		name      string
		input     models.NewInvoiceItem
		wantErr   bool
		wantField string
		check     func(t *testing.T, item models.InvoiceItem)
	}{
		{
			name:      "empty name rejected",
			input:     models.NewInvoiceItem{Name: "   "},
			wantErr:   true,
			wantField: "name",
		},
		{
			name:      "unknown status rejected",
			input:     models.NewInvoiceItem{Name: "Widget", ItemStatus: "Pending"},
			wantErr:   true,
			wantField: "item_status",
		},
		{
			name:      "negative quantity rejected",
			input:     models.NewInvoiceItem{Name: "Widget", Quantity: flex("-1")},
			wantErr:   true,
			wantField: "quantity",
		},
		{
			name:      "negative price rejected",
			input:     models.NewInvoiceItem{Name: "Widget", Price: flex("-0.01")},
			wantErr:   true,
			wantField: "price",
		},
		{
			name:  "empty status defaults to None",
			input: models.NewInvoiceItem{Name: "Widget"},
			check: func(t *testing.T, item models.InvoiceItem) {
				if item.ItemStatus != models.ItemStatusNone {
					t.Fatalf("expected None; got %s", item.ItemStatus)
				}
			},
		},
		{
			name:  "total recomputed from quantity and price",
			input: models.NewInvoiceItem{Name: "Widget", Quantity: flex("3"), Price: flex("2.50")},
			check: func(t *testing.T, item models.InvoiceItem) {
				if item.Total.Cmp(decimal.RequireFromString("7.50")) != 0 {
					t.Fatalf("expected total 7.50; got %s", item.Total.String())
				}
			},
		},
		{
			name:  "submitted positive total trusted verbatim",
			input: models.NewInvoiceItem{Name: "Widget", Quantity: flex("3"), Price: flex("2.50"), Total: flex("6")},
			check: func(t *testing.T, item models.InvoiceItem) {
				if item.Total.Cmp(decimal.NewFromInt(6)) != 0 {
					t.Fatalf("expected total 6; got %s", item.Total.String())
				}
			},
		},
		{
			name:  "negative reservation days clamped to zero",
			input: models.NewInvoiceItem{Name: "Widget", ReservationDays: -3},
			check: func(t *testing.T, item models.InvoiceItem) {
				if item.ReservationDays != 0 {
					t.Fatalf("expected 0 reservation days; got %d", item.ReservationDays)
				}
			},
		},
		{
			name:  "name and sku trimmed",
			input: models.NewInvoiceItem{Name: "  Widget ", Sku: " W-1 "},
			check: func(t *testing.T, item models.InvoiceItem) {
				if item.Name != "Widget" || item.Sku != "W-1" {
					t.Fatalf("expected trimmed fields; got %q %q", item.Name, item.Sku)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item, err := models.NormalizeItem(tc.input)
			if tc.wantErr {
				var vErr *utils.ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected validation error; got %v", err)
				}
				if vErr.Field != tc.wantField {
					t.Fatalf("expected field %q; got %q", tc.wantField, vErr.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeItem: %v", err)
			}
			tc.check(t, item)
		})
	}
}

func TestInvoiceTotal_SkipsCanceledLines(t *testing.T) {
	items := []models.InvoiceItem{
		{Name: "A", Total: decimal.NewFromInt(100), ItemStatus: models.ItemStatusReserved},
		{Name: "B", Total: decimal.NewFromInt(40), ItemStatus: models.ItemStatusCanceled},
		{Name: "C", Total: decimal.NewFromInt(60), ItemStatus: models.ItemStatusNone},
	}
	total := models.InvoiceTotal(items)
	if total.Cmp(decimal.NewFromInt(160)) != 0 {
		t.Fatalf("expected total 160; got %s", total.String())
	}
}

func TestFlexDecimal_TolerantParsing(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`12.5`, "12.5"},
		{`"12.5"`, "12.5"},
		{`null`, "0"},
		{`""`, "0"},
		{`"abc"`, "0"},
	}
	for _, tc := range cases {
		var d models.FlexDecimal
		if err := json.Unmarshal([]byte(tc.raw), &d); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.raw, err)
		}
		if d.Decimal.Cmp(decimal.RequireFromString(tc.want)) != 0 {
			t.Fatalf("unmarshal %s: expected %s; got %s", tc.raw, tc.want, d.Decimal.String())
		}
	}
}

func TestRemainingDue_FlooredAtZero(t *testing.T) {
	inv := models.Invoice{
		TotalAmount: decimal.NewFromInt(100),
		PaidAmount:  decimal.NewFromInt(130),
	}
	if due := inv.RemainingDue(); !due.IsZero() {
		t.Fatalf("overpaid invoice must report 0 due; got %s", due.String())
	}
	inv.PaidAmount = decimal.NewFromInt(30)
	if due := inv.RemainingDue(); due.Cmp(decimal.NewFromInt(70)) != 0 {
		t.Fatalf("expected 70 due; got %s", due.String())
	}
}
