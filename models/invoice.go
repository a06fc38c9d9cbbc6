package models

import (
	"bytes"
	"strings"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InvoiceNumber   string          `gorm:"size:255;uniqueIndex;not null" json:"invoice_number"`
	CustomerId      int             `gorm:"index;default:0" json:"customer_id"`
	FinancialStatus FinancialStatus `gorm:"type:enum('Fictive','Standard');not null;default:'Fictive'" json:"financial_status"`
	LifecycleStatus LifecycleStatus `gorm:"type:enum('Unfinished','Completed');not null;default:'Unfinished'" json:"lifecycle_status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	SaleDate        *time.Time      `json:"sale_date"`
	Note            string          `gorm:"type:text" json:"note"`
	AuthorId        int             `gorm:"index;not null" json:"author_id"`
	RsUploadedFlag  *bool           `gorm:"not null;default:false" json:"rs_uploaded_flag"`
	Items           []InvoiceItem   `gorm:"foreignKey:InvoiceId" json:"items"`
	Payments        []PaymentRecord `gorm:"foreignKey:InvoiceId" json:"payments"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (inv *Invoice) GetID() int {
	return inv.ID
}

// RemainingDue is max(0, total - paid).
func (inv *Invoice) RemainingDue() decimal.Decimal {
	due := inv.TotalAmount.Sub(inv.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// InvoiceItem has no identity outside its parent invoice; every save
// replaces the full item set.
type InvoiceItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InvoiceId       int             `gorm:"index;not null" json:"invoice_id"`
	ProductId       int             `gorm:"index;default:0" json:"product_id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Sku             string          `gorm:"size:100" json:"sku"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Price           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Total           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	ItemStatus      ItemStatus      `gorm:"type:enum('None','Reserved','Sold','Canceled');not null;default:'None'" json:"item_status"`
	ReservationDays int             `gorm:"default:0" json:"reservation_days"`
	WarrantyCode    string          `gorm:"size:100" json:"warranty_code"`
	ImageRef        string          `gorm:"size:255" json:"image_ref"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FlexDecimal tolerates loosely-typed client payloads: numbers, numeric
// strings, null, or garbage all parse; non-numeric input becomes 0.
type FlexDecimal struct {
	decimal.Decimal
}

func (d *FlexDecimal) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		d.Decimal = decimal.Zero
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		d.Decimal = decimal.Zero
		return nil
	}
	d.Decimal = v
	return nil
}

type NewInvoice struct {
	CustomerId int                `json:"customer_id"`
	Buyer      *RawBuyer          `json:"buyer"`
	Note       string             `json:"note"`
	Items      []NewInvoiceItem   `json:"items" binding:"required,dive"`
	Payments   []NewPaymentRecord `json:"payments" binding:"dive"`
}

type NewInvoiceItem struct {
	ProductId       int         `json:"product_id"`
	Name            string      `json:"name"`
	Sku             string      `json:"sku"`
	Quantity        FlexDecimal `json:"quantity"`
	Price           FlexDecimal `json:"price"`
	Total           FlexDecimal `json:"total"`
	ItemStatus      ItemStatus  `json:"item_status"`
	ReservationDays int         `json:"reservation_days"`
	WarrantyCode    string      `json:"warranty_code"`
	ImageRef        string      `json:"image_ref"`
}

// NormalizeItem parses one submitted line into a strict InvoiceItem.
// Total is recomputed as quantity*price only when the submitted total is
// not positive and both factors are; a positive submitted total is trusted
// verbatim (manual overrides, e.g. discounts). No side effects.
func NormalizeItem(input NewInvoiceItem) (InvoiceItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return InvoiceItem{}, utils.NewValidationError("name", "item name is required")
	}

	status := input.ItemStatus
	if status == "" {
		status = ItemStatusNone
	}
	if !status.IsValid() {
		return InvoiceItem{}, utils.NewValidationError("item_status", "invalid item status: "+string(input.ItemStatus))
	}

	qty := input.Quantity.Decimal
	if qty.IsNegative() {
		return InvoiceItem{}, utils.NewValidationError("quantity", "quantity must not be negative")
	}
	price := input.Price.Decimal
	if price.IsNegative() {
		return InvoiceItem{}, utils.NewValidationError("price", "price must not be negative")
	}

	total := input.Total.Decimal
	if !total.IsPositive() && qty.IsPositive() && price.IsPositive() {
		total = qty.Mul(price)
	}

	days := input.ReservationDays
	if days < 0 {
		days = 0
	}

	return InvoiceItem{
		ProductId:       input.ProductId,
		Name:            name,
		Sku:             strings.TrimSpace(input.Sku),
		Quantity:        qty,
		Price:           price,
		Total:           total,
		ItemStatus:      status,
		ReservationDays: days,
		WarrantyCode:    strings.TrimSpace(input.WarrantyCode),
		ImageRef:        strings.TrimSpace(input.ImageRef),
	}, nil
}

// NormalizeItems normalizes the full submitted set, keeping item order.
func NormalizeItems(inputs []NewInvoiceItem) ([]InvoiceItem, error) {
	items := make([]InvoiceItem, 0, len(inputs))
	for _, input := range inputs {
		item, err := NormalizeItem(input)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// InvoiceTotal is the sum of line totals over non-canceled lines.
func InvoiceTotal(items []InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.ItemStatus == ItemStatusCanceled {
			continue
		}
		total = total.Add(item.Total)
	}
	return total
}
