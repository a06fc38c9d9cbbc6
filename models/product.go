package models

import (
	"context"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/shopspring/decimal"
)

// Product stock quantity is owned elsewhere; this module only reads it to
// reserve against (see InventoryReader).
type Product struct {
	ID         int             `gorm:"primary_key" json:"id"`
	Name       string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Sku        string          `gorm:"size:100;index" json:"sku"`
	StockQty   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_qty"`
	TrackStock *bool           `gorm:"not null;default:true" json:"track_stock"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) GetID() int {
	return p.ID
}

// GetProduct reads through the Redis object cache; cache failures fall back
// to the database.
func GetProduct(ctx context.Context, productId int) (*Product, error) {
	cached, err := utils.RetrieveRedis[Product](productId)
	if err == nil && cached != nil {
		return cached, nil
	}
	if err != nil {
		config.LogWarn(config.GetLogger(), "models", "GetProduct", "failed to read product cache", productId)
	}

	db := config.GetDB()
	var product Product
	if err := db.WithContext(ctx).First(&product, productId).Error; err != nil {
		return nil, err
	}
	if err := utils.StoreRedis[Product](&product, productId); err != nil {
		config.LogWarn(config.GetLogger(), "models", "GetProduct", "failed to cache product", productId)
	}
	return &product, nil
}
