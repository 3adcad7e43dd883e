package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultLowStockThreshold applies when a product has no threshold of its own.
const DefaultLowStockThreshold = 10

var hundred = decimal.NewFromInt(100)

// Product is a sellable catalog item. StockQty is the only stock counter;
// the inventory ledger must always sum to it.
type Product struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	Name              string           `json:"name" gorm:"size:140;not null"`
	SKU               string           `json:"sku,omitempty" gorm:"size:80"`
	Description       string           `json:"description,omitempty" gorm:"size:500"`
	Price             decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null"`
	DiscountPercent   *decimal.Decimal `json:"discount_percent,omitempty" gorm:"type:numeric(5,2)"`
	DiscountEndsAt    *time.Time       `json:"discount_ends_at,omitempty"`
	StockQty          int              `json:"stock_qty" gorm:"not null"`
	LowStockThreshold int              `json:"low_stock_threshold" gorm:"not null"`
	VolumeLiters      decimal.Decimal  `json:"volume_liters" gorm:"type:numeric(6,2)"`
	AlcoholPercent    decimal.Decimal  `json:"alcohol_percent" gorm:"type:numeric(5,2)"`
	PackageType       string           `json:"package_type,omitempty" gorm:"size:40"`
	IsActive          bool             `json:"is_active" gorm:"not null;index"`
	CategoryID        uint             `json:"category_id" gorm:"not null;index"`
	Category          *Category        `json:"category,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	BrandID           *uint            `json:"brand_id,omitempty" gorm:"index"`
	Brand             *Brand           `json:"brand,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Images            []ProductImage   `json:"images,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `json:"created_at"`
}

// ProductImage is a stored picture of a product; at most one is the main image.
type ProductImage struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ProductID uint   `json:"product_id" gorm:"not null;index"`
	ImagePath string `json:"image_path" gorm:"size:300;not null"`
	IsMain    bool   `json:"is_main"`
}

// Brand groups products by producer.
type Brand struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:80;not null"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrNegativePrice = errors.New("price must not be negative")

// BeforeSave rejects values that must never reach the products table.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.DiscountPercent != nil && (p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred)) {
		return errors.New("discount percent must be between 0 and 100")
	}
	return nil
}

// DiscountActive reports whether the discount applies at the given instant.
func (p *Product) DiscountActive(now time.Time) bool {
	if p.DiscountPercent == nil || !p.DiscountPercent.IsPositive() || p.DiscountPercent.GreaterThan(hundred) {
		return false
	}
	return p.DiscountEndsAt == nil || now.Before(*p.DiscountEndsAt)
}

// EffectivePrice is the unit price a customer pays at the given instant,
// rounded to two decimals and never negative.
func (p *Product) EffectivePrice(now time.Time) decimal.Decimal {
	price := p.Price
	if price.IsNegative() {
		return decimal.Zero
	}
	if p.DiscountActive(now) {
		factor := decimal.NewFromInt(1).Sub(p.DiscountPercent.Div(hundred))
		price = price.Mul(factor)
	}
	price = price.Round(2)
	if price.GreaterThan(p.Price) {
		return p.Price
	}
	return price
}

// Threshold returns the low-stock threshold, falling back when unset.
func (p *Product) Threshold(fallback int) int {
	if p.LowStockThreshold > 0 {
		return p.LowStockThreshold
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultLowStockThreshold
}

type StockLevel string

const (
	StockLevelInStock    StockLevel = "in_stock"
	StockLevelLowStock   StockLevel = "low_stock"
	StockLevelOutOfStock StockLevel = "out_of_stock"
)

// StockLevel classifies current stock: out when stock <= 0, low when
// 0 < stock <= threshold.
func (p *Product) StockLevel(fallback int) StockLevel {
	switch {
	case p.StockQty <= 0:
		return StockLevelOutOfStock
	case p.StockQty <= p.Threshold(fallback):
		return StockLevelLowStock
	default:
		return StockLevelInStock
	}
}

// MainImagePath returns the main image, the first image, or "".
func (p *Product) MainImagePath() string {
	for _, img := range p.Images {
		if img.IsMain {
			return img.ImagePath
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].ImagePath
	}
	return ""
}
