package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a storefront listing with frozen-at-read pricing.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID  uuid.UUID        `gorm:"column:category_id;type:uuid;not null"`
	SKU         string           `gorm:"column:sku;not null;uniqueIndex:ux_products_sku"`
	Name        string           `gorm:"column:name;not null"`
	Slug        string           `gorm:"column:slug;not null;uniqueIndex:ux_products_slug"`
	Description *string          `gorm:"column:description"`
	NotesTop    *string          `gorm:"column:notes_top"`
	NotesMiddle *string          `gorm:"column:notes_middle"`
	NotesBase   *string          `gorm:"column:notes_base"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	SalePrice   *decimal.Decimal `gorm:"column:sale_price;type:numeric(10,2)"`
	Stock       int              `gorm:"column:stock;not null;default:0"`
	ImageURL    *string          `gorm:"column:image_url"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	IsFeatured  bool             `gorm:"column:is_featured;not null;default:false"`
	Category    *Category        `gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the sale price when one is set and undercuts the
// list price, else the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price) {
		return *p.SalePrice
	}
	return p.Price
}

// OnSale reports whether the product currently has an effective sale price.
func (p Product) OnSale() bool {
	return p.SalePrice != nil && p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price)
}
