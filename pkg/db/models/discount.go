package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/pkg/enums"
)

// Discount represents a redeemable promotional code.
type Discount struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string             `gorm:"column:code;not null;uniqueIndex:ux_discounts_code"`
	Type              enums.DiscountType `gorm:"column:type;type:discount_type;not null"`
	Value             decimal.Decimal    `gorm:"column:value;type:numeric(10,2);not null"`
	MinPurchase       *decimal.Decimal   `gorm:"column:min_purchase;type:numeric(10,2)"`
	MaxDiscount       *decimal.Decimal   `gorm:"column:max_discount;type:numeric(10,2)"`
	ValidFrom         time.Time          `gorm:"column:valid_from;not null"`
	ValidTo           time.Time          `gorm:"column:valid_to;not null"`
	IsActive          bool               `gorm:"column:is_active;not null;default:true"`
	UsageLimit        *int               `gorm:"column:usage_limit"`
	TimesUsed         int                `gorm:"column:times_used;not null;default:0"`
	FirstPurchaseOnly bool               `gorm:"column:first_purchase_only;not null;default:false"`
	SingleUsePerUser  bool               `gorm:"column:single_use_per_user;not null;default:false"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
