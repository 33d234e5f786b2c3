package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/pkg/enums"
)

// Evaluation is the read-only verdict for a discount code against a cart total.
type Evaluation struct {
	Valid  bool            `json:"valid"`
	Reason string          `json:"reason"`
	Amount decimal.Decimal `json:"amount"`
}

// CreateDiscountInput captures the fields accepted when creating a code.
type CreateDiscountInput struct {
	Code              string
	Type              enums.DiscountType
	Value             decimal.Decimal
	MinPurchase       *decimal.Decimal
	MaxDiscount       *decimal.Decimal
	ValidFrom         time.Time
	ValidTo           time.Time
	UsageLimit        *int
	FirstPurchaseOnly bool
	SingleUsePerUser  bool
}

// UpdateDiscountInput carries optional field updates. Nil pointers leave the
// column untouched.
type UpdateDiscountInput struct {
	Value             *decimal.Decimal
	MinPurchase       *decimal.Decimal
	MaxDiscount       *decimal.Decimal
	ValidFrom         *time.Time
	ValidTo           *time.Time
	IsActive          *bool
	UsageLimit        *int
	FirstPurchaseOnly *bool
	SingleUsePerUser  *bool
}
