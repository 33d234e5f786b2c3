package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart accumulates line items until the cart is converted into an order.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid"`
	SessionID *string    `gorm:"column:session_id"`
	IsGuest   bool       `gorm:"column:is_guest;not null;default:false"`
	Email     *string    `gorm:"column:email"`
	Phone     *string    `gorm:"column:phone"`
	IsOrdered bool       `gorm:"column:is_ordered;not null;default:false"`
	// SubtotalSnapshot and Total stay null until the cart is converted
	// into an order.
	SubtotalSnapshot *decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2)"`
	Total            *decimal.Decimal `gorm:"column:total;type:numeric(10,2)"`
	Items            []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Subtotal sums the frozen line subtotals of every item in the cart.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.LineSubtotal())
	}
	return sum
}

// TotalItems sums the quantities across the cart's line items.
func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}
