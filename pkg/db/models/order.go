package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/pkg/enums"
)

// Order is an immutable checkout snapshot. Status and IsPaid are the only
// fields mutated after creation.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string            `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID          *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	CartID          *uuid.UUID        `gorm:"column:cart_id;type:uuid"`
	DiscountID      *uuid.UUID        `gorm:"column:discount_id;type:uuid"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	IsPaid          bool              `gorm:"column:is_paid;not null;default:false"`
	Email           string            `gorm:"column:email;not null"`
	Phone           string            `gorm:"column:phone;not null"`
	FirstName       string            `gorm:"column:first_name;not null"`
	LastName        string            `gorm:"column:last_name;not null"`
	ShippingAddress string            `gorm:"column:shipping_address;not null"`
	BillingAddress  string            `gorm:"column:billing_address;not null"`
	City            string            `gorm:"column:city;not null"`
	Country         string            `gorm:"column:country;not null"`
	Currency        enums.Currency    `gorm:"column:currency;type:currency;not null;default:'KES'"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:numeric(10,2);not null"`
	ShippingCost    decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(10,2);not null"`
	Tax             decimal.Decimal   `gorm:"column:tax;type:numeric(10,2);not null"`
	DiscountAmount  decimal.Decimal   `gorm:"column:discount_amount;type:numeric(10,2);not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(10,2);not null"`
	PaymentURL      *string           `gorm:"column:payment_url"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
