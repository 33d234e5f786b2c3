package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/pkg/enums"
)

// OrderCreatedEvent signals a cart was converted into an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Currency    enums.Currency  `json:"currency"`
	ItemCount   int             `json:"item_count"`
}

// OrderPaidEvent is emitted when a gateway callback confirms payment.
type OrderPaidEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	TrackingID    string          `json:"tracking_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
}

// PaymentFailedEvent reports a gateway callback that did not settle.
type PaymentFailedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	TrackingID  string    `json:"tracking_id"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderStatusChangedEvent records a staff-driven fulfilment transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   time.Time         `json:"changed_at"`
}
