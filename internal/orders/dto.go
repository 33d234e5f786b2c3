package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
)

// LineInput is one requested (product, quantity) pair at checkout.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Contact carries the buyer details frozen onto the order.
type Contact struct {
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ShippingAddress string `json:"shipping_address"`
	BillingAddress  string `json:"billing_address"`
	City            string `json:"city"`
	Country         string `json:"country"`
}

// CreateOrderInput captures everything needed to assemble an order.
type CreateOrderInput struct {
	Lines        []LineInput
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	DiscountCode string
	Currency     enums.Currency
	UserID       *uuid.UUID
	Contact      Contact
}

// OrderFilters describe the staff listing filters.
type OrderFilters struct {
	Status *enums.OrderStatus
	Query  string
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// TransitionStatusInput carries a staff-driven status overwrite.
type TransitionStatusInput struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}
