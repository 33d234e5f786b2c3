package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
)

// CreateCartInput captures the optional identity fields attached at creation.
type CreateCartInput struct {
	UserID    *uuid.UUID
	SessionID *string
	IsGuest   bool
	Email     *string
	Phone     *string
}

// Detail bundles the cart with its derived totals.
type Detail struct {
	Cart       models.Cart     `json:"cart"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"total_items"`
}
