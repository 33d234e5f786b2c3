package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
)

// Repository defines persistence operations for carts and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCart(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindCartByID(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	FindCartItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteCartItem(ctx context.Context, itemID uuid.UUID) error
	MarkOrdered(ctx context.Context, cartID uuid.UUID, subtotal, total decimal.Decimal) error
}
