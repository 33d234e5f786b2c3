package discount

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
)

// Repository defines persistence operations for discounts and redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, discount *models.Discount) (*models.Discount, error)
	Update(ctx context.Context, discountID uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, discountID uuid.UUID) error
	FindByID(ctx context.Context, discountID uuid.UUID) (*models.Discount, error)
	FindByCode(ctx context.Context, code string) (*models.Discount, error)
	List(ctx context.Context) ([]models.Discount, error)
	IncrementUsage(ctx context.Context, discountID uuid.UUID) error
	CreateRedemption(ctx context.Context, redemption *models.DiscountRedemption) error
	HasRedemption(ctx context.Context, discountID, userID uuid.UUID) (bool, error)
}

// OrderCounter reports how many orders a user has placed, used by the
// first-purchase-only check.
type OrderCounter interface {
	CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
