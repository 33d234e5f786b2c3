package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
)

// Repository defines persistence operations for the catalog tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, updates map[string]any) error
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error)
	ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error)
	UpdateCategory(ctx context.Context, categoryID uuid.UUID, updates map[string]any) error
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
	FindCategoryByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CountProductsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}
