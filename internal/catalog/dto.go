package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
)

// ProductFilters describe the supported filter knobs for the browse endpoint.
type ProductFilters struct {
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	PriceMin   *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax   *decimal.Decimal `json:"price_max,omitempty"`
	OnSale     *bool            `json:"on_sale,omitempty"`
	Featured   *bool            `json:"featured,omitempty"`
	Query      string           `json:"q,omitempty"`
}

// ProductList wraps the paginated products plus the next page cursor.
type ProductList struct {
	Products   []models.Product `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CreateProductInput captures the fields accepted when creating a product.
type CreateProductInput struct {
	CategoryID  uuid.UUID
	SKU         string
	Name        string
	Description *string
	NotesTop    *string
	NotesMiddle *string
	NotesBase   *string
	Price       decimal.Decimal
	SalePrice   *decimal.Decimal
	Stock       int
	ImageURL    *string
	IsFeatured  bool
}

// UpdateProductInput carries optional field updates. Nil pointers leave the
// column untouched.
type UpdateProductInput struct {
	CategoryID  *uuid.UUID
	Name        *string
	Description *string
	NotesTop    *string
	NotesMiddle *string
	NotesBase   *string
	Price       *decimal.Decimal
	SalePrice   *decimal.Decimal
	ClearSale   bool
	Stock       *int
	ImageURL    *string
	IsActive    *bool
	IsFeatured  *bool
}

// CreateCategoryInput captures the fields accepted when creating a category.
type CreateCategoryInput struct {
	Name        string
	Description *string
	ParentID    *uuid.UUID
}

// UpdateCategoryInput carries optional category updates.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
	ParentID    *uuid.UUID
	IsActive    *bool
}
