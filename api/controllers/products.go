package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/api/responses"
	"github.com/essenza-shop/essenza-backend/api/validators"
	"github.com/essenza-shop/essenza-backend/internal/catalog"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

// ListProducts serves the public storefront catalog with filters and cursor
// pagination.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := catalog.ProductFilters{
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 120),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
			categoryID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "category_id must be a uuid"))
				return
			}
			filters.CategoryID = &categoryID
		}
		if filters.PriceMin, err = validators.ParseQueryDecimal(r, "price_min"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.PriceMax, err = validators.ParseQueryDecimal(r, "price_max"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.OnSale, err = validators.ParseQueryBool(r, "on_sale"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.Featured, err = validators.ParseQueryBool(r, "featured"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProducts(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetProduct resolves a product by UUID or by slug.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "idOrSlug"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product identifier required"))
			return
		}

		if id, err := uuid.Parse(raw); err == nil {
			product, err := svc.GetProduct(r.Context(), id)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, product)
			return
		}

		product, err := svc.GetProductBySlug(r.Context(), raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	CategoryID  string  `json:"category_id" validate:"required,uuid"`
	SKU         string  `json:"sku" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	NotesTop    *string `json:"notes_top,omitempty"`
	NotesMiddle *string `json:"notes_middle,omitempty"`
	NotesBase   *string `json:"notes_base,omitempty"`
	Price       string  `json:"price" validate:"required"`
	SalePrice   *string `json:"sale_price,omitempty"`
	Stock       int     `json:"stock" validate:"min=0"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsFeatured  bool    `json:"is_featured,omitempty"`
}

func (r createProductRequest) toInput() (catalog.CreateProductInput, error) {
	categoryID, err := uuid.Parse(r.CategoryID)
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "category_id must be a uuid")
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal number")
	}
	input := catalog.CreateProductInput{
		CategoryID:  categoryID,
		SKU:         strings.TrimSpace(r.SKU),
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		NotesTop:    r.NotesTop,
		NotesMiddle: r.NotesMiddle,
		NotesBase:   r.NotesBase,
		Price:       price,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		IsFeatured:  r.IsFeatured,
	}
	if r.SalePrice != nil {
		sale, err := decimal.NewFromString(*r.SalePrice)
		if err != nil {
			return catalog.CreateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "sale_price must be a decimal number")
		}
		input.SalePrice = &sale
	}
	return input, nil
}

// CreateProduct handles staff product creation.
func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	CategoryID  *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	NotesTop    *string `json:"notes_top,omitempty"`
	NotesMiddle *string `json:"notes_middle,omitempty"`
	NotesBase   *string `json:"notes_base,omitempty"`
	Price       *string `json:"price,omitempty"`
	SalePrice   *string `json:"sale_price,omitempty"`
	ClearSale   bool    `json:"clear_sale,omitempty"`
	Stock       *int    `json:"stock,omitempty" validate:"omitempty,min=0"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsFeatured  *bool   `json:"is_featured,omitempty"`
}

func (r updateProductRequest) toInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Name:        r.Name,
		Description: r.Description,
		NotesTop:    r.NotesTop,
		NotesMiddle: r.NotesMiddle,
		NotesBase:   r.NotesBase,
		ClearSale:   r.ClearSale,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		IsActive:    r.IsActive,
		IsFeatured:  r.IsFeatured,
	}
	if r.CategoryID != nil {
		categoryID, err := uuid.Parse(*r.CategoryID)
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "category_id must be a uuid")
		}
		input.CategoryID = &categoryID
	}
	if r.Price != nil {
		price, err := decimal.NewFromString(*r.Price)
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal number")
		}
		input.Price = &price
	}
	if r.SalePrice != nil {
		sale, err := decimal.NewFromString(*r.SalePrice)
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "sale_price must be a decimal number")
		}
		input.SalePrice = &sale
	}
	return input, nil
}

// UpdateProduct handles staff product updates.
func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct handles staff product deletion.
func DeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
