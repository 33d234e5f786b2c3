package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/api/middleware"
	"github.com/essenza-shop/essenza-backend/api/responses"
	"github.com/essenza-shop/essenza-backend/api/validators"
	"github.com/essenza-shop/essenza-backend/internal/discount"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

type validateCodeRequest struct {
	Code      string `json:"code" validate:"required"`
	CartTotal string `json:"cart_total" validate:"required"`
}

type validateCodeResponse struct {
	Valid  bool            `json:"valid"`
	Reason string          `json:"reason"`
	Amount decimal.Decimal `json:"amount"`
}

// ValidateDiscountCode is the public read-only evaluation endpoint used by
// the storefront before checkout.
func ValidateDiscountCode(svc discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload validateCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartTotal, err := decimal.NewFromString(payload.CartTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart_total must be a decimal number"))
			return
		}

		userID, _ := middleware.ActorFromContext(r.Context())
		_, eval, err := svc.Evaluate(r.Context(), payload.Code, userID, cartTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validateCodeResponse{
			Valid:  eval.Valid,
			Reason: eval.Reason,
			Amount: eval.Amount,
		})
	}
}

func ListDiscounts(svc discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		discounts, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discounts)
	}
}

func GetDiscount(svc discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		discountID, err := validators.ParseUUIDParam(r, "discountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		found, err := svc.Get(r.Context(), discountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}

type createDiscountRequest struct {
	Code              string  `json:"code" validate:"required"`
	Type              string  `json:"type" validate:"required,oneof=percentage fixed"`
	Value             string  `json:"value" validate:"required"`
	MinPurchase       *string `json:"min_purchase,omitempty"`
	MaxDiscount       *string `json:"max_discount,omitempty"`
	ValidFrom         string  `json:"valid_from" validate:"required"`
	ValidTo           string  `json:"valid_to" validate:"required"`
	UsageLimit        *int    `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	FirstPurchaseOnly bool    `json:"first_purchase_only"`
	SingleUsePerUser  bool    `json:"single_use_per_user"`
}

func (r createDiscountRequest) toInput() (discount.CreateDiscountInput, error) {
	value, err := decimal.NewFromString(r.Value)
	if err != nil {
		return discount.CreateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "value must be a decimal number")
	}
	validFrom, err := time.Parse(time.RFC3339, r.ValidFrom)
	if err != nil {
		return discount.CreateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "valid_from must be RFC3339")
	}
	validTo, err := time.Parse(time.RFC3339, r.ValidTo)
	if err != nil {
		return discount.CreateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "valid_to must be RFC3339")
	}

	input := discount.CreateDiscountInput{
		Code:              strings.TrimSpace(r.Code),
		Type:              enums.DiscountType(r.Type),
		Value:             value,
		ValidFrom:         validFrom,
		ValidTo:           validTo,
		UsageLimit:        r.UsageLimit,
		FirstPurchaseOnly: r.FirstPurchaseOnly,
		SingleUsePerUser:  r.SingleUsePerUser,
	}
	if r.MinPurchase != nil {
		min, err := decimal.NewFromString(*r.MinPurchase)
		if err != nil {
			return discount.CreateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "min_purchase must be a decimal number")
		}
		input.MinPurchase = &min
	}
	if r.MaxDiscount != nil {
		max, err := decimal.NewFromString(*r.MaxDiscount)
		if err != nil {
			return discount.CreateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "max_discount must be a decimal number")
		}
		input.MaxDiscount = &max
	}
	return input, nil
}

func CreateDiscount(svc discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

type updateDiscountRequest struct {
	Value             *string `json:"value,omitempty"`
	MinPurchase       *string `json:"min_purchase,omitempty"`
	MaxDiscount       *string `json:"max_discount,omitempty"`
	ValidFrom         *string `json:"valid_from,omitempty"`
	ValidTo           *string `json:"valid_to,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
	UsageLimit        *int    `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	FirstPurchaseOnly *bool   `json:"first_purchase_only,omitempty"`
	SingleUsePerUser  *bool   `json:"single_use_per_user,omitempty"`
}

func (r updateDiscountRequest) toInput() (discount.UpdateDiscountInput, error) {
	input := discount.UpdateDiscountInput{
		IsActive:          r.IsActive,
		UsageLimit:        r.UsageLimit,
		FirstPurchaseOnly: r.FirstPurchaseOnly,
		SingleUsePerUser:  r.SingleUsePerUser,
	}
	if r.Value != nil {
		value, err := decimal.NewFromString(*r.Value)
		if err != nil {
			return discount.UpdateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "value must be a decimal number")
		}
		input.Value = &value
	}
	if r.MinPurchase != nil {
		min, err := decimal.NewFromString(*r.MinPurchase)
		if err != nil {
			return discount.UpdateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "min_purchase must be a decimal number")
		}
		input.MinPurchase = &min
	}
	if r.MaxDiscount != nil {
		max, err := decimal.NewFromString(*r.MaxDiscount)
		if err != nil {
			return discount.UpdateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "max_discount must be a decimal number")
		}
		input.MaxDiscount = &max
	}
	if r.ValidFrom != nil {
		from, err := time.Parse(time.RFC3339, *r.ValidFrom)
		if err != nil {
			return discount.UpdateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "valid_from must be RFC3339")
		}
		input.ValidFrom = &from
	}
	if r.ValidTo != nil {
		to, err := time.Parse(time.RFC3339, *r.ValidTo)
		if err != nil {
			return discount.UpdateDiscountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "valid_to must be RFC3339")
		}
		input.ValidTo = &to
	}
	return input, nil
}

func UpdateDiscount(svc discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		discountID, err := validators.ParseUUIDParam(r, "discountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), discountID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func DeleteDiscount(svc discount.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		discountID, err := validators.ParseUUIDParam(r, "discountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), discountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
