package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/api/middleware"
	"github.com/essenza-shop/essenza-backend/api/responses"
	"github.com/essenza-shop/essenza-backend/api/validators"
	"github.com/essenza-shop/essenza-backend/internal/orders"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

type orderLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type orderContactRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	ShippingAddress string `json:"shipping_address" validate:"required"`
	BillingAddress  string `json:"billing_address,omitempty"`
	City            string `json:"city,omitempty"`
	Country         string `json:"country,omitempty"`
}

type createOrderRequest struct {
	Lines        []orderLineRequest  `json:"lines" validate:"required,min=1,dive"`
	ShippingCost string              `json:"shipping_cost,omitempty"`
	Tax          string              `json:"tax,omitempty"`
	DiscountCode string              `json:"discount_code,omitempty"`
	Currency     string              `json:"currency,omitempty"`
	Contact      orderContactRequest `json:"contact" validate:"required"`
}

func (req createOrderRequest) toInput() (orders.CreateOrderInput, error) {
	input := orders.CreateOrderInput{
		DiscountCode: strings.TrimSpace(req.DiscountCode),
		Currency:     enums.Currency(req.Currency),
		Contact: orders.Contact{
			Email:           strings.TrimSpace(req.Contact.Email),
			Phone:           strings.TrimSpace(req.Contact.Phone),
			FirstName:       validators.SanitizeString(req.Contact.FirstName, 100),
			LastName:        validators.SanitizeString(req.Contact.LastName, 100),
			ShippingAddress: validators.SanitizeString(req.Contact.ShippingAddress, 500),
			BillingAddress:  validators.SanitizeString(req.Contact.BillingAddress, 500),
			City:            validators.SanitizeString(req.Contact.City, 100),
			Country:         validators.SanitizeString(req.Contact.Country, 100),
		},
	}
	for _, line := range req.Lines {
		productID, err := parseBodyUUID(line.ProductID, "product_id")
		if err != nil {
			return orders.CreateOrderInput{}, err
		}
		input.Lines = append(input.Lines, orders.LineInput{ProductID: productID, Quantity: line.Quantity})
	}
	if req.ShippingCost != "" {
		shipping, err := decimal.NewFromString(req.ShippingCost)
		if err != nil {
			return orders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping_cost must be a decimal number")
		}
		input.ShippingCost = shipping
	}
	if req.Tax != "" {
		tax, err := decimal.NewFromString(req.Tax)
		if err != nil {
			return orders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "tax must be a decimal number")
		}
		input.Tax = tax
	}
	return input, nil
}

// CreateOrder accepts both authenticated and guest checkouts. The actor, when
// present, comes from the optional auth middleware.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, _ := middleware.ActorFromContext(r.Context())
		input.UserID = userID

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := orders.OrderFilters{
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 100),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := enums.OrderStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role := middleware.ActorFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Authentication required"))
			return
		}

		order, err := svc.TransitionStatus(r.Context(), orders.TransitionStatusInput{
			OrderID:     orderID,
			Status:      enums.OrderStatus(payload.Status),
			ActorUserID: *userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
