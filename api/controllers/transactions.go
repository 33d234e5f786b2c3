package controllers

import (
	"net/http"

	"github.com/essenza-shop/essenza-backend/api/responses"
	"github.com/essenza-shop/essenza-backend/api/validators"
	"github.com/essenza-shop/essenza-backend/internal/orders"
	"github.com/essenza-shop/essenza-backend/internal/payments"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

func GetTransaction(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trxID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trx, err := svc.GetTransaction(r.Context(), trxID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trx)
	}
}

func ListTransactions(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters payments.TransactionFilters
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := enums.TransactionStatus(raw)
			switch status {
			case enums.TransactionPending, enums.TransactionCompleted, enums.TransactionFailed:
				filters.Status = &status
			default:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown transaction status"))
				return
			}
		}
		if raw := r.URL.Query().Get("order_id"); raw != "" {
			orderID, err := parseBodyUUID(raw, "order_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			id := orderID.String()
			filters.OrderID = &id
		}

		list, err := svc.ListTransactions(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// InitiateOrderPayment restarts a hosted checkout for an order whose
// automatic initiation failed, typically because the gateway was down when
// the order was placed. Paid orders are refused.
func InitiateOrderPayment(orderSvc orders.Service, paymentSvc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := orderSvc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.IsPaid {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid"))
			return
		}

		redirectURL, err := paymentSvc.Initiate(r.Context(), order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"order_number": order.OrderNumber,
			"payment_url":  redirectURL,
		})
	}
}

// UpdateTransaction and DeleteTransaction exist so the admin surface answers
// with a deliberate refusal instead of a 404. Transactions are append-only.
func UpdateTransaction(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trxID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateTransaction(r.Context(), trxID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func DeleteTransaction(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trxID, err := validators.ParseUUIDParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteTransaction(r.Context(), trxID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
