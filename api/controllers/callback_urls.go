package controllers

import (
	"net/http"

	"github.com/essenza-shop/essenza-backend/api/responses"
	"github.com/essenza-shop/essenza-backend/api/validators"
	"github.com/essenza-shop/essenza-backend/internal/payments"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

type registerCallbackURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// RegisterCallbackURL registers (or refreshes) an IPN endpoint with the
// payment gateway and persists the returned notification id.
func RegisterCallbackURL(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerCallbackURLRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		registered, err := svc.RegisterCallbackURL(r.Context(), payload.URL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, registered)
	}
}

func ListCallbackURLs(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urls, err := svc.ListCallbackURLs(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, urls)
	}
}
