package controllers

import (
	"net/http"
	"time"

	"github.com/essenza-shop/essenza-backend/api/middleware"
	"github.com/essenza-shop/essenza-backend/api/responses"
	"github.com/essenza-shop/essenza-backend/api/validators"
	"github.com/essenza-shop/essenza-backend/internal/apikeys"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

type createAPIKeyRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// CreateAPIKey mints a programmatic credential. The raw key appears in this
// response only.
func CreateAPIKey(svc apikeys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createAPIKeyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, _ := middleware.ActorFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Authentication required"))
			return
		}

		input := apikeys.CreateInput{Name: payload.Name, UserID: *userID}
		if payload.ExpiresAt != "" {
			expires, err := time.Parse(time.RFC3339, payload.ExpiresAt)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "expires_at must be RFC3339"))
				return
			}
			input.ExpiresAt = &expires
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func ListAPIKeys(svc apikeys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, keys)
	}
}

func RevokeAPIKey(svc apikeys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, err := validators.ParseUUIDParam(r, "keyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Revoke(r.Context(), keyID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}
