package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/api/responses"
	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
	"github.com/essenza-shop/essenza-backend/pkg/security"
)

const (
	apiKeyHeader    = "X-API-Key"
	apiKeyPrefixLen = 8
)

// APIKeyStore loads hashed keys by their public prefix.
type APIKeyStore interface {
	FindAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	TouchAPIKey(ctx context.Context, keyID string, usedAt time.Time) error
}

// APIKeyAuth authenticates machine clients via the X-API-Key header. Matched
// keys act with staff privileges.
func APIKeyAuth(store APIKeyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if raw == "" || len(raw) < apiKeyPrefixLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			key, err := store.FindAPIKeyByPrefix(r.Context(), raw[:apiKeyPrefixLen])
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load api key"))
				return
			}
			if !key.IsActive {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "api key disabled"))
				return
			}
			if key.ExpiresAt != nil && time.Now().After(*key.ExpiresAt) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "api key expired"))
				return
			}

			ok, err := security.VerifyAPIKey(raw, key.KeyHash)
			if err != nil || !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
				return
			}

			if err := store.TouchAPIKey(r.Context(), key.ID.String(), time.Now()); err != nil && logg != nil {
				logg.Error(r.Context(), "touch api key failed", err)
			}

			ctx := WithUserID(r.Context(), key.UserID.String())
			ctx = WithRole(ctx, string(enums.UserRoleStaff))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
