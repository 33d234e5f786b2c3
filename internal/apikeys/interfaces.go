package apikeys

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
)

// Repository persists programmatic credentials.
type Repository interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) (*models.APIKey, error)
	FindAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	TouchAPIKey(ctx context.Context, keyID string, usedAt time.Time) error
	RevokeAPIKey(ctx context.Context, keyID uuid.UUID) error
	ListAPIKeys(ctx context.Context) ([]models.APIKey, error)
}
