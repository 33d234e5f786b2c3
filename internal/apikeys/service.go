package apikeys

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/config"
	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/security"
)

const rawKeyLength = 40

// CreateInput names a key and optionally bounds its lifetime.
type CreateInput struct {
	Name      string
	UserID    uuid.UUID
	ExpiresAt *time.Time
}

// Created pairs the stored record with the raw key, which is only available
// at creation time.
type Created struct {
	Key    *models.APIKey `json:"key"`
	RawKey string         `json:"raw_key"`
}

// Service mints and manages programmatic credentials.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Created, error)
	Revoke(ctx context.Context, keyID uuid.UUID) error
	List(ctx context.Context) ([]models.APIKey, error)
}

type service struct {
	repo Repository
	cfg  config.APIKeyConfig
}

// NewService builds an API key service.
func NewService(repo Repository, cfg config.APIKeyConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("api key repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Created, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "key name is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}

	raw, prefix, err := security.GenerateAPIKey(rawKeyLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating api key")
	}
	hash, err := security.HashAPIKey(raw, s.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing api key")
	}

	key, err := s.repo.CreateAPIKey(ctx, &models.APIKey{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Name:      name,
		Prefix:    prefix,
		KeyHash:   hash,
		IsActive:  true,
		ExpiresAt: input.ExpiresAt,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing api key")
	}

	return &Created{Key: key, RawKey: raw}, nil
}

func (s *service) Revoke(ctx context.Context, keyID uuid.UUID) error {
	err := s.repo.RevokeAPIKey(ctx, keyID)
	if err == gorm.ErrRecordNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "api key not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoking api key")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]models.APIKey, error) {
	keys, err := s.repo.ListAPIKeys(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing api keys")
	}
	return keys, nil
}
