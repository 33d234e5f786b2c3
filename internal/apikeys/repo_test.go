package apikeys

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
)

func setupAPIKeysTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS api_keys (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  prefix TEXT NOT NULL UNIQUE,
  key_hash TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_used_at DATETIME,
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedAPIKey(t *testing.T, db *gorm.DB, prefix string) *models.APIKey {
	t.Helper()
	key := &models.APIKey{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Name:     "integration",
		Prefix:   prefix,
		KeyHash:  "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		IsActive: true,
	}
	require.NoError(t, db.Create(key).Error)
	return key
}

func TestRepository_FindAPIKeyByPrefix(t *testing.T) {
	db := setupAPIKeysTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedAPIKey(t, db, "AbCdEfGh")

	found, err := repo.FindAPIKeyByPrefix(ctx, "AbCdEfGh")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.True(t, found.IsActive)

	_, err = repo.FindAPIKeyByPrefix(ctx, "missing1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_TouchAPIKeyStampsLastUsed(t *testing.T) {
	db := setupAPIKeysTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedAPIKey(t, db, "AbCdEfGh")
	usedAt := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.TouchAPIKey(ctx, seeded.ID.String(), usedAt))

	found, err := repo.FindAPIKeyByPrefix(ctx, "AbCdEfGh")
	require.NoError(t, err)
	require.NotNil(t, found.LastUsedAt)
	assert.WithinDuration(t, usedAt, *found.LastUsedAt, time.Second)
}

func TestRepository_RevokeAPIKey(t *testing.T) {
	db := setupAPIKeysTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedAPIKey(t, db, "AbCdEfGh")

	require.NoError(t, repo.RevokeAPIKey(ctx, seeded.ID))

	found, err := repo.FindAPIKeyByPrefix(ctx, "AbCdEfGh")
	require.NoError(t, err)
	assert.False(t, found.IsActive)

	assert.ErrorIs(t, repo.RevokeAPIKey(ctx, uuid.New()), gorm.ErrRecordNotFound)
}

func TestRepository_ListAPIKeysNewestFirst(t *testing.T) {
	db := setupAPIKeysTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	older := seedAPIKey(t, db, "aaaaaaaa")
	require.NoError(t, db.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)
	newer := seedAPIKey(t, db, "bbbbbbbb")

	keys, err := repo.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, newer.ID, keys[0].ID)
	assert.Equal(t, older.ID, keys[1].ID)
}
