package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey holds a hashed programmatic credential. Only the argon2id hash is
// stored; the raw key is shown once at creation.
type APIKey struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	Name       string     `gorm:"column:name;not null"`
	Prefix     string     `gorm:"column:prefix;not null;uniqueIndex:ux_api_keys_prefix"`
	KeyHash    string     `gorm:"column:key_hash;not null"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`
	ExpiresAt  *time.Time `gorm:"column:expires_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
