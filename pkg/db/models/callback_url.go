package models

import (
	"time"

	"github.com/google/uuid"
)

// CallbackURL stores a gateway IPN registration. The gateway assigns the
// notification id when the URL is registered.
type CallbackURL struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	URL            string    `gorm:"column:url;not null;uniqueIndex:ux_callback_urls_url"`
	NotificationID string    `gorm:"column:notification_id;not null"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
