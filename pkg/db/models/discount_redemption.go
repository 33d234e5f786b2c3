package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountRedemption records a user consuming a discount code. The unique
// index enforces single-use-per-user at the database level.
type DiscountRedemption struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DiscountID uuid.UUID  `gorm:"column:discount_id;type:uuid;not null;uniqueIndex:ux_discount_redemptions_discount_user"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_discount_redemptions_discount_user"`
	OrderID    *uuid.UUID `gorm:"column:order_id;type:uuid"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
