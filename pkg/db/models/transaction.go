package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/essenza-shop/essenza-backend/pkg/enums"
)

// Transaction tracks one payment attempt against the gateway. The tracking id
// is the gateway's identifier and is unique per attempt. The raw payload
// columns keep the gateway's exact responses for audit and dispute handling.
type Transaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null"`
	TrackingID        string                  `gorm:"column:tracking_id;not null;uniqueIndex:ux_transactions_tracking_id"`
	MerchantReference string                  `gorm:"column:merchant_reference;not null"`
	Status            enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'PENDING'"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency          enums.Currency          `gorm:"column:currency;type:currency;not null;default:'KES'"`
	PaymentMethod     *string                 `gorm:"column:payment_method"`
	ConfirmationCode  *string                 `gorm:"column:confirmation_code"`
	StatusDescription *string                 `gorm:"column:status_description"`
	InitiationPayload json.RawMessage         `gorm:"column:initiation_payload;type:jsonb"`
	CallbackPayload   json.RawMessage         `gorm:"column:callback_payload;type:jsonb"`
	StatusPayload     json.RawMessage         `gorm:"column:status_payload;type:jsonb"`
	Order             *Order                  `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
