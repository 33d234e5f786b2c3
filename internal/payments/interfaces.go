package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
)

// Repository defines persistence operations for transactions and callback URLs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransaction(ctx context.Context, trx *models.Transaction) (*models.Transaction, error)
	FindTransactionByID(ctx context.Context, trxID uuid.UUID) (*models.Transaction, error)
	FindTransactionByTrackingID(ctx context.Context, trackingID string) (*models.Transaction, error)
	FindTransactionByTrackingIDForUpdate(ctx context.Context, trackingID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, trxID uuid.UUID, updates map[string]any) error
	ListTransactions(ctx context.Context, params pagination.Params, filters TransactionFilters) (*TransactionList, error)
	CreateCallbackURL(ctx context.Context, callback *models.CallbackURL) (*models.CallbackURL, error)
	FindCallbackURLByURL(ctx context.Context, url string) (*models.CallbackURL, error)
	FindActiveCallbackURL(ctx context.Context) (*models.CallbackURL, error)
	UpdateCallbackURL(ctx context.Context, callbackID uuid.UUID, updates map[string]any) error
	ListCallbackURLs(ctx context.Context) ([]models.CallbackURL, error)
}
