package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTransaction(ctx context.Context, trx *models.Transaction) (*models.Transaction, error) {
	if err := r.db.WithContext(ctx).Create(trx).Error; err != nil {
		return nil, err
	}
	return trx, nil
}

func (r *repository) FindTransactionByID(ctx context.Context, trxID uuid.UUID) (*models.Transaction, error) {
	var trx models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("id = ?", trxID).
		First(&trx).Error
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

func (r *repository) FindTransactionByTrackingID(ctx context.Context, trackingID string) (*models.Transaction, error) {
	var trx models.Transaction
	err := r.db.WithContext(ctx).
		Where("tracking_id = ?", trackingID).
		First(&trx).Error
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// FindTransactionByTrackingIDForUpdate locks the row for the rest of the
// enclosing transaction so concurrent callback deliveries serialize on it.
func (r *repository) FindTransactionByTrackingIDForUpdate(ctx context.Context, trackingID string) (*models.Transaction, error) {
	var trx models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tracking_id = ?", trackingID).
		First(&trx).Error
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

func (r *repository) UpdateTransaction(ctx context.Context, trxID uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", trxID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListTransactions(ctx context.Context, params pagination.Params, filters TransactionFilters) (*TransactionList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.OrderID != nil {
		qb = qb.Where("order_id = ?", *filters.OrderID)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var transactions []models.Transaction
	err = qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(transactions) > pageSize {
		transactions = transactions[:pageSize]
		last := transactions[len(transactions)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &TransactionList{Transactions: transactions, NextCursor: nextCursor}, nil
}

func (r *repository) CreateCallbackURL(ctx context.Context, callback *models.CallbackURL) (*models.CallbackURL, error) {
	if err := r.db.WithContext(ctx).Create(callback).Error; err != nil {
		return nil, err
	}
	return callback, nil
}

func (r *repository) FindCallbackURLByURL(ctx context.Context, url string) (*models.CallbackURL, error) {
	var callback models.CallbackURL
	err := r.db.WithContext(ctx).
		Where("url = ?", url).
		First(&callback).Error
	if err != nil {
		return nil, err
	}
	return &callback, nil
}

func (r *repository) FindActiveCallbackURL(ctx context.Context) (*models.CallbackURL, error) {
	var callback models.CallbackURL
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		First(&callback).Error
	if err != nil {
		return nil, err
	}
	return &callback, nil
}

func (r *repository) UpdateCallbackURL(ctx context.Context, callbackID uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.CallbackURL{}).
		Where("id = ?", callbackID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListCallbackURLs(ctx context.Context) ([]models.CallbackURL, error) {
	var callbacks []models.CallbackURL
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&callbacks).Error
	if err != nil {
		return nil, err
	}
	return callbacks, nil
}
