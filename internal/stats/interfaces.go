package stats

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository exposes the aggregate queries behind the dashboard snapshot.
type Repository interface {
	TotalSales(ctx context.Context) (decimal.Decimal, error)
	CountOrders(ctx context.Context) (total int64, paid int64, err error)
	CountProducts(ctx context.Context) (int64, error)
	CountCategories(ctx context.Context) (int64, error)
	CountDiscounts(ctx context.Context) (int64, error)
	CountTransactionsByStatus(ctx context.Context) (map[string]int64, error)
}
