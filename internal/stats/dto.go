package stats

import "github.com/shopspring/decimal"

// Snapshot is the admin dashboard aggregate: lifetime sales plus entity
// counts, computed from the primary database on demand.
type Snapshot struct {
	TotalSales           decimal.Decimal  `json:"total_sales"`
	OrderCount           int64            `json:"order_count"`
	PaidOrderCount       int64            `json:"paid_order_count"`
	ProductCount         int64            `json:"product_count"`
	CategoryCount        int64            `json:"category_count"`
	DiscountCount        int64            `json:"discount_count"`
	TransactionsByStatus map[string]int64 `json:"transactions_by_status"`
}
