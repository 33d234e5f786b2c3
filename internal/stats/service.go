package stats

import (
	"context"
	"fmt"

	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

// Service computes the dashboard snapshot.
type Service interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Snapshot(ctx context.Context) (*Snapshot, error) {
	totalSales, err := s.repo.TotalSales(ctx)
	if err != nil {
		return nil, err
	}
	orderCount, paidCount, err := s.repo.CountOrders(ctx)
	if err != nil {
		return nil, err
	}
	productCount, err := s.repo.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	categoryCount, err := s.repo.CountCategories(ctx)
	if err != nil {
		return nil, err
	}
	discountCount, err := s.repo.CountDiscounts(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.repo.CountTransactionsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		TotalSales:           totalSales,
		OrderCount:           orderCount,
		PaidOrderCount:       paidCount,
		ProductCount:         productCount,
		CategoryCount:        categoryCount,
		DiscountCount:        discountCount,
		TransactionsByStatus: byStatus,
	}, nil
}
