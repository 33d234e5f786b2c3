package discount

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
)

type stubDiscountRepo struct {
	discounts   map[uuid.UUID]*models.Discount
	redemptions map[string]bool
}

func newStubDiscountRepo() *stubDiscountRepo {
	return &stubDiscountRepo{
		discounts:   map[uuid.UUID]*models.Discount{},
		redemptions: map[string]bool{},
	}
}

func redemptionKey(discountID, userID uuid.UUID) string {
	return discountID.String() + "|" + userID.String()
}

func (s *stubDiscountRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubDiscountRepo) Create(ctx context.Context, discount *models.Discount) (*models.Discount, error) {
	if discount.ID == uuid.Nil {
		discount.ID = uuid.New()
	}
	s.discounts[discount.ID] = discount
	return discount, nil
}

func (s *stubDiscountRepo) Update(ctx context.Context, discountID uuid.UUID, updates map[string]any) error {
	if _, ok := s.discounts[discountID]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *stubDiscountRepo) Delete(ctx context.Context, discountID uuid.UUID) error {
	if _, ok := s.discounts[discountID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.discounts, discountID)
	return nil
}

func (s *stubDiscountRepo) FindByID(ctx context.Context, discountID uuid.UUID) (*models.Discount, error) {
	discount, ok := s.discounts[discountID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return discount, nil
}

func (s *stubDiscountRepo) FindByCode(ctx context.Context, code string) (*models.Discount, error) {
	for _, discount := range s.discounts {
		if discount.Code == code {
			return discount, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDiscountRepo) List(ctx context.Context) ([]models.Discount, error) {
	var out []models.Discount
	for _, discount := range s.discounts {
		out = append(out, *discount)
	}
	return out, nil
}

func (s *stubDiscountRepo) IncrementUsage(ctx context.Context, discountID uuid.UUID) error {
	discount, ok := s.discounts[discountID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if discount.UsageLimit != nil && discount.TimesUsed >= *discount.UsageLimit {
		return gorm.ErrRecordNotFound
	}
	discount.TimesUsed++
	return nil
}

func (s *stubDiscountRepo) CreateRedemption(ctx context.Context, redemption *models.DiscountRedemption) error {
	key := redemptionKey(redemption.DiscountID, redemption.UserID)
	if s.redemptions[key] {
		return gorm.ErrDuplicatedKey
	}
	s.redemptions[key] = true
	return nil
}

func (s *stubDiscountRepo) HasRedemption(ctx context.Context, discountID, userID uuid.UUID) (bool, error) {
	return s.redemptions[redemptionKey(discountID, userID)], nil
}

type stubOrderCounter struct {
	counts map[uuid.UUID]int64
}

func (s *stubOrderCounter) CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.counts[userID], nil
}

func newDiscountFixture(t *testing.T) (*service, *stubDiscountRepo, *stubOrderCounter) {
	t.Helper()
	repo := newStubDiscountRepo()
	orders := &stubOrderCounter{counts: map[uuid.UUID]int64{}}
	svc, err := NewService(repo, orders)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.(*service), repo, orders
}

func seedDiscount(repo *stubDiscountRepo, mutate func(*models.Discount)) *models.Discount {
	discount := &models.Discount{
		ID:        uuid.New(),
		Code:      "WELCOME10",
		Type:      enums.DiscountPercentage,
		Value:     decimal.NewFromInt(10),
		ValidFrom: time.Now().Add(-time.Hour),
		ValidTo:   time.Now().Add(time.Hour),
		IsActive:  true,
	}
	if mutate != nil {
		mutate(discount)
	}
	repo.discounts[discount.ID] = discount
	return discount
}

func TestEvaluate_ChecksInOrder(t *testing.T) {
	total := decimal.NewFromInt(100)
	userID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*models.Discount)
		setup  func(*stubDiscountRepo, *stubOrderCounter, *models.Discount)
		reason string
	}{
		{
			name:   "inactive",
			mutate: func(d *models.Discount) { d.IsActive = false },
			reason: "Discount code is not active",
		},
		{
			name:   "expired",
			mutate: func(d *models.Discount) { d.ValidTo = time.Now().Add(-time.Minute) },
			reason: "Discount code has expired",
		},
		{
			name:   "not yet active",
			mutate: func(d *models.Discount) { d.ValidFrom = time.Now().Add(time.Hour) },
			reason: "Discount code is not yet active",
		},
		{
			name: "usage cap reached",
			mutate: func(d *models.Discount) {
				limit := 5
				d.UsageLimit = &limit
				d.TimesUsed = 5
			},
			reason: "Discount code usage limit reached",
		},
		{
			name:   "single use already redeemed",
			mutate: func(d *models.Discount) { d.SingleUsePerUser = true },
			setup: func(repo *stubDiscountRepo, _ *stubOrderCounter, d *models.Discount) {
				repo.redemptions[redemptionKey(d.ID, userID)] = true
			},
			reason: "Discount code has already been used",
		},
		{
			name:   "first purchase only",
			mutate: func(d *models.Discount) { d.FirstPurchaseOnly = true },
			setup: func(_ *stubDiscountRepo, orders *stubOrderCounter, _ *models.Discount) {
				orders.counts[userID] = 2
			},
			reason: "Discount code is only valid for first purchase",
		},
		{
			name: "below minimum purchase",
			mutate: func(d *models.Discount) {
				min := decimal.NewFromInt(500)
				d.MinPurchase = &min
			},
			reason: "Minimum purchase amount of 500.00 required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, orders := newDiscountFixture(t)
			discount := seedDiscount(repo, tc.mutate)
			if tc.setup != nil {
				tc.setup(repo, orders, discount)
			}

			_, eval, err := svc.Evaluate(context.Background(), "WELCOME10", &userID, total)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if eval.Valid {
				t.Fatal("expected invalid evaluation")
			}
			if eval.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", eval.Reason, tc.reason)
			}
		})
	}
}

func TestEvaluate_ValidPercentageCapped(t *testing.T) {
	svc, repo, _ := newDiscountFixture(t)
	maxDiscount := decimal.NewFromInt(15)
	seedDiscount(repo, func(d *models.Discount) {
		d.Value = decimal.NewFromInt(20)
		d.MaxDiscount = &maxDiscount
	})

	_, eval, err := svc.Evaluate(context.Background(), "WELCOME10", nil, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !eval.Valid {
		t.Fatalf("expected valid, got reason %q", eval.Reason)
	}
	// 20% of 200 is 40, capped at 15
	if !eval.Amount.Equal(maxDiscount) {
		t.Fatalf("amount = %s, want %s", eval.Amount, maxDiscount)
	}
}

func TestEvaluate_FixedNeverExceedsTotal(t *testing.T) {
	svc, repo, _ := newDiscountFixture(t)
	seedDiscount(repo, func(d *models.Discount) {
		d.Type = enums.DiscountFixed
		d.Value = decimal.NewFromInt(50)
	})

	_, eval, err := svc.Evaluate(context.Background(), "WELCOME10", nil, decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !eval.Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("amount = %s, want 30", eval.Amount)
	}
}

func TestEvaluate_UnknownCode(t *testing.T) {
	svc, _, _ := newDiscountFixture(t)

	_, _, err := svc.Evaluate(context.Background(), "NOPE", nil, decimal.NewFromInt(10))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApply_AtCapReturnsConflict(t *testing.T) {
	svc, repo, _ := newDiscountFixture(t)
	limit := 1
	discount := seedDiscount(repo, func(d *models.Discount) {
		d.UsageLimit = &limit
		d.TimesUsed = 1
	})

	err := svc.Apply(context.Background(), &gorm.DB{}, discount, nil, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestApply_IncrementsUsageAndRecordsRedemption(t *testing.T) {
	svc, repo, _ := newDiscountFixture(t)
	discount := seedDiscount(repo, func(d *models.Discount) {
		d.SingleUsePerUser = true
	})
	userID := uuid.New()

	if err := svc.Apply(context.Background(), &gorm.DB{}, discount, &userID, uuid.New()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if discount.TimesUsed != 1 {
		t.Fatalf("times used = %d, want 1", discount.TimesUsed)
	}
	if !repo.redemptions[redemptionKey(discount.ID, userID)] {
		t.Fatal("expected redemption recorded")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newDiscountFixture(t)

	_, err := svc.Create(context.Background(), CreateDiscountInput{
		Code:      "BAD",
		Type:      enums.DiscountType("bogus"),
		Value:     decimal.NewFromInt(10),
		ValidFrom: time.Now(),
		ValidTo:   time.Now().Add(time.Hour),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_UppercasesCode(t *testing.T) {
	svc, _, _ := newDiscountFixture(t)

	created, err := svc.Create(context.Background(), CreateDiscountInput{
		Code:      " summer25 ",
		Type:      enums.DiscountPercentage,
		Value:     decimal.NewFromInt(25),
		ValidFrom: time.Now(),
		ValidTo:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Code != "SUMMER25" {
		t.Fatalf("code = %q, want SUMMER25", created.Code)
	}
}
