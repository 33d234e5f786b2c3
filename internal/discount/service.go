package discount

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db"
	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
)

// Service exposes discount evaluation, application and admin management.
type Service interface {
	Evaluate(ctx context.Context, code string, userID *uuid.UUID, cartTotal decimal.Decimal) (*models.Discount, *Evaluation, error)
	Apply(ctx context.Context, tx *gorm.DB, discount *models.Discount, userID *uuid.UUID, orderID uuid.UUID) error
	Create(ctx context.Context, input CreateDiscountInput) (*models.Discount, error)
	Update(ctx context.Context, discountID uuid.UUID, input UpdateDiscountInput) (*models.Discount, error)
	Delete(ctx context.Context, discountID uuid.UUID) error
	Get(ctx context.Context, discountID uuid.UUID) (*models.Discount, error)
	List(ctx context.Context) ([]models.Discount, error)
}

type service struct {
	repo   Repository
	orders OrderCounter
	now    func() time.Time
}

// NewService builds a discount service with the required dependencies.
func NewService(repo Repository, orders OrderCounter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order counter required")
	}
	return &service{repo: repo, orders: orders, now: time.Now}, nil
}

// Evaluate resolves the code and runs the ordered validity checks,
// short-circuiting on the first failure. It never mutates state.
func (s *service) Evaluate(ctx context.Context, code string, userID *uuid.UUID, cartTotal decimal.Decimal) (*models.Discount, *Evaluation, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}

	discount, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}

	now := s.now()

	if !discount.IsActive {
		return discount, invalid("Discount code is not active"), nil
	}
	if discount.ValidTo.Before(now) {
		return discount, invalid("Discount code has expired"), nil
	}
	if discount.ValidFrom.After(now) {
		return discount, invalid("Discount code is not yet active"), nil
	}
	if discount.UsageLimit != nil && discount.TimesUsed >= *discount.UsageLimit {
		return discount, invalid("Discount code usage limit reached"), nil
	}
	if discount.SingleUsePerUser && userID != nil {
		used, err := s.repo.HasRedemption(ctx, discount.ID, *userID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check discount redemption")
		}
		if used {
			return discount, invalid("Discount code has already been used"), nil
		}
	}
	if discount.FirstPurchaseOnly && userID != nil {
		count, err := s.orders.CountOrdersByUser(ctx, *userID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count user orders")
		}
		if count > 0 {
			return discount, invalid("Discount code is only valid for first purchase"), nil
		}
	}
	if discount.MinPurchase != nil && cartTotal.LessThan(*discount.MinPurchase) {
		return discount, invalid(fmt.Sprintf("Minimum purchase amount of %s required", discount.MinPurchase.StringFixed(2))), nil
	}

	return discount, &Evaluation{
		Valid:  true,
		Reason: "Valid discount code",
		Amount: CalculateAmount(discount, cartTotal),
	}, nil
}

// Apply consumes one use of the discount inside the caller's transaction.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, discount *models.Discount, userID *uuid.UUID, orderID uuid.UUID) error {
	if discount == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount required")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "discount apply requires a transaction")
	}

	repo := s.repo.WithTx(tx)

	if err := repo.IncrementUsage(ctx, discount.ID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeConflict, "Discount code usage limit reached")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment discount usage")
	}

	if discount.SingleUsePerUser && userID != nil {
		redemption := &models.DiscountRedemption{
			ID:         uuid.New(),
			DiscountID: discount.ID,
			UserID:     *userID,
			OrderID:    &orderID,
		}
		if err := repo.CreateRedemption(ctx, redemption); err != nil {
			if db.IsUniqueViolation(err, "ux_discount_redemptions_discount_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "Discount code has already been used")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record discount redemption")
		}
	}
	return nil
}

// CalculateAmount computes the discount value for a cart total. Percentage
// discounts cap at max_discount; fixed discounts never exceed the total.
func CalculateAmount(discount *models.Discount, cartTotal decimal.Decimal) decimal.Decimal {
	switch discount.Type {
	case enums.DiscountPercentage:
		amount := cartTotal.Mul(discount.Value).Div(decimal.NewFromInt(100))
		if discount.MaxDiscount != nil && amount.GreaterThan(*discount.MaxDiscount) {
			amount = *discount.MaxDiscount
		}
		return amount
	default:
		if discount.Value.GreaterThan(cartTotal) {
			return cartTotal
		}
		return discount.Value
	}
}

func (s *service) Create(ctx context.Context, input CreateDiscountInput) (*models.Discount, error) {
	if strings.TrimSpace(input.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must not be negative")
	}
	if input.ValidTo.Before(input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount window end precedes start")
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}

	discount := &models.Discount{
		Code:              strings.ToUpper(strings.TrimSpace(input.Code)),
		Type:              input.Type,
		Value:             input.Value,
		MinPurchase:       input.MinPurchase,
		MaxDiscount:       input.MaxDiscount,
		ValidFrom:         input.ValidFrom,
		ValidTo:           input.ValidTo,
		IsActive:          true,
		UsageLimit:        input.UsageLimit,
		FirstPurchaseOnly: input.FirstPurchaseOnly,
		SingleUsePerUser:  input.SingleUsePerUser,
	}

	created, err := s.repo.Create(ctx, discount)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_discounts_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "discount code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, discountID uuid.UUID, input UpdateDiscountInput) (*models.Discount, error) {
	if discountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount id required")
	}

	updates := map[string]any{}
	if input.Value != nil {
		if input.Value.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must not be negative")
		}
		updates["value"] = *input.Value
	}
	if input.MinPurchase != nil {
		updates["min_purchase"] = *input.MinPurchase
	}
	if input.MaxDiscount != nil {
		updates["max_discount"] = *input.MaxDiscount
	}
	if input.ValidFrom != nil {
		updates["valid_from"] = *input.ValidFrom
	}
	if input.ValidTo != nil {
		updates["valid_to"] = *input.ValidTo
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
		}
		updates["usage_limit"] = *input.UsageLimit
	}
	if input.FirstPurchaseOnly != nil {
		updates["first_purchase_only"] = *input.FirstPurchaseOnly
	}
	if input.SingleUsePerUser != nil {
		updates["single_use_per_user"] = *input.SingleUsePerUser
	}

	if err := s.repo.Update(ctx, discountID, updates); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update discount")
	}
	return s.Get(ctx, discountID)
}

func (s *service) Delete(ctx context.Context, discountID uuid.UUID) error {
	if discountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount id required")
	}
	if err := s.repo.Delete(ctx, discountID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete discount")
	}
	return nil
}

func (s *service) Get(ctx context.Context, discountID uuid.UUID) (*models.Discount, error) {
	if discountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount id required")
	}
	discount, err := s.repo.FindByID(ctx, discountID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}
	return discount, nil
}

func (s *service) List(ctx context.Context) ([]models.Discount, error) {
	discounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discounts")
	}
	return discounts, nil
}

func invalid(reason string) *Evaluation {
	return &Evaluation{Valid: false, Reason: reason, Amount: decimal.Zero}
}
