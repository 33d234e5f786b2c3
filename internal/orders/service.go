package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/internal/cart"
	"github.com/essenza-shop/essenza-backend/internal/catalog"
	"github.com/essenza-shop/essenza-backend/internal/discount"
	dbpkg "github.com/essenza-shop/essenza-backend/pkg/db"
	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
	"github.com/essenza-shop/essenza-backend/pkg/outbox"
	"github.com/essenza-shop/essenza-backend/pkg/outbox/payloads"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
)

const orderNumberRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type discountEvaluator interface {
	Evaluate(ctx context.Context, code string, userID *uuid.UUID, cartTotal decimal.Decimal) (*models.Discount, *discount.Evaluation, error)
	Apply(ctx context.Context, tx *gorm.DB, d *models.Discount, userID *uuid.UUID, orderID uuid.UUID) error
}

// PaymentStarter kicks off a gateway payment for a freshly created order. It
// owns the Transaction row and the order's payment URL stamp.
type PaymentStarter interface {
	Initiate(ctx context.Context, order *models.Order) (string, error)
}

// Service defines order orchestration operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	TransitionStatus(ctx context.Context, input TransitionStatusInput) (*models.Order, error)
}

type service struct {
	repo        Repository
	carts       cart.Repository
	catalog     catalog.Repository
	discounts   discountEvaluator
	tx          txRunner
	outbox      outboxPublisher
	payments    PaymentStarter
	logg        *logger.Logger
	initTimeout time.Duration
	now         func() time.Time
}

// NewService builds an order service. The payment starter is optional; without
// one, orders are created without payment initiation.
func NewService(
	repo Repository,
	carts cart.Repository,
	catalogRepo catalog.Repository,
	discounts discountEvaluator,
	tx txRunner,
	outboxSvc outboxPublisher,
	payments PaymentStarter,
	logg *logger.Logger,
	initTimeout time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if discounts == nil {
		return nil, fmt.Errorf("discount evaluator required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if initTimeout <= 0 {
		initTimeout = 10 * time.Second
	}
	return &service{
		repo:        repo,
		carts:       carts,
		catalog:     catalogRepo,
		discounts:   discounts,
		tx:          tx,
		outbox:      outboxSvc,
		payments:    payments,
		logg:        logg,
		initTimeout: initTimeout,
		now:         time.Now,
	}, nil
}

// CreateOrder assembles a cart, freezes it and persists the order atomically.
// Payment initiation runs after the transaction commits and never fails the
// order.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyKES
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		orderRepo := s.repo.WithTx(tx)

		newCart, err := cartRepo.CreateCart(ctx, &models.Cart{
			UserID:  input.UserID,
			IsGuest: input.UserID == nil,
			Email:   &input.Contact.Email,
			Phone:   &input.Contact.Phone,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}

		subtotal := decimal.Zero
		cartItems := make([]models.CartItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			product, err := catalogRepo.FindProductByID(ctx, line.ProductID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is not available", product.Name))
			}
			if err := catalogRepo.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for %s", product.Name))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}

			unitPrice := product.EffectivePrice()
			item := models.CartItem{
				CartID:    newCart.ID,
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
			}
			if _, err := cartRepo.CreateCartItem(ctx, &item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
			item.Product = product
			cartItems = append(cartItems, item)
			subtotal = subtotal.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		discountAmount := decimal.Zero
		var appliedDiscount *models.Discount
		if strings.TrimSpace(input.DiscountCode) != "" {
			found, eval, err := s.discounts.Evaluate(ctx, input.DiscountCode, input.UserID, subtotal)
			if err != nil {
				return err
			}
			if !eval.Valid {
				return pkgerrors.New(pkgerrors.CodeValidation, eval.Reason)
			}
			discountAmount = eval.Amount
			appliedDiscount = found
		}

		total := subtotal.Add(input.ShippingCost).Add(input.Tax).Sub(discountAmount)

		if err := cartRepo.MarkOrdered(ctx, newCart.ID, subtotal, total); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart has already been ordered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "freeze cart")
		}

		order, err = s.persistOrderWithRetry(ctx, tx, orderRepo, newCart.ID, appliedDiscount, input, currency, subtotal, discountAmount, total)
		if err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(cartItems))
		for _, ci := range cartItems {
			items = append(items, models.OrderItem{
				OrderID:     order.ID,
				ProductID:   ci.ProductID,
				ProductName: ci.Product.Name,
				Quantity:    ci.Quantity,
				UnitPrice:   ci.UnitPrice,
				Subtotal:    ci.LineSubtotal(),
			})
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = items

		if appliedDiscount != nil {
			if err := s.discounts.Apply(ctx, tx, appliedDiscount, input.UserID, order.ID); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.UserID),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      input.UserID,
				Total:       order.Total,
				Currency:    order.Currency,
				ItemCount:   len(items),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.initiatePayment(ctx, order)
	return order, nil
}

// orderInsertSavepoint brackets each insert attempt. Postgres aborts the
// whole transaction on a constraint violation, so a retry with a fresh order
// number only works after rolling back to the savepoint.
const orderInsertSavepoint = "before_order_insert"

func (s *service) persistOrderWithRetry(
	ctx context.Context,
	tx *gorm.DB,
	orderRepo Repository,
	cartID uuid.UUID,
	appliedDiscount *models.Discount,
	input CreateOrderInput,
	currency enums.Currency,
	subtotal, discountAmount, total decimal.Decimal,
) (*models.Order, error) {
	var discountID *uuid.UUID
	if appliedDiscount != nil {
		discountID = &appliedDiscount.ID
	}

	var lastErr error
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		number, err := GenerateOrderNumber(s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}

		if err := tx.SavePoint(orderInsertSavepoint).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set order savepoint")
		}

		order := &models.Order{
			OrderNumber:     number,
			UserID:          input.UserID,
			CartID:          &cartID,
			DiscountID:      discountID,
			Status:          enums.OrderPending,
			Email:           input.Contact.Email,
			Phone:           input.Contact.Phone,
			FirstName:       input.Contact.FirstName,
			LastName:        input.Contact.LastName,
			ShippingAddress: input.Contact.ShippingAddress,
			BillingAddress:  input.Contact.BillingAddress,
			City:            input.Contact.City,
			Country:         input.Contact.Country,
			Currency:        currency,
			Subtotal:        subtotal,
			ShippingCost:    input.ShippingCost,
			Tax:             input.Tax,
			DiscountAmount:  discountAmount,
			Total:           total,
		}

		created, err := orderRepo.Create(ctx, order)
		if err == nil {
			return created, nil
		}
		if !dbpkg.IsUniqueViolation(err, "ux_orders_order_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if rbErr := tx.RollbackTo(orderInsertSavepoint).Error; rbErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, rbErr, "roll back failed order insert")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "order number collision")
}

// initiatePayment runs after commit. Failures are logged and swallowed so a
// flaky gateway cannot undo a placed order.
func (s *service) initiatePayment(ctx context.Context, order *models.Order) {
	if s.payments == nil {
		return
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.initTimeout)
	defer cancel()

	redirectURL, err := s.payments.Initiate(callCtx, order)
	logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
	if err != nil {
		s.logg.Error(logCtx, "payment initiation failed, order stands unpaid", err)
		return
	}
	if redirectURL != "" {
		url := redirectURL
		order.PaymentURL = &url
	}
	s.logg.Info(logCtx, "payment initiated")
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// TransitionStatus overwrites the order status. Any known status may move to
// any other; there is deliberately no transition graph.
func (s *service) TransitionStatus(ctx context.Context, input TransitionStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.Status {
			updated = order
			return nil
		}

		from := order.Status
		if err := repo.UpdateStatus(ctx, order.ID, input.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = input.Status
		updated = order

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID: input.ActorUserID,
				Role:   input.ActorRole.String(),
			},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          input.Status,
				ChangedAt:   s.now(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	if input.ShippingCost.IsNegative() || input.Tax.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping and tax must not be negative")
	}
	if strings.TrimSpace(input.Contact.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if strings.TrimSpace(input.Contact.Phone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone required")
	}
	if input.Currency != "" && !input.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	return nil
}

func buildActor(userID *uuid.UUID) *outbox.ActorRef {
	if userID == nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: *userID,
		Role:   enums.UserRoleCustomer.String(),
	}
}
