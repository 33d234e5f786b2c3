package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/internal/cart"
	"github.com/essenza-shop/essenza-backend/internal/catalog"
	"github.com/essenza-shop/essenza-backend/internal/discount"
	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
	"github.com/essenza-shop/essenza-backend/pkg/outbox"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
)

// stubTxRunner wraps a throwaway sqlite handle so the service's savepoint
// statements run against a live driver. The stub repositories never touch it.
type stubTxRunner struct {
	db *gorm.DB
}

func newStubTxRunner(t *testing.T) stubTxRunner {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return stubTxRunner{db: db}
}

func (r stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

type stubOrderRepo struct {
	orders      map[uuid.UUID]*models.Order
	items       []models.OrderItem
	createErrs  []error
	userCounts  map[uuid.UUID]int64
	paidOrders  map[uuid.UUID]bool
	paymentURLs map[uuid.UUID]string
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders:      map[uuid.UUID]*models.Order{},
		userCounts:  map[uuid.UUID]int64{},
		paidOrders:  map[uuid.UUID]bool{},
		paymentURLs: map[uuid.UUID]string{},
	}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	s.items = append(s.items, items...)
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	out := &OrderList{}
	for _, order := range s.orders {
		out.Orders = append(out.Orders, *order)
	}
	return out, nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	order, ok := s.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	return nil
}

func (s *stubOrderRepo) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	if _, ok := s.orders[orderID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.paidOrders[orderID] = true
	return nil
}

func (s *stubOrderRepo) SetPaymentURL(ctx context.Context, orderID uuid.UUID, url string) error {
	s.paymentURLs[orderID] = url
	return nil
}

func (s *stubOrderRepo) CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.userCounts[userID], nil
}

type stubDiscounts struct {
	discount *models.Discount
	eval     *discount.Evaluation
	applyErr error
	applied  int
}

func (s *stubDiscounts) Evaluate(ctx context.Context, code string, userID *uuid.UUID, cartTotal decimal.Decimal) (*models.Discount, *discount.Evaluation, error) {
	if s.discount == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}
	return s.discount, s.eval, nil
}

func (s *stubDiscounts) Apply(ctx context.Context, tx *gorm.DB, d *models.Discount, userID *uuid.UUID, orderID uuid.UUID) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied++
	return nil
}

type stubPayments struct {
	redirectURL string
	err         error
	calls       int
}

func (s *stubPayments) Initiate(ctx context.Context, order *models.Order) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.redirectURL, nil
}

type ordersFixture struct {
	svc       Service
	repo      *stubOrderRepo
	carts     *stubCartRepository
	catalog   *stubCatalogRepository
	discounts *stubDiscounts
	outbox    *recordingOutbox
	payments  *stubPayments
}

// stubCartRepository is a minimal in-memory cart.Repository.
type stubCartRepository struct {
	carts map[uuid.UUID]*models.Cart
	items []models.CartItem
}

func (s *stubCartRepository) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *stubCartRepository) CreateCart(ctx context.Context, c *models.Cart) (*models.Cart, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.carts[c.ID] = c
	return c, nil
}

func (s *stubCartRepository) FindCartByID(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	c, ok := s.carts[cartID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (s *stubCartRepository) FindCartItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepository) CreateCartItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.items = append(s.items, *item)
	return item, nil
}

func (s *stubCartRepository) UpdateCartItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return nil
}

func (s *stubCartRepository) DeleteCartItem(ctx context.Context, itemID uuid.UUID) error {
	return nil
}

func (s *stubCartRepository) MarkOrdered(ctx context.Context, cartID uuid.UUID, subtotal, total decimal.Decimal) error {
	c, ok := s.carts[cartID]
	if !ok || c.IsOrdered {
		return gorm.ErrRecordNotFound
	}
	c.IsOrdered = true
	c.SubtotalSnapshot = &subtotal
	c.Total = &total
	return nil
}

// stubCatalogRepository is a minimal in-memory catalog.Repository.
type stubCatalogRepository struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubCatalogRepository) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalogRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubCatalogRepository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubCatalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

func (s *stubCatalogRepository) FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (s *stubCatalogRepository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubCatalogRepository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	panic("not implemented")
}

func (s *stubCatalogRepository) ListProducts(ctx context.Context, params pagination.Params, filters catalog.ProductFilters) (*catalog.ProductList, error) {
	panic("not implemented")
}

func (s *stubCatalogRepository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	p, ok := s.products[productID]
	if !ok || p.Stock < qty {
		return gorm.ErrRecordNotFound
	}
	p.Stock -= qty
	return nil
}

func (s *stubCatalogRepository) CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	panic("not implemented")
}

func (s *stubCatalogRepository) UpdateCategory(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubCatalogRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

func (s *stubCatalogRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	panic("not implemented")
}

func (s *stubCatalogRepository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	panic("not implemented")
}

func (s *stubCatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	panic("not implemented")
}

func (s *stubCatalogRepository) CountProductsByCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	panic("not implemented")
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()

	f := &ordersFixture{
		repo:      newStubOrderRepo(),
		carts:     &stubCartRepository{carts: map[uuid.UUID]*models.Cart{}},
		catalog:   &stubCatalogRepository{products: map[uuid.UUID]*models.Product{}},
		discounts: &stubDiscounts{},
		outbox:    &recordingOutbox{},
		payments:  &stubPayments{redirectURL: "https://pay.example/redirect"},
	}

	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(f.repo, f.carts, f.catalog, f.discounts, newStubTxRunner(t), f.outbox, f.payments, logg, time.Second)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *ordersFixture) addProduct(price int64, stock int) *models.Product {
	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Amber Noir",
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		IsActive: true,
	}
	f.catalog.products[product.ID] = product
	return product
}

func validContact() Contact {
	return Contact{
		Email:           "buyer@example.com",
		Phone:           "+254700000000",
		FirstName:       "Asha",
		LastName:        "Mwangi",
		ShippingAddress: "12 Riverside Dr",
		BillingAddress:  "12 Riverside Dr",
		City:            "Nairobi",
		Country:         "KE",
	}
}

func TestCreateOrder_TotalsExact(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(120, 10)

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:        []LineInput{{ProductID: product.ID, Quantity: 2}},
		ShippingCost: decimal.NewFromInt(10),
		Tax:          decimal.RequireFromString("38.40"),
		Contact:      validContact(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if !order.Subtotal.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("subtotal = %s, want 240", order.Subtotal)
	}
	want := decimal.RequireFromString("288.40")
	if !order.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", order.Total, want)
	}
	if order.Status != enums.OrderPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].ProductName != "Amber Noir" {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if product.Stock != 8 {
		t.Fatalf("stock = %d, want 8", product.Stock)
	}
}

func TestCreateOrder_FreezesCartAndEmitsEvent(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(50, 5)

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:   []LineInput{{ProductID: product.ID, Quantity: 1}},
		Contact: validContact(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	frozen := f.carts.carts[*order.CartID]
	if !frozen.IsOrdered {
		t.Fatal("cart must be frozen")
	}
	if frozen.Total == nil || !frozen.Total.Equal(order.Total) {
		t.Fatal("cart total snapshot missing")
	}

	if len(f.outbox.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(f.outbox.events))
	}
	if f.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("event type = %s", f.outbox.events[0].EventType)
	}
	if f.payments.calls != 1 {
		t.Fatalf("payment initiations = %d, want 1", f.payments.calls)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newOrdersFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:   []LineInput{{ProductID: uuid.New(), Quantity: 1}},
		Contact: validContact(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if f.payments.calls != 0 {
		t.Fatal("payment must not start for failed orders")
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(50, 1)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:   []LineInput{{ProductID: product.ID, Quantity: 3}},
		Contact: validContact(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateOrder_InvalidDiscountFailsCreation(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(100, 5)
	f.discounts.discount = &models.Discount{ID: uuid.New()}
	f.discounts.eval = &discount.Evaluation{Valid: false, Reason: "Discount code has expired"}

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:        []LineInput{{ProductID: product.ID, Quantity: 1}},
		DiscountCode: "EXPIRED",
		Contact:      validContact(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "Discount code has expired" {
		t.Fatalf("message = %q", typed.Message())
	}
}

func TestCreateOrder_AppliesDiscount(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(200, 5)
	f.discounts.discount = &models.Discount{ID: uuid.New()}
	f.discounts.eval = &discount.Evaluation{Valid: true, Amount: decimal.NewFromInt(20)}

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:        []LineInput{{ProductID: product.ID, Quantity: 1}},
		DiscountCode: "WELCOME10",
		Contact:      validContact(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !order.DiscountAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("discount amount = %s", order.DiscountAmount)
	}
	if !order.Total.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("total = %s, want 180", order.Total)
	}
	if f.discounts.applied != 1 {
		t.Fatalf("discount applied %d times, want 1", f.discounts.applied)
	}
	if order.DiscountID == nil || *order.DiscountID != f.discounts.discount.ID {
		t.Fatal("order must reference the discount")
	}
}

func TestCreateOrder_GatewayFailureIsDegraded(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(90, 5)
	f.payments.err = errors.New("gateway unreachable")

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:   []LineInput{{ProductID: product.ID, Quantity: 1}},
		Contact: validContact(),
	})
	if err != nil {
		t.Fatalf("order must stand despite gateway failure: %v", err)
	}
	if order.PaymentURL != nil {
		t.Fatal("no payment url expected on gateway failure")
	}
}

func TestCreateOrder_RetriesOrderNumberCollision(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(60, 5)
	f.repo.createErrs = []error{errors.New(`duplicate key value violates unique constraint "ux_orders_order_number"`)}

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:   []LineInput{{ProductID: product.ID, Quantity: 1}},
		Contact: validContact(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.OrderNumber == "" {
		t.Fatal("order number missing")
	}
}

func TestCreateOrder_CollisionRetriesInsideOpenTransaction(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(60, 5)
	// Two consecutive collisions. Each failed insert must be rolled back to
	// its savepoint so the third attempt runs in a healthy transaction
	// instead of an aborted one.
	f.repo.createErrs = []error{
		errors.New(`duplicate key value violates unique constraint "ux_orders_order_number"`),
		errors.New(`duplicate key value violates unique constraint "ux_orders_order_number"`),
	}

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:   []LineInput{{ProductID: product.ID, Quantity: 1}},
		Contact: validContact(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.OrderNumber == "" {
		t.Fatal("order number missing")
	}
	if len(f.outbox.events) != 1 {
		t.Fatalf("expected one order created event, got %d", len(f.outbox.events))
	}
}

func TestCreateOrder_CollisionExhaustionIsConflict(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.addProduct(60, 5)
	dup := errors.New(`duplicate key value violates unique constraint "ux_orders_order_number"`)
	f.repo.createErrs = []error{dup, dup, dup}

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Lines:   []LineInput{{ProductID: product.ID, Quantity: 1}},
		Contact: validContact(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict after exhausted retries, got %v", err)
	}
}

func TestTransitionStatus_RequiresStaff(t *testing.T) {
	f := newOrdersFixture(t)

	_, err := f.svc.TransitionStatus(context.Background(), TransitionStatusInput{
		OrderID:     uuid.New(),
		Status:      enums.OrderShipped,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleCustomer,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestTransitionStatus_UnknownStatus(t *testing.T) {
	f := newOrdersFixture(t)

	_, err := f.svc.TransitionStatus(context.Background(), TransitionStatusInput{
		OrderID:     uuid.New(),
		Status:      enums.OrderStatus("teleported"),
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionStatus_OverwritesAndEmits(t *testing.T) {
	f := newOrdersFixture(t)
	order := &models.Order{ID: uuid.New(), OrderNumber: "ORD-1", Status: enums.OrderPaid}
	f.repo.orders[order.ID] = order

	updated, err := f.svc.TransitionStatus(context.Background(), TransitionStatusInput{
		OrderID:     order.ID,
		Status:      enums.OrderShipped,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleStaff,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != enums.OrderShipped {
		t.Fatalf("status = %s", updated.Status)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected status changed event, got %+v", f.outbox.events)
	}
}

func TestTransitionStatus_SameStatusIsNoOp(t *testing.T) {
	f := newOrdersFixture(t)
	order := &models.Order{ID: uuid.New(), OrderNumber: "ORD-1", Status: enums.OrderPaid}
	f.repo.orders[order.ID] = order

	_, err := f.svc.TransitionStatus(context.Background(), TransitionStatusInput{
		OrderID:     order.ID,
		Status:      enums.OrderPaid,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleStaff,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if len(f.outbox.events) != 0 {
		t.Fatal("no event expected for no-op transition")
	}
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)
	number, err := GenerateOrderNumber(now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(number) != len("ORD-20250901103000-XXXXXX") {
		t.Fatalf("unexpected length for %q", number)
	}
	if number[:18] != "ORD-20250901103000" {
		t.Fatalf("unexpected prefix %q", number)
	}
	for _, c := range number[19:] {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			t.Fatalf("invalid suffix char %q in %q", c, number)
		}
	}
}
