package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/internal/cart"
	"github.com/essenza-shop/essenza-backend/internal/catalog"
	"github.com/essenza-shop/essenza-backend/internal/discount"
	ordersvc "github.com/essenza-shop/essenza-backend/internal/orders"
	"github.com/essenza-shop/essenza-backend/internal/payments"
	"github.com/essenza-shop/essenza-backend/internal/stats"
	pkgauth "github.com/essenza-shop/essenza-backend/pkg/auth"
	"github.com/essenza-shop/essenza-backend/pkg/config"
	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*models.Product, error) {
	return &models.Product{ID: uuid.New(), Name: input.Name}, nil
}

func (stubCatalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, input catalog.UpdateProductInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubCatalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	panic("unimplemented")
}

func (stubCatalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	return &models.Product{ID: productID}, nil
}

func (stubCatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return &models.Product{ID: uuid.New(), Slug: slug}, nil
}

func (stubCatalogService) ListProducts(ctx context.Context, params pagination.Params, filters catalog.ProductFilters) (*catalog.ProductList, error) {
	return &catalog.ProductList{}, nil
}

func (stubCatalogService) CreateCategory(ctx context.Context, input catalog.CreateCategoryInput) (*models.Category, error) {
	panic("unimplemented")
}

func (stubCatalogService) UpdateCategory(ctx context.Context, categoryID uuid.UUID, input catalog.UpdateCategoryInput) (*models.Category, error) {
	panic("unimplemented")
}

func (stubCatalogService) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	panic("unimplemented")
}

func (stubCatalogService) GetCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	return &models.Category{ID: categoryID}, nil
}

func (stubCatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return []models.Category{}, nil
}

type stubCartService struct{}

func (stubCartService) CreateCart(ctx context.Context, input cart.CreateCartInput) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), IsGuest: input.IsGuest}, nil
}

func (stubCartService) GetCart(ctx context.Context, cartID uuid.UUID) (*cart.Detail, error) {
	return &cart.Detail{Cart: models.Cart{ID: cartID}}, nil
}

func (stubCartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*cart.Detail, error) {
	panic("unimplemented")
}

func (stubCartService) UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*cart.Detail, error) {
	panic("unimplemented")
}

func (stubCartService) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*cart.Detail, error) {
	panic("unimplemented")
}

type stubDiscountService struct{}

func (stubDiscountService) Evaluate(ctx context.Context, code string, userID *uuid.UUID, cartTotal decimal.Decimal) (*models.Discount, *discount.Evaluation, error) {
	return nil, &discount.Evaluation{Valid: false, Reason: "Invalid discount code"}, nil
}

func (stubDiscountService) Apply(ctx context.Context, tx *gorm.DB, d *models.Discount, userID *uuid.UUID, orderID uuid.UUID) error {
	panic("unimplemented")
}

func (stubDiscountService) Create(ctx context.Context, input discount.CreateDiscountInput) (*models.Discount, error) {
	panic("unimplemented")
}

func (stubDiscountService) Update(ctx context.Context, discountID uuid.UUID, input discount.UpdateDiscountInput) (*models.Discount, error) {
	panic("unimplemented")
}

func (stubDiscountService) Delete(ctx context.Context, discountID uuid.UUID) error {
	panic("unimplemented")
}

func (stubDiscountService) Get(ctx context.Context, discountID uuid.UUID) (*models.Discount, error) {
	panic("unimplemented")
}

func (stubDiscountService) List(ctx context.Context) ([]models.Discount, error) {
	return []models.Discount{}, nil
}

type stubOrdersService struct {
	paid bool
}

func (stubOrdersService) CreateOrder(ctx context.Context, input ordersvc.CreateOrderInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), OrderNumber: "ORD-20250901103000-AAAAAA"}, nil
}

func (s stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID, OrderNumber: "ORD-20250901103000-AAAAAA", IsPaid: s.paid}, nil
}

func (stubOrdersService) List(ctx context.Context, params pagination.Params, filters ordersvc.OrderFilters) (*ordersvc.OrderList, error) {
	return &ordersvc.OrderList{}, nil
}

func (stubOrdersService) TransitionStatus(ctx context.Context, input ordersvc.TransitionStatusInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID, Status: input.Status}, nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) Initiate(ctx context.Context, order *models.Order) (string, error) {
	return "https://pay.example/redirect/TRK-001", nil
}

func (stubPaymentsService) Reconcile(ctx context.Context, input payments.ReconcileInput) (*payments.ReconcileResult, error) {
	return &payments.ReconcileResult{Outcome: payments.OutcomeStillPending}, nil
}

func (stubPaymentsService) RegisterCallbackURL(ctx context.Context, rawURL string) (*models.CallbackURL, error) {
	panic("unimplemented")
}

func (stubPaymentsService) ListCallbackURLs(ctx context.Context) ([]models.CallbackURL, error) {
	return []models.CallbackURL{}, nil
}

func (stubPaymentsService) GetTransaction(ctx context.Context, trxID uuid.UUID) (*models.Transaction, error) {
	panic("unimplemented")
}

func (stubPaymentsService) ListTransactions(ctx context.Context, params pagination.Params, filters payments.TransactionFilters) (*payments.TransactionList, error) {
	return &payments.TransactionList{}, nil
}

func (stubPaymentsService) UpdateTransaction(ctx context.Context, trxID uuid.UUID) error {
	panic("unimplemented")
}

func (stubPaymentsService) DeleteTransaction(ctx context.Context, trxID uuid.UUID) error {
	panic("unimplemented")
}

type stubStatsService struct{}

func (stubStatsService) Snapshot(ctx context.Context) (*stats.Snapshot, error) {
	return &stats.Snapshot{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	return NewRouter(Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        stubPinger{},
		Catalog:   stubCatalogService{},
		Cart:      stubCartService{},
		Discounts: stubDiscountService{},
		Orders:    stubOrdersService{},
		Payments:  stubPaymentsService{},
		Stats:     stubStatsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "user@example.com",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPublicProductListingNeedsNoAuth(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public products got %d", resp.Code)
	}
}

func TestGuestOrderCreationNeedsNoAuth(t *testing.T) {
	router := newTestRouter(t, testConfig())
	body := `{
		"lines": [{"product_id": "` + uuid.NewString() + `", "quantity": 1}],
		"contact": {
			"email": "guest@example.com",
			"phone": "+254700000000",
			"first_name": "Asha",
			"last_name": "Mwangi",
			"shipping_address": "12 Riverside Dr"
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for guest order got %d body %s", resp.Code, resp.Body.String())
	}
}

func TestOptionalAuthRejectsGarbageToken(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/discounts/validate", strings.NewReader(`{"code":"X","cart_total":"100"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token got %d", resp.Code)
	}
}

func TestAdminGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/stats", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAdminGroupRequiresStaffRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/v1/stats", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	staff := httptest.NewRequest(http.MethodGet, "/api/admin/v1/stats", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff got %d", resp.Code)
	}
}

func TestStaffOrderListing(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=paid", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff listing got %d", resp.Code)
	}
}

func TestStaffPaymentRetry(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	target := "/api/admin/v1/orders/" + uuid.NewString() + "/initiate-payment"
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff payment retry got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "payment_url") {
		t.Fatalf("expected payment_url in response, got %s", resp.Body.String())
	}

	anon := httptest.NewRequest(http.MethodPost, target, nil)
	anonResp := httptest.NewRecorder()
	router.ServeHTTP(anonResp, anon)
	if anonResp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without JWT got %d", anonResp.Code)
	}
}

func TestStaffPaymentRetryRefusesPaidOrder(t *testing.T) {
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	router := NewRouter(Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        stubPinger{},
		Catalog:   stubCatalogService{},
		Cart:      stubCartService{},
		Discounts: stubDiscountService{},
		Orders:    stubOrdersService{paid: true},
		Payments:  stubPaymentsService{},
		Stats:     stubStatsService{},
	})

	target := "/api/admin/v1/orders/" + uuid.NewString() + "/initiate-payment"
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a paid order got %d", resp.Code)
	}
}

func TestWebhookRejectsMissingTrackingID(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/pesapal?OrderMerchantReference=ORD-X", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing tracking id got %d", resp.Code)
	}
}

func TestWebhookAcknowledgesCallback(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/pesapal?OrderTrackingId=TRK-001&OrderMerchantReference=ORD-X", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 ack got %d", resp.Code)
	}
}

func TestIntegrationRoutesAbsentWithoutKeyStore(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/integrations/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no API key store wired got %d", resp.Code)
	}
}
