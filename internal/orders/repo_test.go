package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT,
  cart_id TEXT,
  discount_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  is_paid INTEGER NOT NULL DEFAULT 0,
  email TEXT NOT NULL,
  phone TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  billing_address TEXT NOT NULL,
  city TEXT NOT NULL,
  country TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'KES',
  subtotal NUMERIC NOT NULL,
  shipping_cost NUMERIC NOT NULL,
  tax NUMERIC NOT NULL,
  discount_amount NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  payment_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	items := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);`

	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(items).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, number string, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		Status:          status,
		Email:           "buyer@example.com",
		Phone:           "+254700000000",
		FirstName:       "Asha",
		LastName:        "Mwangi",
		ShippingAddress: "12 Riverside Dr",
		BillingAddress:  "12 Riverside Dr",
		City:            "Nairobi",
		Country:         "KE",
		Currency:        enums.CurrencyKES,
		Subtotal:        decimal.NewFromInt(100),
		ShippingCost:    decimal.NewFromInt(10),
		Tax:             decimal.Zero,
		DiscountAmount:  decimal.Zero,
		Total:           decimal.NewFromInt(110),
		CreatedAt:       createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryCreateAndFindByOrderNumber(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "ORD-20250901103000-AAAAAA", enums.OrderPending, time.Now())
	require.NoError(t, repo.CreateItems(ctx, []models.OrderItem{{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductID:   uuid.New(),
		ProductName: "Amber Noir",
		Quantity:    2,
		UnitPrice:   decimal.NewFromInt(50),
		Subtotal:    decimal.NewFromInt(100),
	}}))

	found, err := repo.FindByOrderNumber(ctx, "ORD-20250901103000-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Amber Noir", found.Items[0].ProductName)
}

func TestRepositoryCreateRejectsDuplicateOrderNumber(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedOrder(t, db, "ORD-20250901103000-AAAAAA", enums.OrderPending, time.Now())

	dup := seedOrderModel("ORD-20250901103000-AAAAAA")
	_, err := repo.Create(ctx, dup)
	require.Error(t, err)
}

func seedOrderModel(number string) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		Status:          enums.OrderPending,
		Email:           "other@example.com",
		Phone:           "+254711111111",
		FirstName:       "Jelani",
		LastName:        "Otieno",
		ShippingAddress: "8 Moi Ave",
		BillingAddress:  "8 Moi Ave",
		City:            "Mombasa",
		Country:         "KE",
		Currency:        enums.CurrencyKES,
		Subtotal:        decimal.NewFromInt(40),
		ShippingCost:    decimal.Zero,
		Tax:             decimal.Zero,
		DiscountAmount:  decimal.Zero,
		Total:           decimal.NewFromInt(40),
	}
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		status := enums.OrderPending
		if i%2 == 0 {
			status = enums.OrderPaid
		}
		seedOrder(t, db, fmt.Sprintf("ORD-20250901%06d-AAAAAA", i), status, base.Add(time.Duration(i)*time.Minute))
	}

	paid := enums.OrderPaid
	list, err := repo.List(ctx, pagination.Params{Limit: 10}, OrderFilters{Status: &paid})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 3)
	for _, order := range list.Orders {
		assert.Equal(t, enums.OrderPaid, order.Status)
	}

	page1, err := repo.List(ctx, pagination.Params{Limit: 2}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page1.Orders, 2)
	require.NotEmpty(t, page1.NextCursor)

	page2, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: page1.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page2.Orders, 2)
	assert.NotEqual(t, page1.Orders[0].ID, page2.Orders[0].ID)

	// Newest first.
	assert.True(t, page1.Orders[0].CreatedAt.After(page2.Orders[0].CreatedAt))
}

func TestRepositoryListSearchesNumberAndEmail(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedOrder(t, db, "ORD-20250901103000-AAAAAA", enums.OrderPending, time.Now())
	other := seedOrderModel("ORD-20250901103000-BBBBBB")
	_, err := repo.Create(ctx, other)
	require.NoError(t, err)

	list, err := repo.List(ctx, pagination.Params{Limit: 10}, OrderFilters{Query: "bbbbbb"})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, "ORD-20250901103000-BBBBBB", list.Orders[0].OrderNumber)

	list, err = repo.List(ctx, pagination.Params{Limit: 10}, OrderFilters{Query: "OTHER@example"})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, "other@example.com", list.Orders[0].Email)
}

func TestRepositoryMarkPaid(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "ORD-20250901103000-AAAAAA", enums.OrderPending, time.Now())
	require.NoError(t, repo.MarkPaid(ctx, order.ID))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, found.IsPaid)
	assert.Equal(t, enums.OrderPaid, found.Status)

	err = repo.MarkPaid(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositorySetPaymentURL(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "ORD-20250901103000-AAAAAA", enums.OrderPending, time.Now())
	require.NoError(t, repo.SetPaymentURL(ctx, order.ID, "https://pay.example/redirect"))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found.PaymentURL)
	assert.Equal(t, "https://pay.example/redirect", *found.PaymentURL)
}

func TestRepositoryCountOrdersByUser(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 2; i++ {
		order := seedOrderModel(fmt.Sprintf("ORD-20250901%06d-CCCCCC", i))
		order.UserID = &userID
		_, err := repo.Create(ctx, order)
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, seedOrderModel("ORD-20250901103000-DDDDDD"))
	require.NoError(t, err)

	count, err := repo.CountOrdersByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountOrdersByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, count)
}
