package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  session_id TEXT,
  is_guest INTEGER NOT NULL DEFAULT 0,
  email TEXT,
  phone TEXT,
  is_ordered INTEGER NOT NULL DEFAULT 0,
  subtotal NUMERIC,
  total NUMERIC,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  description TEXT,
  notes_top TEXT,
  notes_middle TEXT,
  notes_base TEXT,
  price NUMERIC NOT NULL,
  sale_price NUMERIC,
  stock INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`

	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(cartItems).Error)
	require.NoError(t, db.Exec(products).Error)
	return db
}

func seedCart(t *testing.T, db *gorm.DB) *models.Cart {
	t.Helper()
	cart := &models.Cart{ID: uuid.New()}
	require.NoError(t, db.Create(cart).Error)
	return cart
}

func seedCartProduct(t *testing.T, db *gorm.DB, price decimal.Decimal) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		CategoryID: uuid.New(),
		SKU:        "SKU-" + uuid.New().String()[:8],
		Name:       "Amber Noir",
		Slug:       "amber-noir-" + uuid.New().String()[:8],
		Price:      price,
		Stock:      10,
		IsActive:   true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestRepositoryCartItemLifecycle(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := seedCart(t, db)
	product := seedCartProduct(t, db, decimal.NewFromInt(75))

	item, err := repo.CreateCartItem(ctx, &models.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(75),
	})
	require.NoError(t, err)

	found, err := repo.FindCartItem(ctx, cart.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)
	assert.Equal(t, 2, found.Quantity)

	require.NoError(t, repo.UpdateCartItemQuantity(ctx, item.ID, 5))
	found, err = repo.FindCartItem(ctx, cart.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.Quantity)

	require.NoError(t, repo.DeleteCartItem(ctx, item.ID))
	_, err = repo.FindCartItem(ctx, cart.ID, product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryCartItemUniquePerProduct(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := seedCart(t, db)
	product := seedCartProduct(t, db, decimal.NewFromInt(40))

	_, err := repo.CreateCartItem(ctx, &models.CartItem{
		ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(40),
	})
	require.NoError(t, err)

	_, err = repo.CreateCartItem(ctx, &models.CartItem{
		ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(40),
	})
	require.Error(t, err)
}

func TestRepositoryFindCartByID_PreloadsItems(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := seedCart(t, db)
	product := seedCartProduct(t, db, decimal.NewFromInt(30))
	_, err := repo.CreateCartItem(ctx, &models.CartItem{
		ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(30),
	})
	require.NoError(t, err)

	loaded, err := repo.FindCartByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.True(t, loaded.Subtotal().Equal(decimal.NewFromInt(90)))
	assert.Equal(t, 3, loaded.TotalItems())
}

func TestRepositoryMarkOrdered(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := seedCart(t, db)
	subtotal := decimal.NewFromInt(90)
	total := decimal.NewFromInt(100)

	require.NoError(t, repo.MarkOrdered(ctx, cart.ID, subtotal, total))

	loaded, err := repo.FindCartByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsOrdered)
	require.NotNil(t, loaded.Total)
	assert.True(t, loaded.Total.Equal(total))

	// second claim on the same cart must fail
	err = repo.MarkOrdered(ctx, cart.ID, subtotal, total)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
