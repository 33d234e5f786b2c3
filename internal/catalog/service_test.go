package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
)

type stubCatalogRepo struct {
	categories    map[uuid.UUID]*models.Category
	products      map[uuid.UUID]*models.Product
	productCounts map[uuid.UUID]int64
	createProduct func(ctx context.Context, product *models.Product) (*models.Product, error)
	deleted       []uuid.UUID
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		categories:    map[uuid.UUID]*models.Category{},
		products:      map[uuid.UUID]*models.Product{},
		productCounts: map[uuid.UUID]int64{},
	}
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if s.createProduct != nil {
		return s.createProduct(ctx, product)
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *stubCatalogRepo) UpdateProduct(ctx context.Context, productID uuid.UUID, updates map[string]any) error {
	if _, ok := s.products[productID]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *stubCatalogRepo) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, ok := s.products[productID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.products, productID)
	s.deleted = append(s.deleted, productID)
	return nil
}

func (s *stubCatalogRepo) FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, ok := s.products[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubCatalogRepo) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	for _, product := range s.products {
		if product.Slug == slug {
			return product, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) FindProductsByIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range productIDs {
		if product, ok := s.products[id]; ok {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (s *stubCatalogRepo) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	out := &ProductList{}
	for _, product := range s.products {
		out.Products = append(out.Products, *product)
	}
	return out, nil
}

func (s *stubCatalogRepo) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	product, ok := s.products[productID]
	if !ok || product.Stock < qty {
		return gorm.ErrRecordNotFound
	}
	product.Stock -= qty
	return nil
}

func (s *stubCatalogRepo) CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	s.categories[category.ID] = category
	return category, nil
}

func (s *stubCatalogRepo) UpdateCategory(ctx context.Context, categoryID uuid.UUID, updates map[string]any) error {
	if _, ok := s.categories[categoryID]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *stubCatalogRepo) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	if _, ok := s.categories[categoryID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.categories, categoryID)
	return nil
}

func (s *stubCatalogRepo) FindCategoryByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	category, ok := s.categories[categoryID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return category, nil
}

func (s *stubCatalogRepo) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	for _, category := range s.categories {
		if category.Slug == slug {
			return category, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	for _, category := range s.categories {
		out = append(out, *category)
	}
	return out, nil
}

func (s *stubCatalogRepo) CountProductsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	return s.productCounts[categoryID], nil
}

func seedStubCategory(repo *stubCatalogRepo) *models.Category {
	category := &models.Category{ID: uuid.New(), Name: "Eau de Parfum", Slug: "eau-de-parfum", IsActive: true}
	repo.categories[category.ID] = category
	return category
}

func TestServiceCreateProduct_Validation(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	category := seedStubCategory(repo)

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{"missing name", CreateProductInput{SKU: "SKU-1", CategoryID: category.ID, Price: decimal.NewFromInt(10)}},
		{"missing sku", CreateProductInput{Name: "Amber Noir", CategoryID: category.ID, Price: decimal.NewFromInt(10)}},
		{"missing category", CreateProductInput{Name: "Amber Noir", SKU: "SKU-1", Price: decimal.NewFromInt(10)}},
		{"negative price", CreateProductInput{Name: "Amber Noir", SKU: "SKU-1", CategoryID: category.ID, Price: decimal.NewFromInt(-1)}},
		{"negative stock", CreateProductInput{Name: "Amber Noir", SKU: "SKU-1", CategoryID: category.ID, Price: decimal.NewFromInt(10), Stock: -2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestServiceCreateProduct_GeneratesSlug(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)
	category := seedStubCategory(repo)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Amber Noir Intense",
		SKU:        "SKU-AMB-1",
		CategoryID: category.ID,
		Price:      decimal.NewFromInt(120),
		Stock:      5,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.Slug != "amber-noir-intense" {
		t.Fatalf("unexpected slug %q", product.Slug)
	}
	if !product.IsActive {
		t.Fatal("expected product active by default")
	}
	if product.IsFeatured {
		t.Fatal("expected product unfeatured by default")
	}
}

func TestServiceCreateProduct_Featured(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)
	category := seedStubCategory(repo)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Amber Noir Intense",
		SKU:        "SKU-AMB-1",
		CategoryID: category.ID,
		Price:      decimal.NewFromInt(120),
		Stock:      5,
		IsFeatured: true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if !product.IsFeatured {
		t.Fatal("expected product to be featured")
	}
}

func TestServiceCreateProduct_UnknownCategory(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Amber Noir",
		SKU:        "SKU-1",
		CategoryID: uuid.New(),
		Price:      decimal.NewFromInt(10),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceGetProduct_NotFound(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)

	_, err := svc.GetProduct(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceDeleteCategory_RefusedWithProducts(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)
	category := seedStubCategory(repo)
	repo.productCounts[category.ID] = 3

	err := svc.DeleteCategory(context.Background(), category.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := repo.categories[category.ID]; !ok {
		t.Fatal("category must not be deleted")
	}
}

func TestServiceDeleteCategory_Empty(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)
	category := seedStubCategory(repo)

	if err := svc.DeleteCategory(context.Background(), category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if _, ok := repo.categories[category.ID]; ok {
		t.Fatal("category should be deleted")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Amber Noir":        "amber-noir",
		"  Oud & Rose  ":    "oud-rose",
		"Été D'or":          "t-d-or",
		"citrus--bloom!!":   "citrus-bloom",
		"Eau de Parfum 100": "eau-de-parfum-100",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
