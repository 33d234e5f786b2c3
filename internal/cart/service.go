package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
)

// ProductFinder resolves products when lines are added to a cart.
type ProductFinder interface {
	FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// Service exposes cart operations for storefront clients.
type Service interface {
	CreateCart(ctx context.Context, input CreateCartInput) (*models.Cart, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*Detail, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*Detail, error)
	UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*Detail, error)
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*Detail, error)
}

type service struct {
	repo     Repository
	products ProductFinder
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, products ProductFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) CreateCart(ctx context.Context, input CreateCartInput) (*models.Cart, error) {
	cart := &models.Cart{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		IsGuest:   input.IsGuest,
		Email:     input.Email,
		Phone:     input.Phone,
	}
	created, err := s.repo.CreateCart(ctx, cart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func (s *service) GetCart(ctx context.Context, cartID uuid.UUID) (*Detail, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return buildDetail(cart), nil
}

func (s *service) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*Detail, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	cart, err := s.loadMutableCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	existing, err := s.repo.FindCartItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		// quantity folds into the existing line; the frozen price stands
		if err := s.repo.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
	case err == gorm.ErrRecordNotFound:
		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.EffectivePrice(),
		}
		if _, err := s.repo.CreateCartItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	return s.GetCart(ctx, cart.ID)
}

func (s *service) UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*Detail, error) {
	cart, err := s.loadMutableCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindCartItem(ctx, cart.ID, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if quantity <= 0 {
		if err := s.repo.DeleteCartItem(ctx, item.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
	} else {
		if err := s.repo.UpdateCartItemQuantity(ctx, item.ID, quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
	}

	return s.GetCart(ctx, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*Detail, error) {
	cart, err := s.loadMutableCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindCartItem(ctx, cart.ID, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if err := s.repo.DeleteCartItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}

	return s.GetCart(ctx, cart.ID)
}

func (s *service) loadCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	cart, err := s.repo.FindCartByID(ctx, cartID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadMutableCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsOrdered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has already been ordered")
	}
	return cart, nil
}

func buildDetail(cart *models.Cart) *Detail {
	return &Detail{
		Cart:       *cart,
		Subtotal:   cart.Subtotal(),
		TotalItems: cart.TotalItems(),
	}
}
