package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/repository"
)

type CartStore interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, userID string) error
}

type CartService struct {
	carts    CartStore
	products repository.Store
	coupons  repository.Store
	now      func() time.Time
}

func NewCartService(carts CartStore, products, coupons repository.Store) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		coupons:  coupons,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddProduct puts one unit of the product in the user's cart, creating the
// cart on first use.
func (s *CartService) AddProduct(ctx context.Context, userID, productID, color string) (*models.Cart, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("No product found with ID: %s", productID)
		}
		return nil, err
	}
	price, _ := number(product["price"])

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &models.Cart{ID: uuid.NewString(), User: userID}
	}

	found := false
	for i := range cart.CartItems {
		item := &cart.CartItems[i]
		if item.Product == productID && item.Color == color {
			item.Quantity++
			found = true
			break
		}
	}
	if !found {
		cart.CartItems = append(cart.CartItems, models.CartItem{
			ID:       uuid.NewString(),
			Product:  productID,
			Color:    color,
			Quantity: 1,
			Price:    price,
		})
	}
	return s.save(ctx, cart)
}

func (s *CartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperrors.NotFound("There is no cart for this user id: %s", userID)
	}
	return cart, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.BadRequest("Quantity must be at least 1")
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := indexOfItem(cart, itemID)
	if i < 0 {
		return nil, apperrors.NotFound("There is no item for this id: %s", itemID)
	}
	cart.CartItems[i].Quantity = quantity
	return s.save(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := indexOfItem(cart, itemID)
	if i < 0 {
		return nil, apperrors.NotFound("There is no item for this id: %s", itemID)
	}
	cart.CartItems = append(cart.CartItems[:i], cart.CartItems[i+1:]...)
	return s.save(ctx, cart)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.carts.DeleteCart(ctx, userID)
}

// ApplyCoupon discounts the cart total by an unexpired coupon.
func (s *CartService) ApplyCoupon(ctx context.Context, userID, name string) (*models.Cart, error) {
	coupon, err := repository.FindOne(ctx, s.coupons, bson.M{
		"name":   strings.ToUpper(strings.TrimSpace(name)),
		"expire": bson.M{"$gt": s.now()},
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Coupon is invalid or expired")
		}
		return nil, err
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	discount, _ := number(coupon["discount"])
	cart.ApplyDiscount(discount)
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.Recalculate()
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func indexOfItem(cart *models.Cart, itemID string) int {
	for i, item := range cart.CartItems {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
