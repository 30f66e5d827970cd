package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	apperrors "github.com/yashrajoria/storefront/common/errors"
)

func newCartFixture() (*CartService, *memCarts) {
	products := newMemStore(
		bson.M{"_id": "p1", "name": "Shoe", "price": 10.0},
		bson.M{"_id": "p2", "name": "Sock", "price": int32(3)},
	)
	coupons := newMemStore(bson.M{"_id": "c1", "name": "SAVE20", "discount": 20.0, "expire": time.Now().Add(time.Hour)})
	carts := newMemCarts()
	return NewCartService(carts, products, coupons), carts
}

func TestCartAddProduct(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "u1", "p1", "red")
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, "u1", "p1", "red")
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, "u1", "p1", "blue")
	require.NoError(t, err)
	cart, err := svc.AddProduct(ctx, "u1", "p2", "")
	require.NoError(t, err)

	require.Len(t, cart.CartItems, 3)
	assert.Equal(t, 2, cart.CartItems[0].Quantity)
	assert.Equal(t, "blue", cart.CartItems[1].Color)
	assert.Equal(t, 3.0, cart.CartItems[2].Price)
	assert.Equal(t, 33.0, cart.TotalCartPrice)
	assert.Equal(t, "u1", cart.User)
	assert.NotEmpty(t, cart.ID)
}

func TestCartAddUnknownProduct(t *testing.T) {
	svc, _ := newCartFixture()

	_, err := svc.AddProduct(context.Background(), "u1", "nope", "")

	require.Error(t, err)
	assert.Equal(t, 404, statusOf(err))
}

func TestCartItemLifecycle(t *testing.T) {
	svc, carts := newCartFixture()
	ctx := context.Background()

	_, err := svc.Get(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, "There is no cart for this user id: u1", apperrors.From(err).Message)

	cart, err := svc.AddProduct(ctx, "u1", "p1", "")
	require.NoError(t, err)
	itemID := cart.CartItems[0].ID

	_, err = svc.UpdateQuantity(ctx, "u1", itemID, 0)
	require.Error(t, err)
	assert.Equal(t, 400, statusOf(err))

	_, err = svc.UpdateQuantity(ctx, "u1", "missing", 2)
	require.Error(t, err)
	assert.Equal(t, 404, statusOf(err))

	cart, err = svc.UpdateQuantity(ctx, "u1", itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cart.TotalCartPrice)

	cart, err = svc.RemoveItem(ctx, "u1", itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.CartItems)
	assert.Equal(t, 0.0, cart.TotalCartPrice)

	require.NoError(t, svc.Clear(ctx, "u1"))
	assert.Empty(t, carts.carts)
}

func TestCartApplyCoupon(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "u1", "p1", "")
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, "u1", "unknown")
	require.Error(t, err)
	assert.Equal(t, "Coupon is invalid or expired", apperrors.From(err).Message)

	cart, err := svc.ApplyCoupon(ctx, "u1", " save20 ")
	require.NoError(t, err)
	require.NotNil(t, cart.TotalPriceAfterDiscount)
	assert.Equal(t, 8.0, *cart.TotalPriceAfterDiscount)
	assert.Equal(t, 8.0, cart.Payable())

	// adding more drops the discount until it is applied again
	cart, err = svc.AddProduct(ctx, "u1", "p2", "")
	require.NoError(t, err)
	assert.Nil(t, cart.TotalPriceAfterDiscount)
}
