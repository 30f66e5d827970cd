package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	apperrors "github.com/yashrajoria/storefront/common/errors"
)

func TestRecordTypeAllowedFieldsIsACopy(t *testing.T) {
	rt := NewRecordType(TagBrand, BrandFields, nil)
	fields := rt.AllowedFields()
	fields[0] = "mutated"

	assert.Equal(t, "name", rt.AllowedFields()[0])
	assert.Equal(t, "Brand", rt.Name())
	assert.Equal(t, TagBrand, rt.Tag())
}

func TestTypeTagString(t *testing.T) {
	assert.Equal(t, "SubCategory", TagSubCategory.String())
	assert.Equal(t, "Unknown", TypeTag(99).String())
}

func TestHashOnCreate(t *testing.T) {
	doc := bson.M{"password": "pass1234", "confirmPassword": "pass1234"}
	require.NoError(t, hashOnCreate(context.Background(), doc))

	_, hasConfirm := doc["confirmPassword"]
	assert.False(t, hasConfirm)
	hash := doc["password"].(string)
	assert.NotEqual(t, "pass1234", hash)
	assert.True(t, CheckPassword(hash, "pass1234"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestOptionsMediaURL(t *testing.T) {
	assert.Equal(t, "", Options{}.mediaURL("brands"))
	assert.Equal(t, "http://cdn.test/brands", Options{BaseURL: "http://cdn.test/"}.mediaURL("brands"))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.67, round2(11.0/3.0))
	assert.Equal(t, 4.0, round2(4))
}

func TestCouponFromDoc(t *testing.T) {
	var c Coupon
	err := couponFromDoc(bson.M{"name": " summer10 ", "expire": "2030-01-02", "discount": 10.0}, &c)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", c.Name)
	assert.Equal(t, 10.0, c.Discount)
	assert.True(t, c.Active(time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.Active(time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)))

	err = couponFromDoc(bson.M{"expire": "not a date"}, &c)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestCartTotals(t *testing.T) {
	cart := &Cart{CartItems: []CartItem{
		{Product: "a", Quantity: 2, Price: 10},
		{Product: "b", Quantity: 1, Price: 5.25},
	}}
	cart.Recalculate()
	assert.Equal(t, 25.25, cart.TotalCartPrice)
	assert.Nil(t, cart.TotalPriceAfterDiscount)
	assert.Equal(t, 25.25, cart.Payable())

	cart.ApplyDiscount(20)
	require.NotNil(t, cart.TotalPriceAfterDiscount)
	assert.Equal(t, 20.2, *cart.TotalPriceAfterDiscount)
	assert.Equal(t, 20.2, cart.Payable())

	cart.Recalculate()
	assert.Nil(t, cart.TotalPriceAfterDiscount)
}
