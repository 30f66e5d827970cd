package models

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/yashrajoria/storefront/repository"
)

// OrderFields is empty: orders are only created from carts and never
// through the generic create and update handlers.
var OrderFields = []string{}

const PaymentCash = "cash"

// OrderCustomer expands the buyer on order responses.
var OrderCustomer = []repository.Population{
	{Path: "user", From: "users", Select: []string{"name", "email", "phone"}},
}

func orderSchema() *repository.Schema {
	return &repository.Schema{
		Collection: "orders",
		Label:      TagOrder.String(),
		References: map[string]string{"user": "users"},
		DateFields: []string{"paidAt", "deliveredAt"},
		Required:   []string{"user", "cartItems", "totalOrderPrice"},
		Defaults: bson.M{
			"taxPrice":          0,
			"shippingPrice":     0,
			"paymentMethodType": PaymentCash,
			"isPaid":            false,
			"isDelivered":       false,
		},
	}
}
