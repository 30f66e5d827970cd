package models

import "time"

type CartItem struct {
	ID       string  `json:"_id"`
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Color    string  `json:"color,omitempty"`
	Price    float64 `json:"price"`
}

// Cart is kept in Redis, one per user.
type Cart struct {
	ID                      string     `json:"_id"`
	User                    string     `json:"user"`
	CartItems               []CartItem `json:"cartItems"`
	TotalCartPrice          float64    `json:"totalCartPrice"`
	TotalPriceAfterDiscount *float64   `json:"totalPriceAfterDiscount,omitempty"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// Recalculate refreshes the total and drops any applied discount.
func (c *Cart) Recalculate() {
	var total float64
	for _, item := range c.CartItems {
		total += item.Price * float64(item.Quantity)
	}
	c.TotalCartPrice = round2(total)
	c.TotalPriceAfterDiscount = nil
}

// ApplyDiscount sets the discounted total for a percentage discount.
func (c *Cart) ApplyDiscount(percent float64) {
	after := round2(c.TotalCartPrice - c.TotalCartPrice*percent/100)
	c.TotalPriceAfterDiscount = &after
}

// Payable is the price an order placed now would charge.
func (c *Cart) Payable() float64 {
	if c.TotalPriceAfterDiscount != nil {
		return *c.TotalPriceAfterDiscount
	}
	return c.TotalCartPrice
}
