package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/storefront/middleware"
	"github.com/yashrajoria/storefront/models"
)

type CartServiceAPI interface {
	AddProduct(ctx context.Context, userID, productID, color string) (*models.Cart, error)
	Get(ctx context.Context, userID string) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
	ApplyCoupon(ctx context.Context, userID, name string) (*models.Cart, error)
}

type CartController struct {
	service CartServiceAPI
}

func NewCartController(s CartServiceAPI) *CartController {
	return &CartController{service: s}
}

func cartResponse(c *gin.Context, code int, cart *models.Cart) {
	c.JSON(code, gin.H{
		"status":         "success",
		"numOfCartItems": len(cart.CartItems),
		"data":           cart,
	})
}

func (ctrl *CartController) AddProduct(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	cart, err := ctrl.service.AddProduct(c.Request.Context(), middleware.GetUserID(c),
		stringField(body, "productId"), stringField(body, "color"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	cartResponse(c, http.StatusOK, cart)
}

func (ctrl *CartController) GetCart(c *gin.Context) {
	cart, err := ctrl.service.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	cartResponse(c, http.StatusOK, cart)
}

func (ctrl *CartController) UpdateQuantity(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	qty, _ := body.Get("quantity")
	n, _ := qty.(float64)
	cart, err := ctrl.service.UpdateQuantity(c.Request.Context(), middleware.GetUserID(c), c.Param("itemId"), int(n))
	if err != nil {
		_ = c.Error(err)
		return
	}
	cartResponse(c, http.StatusOK, cart)
}

func (ctrl *CartController) RemoveItem(c *gin.Context) {
	cart, err := ctrl.service.RemoveItem(c.Request.Context(), middleware.GetUserID(c), c.Param("itemId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	cartResponse(c, http.StatusOK, cart)
}

func (ctrl *CartController) Clear(c *gin.Context) {
	if err := ctrl.service.Clear(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctrl *CartController) ApplyCoupon(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	cart, err := ctrl.service.ApplyCoupon(c.Request.Context(), middleware.GetUserID(c), stringField(body, "coupon"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	cartResponse(c, http.StatusOK, cart)
}
