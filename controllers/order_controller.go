package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/yashrajoria/storefront/middleware"
)

type OrderServiceAPI interface {
	CreateCashOrder(ctx context.Context, userID, cartID, idemKey string, shippingAddress map[string]any) (bson.M, error)
	MarkPaid(ctx context.Context, id string) (bson.M, error)
	MarkDelivered(ctx context.Context, id string) (bson.M, error)
}

type OrderController struct {
	service OrderServiceAPI
}

func NewOrderController(s OrderServiceAPI) *OrderController {
	return &OrderController{service: s}
}

// CreateCashOrder checks out the cart named by the id param.
func (ctrl *OrderController) CreateCashOrder(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var address map[string]any
	if v, ok := body.Get("shippingAddress"); ok {
		address, _ = v.(map[string]any)
	}
	order, err := ctrl.service.CreateCashOrder(c.Request.Context(), middleware.GetUserID(c),
		c.Param("id"), c.GetHeader("Idempotency-Key"), address)
	if err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusCreated, order)
}

func (ctrl *OrderController) MarkPaid(c *gin.Context) {
	order, err := ctrl.service.MarkPaid(c.Request.Context(), idParam(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, order)
}

func (ctrl *OrderController) MarkDelivered(c *gin.Context) {
	order, err := ctrl.service.MarkDelivered(c.Request.Context(), idParam(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, order)
}
