package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/yashrajoria/storefront/middleware"
)

type UserListsAPI interface {
	AddToWishlist(ctx context.Context, userID, productID string) (bson.A, error)
	RemoveFromWishlist(ctx context.Context, userID, productID string) (bson.A, error)
	Wishlist(ctx context.Context, userID string) (bson.A, error)
	AddAddress(ctx context.Context, userID string, address map[string]any) (bson.A, error)
	RemoveAddress(ctx context.Context, userID, addressID string) (bson.A, error)
	Addresses(ctx context.Context, userID string) (bson.A, error)
}

// UserListsController serves the wishlist and address book of the logged user.
type UserListsController struct {
	service UserListsAPI
}

func NewUserListsController(s UserListsAPI) *UserListsController {
	return &UserListsController{service: s}
}

func listResponse(c *gin.Context, list bson.A, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": len(list), "data": list})
}

func (ctrl *UserListsController) AddToWishlist(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	list, err := ctrl.service.AddToWishlist(c.Request.Context(), middleware.GetUserID(c), stringField(body, "productId"))
	listResponse(c, list, err)
}

func (ctrl *UserListsController) RemoveFromWishlist(c *gin.Context) {
	list, err := ctrl.service.RemoveFromWishlist(c.Request.Context(), middleware.GetUserID(c), c.Param("productId"))
	listResponse(c, list, err)
}

func (ctrl *UserListsController) Wishlist(c *gin.Context) {
	list, err := ctrl.service.Wishlist(c.Request.Context(), middleware.GetUserID(c))
	listResponse(c, list, err)
}

func (ctrl *UserListsController) AddAddress(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	list, err := ctrl.service.AddAddress(c.Request.Context(), middleware.GetUserID(c), body.Map())
	listResponse(c, list, err)
}

func (ctrl *UserListsController) RemoveAddress(c *gin.Context) {
	list, err := ctrl.service.RemoveAddress(c.Request.Context(), middleware.GetUserID(c), c.Param("addressId"))
	listResponse(c, list, err)
}

func (ctrl *UserListsController) Addresses(c *gin.Context) {
	list, err := ctrl.service.Addresses(c.Request.Context(), middleware.GetUserID(c))
	listResponse(c, list, err)
}
