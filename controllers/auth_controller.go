package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/middleware"
	"github.com/yashrajoria/storefront/services"
	"github.com/yashrajoria/storefront/utils"
)

type AuthServiceAPI interface {
	Signup(ctx context.Context, body *utils.Body) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	ChangePassword(ctx context.Context, user bson.M, current, password string) (*services.Session, error)
	UpdateProfile(ctx context.Context, user bson.M, body *utils.Body) (bson.M, error)
	Deactivate(ctx context.Context, user bson.M) error
}

// Presenter renders a stored user for responses.
type Presenter interface {
	Present(docs ...bson.M) []bson.M
}

type AuthController struct {
	service AuthServiceAPI
	users   Presenter
}

func NewAuthController(s AuthServiceAPI, users Presenter) *AuthController {
	return &AuthController{service: s, users: users}
}

func session(c *gin.Context, code int, s *services.Session) {
	c.JSON(code, gin.H{"status": "success", "token": s.Token, "data": s.User})
}

func stringField(body *utils.Body, key string) string {
	v, _ := body.Get(key)
	s, _ := v.(string)
	return s
}

func (ctrl *AuthController) Signup(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s, err := ctrl.service.Signup(c.Request.Context(), body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	session(c, http.StatusCreated, s)
}

func (ctrl *AuthController) Login(c *gin.Context) {
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s, err := ctrl.service.Login(c.Request.Context(), stringField(body, "email"), stringField(body, "password"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	session(c, http.StatusOK, s)
}

func (ctrl *AuthController) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}
	success(c, http.StatusOK, ctrl.users.Present(user)[0])
}

func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	doc, err := ctrl.service.UpdateProfile(c.Request.Context(), user, body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, doc)
}

func (ctrl *AuthController) ChangePassword(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	body, err := middleware.Body(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	password := stringField(body, "password")
	if password != stringField(body, "confirmPassword") {
		_ = c.Error(apperrors.BadRequest("Password confirmation is incorrect"))
		return
	}
	s, err := ctrl.service.ChangePassword(c.Request.Context(), user, stringField(body, "currentPassword"), password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	session(c, http.StatusOK, s)
}

func (ctrl *AuthController) DeleteMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	if err := ctrl.service.Deactivate(c.Request.Context(), user); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
