package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/yashrajoria/storefront/common/auth"
	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/repository"
)

const (
	UserContextKey = "user"
	preFilterKey   = "filterObj"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (bson.M, error)
}

// Authenticated requires a valid bearer token and stores the user on the
// context.
func Authenticated(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(apperrors.Unauthorized("You are not logged in, please login to access this route"))
			c.Abort()
			return
		}
		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(UserContextKey, user)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (bson.M, bool) {
	v, ok := c.Get(UserContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(bson.M)
	return user, ok
}

func GetUserID(c *gin.Context) string {
	user, ok := CurrentUser(c)
	if !ok {
		return ""
	}
	return repository.ObjectIDHex(user["_id"])
}

func GetRole(c *gin.Context) string {
	user, _ := CurrentUser(c)
	role, _ := user["role"].(string)
	return role
}

// AllowedTo must follow Authenticated.
func AllowedTo(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		_ = c.Error(apperrors.Forbidden("You are not allowed to access this route"))
		c.Abort()
	}
}

// PreFilter is the scoping filter list handlers AND with the query.
func PreFilter(c *gin.Context) bson.M {
	if v, ok := c.Get(preFilterKey); ok {
		return v.(bson.M)
	}
	return nil
}

func addPreFilter(c *gin.Context, field string, value any) {
	filter := PreFilter(c)
	if filter == nil {
		filter = bson.M{}
	}
	filter[field] = value
	c.Set(preFilterKey, filter)
}

// ScopeToUser limits lists to the caller's own records when the caller has
// role, typically "user".
func ScopeToUser(field, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) == role {
			addPreFilter(c, field, GetUserID(c))
		}
		c.Next()
	}
}

// NestedFilter scopes a list to the parent named by a route param, as in
// /categories/:categoryId/subcategories.
func NestedFilter(param, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param(param); id != "" {
			addPreFilter(c, field, id)
		}
		c.Next()
	}
}

// SetParamToBody fills field from a nested route param unless the body
// already carries it.
func SetParamToBody(param, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := Body(c)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if _, has := body.Get(field); !has {
			if id := c.Param(param); id != "" {
				body.Set(field, id)
			}
		}
		c.Next()
	}
}

// SetUserToBody fills field with the caller's id unless already present.
func SetUserToBody(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := Body(c)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if _, has := body.Get(field); !has {
			body.Set(field, GetUserID(c))
		}
		c.Next()
	}
}

// OwnedBy lets the request through when the record named by the id param
// belongs to the caller, or when the caller has one of the bypass roles.
func OwnedBy(store repository.Store, param, field string, bypass ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range bypass {
			if r == role {
				c.Next()
				return
			}
		}
		doc, err := store.FindByID(c.Request.Context(), c.Param(param))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				err = apperrors.NotFound("No document found with ID: %s", c.Param(param))
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		if owner := doc[field]; owner == nil || repository.ObjectIDHex(owner) != GetUserID(c) {
			_ = c.Error(apperrors.Forbidden("You are not allowed to perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}
