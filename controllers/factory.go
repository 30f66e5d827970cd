package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/yashrajoria/storefront/apifeatures"
	"github.com/yashrajoria/storefront/middleware"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/repository"
	"github.com/yashrajoria/storefront/services"
	"github.com/yashrajoria/storefront/utils"
)

// ResourceAPI is the generic record service the factory handlers call.
type ResourceAPI interface {
	Create(ctx context.Context, rt models.RecordType, body *utils.Body, pops []repository.Population) (bson.M, error)
	List(ctx context.Context, rt models.RecordType, pre bson.M, params map[string]any, pops []repository.Population) (*services.ListResult, error)
	Get(ctx context.Context, rt models.RecordType, id string, pops []repository.Population) (bson.M, error)
	Update(ctx context.Context, rt models.RecordType, id string, body *utils.Body) (bson.M, error)
	Delete(ctx context.Context, rt models.RecordType, id string) error
	ResetPassword(ctx context.Context, rt models.RecordType, id, password string) (bson.M, error)
}

// Factory builds gin handlers for any record type.
type Factory struct {
	service ResourceAPI
}

func NewFactory(s ResourceAPI) *Factory {
	return &Factory{service: s}
}

func idParam(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.Param("orderId")
}

func success(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

func (f *Factory) CreateOne(rt models.RecordType, pops ...repository.Population) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := middleware.Body(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		doc, err := f.service.Create(c.Request.Context(), rt, body, pops)
		if err != nil {
			_ = c.Error(err)
			return
		}
		success(c, http.StatusCreated, doc)
	}
}

func (f *Factory) GetAll(rt models.RecordType, pops ...repository.Population) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := apifeatures.ParseQuery(c.Request.URL.Query())
		res, err := f.service.List(c.Request.Context(), rt, middleware.PreFilter(c), params, pops)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"pagination": res.Pagination,
			"data":       res.Docs,
		})
	}
}

func (f *Factory) GetOne(rt models.RecordType, pops ...repository.Population) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := f.service.Get(c.Request.Context(), rt, idParam(c), pops)
		if err != nil {
			_ = c.Error(err)
			return
		}
		success(c, http.StatusOK, doc)
	}
}

func (f *Factory) UpdateOne(rt models.RecordType) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := middleware.Body(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		doc, err := f.service.Update(c.Request.Context(), rt, idParam(c), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		success(c, http.StatusOK, doc)
	}
}

func (f *Factory) DeleteOne(rt models.RecordType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := f.service.Delete(c.Request.Context(), rt, idParam(c)); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (f *Factory) ResetPassword(rt models.RecordType) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := middleware.Body(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		password, _ := body.Get("password")
		plain, _ := password.(string)
		doc, err := f.service.ResetPassword(c.Request.Context(), rt, idParam(c), plain)
		if err != nil {
			_ = c.Error(err)
			return
		}
		success(c, http.StatusOK, doc)
	}
}
