package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/services"
)

func newFactoryRouter(mt *mtest.T) (*gin.Engine, *models.Catalog) {
	gin.SetMode(gin.TestMode)
	catalog := models.NewCatalog(mt.DB, nil, models.Options{BaseURL: "http://localhost:8000"})
	factory := NewFactory(services.NewResourceService(catalog.Categories))

	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(false))
	r.POST("/categories", factory.CreateOne(catalog.Categories))
	r.GET("/products", factory.GetAll(catalog.Products))
	r.GET("/brands/:id", factory.GetOne(catalog.Brands))
	r.GET("/brands/getOne/:orderId", factory.GetOne(catalog.Brands))
	r.DELETE("/brands/:id", factory.DeleteOne(catalog.Brands))
	r.PUT("/users/:id", factory.UpdateOne(catalog.Users))
	return r, catalog
}

func serve(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	return serveWithHeader(r, method, path, body, "", "")
}

func serveWithHeader(r http.Handler, method, path, body, header, value string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestFactoryCreateOne(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stores allowed fields and derives the slug", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		w, out := serve(r, http.MethodPost, "/categories", `{"name":"Shoes","description":"nice"}`)

		require.Equal(mt, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(mt, "success", out["status"])
		data := out["data"].(map[string]any)
		assert.Equal(mt, "Shoes", data["name"])
		assert.Equal(mt, "nice", data["description"])
		assert.Equal(mt, "shoes", data["slug"])
	})

	mt.Run("unknown field is rejected before storage", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)

		w, out := serve(r, http.MethodPost, "/categories", `{"name":"x","hacked":true}`)

		assert.Equal(mt, http.StatusBadRequest, w.Code)
		assert.Equal(mt, "fail", out["status"])
		assert.Equal(mt, "Unknown own fields: hacked", out["message"])
		assert.Empty(mt, mt.GetAllStartedEvents())
	})
}

func TestFactoryGetAllPaginates(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("keyword page and limit", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		docs := make([]bson.D, 0, 5)
		for i := 0; i < 5; i++ {
			docs = append(docs, bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "shoe"}})
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.products", mtest.FirstBatch, bson.D{{Key: "n", Value: 12}}),
			mtest.CreateCursorResponse(0, "test.products", mtest.FirstBatch, docs...),
		)

		w, out := serve(r, http.MethodGet, "/products?keyword=shoe&page=2&limit=5", "")

		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(mt, map[string]any{
			"totalPages":           3.0,
			"currentPage":          2.0,
			"totalResults":         12.0,
			"resultsOnCurrentPage": 5.0,
			"limit":                5.0,
			"nextPage":             3.0,
			"prevPage":             1.0,
		}, out["pagination"])
		assert.Len(mt, out["data"], 5)
	})

	mt.Run("empty result", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.products", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, "test.products", mtest.FirstBatch),
		)

		w, out := serve(r, http.MethodGet, "/products", "")

		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())
		pagination := out["pagination"].(map[string]any)
		assert.Equal(mt, 0.0, pagination["totalPages"])
		assert.Equal(mt, 0.0, pagination["resultsOnCurrentPage"])
		assert.NotContains(mt, pagination, "nextPage")
		assert.Empty(mt, out["data"])
	})
}

func TestFactoryGetOne(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("presents image urls", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.brands", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "Acme"}, {Key: "image", Value: "brand-1.png"}}))

		w, out := serve(r, http.MethodGet, "/brands/"+oid.Hex(), "")

		require.Equal(mt, http.StatusOK, w.Code)
		data := out["data"].(map[string]any)
		assert.Equal(mt, oid.Hex(), data["_id"])
		assert.Equal(mt, "http://localhost:8000/brands/brand-1.png", data["image"])
	})

	mt.Run("orderId path parameter", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.brands", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "Acme"}}))

		w, out := serve(r, http.MethodGet, "/brands/getOne/"+oid.Hex(), "")

		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(mt, oid.Hex(), out["data"].(map[string]any)["_id"])

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		filter := started.Command.Lookup("filter").Document()
		assert.Equal(mt, oid, filter.Lookup("_id").ObjectID())
	})

	mt.Run("missing", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.brands", mtest.FirstBatch))

		w, _ := serve(r, http.MethodGet, "/brands/"+primitive.NewObjectID().Hex(), "")
		assert.Equal(mt, http.StatusNotFound, w.Code)
	})
}

func TestFactoryUpdateUserIgnoresPassword(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("password is not applied", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: oid},
				{Key: "name", Value: "Ann Lee"},
				{Key: "phone", Value: "+15550000"},
				{Key: "password", Value: "stored-hash"},
			}}),
		)

		w, out := serve(r, http.MethodPut, "/users/"+oid.Hex(), `{"name":"Ann Lee","password":"new-secret","phone":"+15550000"}`)

		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())
		data := out["data"].(map[string]any)
		assert.Equal(mt, "Ann Lee", data["name"])
		assert.NotContains(mt, data, "password")

		update := mt.GetStartedEvent()
		require.NotNil(mt, update)
		assert.Equal(mt, "findAndModify", update.CommandName)
		set := update.Command.Lookup("update", "$set").Document()
		_, err := set.LookupErr("password")
		assert.Error(mt, err)
		assert.Equal(mt, "ann-lee", set.Lookup("slug").StringValue())
		assert.Equal(mt, "+15550000", set.Lookup("phone").StringValue())

		// the save step writes nothing back
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestFactoryDeleteOne(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing record is not deleted", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.brands", mtest.FirstBatch))

		w, out := serve(r, http.MethodDelete, "/brands/"+primitive.NewObjectID().Hex(), "")

		assert.Equal(mt, http.StatusNotFound, w.Code)
		assert.Equal(mt, "fail", out["status"])
		for _, evt := range mt.GetAllStartedEvents() {
			assert.NotEqual(mt, "delete", evt.CommandName)
		}
	})

	mt.Run("existing record", func(mt *mtest.T) {
		r, _ := newFactoryRouter(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.brands", mtest.FirstBatch, bson.D{{Key: "_id", Value: oid}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		w, _ := serve(r, http.MethodDelete, "/brands/"+oid.Hex(), "")

		assert.Equal(mt, http.StatusNoContent, w.Code)
		assert.Zero(mt, w.Body.Len())
	})
}
