package repository

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/yashrajoria/storefront/apifeatures"
	apperrors "github.com/yashrajoria/storefront/common/errors"
)

func categorySchema() *Schema {
	return &Schema{
		Collection:  "categories",
		Label:       "Category",
		Required:    []string{"name"},
		SlugFrom:    "name",
		ImageFields: []string{"image"},
		MediaURL:    "http://localhost:8000/categories",
	}
}

func productSchema() *Schema {
	return &Schema{
		Collection: "products",
		Label:      "Product",
		References: map[string]string{"category": "categories", "subcategory": "subcategories"},
		DateFields: []string{"expire"},
	}
}

func TestMongoStoreFindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.categories", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "Shoes"}}))

		doc, err := store.FindByID(context.Background(), oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "Shoes", doc["name"])
	})

	mt.Run("missing", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.categories", mtest.FirstBatch))

		_, err := store.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())

		_, err := store.FindByID(context.Background(), "not-an-id")
		var appErr *apperrors.Error
		require.True(mt, errors.As(err, &appErr))
		assert.Equal(mt, http.StatusBadRequest, appErr.Code)
	})
}

func TestMongoStoreCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("derives slug and timestamps", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return fixed }
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		doc, err := store.Create(context.Background(), bson.M{"name": "Running Shoes", "description": "nice"})
		require.NoError(mt, err)
		assert.Equal(mt, "running-shoes", doc["slug"])
		assert.Equal(mt, "nice", doc["description"])
		assert.Equal(mt, fixed, doc["createdAt"])
		assert.Equal(mt, 0, doc["__v"])
		assert.IsType(mt, primitive.ObjectID{}, doc["_id"])
	})

	mt.Run("required field", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())

		_, err := store.Create(context.Background(), bson.M{"description": "no name"})
		var appErr *apperrors.Error
		require.True(mt, errors.As(err, &appErr))
		assert.Equal(mt, http.StatusBadRequest, appErr.Code)
		assert.Contains(mt, appErr.Message, "name")
	})

	mt.Run("duplicate key is a bad request", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		_, err := store.Create(context.Background(), bson.M{"name": "Shoes"})
		var appErr *apperrors.Error
		require.True(mt, errors.As(err, &appErr))
		assert.Equal(mt, http.StatusBadRequest, appErr.Code)
	})

	mt.Run("after save hook sees the record", func(mt *mtest.T) {
		schema := categorySchema()
		var seen bson.M
		schema.AfterSave = func(_ context.Context, doc bson.M) error {
			seen = doc
			return nil
		}
		store := NewMongoStore(mt.DB, schema)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		doc, err := store.Create(context.Background(), bson.M{"name": "Shoes"})
		require.NoError(mt, err)
		assert.Equal(mt, doc["_id"], seen["_id"])
	})
}

func TestMongoStoreFindAndCount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.categories", mtest.FirstBatch,
			bson.D{{Key: "name", Value: "a"}},
			bson.D{{Key: "name", Value: "b"}},
		))

		q := apifeatures.New(map[string]any{"limit": "2"}).Filter().Sort().LimitFields().Paginate(2).Build()
		docs, err := store.Find(context.Background(), q)
		require.NoError(mt, err)
		require.Len(mt, docs, 2)
		assert.Equal(mt, "b", docs[1]["name"])
	})

	mt.Run("count", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.categories", mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(12)}}))

		n, err := store.Count(context.Background(), bson.M{})
		require.NoError(mt, err)
		assert.EqualValues(mt, 12, n)
	})

	mt.Run("bad value is a bad request", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Name: "BadValue", Message: "unknown top level operator: $gte",
		}))

		_, err := store.Find(context.Background(), apifeatures.Query{Filter: bson.M{"$gte": 1}})
		var appErr *apperrors.Error
		require.True(mt, errors.As(err, &appErr))
		assert.Equal(mt, http.StatusBadRequest, appErr.Code)
	})
}

func TestMongoStoreUpdateSaveDelete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	oid := primitive.NewObjectID()

	mt.Run("update returns the new record", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid}, {Key: "name", Value: "Boots"},
		}}))

		doc, err := store.FindByIDAndUpdate(context.Background(), oid.Hex(), bson.M{"name": "Boots"})
		require.NoError(mt, err)
		assert.Equal(mt, "Boots", doc["name"])
	})

	mt.Run("update on missing record", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := store.FindByIDAndUpdate(context.Background(), oid.Hex(), bson.M{"name": "Boots"})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update sets only the changes", func(mt *mtest.T) {
		schema := categorySchema()
		calls := 0
		schema.AfterSave = func(context.Context, bson.M) error { calls++; return nil }
		store := NewMongoStore(mt.DB, schema)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid}, {Key: "name", Value: "Boots"}, {Key: "description", Value: "kept"},
		}}))

		_, err := store.FindByIDAndUpdate(context.Background(), oid.Hex(), bson.M{"name": "Boots"})
		require.NoError(mt, err)
		assert.Zero(mt, calls)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
		set := started.Command.Lookup("update", "$set").Document()
		_, err = set.LookupErr("description")
		assert.Error(mt, err)
		assert.Equal(mt, "Boots", set.Lookup("name").StringValue())
	})

	mt.Run("save fires hook without writing", func(mt *mtest.T) {
		schema := categorySchema()
		var hooked bson.M
		schema.AfterSave = func(_ context.Context, doc bson.M) error { hooked = doc; return nil }
		store := NewMongoStore(mt.DB, schema)

		doc, err := store.Save(context.Background(), bson.M{"_id": oid, "name": "Boots", "description": "kept"})
		require.NoError(mt, err)
		assert.Equal(mt, "kept", doc["description"])
		assert.Equal(mt, "Boots", hooked["name"])
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("save without id", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, categorySchema())
		_, err := store.Save(context.Background(), bson.M{"name": "Boots"})
		assert.Error(mt, err)
	})

	mt.Run("delete missing runs no hook", func(mt *mtest.T) {
		schema := categorySchema()
		calls := 0
		schema.AfterDelete = func(context.Context, bson.M) error { calls++; return nil }
		store := NewMongoStore(mt.DB, schema)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := store.Delete(context.Background(), bson.M{"_id": oid})
		assert.ErrorIs(mt, err, ErrNotFound)
		assert.Zero(mt, calls)
	})

	mt.Run("delete fires hook", func(mt *mtest.T) {
		schema := categorySchema()
		calls := 0
		schema.AfterDelete = func(context.Context, bson.M) error { calls++; return nil }
		store := NewMongoStore(mt.DB, schema)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, store.Delete(context.Background(), bson.M{"_id": oid}))
		assert.Equal(mt, 1, calls)
	})
}

func TestMongoStorePopulate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("forward references", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, productSchema())
		cat := primitive.NewObjectID()
		missing := primitive.NewObjectID()
		docs := []bson.M{
			{"_id": primitive.NewObjectID(), "category": cat},
			{"_id": primitive.NewObjectID(), "category": missing},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.categories", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: cat}, {Key: "name", Value: "Shoes"}}))

		err := store.Populate(context.Background(), docs, []Population{{Path: "category", From: "categories", Select: []string{"name"}}})
		require.NoError(mt, err)
		assert.Equal(mt, bson.M{"_id": cat, "name": "Shoes"}, docs[0]["category"])
		assert.Nil(mt, docs[1]["category"])
	})

	mt.Run("virtual back references", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, productSchema())
		p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()
		docs := []bson.M{{"_id": p1}, {"_id": p2}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.reviews", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "product", Value: p1}, {Key: "rating", Value: 4}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "product", Value: p1}, {Key: "rating", Value: 5}},
		))

		err := store.Populate(context.Background(), docs, []Population{{Path: "reviews", From: "reviews", ForeignField: "product"}})
		require.NoError(mt, err)
		assert.Len(mt, docs[0]["reviews"], 2)
		assert.Equal(mt, bson.A{}, docs[1]["reviews"])
	})

	mt.Run("nothing to resolve issues no query", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, productSchema())
		docs := []bson.M{{"name": "no refs"}}

		require.NoError(mt, store.Populate(context.Background(), docs, []Population{{Path: "category", From: "categories"}}))
		assert.NotContains(mt, docs[0], "category")
	})
}

func TestCastFilter(t *testing.T) {
	s := productSchema()
	cat := primitive.NewObjectID()

	got, err := s.castFilter(bson.M{
		"$and": bson.A{
			bson.M{"category": cat.Hex()},
			bson.M{"subcategory": bson.M{"$in": []any{cat.Hex()}}},
		},
		"expire": bson.M{"$gte": "2024-01-02"},
		"price":  int64(5),
	})
	require.NoError(t, err)

	and := got["$and"].(bson.A)
	assert.Equal(t, bson.M{"category": cat}, and[0])
	assert.Equal(t, bson.M{"subcategory": bson.M{"$in": bson.A{cat}}}, and[1])
	assert.Equal(t, bson.M{"$gte": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, got["expire"])
	assert.Equal(t, int64(5), got["price"])

	_, err = s.castFilter(bson.M{"category": "nope"})
	assert.Error(t, err)
}

func TestPresent(t *testing.T) {
	s := categorySchema()
	s.Hidden = []string{"password"}
	s.ImageFields = []string{"image", "images"}
	doc := bson.M{"image": "a.jpeg", "images": bson.A{"b.jpeg", "https://cdn/c.jpeg"}, "password": "hash"}

	out := s.present(doc)

	assert.Equal(t, "http://localhost:8000/categories/a.jpeg", out["image"])
	assert.Equal(t, bson.A{"http://localhost:8000/categories/b.jpeg", "https://cdn/c.jpeg"}, out["images"])
	assert.NotContains(t, out, "password")
	assert.Equal(t, "a.jpeg", doc["image"], "stored record is untouched")
	assert.Equal(t, "hash", doc["password"])
}
