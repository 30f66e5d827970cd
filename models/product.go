package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yashrajoria/storefront/repository"
)

var ProductFields = []string{
	"seq", "name", "slug", "description", "price", "priceAfterDiscount",
	"sold", "colors", "quantity", "category", "averageRating",
	"ratingsQuantity", "subcategory", "brand", "imageCover", "images",
}

// ProductDetails expands references and attaches reviews for a single product.
var ProductDetails = []repository.Population{
	{Path: "category", From: "categories", Select: []string{"name"}},
	{Path: "subcategory", From: "subcategories", Select: []string{"name"}},
	{Path: "brand", From: "brands", Select: []string{"name"}},
	{Path: "reviews", From: "reviews", ForeignField: "product", Select: []string{"title", "rating", "user"}},
}

// ProductList expands only the category on list responses.
var ProductList = []repository.Population{
	{Path: "category", From: "categories", Select: []string{"name"}},
}

func productSchema(db *mongo.Database, opts Options) *repository.Schema {
	counters := db.Collection("counters")
	return &repository.Schema{
		Collection: "products",
		Label:      TagProduct.String(),
		References: map[string]string{
			"category":    "categories",
			"subcategory": "subcategories",
			"brand":       "brands",
		},
		Required:    []string{"name", "description", "price", "quantity", "category", "imageCover"},
		Defaults:    bson.M{"sold": 0, "averageRating": 0, "ratingsQuantity": 0},
		SlugFrom:    "name",
		ImageFields: []string{"imageCover", "images"},
		MediaURL:    opts.mediaURL("products"),
		Indexes: []mongo.IndexModel{
			{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		BeforeCreate: func(ctx context.Context, doc bson.M) error {
			seq, err := nextSequence(ctx, counters, "products")
			if err != nil {
				return err
			}
			doc["seq"] = seq
			return nil
		},
	}
}

// nextSequence atomically increments and returns the named counter.
func nextSequence(ctx context.Context, counters *mongo.Collection, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out struct {
		Seq int64 `bson:"seq"`
	}
	err := counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&out)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return out.Seq, nil
}
