package models

import (
	"context"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yashrajoria/storefront/repository"
)

var ReviewFields = []string{"title", "rating", "user", "product"}

// ReviewAuthor expands the reviewer's name.
var ReviewAuthor = []repository.Population{
	{Path: "user", From: "users", Select: []string{"name"}},
}

func reviewSchema(db *mongo.Database) *repository.Schema {
	reviews := db.Collection("reviews")
	products := db.Collection("products")
	recompute := func(ctx context.Context, doc bson.M) error {
		productID, ok := doc["product"].(primitive.ObjectID)
		if !ok {
			return nil
		}
		return syncRatings(ctx, reviews, products, productID)
	}
	return &repository.Schema{
		Collection: "reviews",
		Label:      TagReview.String(),
		References: map[string]string{"user": "users", "product": "products"},
		Required:   []string{"rating", "user", "product"},
		Indexes: []mongo.IndexModel{{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "product", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		AfterSave:   recompute,
		AfterDelete: recompute,
	}
}

// syncRatings recomputes a product's averageRating and ratingsQuantity from
// its remaining reviews.
func syncRatings(ctx context.Context, reviews, products *mongo.Collection, productID primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product": productID}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$product",
			"avgRatings":      bson.M{"$avg": "$rating"},
			"ratingsQuantity": bson.M{"$sum": 1},
		}}},
	}
	cur, err := reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate ratings: %w", err)
	}
	var stats []struct {
		Avg      float64 `bson:"avgRatings"`
		Quantity int64   `bson:"ratingsQuantity"`
	}
	if err := cur.All(ctx, &stats); err != nil {
		return fmt.Errorf("decode ratings: %w", err)
	}

	set := bson.M{"averageRating": 0.0, "ratingsQuantity": int64(0)}
	if len(stats) > 0 {
		set["averageRating"] = round2(stats[0].Avg)
		set["ratingsQuantity"] = stats[0].Quantity
	}
	if _, err := products.UpdateByID(ctx, productID, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("update product ratings: %w", err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
