package models

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yashrajoria/storefront/repository"
)

var CategoryFields = []string{"name", "slug", "description", "image"}

var SubCategoryFields = []string{"name", "parentCategory"}

var BrandFields = []string{"name", "description", "image"}

func uniqueName() []mongo.IndexModel {
	return []mongo.IndexModel{{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}}
}

func categorySchema(opts Options) *repository.Schema {
	return &repository.Schema{
		Collection:  "categories",
		Label:       TagCategory.String(),
		Required:    []string{"name"},
		SlugFrom:    "name",
		ImageFields: []string{"image"},
		MediaURL:    opts.mediaURL("categories"),
		Indexes:     uniqueName(),
	}
}

func subCategorySchema() *repository.Schema {
	return &repository.Schema{
		Collection: "subcategories",
		Label:      TagSubCategory.String(),
		References: map[string]string{"parentCategory": "categories"},
		Required:   []string{"name", "parentCategory"},
		SlugFrom:   "name",
		Indexes:    uniqueName(),
	}
}

func brandSchema(opts Options) *repository.Schema {
	return &repository.Schema{
		Collection:  "brands",
		Label:       TagBrand.String(),
		Required:    []string{"name"},
		SlugFrom:    "name",
		ImageFields: []string{"image"},
		MediaURL:    opts.mediaURL("brands"),
		Indexes:     uniqueName(),
	}
}

// SubCategoryParent expands a subcategory's parent to its name.
var SubCategoryParent = []repository.Population{
	{Path: "parentCategory", From: "categories", Select: []string{"name"}},
}
