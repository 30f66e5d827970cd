package models

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/yashrajoria/storefront/repository"
)

// Options configure presentation of stored records.
type Options struct {
	// BaseURL prefixes image file names, e.g. http://localhost:8000.
	BaseURL string
}

func (o Options) mediaURL(folder string) string {
	if o.BaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(o.BaseURL, "/") + "/" + folder
}

// Catalog holds every record type and the raw stores the non-generic
// handlers need.
type Catalog struct {
	Categories    RecordType
	SubCategories RecordType
	Brands        RecordType
	Products      RecordType
	Reviews       RecordType
	Coupons       RecordType
	Users         RecordType
	Orders        RecordType

	ProductStore *repository.MongoStore
	UserStore    *repository.MongoStore
	OrderStore   *repository.MongoStore

	mongoStores []*repository.MongoStore
}

func NewCatalog(db *mongo.Database, pg *gorm.DB, opts Options) *Catalog {
	categories := repository.NewMongoStore(db, categorySchema(opts))
	subCategories := repository.NewMongoStore(db, subCategorySchema())
	brands := repository.NewMongoStore(db, brandSchema(opts))
	products := repository.NewMongoStore(db, productSchema(db, opts))
	reviews := repository.NewMongoStore(db, reviewSchema(db))
	users := repository.NewMongoStore(db, userSchema(opts))
	orders := repository.NewMongoStore(db, orderSchema())
	coupons := repository.NewPostgresStore(pg, CouponMapping)

	return &Catalog{
		Categories:    NewRecordType(TagCategory, CategoryFields, categories),
		SubCategories: NewRecordType(TagSubCategory, SubCategoryFields, subCategories),
		Brands:        NewRecordType(TagBrand, BrandFields, brands),
		Products:      NewRecordType(TagProduct, ProductFields, products),
		Reviews:       NewRecordType(TagReview, ReviewFields, reviews),
		Coupons:       NewRecordType(TagCoupon, CouponFields, coupons),
		Users:         NewRecordType(TagUser, UserFields, users),
		Orders:        NewRecordType(TagOrder, OrderFields, orders),

		ProductStore: products,
		UserStore:    users,
		OrderStore:   orders,

		mongoStores: []*repository.MongoStore{categories, subCategories, brands, products, reviews, users, orders},
	}
}

// EnsureIndexes creates the declared indexes of every document collection.
func (c *Catalog) EnsureIndexes(ctx context.Context) error {
	for _, s := range c.mongoStores {
		if err := s.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}
