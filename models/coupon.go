package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/gorm"

	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/repository"
)

var CouponFields = []string{"name", "expire", "discount"}

// Coupon is the relational row behind the coupon resource.
type Coupon struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string         `gorm:"uniqueIndex;not null"`
	Expire    time.Time      `gorm:"not null"`
	Discount  float64        `gorm:"not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Coupon) TableName() string { return "coupons" }

// Active reports whether the coupon can still be applied at t.
func (c *Coupon) Active(t time.Time) bool {
	return c.Expire.After(t)
}

// CouponMapping maps coupon documents to rows.
var CouponMapping = repository.TableMapping[Coupon]{
	Label: TagCoupon.String(),
	Columns: map[string]string{
		"_id":       "id",
		"name":      "name",
		"expire":    "expire",
		"discount":  "discount",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	DateFields: []string{"expire", "createdAt", "updatedAt"},
	Required:   []string{"name", "expire", "discount"},
	ToDoc: func(c *Coupon) bson.M {
		return bson.M{
			"_id":       c.ID,
			"name":      c.Name,
			"expire":    c.Expire,
			"discount":  c.Discount,
			"createdAt": c.CreatedAt,
			"updatedAt": c.UpdatedAt,
		}
	},
	FromDoc: couponFromDoc,
}

func couponFromDoc(doc bson.M, c *Coupon) error {
	for k, v := range doc {
		switch k {
		case "name":
			s, ok := v.(string)
			if !ok {
				return apperrors.BadRequest("Coupon name must be a string")
			}
			c.Name = strings.ToUpper(strings.TrimSpace(s))
		case "expire":
			t, ok := repository.CastDate(v)
			if !ok {
				return apperrors.BadRequest("Invalid expire date: %v", v)
			}
			c.Expire = t
		case "discount":
			d, ok := toFloat(v)
			if !ok {
				return apperrors.BadRequest("Coupon discount must be a number")
			}
			c.Discount = d
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
