// Package models declares the record types served by the resource factory:
// their writable fields, storage schemas and hooks.
package models

import (
	"github.com/yashrajoria/storefront/repository"
)

// TypeTag identifies a record type. It only selects the few behaviours that
// are specific to one type, such as user role defaulting.
type TypeTag int

const (
	TagCategory TypeTag = iota
	TagSubCategory
	TagBrand
	TagProduct
	TagReview
	TagCoupon
	TagUser
	TagOrder
)

func (t TypeTag) String() string {
	switch t {
	case TagCategory:
		return "Category"
	case TagSubCategory:
		return "SubCategory"
	case TagBrand:
		return "Brand"
	case TagProduct:
		return "Product"
	case TagReview:
		return "Review"
	case TagCoupon:
		return "Coupon"
	case TagUser:
		return "User"
	case TagOrder:
		return "Order"
	}
	return "Unknown"
}

// RecordType is what the resource factory needs to know about an entity.
type RecordType interface {
	Name() string
	Tag() TypeTag
	AllowedFields() []string
	Store() repository.Store
}

type recordType struct {
	tag     TypeTag
	allowed []string
	store   repository.Store
}

func NewRecordType(tag TypeTag, allowed []string, store repository.Store) RecordType {
	return &recordType{tag: tag, allowed: append([]string(nil), allowed...), store: store}
}

func (r *recordType) Name() string { return r.tag.String() }

func (r *recordType) Tag() TypeTag { return r.tag }

// AllowedFields returns a fresh copy on every call.
func (r *recordType) AllowedFields() []string {
	return append([]string(nil), r.allowed...)
}

func (r *recordType) Store() repository.Store { return r.store }
