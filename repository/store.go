package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/yashrajoria/storefront/apifeatures"
)

// ErrNotFound is returned when an identifier resolves to no record.
var ErrNotFound = errors.New("record not found")

// Population describes one relation expansion.
//
// A forward reference replaces the id (or id list) stored at Path with the
// Select fields of the matching records in From. When ForeignField is set
// the relation is virtual: Path receives every record in From whose
// ForeignField equals the record's _id.
type Population struct {
	Path         string
	From         string
	Select       []string
	ForeignField string
}

// Store is the storage contract the resource services are written against.
type Store interface {
	FindByID(ctx context.Context, id string) (bson.M, error)
	Find(ctx context.Context, q apifeatures.Query) ([]bson.M, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Create(ctx context.Context, doc bson.M) (bson.M, error)
	// FindByIDAndUpdate writes only the changed fields.
	FindByIDAndUpdate(ctx context.Context, id string, changes bson.M) (bson.M, error)
	// Save commits a record returned by FindByIDAndUpdate and fires its save
	// hooks. The record is already persisted, so nothing is rewritten.
	Save(ctx context.Context, doc bson.M) (bson.M, error)
	// Delete removes a loaded record and fires its delete hooks.
	Delete(ctx context.Context, doc bson.M) error
	Populate(ctx context.Context, docs []bson.M, pops []Population) error
	// Present returns response-ready copies: computed URLs added, hidden fields removed.
	Present(docs ...bson.M) []bson.M
}

// FindOne returns the first record matching filter.
func FindOne(ctx context.Context, s Store, filter bson.M) (bson.M, error) {
	docs, err := s.Find(ctx, apifeatures.Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}
