package repository

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	apperrors "github.com/yashrajoria/storefront/common/errors"
)

// Hook runs against a raw record inside a store operation.
type Hook func(ctx context.Context, doc bson.M) error

// Schema describes how one collection is cast, defaulted and presented.
type Schema struct {
	Collection string
	// Label names the record in messages ("Category").
	Label string
	// References maps a field holding ObjectIDs to the collection they point into.
	References map[string]string
	DateFields []string
	Required   []string
	Defaults   map[string]any
	// SlugFrom derives "slug" from this field when a record is created.
	SlugFrom string
	// ImageFields are stored as file names and presented as MediaURL + "/" + name.
	ImageFields []string
	MediaURL    string
	// Hidden fields are never presented.
	Hidden  []string
	Indexes []mongo.IndexModel

	BeforeCreate Hook
	AfterSave    Hook
	AfterDelete  Hook
}

func (s *Schema) isReference(field string) bool {
	if field == "_id" {
		return true
	}
	_, ok := s.References[field]
	return ok
}

func (s *Schema) isDate(field string) bool {
	switch field {
	case "createdAt", "updatedAt":
		return true
	}
	for _, f := range s.DateFields {
		if f == field {
			return true
		}
	}
	return false
}

func (s *Schema) applyDefaults(doc bson.M) {
	for k, v := range s.Defaults {
		if _, ok := doc[k]; !ok {
			doc[k] = v
		}
	}
	if s.SlugFrom != "" {
		if name, ok := doc[s.SlugFrom].(string); ok && name != "" {
			doc["slug"] = slug.Make(name)
		}
	}
}

func (s *Schema) validate(doc bson.M) error {
	var missing []string
	for _, f := range s.Required {
		v, ok := doc[f]
		if !ok || v == nil {
			missing = append(missing, f)
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return apperrors.BadRequest("%s validation failed: %s required", s.Label, strings.Join(missing, ", "))
	}
	return nil
}

// present builds the response copy of a stored record.
func (s *Schema) present(doc bson.M) bson.M {
	if doc == nil {
		return nil
	}
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, f := range s.Hidden {
		delete(out, f)
	}
	if s.MediaURL == "" {
		return out
	}
	for _, f := range s.ImageFields {
		switch v := out[f].(type) {
		case string:
			out[f] = s.mediaURL(v)
		case bson.A:
			out[f] = s.mediaURLs(v)
		case []any:
			out[f] = s.mediaURLs(v)
		}
	}
	return out
}

func (s *Schema) mediaURLs(names []any) bson.A {
	urls := make(bson.A, 0, len(names))
	for _, n := range names {
		if str, ok := n.(string); ok {
			urls = append(urls, s.mediaURL(str))
			continue
		}
		urls = append(urls, n)
	}
	return urls
}

func (s *Schema) mediaURL(name string) string {
	if name == "" || strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	return strings.TrimSuffix(s.MediaURL, "/") + "/" + name
}
