package repository

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/yashrajoria/storefront/common/errors"
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// castDoc converts reference and date fields of a body to their stored types.
func (s *Schema) castDoc(doc bson.M) (bson.M, error) {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		cast, err := s.castField(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = cast
	}
	return out, nil
}

// castFilter walks a filter, converting values under reference and date keys.
func (s *Schema) castFilter(filter bson.M) (bson.M, error) {
	out := make(bson.M, len(filter))
	for k, v := range filter {
		switch k {
		case "$and", "$or", "$nor":
			clauses, err := s.castClauses(v)
			if err != nil {
				return nil, err
			}
			out[k] = clauses
			continue
		}
		cast, err := s.castField(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = cast
	}
	return out, nil
}

func (s *Schema) castClauses(v any) (bson.A, error) {
	list, ok := asList(v)
	if !ok {
		return nil, apperrors.BadRequest("Invalid query")
	}
	out := make(bson.A, 0, len(list))
	for _, c := range list {
		clause, ok := asDoc(c)
		if !ok {
			return nil, apperrors.BadRequest("Invalid query")
		}
		cast, err := s.castFilter(clause)
		if err != nil {
			return nil, err
		}
		out = append(out, cast)
	}
	return out, nil
}

func (s *Schema) castField(field string, v any) (any, error) {
	var conv func(any) (any, bool)
	switch {
	case s.isReference(field):
		conv = toObjectID
	case s.isDate(field):
		conv = toDate
	default:
		return v, nil
	}

	fail := func() error {
		return apperrors.BadRequest("Invalid %s: %v", field, v)
	}

	if ops, ok := asDoc(v); ok {
		out := make(bson.M, len(ops))
		for op, operand := range ops {
			if op == "$exists" {
				out[op] = operand
				continue
			}
			if list, isList := asList(operand); isList {
				cast, ok := castList(list, conv)
				if !ok {
					return nil, fail()
				}
				out[op] = cast
				continue
			}
			cast, ok := conv(operand)
			if !ok {
				return nil, fail()
			}
			out[op] = cast
		}
		return out, nil
	}
	if list, ok := asList(v); ok {
		cast, ok := castList(list, conv)
		if !ok {
			return nil, fail()
		}
		return cast, nil
	}
	cast, ok := conv(v)
	if !ok {
		return nil, fail()
	}
	return cast, nil
}

func castList(list []any, conv func(any) (any, bool)) (bson.A, bool) {
	out := make(bson.A, 0, len(list))
	for _, item := range list {
		cast, ok := conv(item)
		if !ok {
			return nil, false
		}
		out = append(out, cast)
	}
	return out, true
}

func toObjectID(v any) (any, bool) {
	switch t := v.(type) {
	case primitive.ObjectID, nil:
		return t, true
	case string:
		oid, err := primitive.ObjectIDFromHex(t)
		if err != nil {
			return nil, false
		}
		return oid, true
	case bson.M:
		// an already populated reference
		if id, ok := t["_id"]; ok {
			return toObjectID(id)
		}
	case map[string]any:
		if id, ok := t["_id"]; ok {
			return toObjectID(id)
		}
	}
	return nil, false
}

func toDate(v any) (any, bool) {
	switch t := v.(type) {
	case nil, time.Time, primitive.DateTime:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
		return nil, false
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return nil, false
}

func asDoc(v any) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return bson.M(t), true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case bson.A:
		return []any(t), true
	case []any:
		return t, true
	}
	return nil, false
}

// ObjectIDHex renders a stored id for messages and cache keys.
func ObjectIDHex(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(v)
}
