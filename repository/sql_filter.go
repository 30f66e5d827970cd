package repository

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/gorm/clause"

	apperrors "github.com/yashrajoria/storefront/common/errors"
)

// sqlFilter translates the Mongo-dialect filters built by apifeatures into
// gorm clause expressions over a fixed column map.
type sqlFilter struct {
	columns map[string]string
	dates   map[string]bool
}

var (
	matchAll  = clause.Expr{SQL: "TRUE"}
	matchNone = clause.Expr{SQL: "FALSE"}
)

// negation wraps an expression in NOT (...). clause.Not negates the terms of
// an AND group one by one, which is not the same thing.
type negation struct {
	expr clause.Expression
}

func (n negation) Build(b clause.Builder) {
	b.WriteString("NOT (")
	n.expr.Build(b)
	b.WriteByte(')')
}

func errInvalidQuery(format string, args ...any) error {
	return apperrors.BadRequest("Invalid query: "+format, args...)
}

func allOf(exprs []clause.Expression) clause.Expression {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return clause.And(exprs...)
}

// anyOf never returns a one-element OR group: gorm joins those to their
// left neighbour with OR.
func anyOf(exprs []clause.Expression) clause.Expression {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return clause.Or(exprs...)
}

// where returns nil for a filter that matches everything.
func (f sqlFilter) where(filter bson.M) (clause.Expression, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []clause.Expression
	for _, key := range keys {
		expr, err := f.clause(key, filter[key])
		if err != nil {
			return nil, err
		}
		if expr != nil {
			parts = append(parts, expr)
		}
	}
	return allOf(parts), nil
}

func (f sqlFilter) clause(key string, value any) (clause.Expression, error) {
	switch key {
	case "$and", "$or", "$nor":
		return f.logical(key, value)
	}
	if strings.HasPrefix(key, "$") {
		return nil, errInvalidQuery("unknown operator %s", key)
	}

	column, ok := f.columns[key]
	if !ok {
		// no such field: nothing can match
		return matchNone, nil
	}
	col := clause.Column{Name: column}

	if ops, isDoc := asDoc(value); isDoc && hasOperators(ops) {
		return f.operators(key, col, ops)
	}
	if _, isList := asList(value); isList {
		return matchNone, nil
	}
	if value == nil {
		return clause.Eq{Column: col, Value: nil}, nil
	}
	v, err := f.value(key, value)
	if err != nil {
		return nil, err
	}
	return clause.Eq{Column: col, Value: v}, nil
}

func (f sqlFilter) logical(op string, value any) (clause.Expression, error) {
	list, ok := asList(value)
	if !ok || len(list) == 0 {
		return nil, errInvalidQuery("%s needs a non-empty list", op)
	}

	parts := make([]clause.Expression, 0, len(list))
	for _, item := range list {
		doc, ok := asDoc(item)
		if !ok {
			return nil, errInvalidQuery("%s entries must be objects", op)
		}
		sub, err := f.where(doc)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			sub = matchAll
		}
		parts = append(parts, sub)
	}

	switch op {
	case "$and":
		return allOf(parts), nil
	case "$or":
		return anyOf(parts), nil
	default:
		return negation{expr: anyOf(parts)}, nil
	}
}

func (f sqlFilter) operators(field string, col clause.Column, ops bson.M) (clause.Expression, error) {
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	var parts []clause.Expression
	for _, op := range names {
		operand := ops[op]
		switch op {
		case "$gte", "$gt", "$lte", "$lt", "$ne":
			v, err := f.value(field, operand)
			if err != nil {
				return nil, err
			}
			parts = append(parts, comparison(op, col, v))
		case "$in", "$nin":
			list, ok := asList(operand)
			if !ok {
				return nil, errInvalidQuery("%s needs a list", op)
			}
			if len(list) == 0 {
				if op == "$in" {
					parts = append(parts, matchNone)
				}
				continue
			}
			values := make([]any, 0, len(list))
			for _, item := range list {
				v, err := f.value(field, item)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			in := clause.IN{Column: col, Values: values}
			if op == "$nin" {
				parts = append(parts, clause.Not(in))
			} else {
				parts = append(parts, in)
			}
		case "$regex":
			pattern, ok := operand.(string)
			if !ok {
				return nil, errInvalidQuery("$regex needs a string")
			}
			match := "? ~ ?"
			if options, _ := ops["$options"].(string); strings.Contains(options, "i") {
				match = "? ~* ?"
			}
			parts = append(parts, clause.Expr{SQL: match, Vars: []any{col, pattern}})
		case "$options":
		case "$exists":
			if exists, _ := operand.(bool); exists {
				parts = append(parts, clause.Neq{Column: col, Value: nil})
			} else {
				parts = append(parts, clause.Eq{Column: col, Value: nil})
			}
		default:
			return nil, errInvalidQuery("unsupported operator %s", op)
		}
	}
	return allOf(parts), nil
}

func comparison(op string, col clause.Column, v any) clause.Expression {
	switch op {
	case "$gte":
		return clause.Gte{Column: col, Value: v}
	case "$gt":
		return clause.Gt{Column: col, Value: v}
	case "$lte":
		return clause.Lte{Column: col, Value: v}
	case "$lt":
		return clause.Lt{Column: col, Value: v}
	}
	return clause.Neq{Column: col, Value: v}
}

func (f sqlFilter) value(field string, v any) (any, error) {
	if !f.dates[field] {
		return v, nil
	}
	t, ok := toDate(v)
	if !ok {
		return nil, apperrors.BadRequest("Invalid %s: %v", field, v)
	}
	return t, nil
}

func (f sqlFilter) orderBy(order bson.D) []clause.OrderByColumn {
	var cols []clause.OrderByColumn
	for _, e := range order {
		column, ok := f.columns[e.Key]
		if !ok {
			continue
		}
		n, _ := e.Value.(int)
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: n < 0})
	}
	return cols
}

func hasOperators(doc bson.M) bool {
	if len(doc) == 0 {
		return false
	}
	for k := range doc {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

// applyProjection mirrors Mongo projection rules on a decoded record.
func applyProjection(doc bson.M, projection bson.M) bson.M {
	if len(projection) == 0 {
		return doc
	}
	include := false
	for k, v := range projection {
		if k != "_id" && isTruthy(v) {
			include = true
			break
		}
	}

	out := bson.M{}
	if include {
		for k, v := range projection {
			if isTruthy(v) {
				if val, ok := doc[k]; ok {
					out[k] = val
				}
			}
		}
		if id, ok := doc["_id"]; ok {
			if v, listed := projection["_id"]; !listed || isTruthy(v) {
				out["_id"] = id
			}
		}
		return out
	}
	for k, v := range doc {
		out[k] = v
	}
	for k := range projection {
		delete(out, k)
	}
	return out
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	return false
}
