// Package apifeatures turns list-endpoint query params into one storage query
// plus a pagination summary.
package apifeatures

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20

	// VersionField is the internal revision counter hidden from default projections.
	VersionField = "__v"
	// CreatedAtField orders results when no sort is given.
	CreatedAtField = "createdAt"
)

// KeywordFields are the text fields a keyword is matched against.
var KeywordFields = []string{"name", "description"}

var reservedParams = map[string]struct{}{
	"page":    {},
	"sort":    {},
	"limit":   {},
	"fields":  {},
	"keyword": {},
}

var operatorKeys = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
	"in":  "$in",
}

// Query is the executable result of the pipeline.
type Query struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Skip       int64
	Limit      int64
}

// Pagination summarises the window a list response covers.
type Pagination struct {
	TotalPages           int64  `json:"totalPages"`
	CurrentPage          int64  `json:"currentPage"`
	TotalResults         int64  `json:"totalResults"`
	ResultsOnCurrentPage int64  `json:"resultsOnCurrentPage"`
	Limit                int64  `json:"limit"`
	NextPage             *int64 `json:"nextPage,omitempty"`
	PrevPage             *int64 `json:"prevPage,omitempty"`
}

// Features accumulates a filter, sort, projection and window. Stages run in
// the order KeywordSearch, Filter, Sort, LimitFields, Paginate, Build.
type Features struct {
	params     map[string]any
	filter     bson.M
	query      Query
	pagination *Pagination
}

func New(params map[string]any) *Features {
	if params == nil {
		params = map[string]any{}
	}
	return &Features{
		params: params,
		filter: bson.M{},
		query: Query{
			Sort:       bson.D{{Key: CreatedAtField, Value: -1}},
			Projection: bson.M{VersionField: 0},
		},
	}
}

// KeywordSearch ANDs a case-insensitive substring match over KeywordFields
// onto the current filter. A blank keyword is a no-op.
func (f *Features) KeywordSearch() *Features {
	keyword, _ := lastString(f.params["keyword"])
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return f
	}

	pattern := regexp.QuoteMeta(keyword)
	or := make(bson.A, 0, len(KeywordFields))
	for _, field := range KeywordFields {
		or = append(or, bson.M{field: bson.M{"$regex": pattern, "$options": "i"}})
	}
	f.filter = bson.M{"$and": bson.A{f.filter, bson.M{"$or": or}}}
	return f
}

// Filter merges the non-reserved params into the filter. Operator keys
// (gte, gt, lte, lt, in) gain a $ prefix at any depth, string leaves are
// coerced to numbers or booleans, and lists are kept untouched. Keys the
// client already prefixed with $ are discarded.
func (f *Features) Filter() *Features {
	for key, value := range f.params {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		if strings.HasPrefix(key, "$") {
			continue
		}
		f.filter[rewriteKey(key)] = normalize(value)
	}
	return f
}

// Sort reads a comma separated field list; a leading "-" sorts descending.
// Without one, newest records come first.
func (f *Features) Sort() *Features {
	raw, _ := lastString(f.params["sort"])
	var order bson.D
	for _, field := range splitList(raw) {
		if strings.HasPrefix(field, "-") {
			if name := strings.TrimPrefix(field, "-"); name != "" {
				order = append(order, bson.E{Key: name, Value: -1})
			}
			continue
		}
		order = append(order, bson.E{Key: field, Value: 1})
	}
	if len(order) > 0 {
		f.query.Sort = order
	}
	return f
}

// LimitFields restricts the projection to the listed fields. Without a list
// only the version field is hidden.
func (f *Features) LimitFields() *Features {
	raw, _ := lastString(f.params["fields"])
	projection := bson.M{}
	for _, field := range splitList(raw) {
		if strings.HasPrefix(field, "-") {
			if name := strings.TrimPrefix(field, "-"); name != "" {
				projection[name] = 0
			}
			continue
		}
		projection[field] = 1
	}
	if len(projection) > 0 {
		f.query.Projection = projection
	}
	return f
}

// Paginate applies the page/limit window and computes the summary against
// totalResults, which must be counted with the same filter.
func (f *Features) Paginate(totalResults int64) *Features {
	page := positiveInt(f.params["page"], DefaultPage)
	limit := positiveInt(f.params["limit"], DefaultLimit)
	skip := (page - 1) * limit

	p := &Pagination{
		CurrentPage:          page,
		TotalResults:         totalResults,
		Limit:                limit,
		TotalPages:           (totalResults + limit - 1) / limit,
		ResultsOnCurrentPage: min(max(totalResults-skip, 0), limit),
	}
	if page < p.TotalPages {
		next := page + 1
		p.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		p.PrevPage = &prev
	}

	f.pagination = p
	f.query.Skip = skip
	f.query.Limit = limit
	return f
}

// And composes a caller supplied filter with the accumulated one.
func (f *Features) And(pre bson.M) *Features {
	if pre == nil {
		pre = bson.M{}
	}
	f.filter = bson.M{"$and": bson.A{f.filter, pre}}
	return f
}

// FilterObj is the filter accumulated so far; count with it before Paginate.
func (f *Features) FilterObj() bson.M {
	return f.filter
}

// Pagination is nil until Paginate runs.
func (f *Features) Pagination() *Pagination {
	return f.pagination
}

// Build returns the executable query.
func (f *Features) Build() Query {
	f.query.Filter = f.filter
	return f.query
}

func rewriteKey(key string) string {
	if op, ok := operatorKeys[key]; ok {
		return op
	}
	return key
}

func normalize(value any) any {
	switch v := value.(type) {
	case string:
		return coerce(v)
	case map[string]any:
		out := bson.M{}
		for key, inner := range v {
			if strings.HasPrefix(key, "$") {
				continue
			}
			out[rewriteKey(key)] = normalize(inner)
		}
		return out
	case bson.M:
		return normalize(map[string]any(v))
	default:
		// lists are left as they came in
		return value
	}
}

const maxSafeInteger = 1<<53 - 1

func coerce(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	n, ok := parseNumber(s)
	if !ok {
		return s
	}
	if n == math.Trunc(n) && math.Abs(n) <= maxSafeInteger {
		return int64(n)
	}
	return n
}

func parseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	lower := strings.ToLower(strings.TrimLeft(t, "+-"))
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		if strings.HasPrefix(t, "-") || strings.HasPrefix(t, "+") {
			return 0, false
		}
		n, err := strconv.ParseInt(t, 0, 64)
		if err != nil {
			return 0, false
		}
		return float64(n), true
	}
	if strings.ContainsAny(lower, "_") {
		return 0, false
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func positiveInt(value any, fallback int64) int64 {
	s, ok := value.(string)
	if !ok {
		return fallback
	}
	n, ok := parseNumber(s)
	if !ok || n < 1 {
		return fallback
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int64(n)
}

// lastString returns a string param, or the last entry when the key was repeated.
func lastString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []any:
		if len(v) == 0 {
			return "", false
		}
		s, ok := v[len(v)-1].(string)
		return s, ok
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return v[len(v)-1], true
	}
	return "", false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
