package apifeatures

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// maxDepth bounds how deeply a key like a[b][c] nests.
const maxDepth = 10

// ParseQuery turns a raw query into nested params. Brackets and dots both
// nest (a[b]=1 and a.b=1 give {a:{b:"1"}}); repeated keys and a[] give lists.
func ParseQuery(values url.Values) map[string]any {
	out := make(map[string]any)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		segments := splitKey(key)
		if len(segments) == 0 || segments[0] == "" {
			continue
		}
		for _, v := range values[key] {
			assign(out, segments, v)
		}
	}
	return out
}

func splitKey(key string) []string {
	var segments []string
	var cur strings.Builder
	inBracket := false
	for _, r := range key {
		switch {
		case r == '[' && !inBracket:
			if cur.Len() > 0 || len(segments) == 0 {
				segments = append(segments, cur.String())
				cur.Reset()
			}
			inBracket = true
		case r == ']' && inBracket:
			segments = append(segments, cur.String())
			cur.Reset()
			inBracket = false
		case r == '.' && !inBracket:
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 || len(segments) == 0 {
		segments = append(segments, cur.String())
	}

	if len(segments) > maxDepth+1 {
		rest := strings.Join(segments[maxDepth+1:], ".")
		segments = append(segments[:maxDepth+1:maxDepth+1], rest)
	}
	return segments
}

func assign(m map[string]any, segments []string, value string) {
	head := segments[0]
	if len(segments) == 1 {
		m[head] = appendValue(m[head], value)
		return
	}

	next := segments[1]
	if len(segments) == 2 && isListSegment(next) {
		m[head] = appendValue(m[head], value)
		return
	}

	assign(childMap(m, head), segments[1:], value)
}

// childMap returns the map nested under head. A plain value already stored
// there is kept: price=5&price[gte]=10 gives price: ["5", {gte: "10"}].
func childMap(m map[string]any, head string) map[string]any {
	switch e := m[head].(type) {
	case map[string]any:
		return e
	case nil:
		child := make(map[string]any)
		m[head] = child
		return child
	case []any:
		if len(e) > 0 {
			if last, ok := e[len(e)-1].(map[string]any); ok {
				return last
			}
		}
		child := make(map[string]any)
		m[head] = append(e, child)
		return child
	default:
		child := make(map[string]any)
		m[head] = []any{e, child}
		return child
	}
}

func isListSegment(s string) bool {
	if s == "" {
		return true
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func appendValue(existing any, value string) any {
	switch e := existing.(type) {
	case nil:
		return value
	case string:
		return []any{e, value}
	case []any:
		return append(e, value)
	default:
		return []any{existing, value}
	}
}
