package utils

import (
	"bytes"
	"errors"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var errNotObject = errors.New("request body must be a JSON object")

// Body is a decoded JSON object that remembers the order of its top-level keys.
// The zero value is an empty body.
type Body struct {
	entries *orderedmap.OrderedMap[string, any]
}

// NewBody wraps m. Keys are ordered lexically since a map has no order of its own.
func NewBody(m map[string]any) *Body {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := &Body{entries: orderedmap.New[string, any](len(m))}
	for _, k := range keys {
		b.entries.Set(k, m[k])
	}
	return b
}

// UnmarshalJSON decodes a JSON object keeping its key order. Nested values
// decode as they would into interface{}.
func (b *Body) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	entries := orderedmap.New[string, any]()
	if err := entries.UnmarshalJSON(data); err != nil {
		return err
	}
	b.entries = entries
	return nil
}

// MarshalJSON writes the object in key order.
func (b *Body) MarshalJSON() ([]byte, error) {
	if b == nil || b.entries == nil {
		return []byte("{}"), nil
	}
	return b.entries.MarshalJSON()
}

func (b *Body) Keys() []string {
	if b == nil || b.entries == nil {
		return nil
	}
	keys := make([]string, 0, b.entries.Len())
	for pair := b.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func (b *Body) Len() int {
	if b == nil || b.entries == nil {
		return 0
	}
	return b.entries.Len()
}

func (b *Body) Get(key string) (any, bool) {
	if b == nil || b.entries == nil {
		return nil, false
	}
	return b.entries.Get(key)
}

// Set replaces the value of an existing key in place or appends a new one.
func (b *Body) Set(key string, v any) {
	if b.entries == nil {
		b.entries = orderedmap.New[string, any]()
	}
	b.entries.Set(key, v)
}

func (b *Body) Delete(key string) {
	if b.entries == nil {
		return
	}
	b.entries.Delete(key)
}

// Map returns a copy of the values as a plain map.
func (b *Body) Map() map[string]any {
	out := make(map[string]any, b.Len())
	if b == nil || b.entries == nil {
		return out
	}
	for pair := b.entries.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}
