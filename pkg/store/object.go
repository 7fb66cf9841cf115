package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Object is a model instance as seen by the admin. Implementations expose
// attributes by name; relationship collections are reached through a Session.
type Object interface {
	ModelName() string
	Attr(name string) (any, bool)
	SetAttr(name string, value any)
	// Attrs returns a copy of every plain attribute.
	Attrs() map[string]any
}

// Record is the map-backed Object used by the bundled backends.
type Record struct {
	model string
	attrs map[string]any
}

var _ Object = (*Record)(nil)

// NewRecord builds a record for model seeded with a copy of attrs.
func NewRecord(model string, attrs map[string]any) *Record {
	r := &Record{model: model, attrs: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		r.attrs[k] = v
	}
	return r
}

// ModelName implements Object.
func (r *Record) ModelName() string { return r.model }

// Attr implements Object.
func (r *Record) Attr(name string) (any, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

// SetAttr implements Object.
func (r *Record) SetAttr(name string, value any) {
	if r.attrs == nil {
		r.attrs = make(map[string]any)
	}
	r.attrs[name] = value
}

// Attrs implements Object.
func (r *Record) Attrs() map[string]any {
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// String renders the record as "Model(k=v, ...)" with sorted keys.
func (r *Record) String() string {
	keys := make([]string, 0, len(r.attrs))
	for k := range r.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, r.attrs[k]))
	}
	return r.model + "(" + strings.Join(parts, ", ") + ")"
}

// PK is an ordered primary key tuple. Keys are integers throughout the admin.
type PK []int64

// String renders the key as comma separated integers, the form used in URLs
// and storage keys.
func (pk PK) String() string {
	parts := make([]string, len(pk))
	for i, v := range pk {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

// Equal reports whether two keys hold the same values in the same order.
func (pk PK) Equal(other PK) bool {
	if len(pk) != len(other) {
		return false
	}
	for i := range pk {
		if pk[i] != other[i] {
			return false
		}
	}
	return true
}

// Less orders keys lexicographically, which is the natural collection order.
func (pk PK) Less(other PK) bool {
	for i := 0; i < len(pk) && i < len(other); i++ {
		if pk[i] != other[i] {
			return pk[i] < other[i]
		}
	}
	return len(pk) < len(other)
}

// ParsePK parses the String form of a key.
func ParsePK(raw string) (PK, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("store: empty primary key")
	}
	parts := strings.Split(raw, ",")
	pk := make(PK, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("store: invalid primary key %q: %w", raw, err)
		}
		pk = append(pk, v)
	}
	return pk, nil
}

// PKOf reads the primary key attributes of obj. It reports false when any
// attribute is missing or not an integer.
func PKOf(obj Object, attrs []string) (PK, bool) {
	if obj == nil || len(attrs) == 0 {
		return nil, false
	}
	pk := make(PK, 0, len(attrs))
	for _, name := range attrs {
		raw, ok := obj.Attr(name)
		if !ok {
			return nil, false
		}
		v, ok := ToInt64(raw)
		if !ok {
			return nil, false
		}
		pk = append(pk, v)
	}
	return pk, true
}

// ToInt64 converts the integer representations produced by callers and by
// JSON decoding into int64.
func ToInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
