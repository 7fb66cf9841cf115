package form

import (
	"strconv"
	"strings"
)

// FieldRef addresses one field of one inline entry.
type FieldRef struct {
	Inline string
	Index  int
	Field  string
}

// FieldName builds the submitted name of an inline field:
// "{inline}_{index}_{field}". Renderers, the reconciliation engine and the
// error map all go through this function.
func FieldName(inline string, index int, field string) string {
	return inline + "_" + strconv.Itoa(index) + "_" + field
}

// String implements fmt.Stringer using FieldName.
func (r FieldRef) String() string {
	return FieldName(r.Inline, r.Index, r.Field)
}

// ParseFieldName inverts FieldName. The index is the first underscore
// separated segment, after at least one leading segment, that is a base-10
// non-negative integer without leading zeros.
func ParseFieldName(key string) (FieldRef, bool) {
	segments := strings.Split(key, "_")
	for i := 1; i < len(segments)-1; i++ {
		index, ok := parseIndex(segments[i])
		if !ok {
			continue
		}
		inline := strings.Join(segments[:i], "_")
		field := strings.Join(segments[i+1:], "_")
		if inline == "" || field == "" {
			return FieldRef{}, false
		}
		return FieldRef{Inline: inline, Index: index, Field: field}, true
	}
	return FieldRef{}, false
}

// CountKey is the control carrying the number of rows the client rendered.
func CountKey(inline string) string {
	return inline + "_count"
}

// AddKey is the presence-only control requesting one more blank row.
func AddKey(inline string) string {
	return "add_" + inline
}

// DeleteKey is the presence-only control removing the row at index.
func DeleteKey(inline string, index int) string {
	return "delete_" + inline + "_" + strconv.Itoa(index)
}

func parseIndex(raw string) (int, bool) {
	if raw == "" || (len(raw) > 1 && raw[0] == '0') {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return index, true
}
