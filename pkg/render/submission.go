package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-crudform/pkg/form"
)

// CSRFFieldName is the input carrying the anti-forgery token on every admin
// form.
const CSRFFieldName = "csrf_token"

// HiddenField is a hidden input emitted next to the visible fields.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken carries token under CSRFFieldName.
func CSRFToken(token string) HiddenField {
	return Hidden(CSRFFieldName, token)
}

// PrimaryKeyFields renders the key attributes of a bound form. Rows without a
// persisted object still get empty inputs so the submitted layout is stable.
func PrimaryKeyFields(keys []form.PrimaryKey) []HiddenField {
	if len(keys) == 0 {
		return nil
	}
	out := make([]HiddenField, 0, len(keys))
	for _, pk := range keys {
		out = append(out, HiddenField{Name: pk.InputName, Value: pk.Value})
	}
	return out
}

// MergeHiddenFields returns a copy of base with the provided fields applied.
// Empty names are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	if len(base) == 0 && len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		out[name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields flattens fields in name order.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{Name: name, Value: fields[name]})
	}
	return result
}
