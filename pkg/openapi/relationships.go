package openapi

import (
	"strings"
	"unicode"
)

const (
	relationshipExtensionKey = "x-relationships"
	primaryKeyExtensionKey   = "x-primary-key"
	fieldOrderExtensionKey   = "x-field-order"
	widgetExtensionKey       = "x-widget"

	relTypeAttr       = "type"
	relTargetAttr     = "target"
	relForeignKeyAttr = "foreignKey"
	relInverseAttr    = "inverse"
	relNameAttr       = "name"
)

var relationshipKeyLookup = map[string]string{
	"type":         relTypeAttr,
	"kind":         relTypeAttr,
	"target":       relTargetAttr,
	"model":        relTargetAttr,
	"foreignkey":   relForeignKeyAttr,
	"foreignid":    relForeignKeyAttr,
	"inverse":      relInverseAttr,
	"name":         relNameAttr,
	"relationship": relNameAttr,
}

// normaliseRelationship reads an x-relationships value, accepting the
// spelling variants people write by hand ("foreign_key", "Kind", ...).
// Unknown keys and non-string values are dropped.
func normaliseRelationship(value any) map[string]string {
	raw, ok := value.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string)
	for key, val := range raw {
		canonical, ok := relationshipKeyLookup[normaliseKey(key)]
		if !ok {
			continue
		}
		if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
			out[canonical] = strings.TrimSpace(s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normaliseKey(raw string) string {
	var builder strings.Builder
	builder.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			builder.WriteRune(unicode.ToLower(r))
		}
	}
	return builder.String()
}

// refName returns "Choice" for "#/components/schemas/Choice".
func refName(ref string) string {
	if ref == "" {
		return ""
	}
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

// stringList accepts a single string or a list of strings.
func stringList(value any) []string {
	switch v := value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// defaultForeignKey is the attribute a child uses to point at parent.
func defaultForeignKey(parent string) string {
	return toSnake(parent) + "_id"
}

func toSnake(name string) string {
	var builder strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				builder.WriteByte('_')
			}
			builder.WriteRune(unicode.ToLower(r))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
