package render

import (
	"sort"
	"strings"
)

// ErrorMapping splits an error map into messages that belong to a rendered
// input and messages that only the form as a whole can show.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrors matches the keys of errs against the input names of view. Keys that
// name no rendered input become form level messages so they are not lost.
func MapErrors(view FormView, errs map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(errs) == 0 {
		mapping.Fields = nil
		return mapping
	}
	names := inputNames(view)
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		messages := normalizeMessages(errs[key])
		if len(messages) == 0 {
			continue
		}
		if _, ok := names[key]; ok {
			mapping.Fields[key] = messages
			continue
		}
		mapping.Form = append(mapping.Form, messages...)
	}
	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// MergeFormErrors appends extras to existing, trimming and dropping
// duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

func inputNames(view FormView) map[string]struct{} {
	names := make(map[string]struct{})
	for _, fs := range view.Fieldsets {
		for _, f := range fs.Fields {
			names[f.Name] = struct{}{}
		}
	}
	for _, inline := range view.Inlines {
		for _, entry := range inline.Entries {
			for _, f := range entry.Fields {
				names[f.Name] = struct{}{}
			}
		}
	}
	return names
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
