package template

import "errors"

// ErrFilterExists is returned when a filter name is already registered.
// Engines with process wide filters report it on every engine after the
// first, so callers may treat it as success.
var ErrFilterExists = errors.New("template: filter already registered")

// TemplateRenderer is the engine contract the page renderer relies on. Hosts
// can supply their own implementation to swap pongo2 out.
type TemplateRenderer interface {
	// RenderTemplate renders the named template file with data.
	RenderTemplate(name string, data any) (string, error)
	// RegisterFilter makes fn available to templates as name.
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	// GlobalContext merges data into the values every template sees.
	GlobalContext(data any) error
}
