package form

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-crudform/pkg/store"
)

// Fieldset groups field names under an optional title for display.
type Fieldset struct {
	Title  string   `json:"title" yaml:"title"`
	Fields []string `json:"fields" yaml:"fields"`
}

// Type describes a form for one model: its fields, display grouping and
// inline collections. Types are immutable once built; every slice handed to
// an option is copied.
type Type struct {
	model       string
	title       string
	titlePlural string
	fields      []Field
	fieldsets   []Fieldset
	inlines     []*Inline
	factory     func() store.Object
}

// TypeOption configures a Type.
type TypeOption func(*Type)

// WithFields declares the editable fields in display order.
func WithFields(fields ...Field) TypeOption {
	return func(t *Type) {
		t.fields = append([]Field(nil), fields...)
	}
}

// WithFieldsets groups fields for display.
func WithFieldsets(fieldsets ...Fieldset) TypeOption {
	return func(t *Type) {
		t.fieldsets = make([]Fieldset, len(fieldsets))
		for i, fs := range fieldsets {
			t.fieldsets[i] = Fieldset{Title: fs.Title, Fields: append([]string(nil), fs.Fields...)}
		}
	}
}

// WithInlines declares the inline collections edited alongside the model.
func WithInlines(inlines ...*Inline) TypeOption {
	return func(t *Type) {
		t.inlines = append([]*Inline(nil), inlines...)
	}
}

// WithTitle overrides the singular display title.
func WithTitle(title string) TypeOption {
	return func(t *Type) {
		t.title = strings.TrimSpace(title)
	}
}

// WithTitlePlural overrides the plural display title.
func WithTitlePlural(title string) TypeOption {
	return func(t *Type) {
		t.titlePlural = strings.TrimSpace(title)
	}
}

// WithFactory sets the constructor used for new instances. By default a
// store.Record of the model is created.
func WithFactory(fn func() store.Object) TypeOption {
	return func(t *Type) {
		t.factory = fn
	}
}

// NewType builds a form type for model.
func NewType(model string, opts ...TypeOption) (*Type, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("form: model name is required")
	}
	t := &Type{model: model}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	seen := make(map[string]struct{}, len(t.fields))
	for i, f := range t.fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, fmt.Errorf("form: %s field %d has no name", model, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("form: %s declares field %q twice", model, name)
		}
		seen[name] = struct{}{}
		t.fields[i].Name = name
		if err := t.fields[i].checkRules(); err != nil {
			return nil, err
		}
	}
	for _, fs := range t.fieldsets {
		for _, name := range fs.Fields {
			if _, ok := seen[name]; !ok {
				return nil, fmt.Errorf("form: %s fieldset %q references unknown field %q", model, fs.Title, name)
			}
		}
	}

	names := make(map[string]struct{}, len(t.inlines))
	for _, inline := range t.inlines {
		if inline == nil || inline.child == nil {
			return nil, fmt.Errorf("form: %s declares an empty or invalid inline", model)
		}
		if _, dup := names[inline.name]; dup {
			return nil, fmt.Errorf("form: %s declares inline %q twice", model, inline.name)
		}
		names[inline.name] = struct{}{}
	}
	return t, nil
}

// MustNewType panics when NewType fails.
func MustNewType(model string, opts ...TypeOption) *Type {
	t, err := NewType(model, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Model returns the model name.
func (t *Type) Model() string { return t.model }

// Title returns the singular title, defaulting to the model name.
func (t *Type) Title() string {
	if t.title != "" {
		return t.title
	}
	return t.model
}

// TitlePlural returns the plural title, defaulting to Title()+"s".
func (t *Type) TitlePlural() string {
	if t.titlePlural != "" {
		return t.titlePlural
	}
	return t.Title() + "s"
}

// Fields returns a copy of the declared fields.
func (t *Type) Fields() []Field {
	return append([]Field(nil), t.fields...)
}

// Field looks a declared field up by name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames lists declared field names in order.
func (t *Type) FieldNames() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		out[i] = f.Name
	}
	return out
}

// Fieldsets returns the configured fieldsets or a single untitled one with
// every field.
func (t *Type) Fieldsets() []Fieldset {
	if len(t.fieldsets) == 0 {
		return []Fieldset{{Fields: t.FieldNames()}}
	}
	out := make([]Fieldset, len(t.fieldsets))
	for i, fs := range t.fieldsets {
		out[i] = Fieldset{Title: fs.Title, Fields: append([]string(nil), fs.Fields...)}
	}
	return out
}

// Inlines returns the declared inlines in declaration order.
func (t *Type) Inlines() []*Inline {
	return append([]*Inline(nil), t.inlines...)
}

// New creates a fresh, unsaved instance of the model.
func (t *Type) New() store.Object {
	if t.factory != nil {
		return t.factory()
	}
	return store.NewRecord(t.model, nil)
}

// Inline declares a child collection edited inside the parent form.
type Inline struct {
	child        *Type
	name         string
	extra        int
	relationship string
}

// InlineOption configures an Inline.
type InlineOption func(*Inline)

// WithExtra sets how many blank rows a new parent shows. Negative values
// are treated as zero.
func WithExtra(n int) InlineOption {
	return func(i *Inline) {
		if n < 0 {
			n = 0
		}
		i.extra = n
	}
}

// WithRelationshipName names the parent relationship explicitly. It skips
// discovery and is not validated against the schema.
func WithRelationshipName(name string) InlineOption {
	return func(i *Inline) {
		i.relationship = strings.TrimSpace(name)
	}
}

// WithInlineName overrides the field name prefix, which defaults to the
// lowercased child model name.
func WithInlineName(name string) InlineOption {
	return func(i *Inline) {
		if name = strings.TrimSpace(name); name != "" {
			i.name = name
		}
	}
}

// NewInline declares child as an inline collection. It returns nil when the
// resulting name would not round trip through ParseFieldName.
func NewInline(child *Type, opts ...InlineOption) *Inline {
	if child == nil {
		return nil
	}
	inline := &Inline{child: child, name: strings.ToLower(child.model)}
	for _, opt := range opts {
		if opt != nil {
			opt(inline)
		}
	}
	for _, segment := range strings.Split(inline.name, "_") {
		if _, numeric := parseIndex(segment); numeric || segment == "" {
			return nil
		}
	}
	return inline
}

// Type returns the child form type.
func (i *Inline) Type() *Type { return i.child }

// Name returns the field name prefix.
func (i *Inline) Name() string { return i.name }

// Extra returns the number of blank rows shown for a new parent.
func (i *Inline) Extra() int { return i.extra }

// RelationshipName returns the explicit relationship override, if any.
func (i *Inline) RelationshipName() string { return i.relationship }

// FieldNames lists the child's declared fields.
func (i *Inline) FieldNames() []string { return i.child.FieldNames() }

// Title returns the child's singular title.
func (i *Inline) Title() string { return i.child.Title() }

// TitlePlural returns the child's plural title.
func (i *Inline) TitlePlural() string { return i.child.TitlePlural() }
