package form

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/goliatone/go-crudform/pkg/schema"
	"github.com/goliatone/go-crudform/pkg/store"
)

// DefaultMaxRows bounds how many inline rows a single submission may address.
const DefaultMaxRows = 1000

// BoundField is a declared field bound to submitted data or an object.
type BoundField struct {
	Spec Field
	// Name is the input name; for inline rows it follows FieldName.
	Name   string
	ID     string
	Raw    string
	Value  any
	Errors []string

	processErr string
}

// Label returns the display label of the field.
func (b *BoundField) Label() string { return b.Spec.DisplayLabel() }

// Checked reports whether a boolean field is set.
func (b *BoundField) Checked() bool {
	v, _ := b.Value.(bool)
	return v
}

// BoundFieldset is a Fieldset resolved to bound fields.
type BoundFieldset struct {
	Title  string
	Fields []*BoundField
}

// PrimaryKey is one primary key attribute of the bound object.
type PrimaryKey struct {
	Name      string
	InputName string
	Value     string
}

// Option configures a Form.
type Option func(*Form)

// WithData binds submitted values. A nil map means nothing was submitted.
func WithData(data url.Values) Option {
	return func(f *Form) {
		f.data = data
	}
}

// WithObject binds the instance being edited. Without it the form is in
// "new" mode.
func WithObject(obj store.Object) Option {
	return func(f *Form) {
		f.obj = obj
	}
}

// WithSession sets the persistence session used for relationship reads,
// inline deletions and population.
func WithSession(session store.Session) Option {
	return func(f *Form) {
		f.session = session
	}
}

// WithSchema sets the metadata used to resolve relationships and keys.
func WithSchema(md schema.Metadata) Option {
	return func(f *Form) {
		f.meta = md
	}
}

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// WithMaxRows caps the rows an inline may address. Values below one restore
// DefaultMaxRows.
func WithMaxRows(n int) Option {
	return func(f *Form) {
		f.maxRows = n
	}
}

// Form is a bound instance of a Type. It is built per request and is not
// safe for concurrent use.
type Form struct {
	typ     *Type
	data    url.Values
	obj     store.Object
	session store.Session
	meta    schema.Metadata
	logger  *slog.Logger
	maxRows int

	// inline and index are set on inline rows after renumbering.
	inline string
	index  int

	fields  []*BoundField
	inlines []*InlineSet
	errors  map[string][]string
}

// New binds typ and reconciles its inlines. On a reconciliation failure the
// form is returned together with the error, holding the inlines processed so
// far.
func New(ctx context.Context, typ *Type, opts ...Option) (*Form, error) {
	if typ == nil {
		return nil, fmt.Errorf("form: type is nil")
	}
	f := &Form{typ: typ}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.maxRows < 1 {
		f.maxRows = DefaultMaxRows
	}

	f.bind()
	for _, inline := range typ.inlines {
		set, err := f.reconcile(ctx, inline)
		if err != nil {
			return f, err
		}
		f.inlines = append(f.inlines, set)
	}
	return f, nil
}

func (f *Form) bind() {
	hasData := len(f.data) > 0
	f.fields = make([]*BoundField, len(f.typ.fields))
	for i, spec := range f.typ.fields {
		kind := spec.kind()
		bf := &BoundField{Spec: spec}
		values, submitted := f.data[spec.Name]
		switch {
		case submitted:
			if len(values) > 0 {
				bf.Raw = values[0]
			}
		case kind == KindBoolean && hasData:
			bf.Raw = ""
		case f.obj != nil && hasAttr(f.obj, spec.Name):
			v, _ := f.obj.Attr(spec.Name)
			bf.Raw = format(kind, v)
		default:
			bf.Raw = format(kind, spec.Default)
		}
		bf.Value, bf.processErr = coerce(kind, bf.Raw)
		f.fields[i] = bf
	}
	f.rename()
}

func hasAttr(obj store.Object, name string) bool {
	_, ok := obj.Attr(name)
	return ok
}

func (f *Form) rename() {
	for _, bf := range f.fields {
		bf.Name = f.InputName(bf.Spec.Name)
		bf.ID = bf.Name
	}
}

// InputName returns the submitted name of field on this form.
func (f *Form) InputName(field string) string {
	if f.inline == "" {
		return field
	}
	return FieldName(f.inline, f.index, field)
}

// Type returns the form's type.
func (f *Form) Type() *Type { return f.typ }

// Object returns the bound object, nil for new forms.
func (f *Form) Object() store.Object { return f.obj }

// IsNew reports whether the form creates a new object.
func (f *Form) IsNew() bool { return f.obj == nil }

// Data returns the submitted values the form was bound to.
func (f *Form) Data() url.Values { return f.data }

// Fields returns the bound fields in declaration order.
func (f *Form) Fields() []*BoundField {
	return append([]*BoundField(nil), f.fields...)
}

// Field returns the bound field with the declared name.
func (f *Form) Field(name string) (*BoundField, bool) {
	for _, bf := range f.fields {
		if bf.Spec.Name == name {
			return bf, true
		}
	}
	return nil, false
}

// Inlines returns the reconciled inline sets in declaration order.
func (f *Form) Inlines() []*InlineSet {
	return append([]*InlineSet(nil), f.inlines...)
}

// Fieldsets resolves the type's fieldsets to bound fields.
func (f *Form) Fieldsets() []BoundFieldset {
	sets := f.typ.Fieldsets()
	out := make([]BoundFieldset, 0, len(sets))
	for _, fs := range sets {
		bound := BoundFieldset{Title: fs.Title}
		for _, name := range fs.Fields {
			if bf, ok := f.Field(name); ok {
				bound.Fields = append(bound.Fields, bf)
			}
		}
		out = append(out, bound)
	}
	return out
}

// PrimaryKeys lists the primary key attributes of the bound object with
// their input names. Values are empty for new objects.
func (f *Form) PrimaryKeys() []PrimaryKey {
	if f.meta == nil {
		return nil
	}
	attrs, err := f.meta.PrimaryKeys(f.typ.model)
	if err != nil {
		return nil
	}
	out := make([]PrimaryKey, len(attrs))
	for i, name := range attrs {
		pk := PrimaryKey{Name: name, InputName: f.InputName(name)}
		if f.obj != nil {
			if v, ok := f.obj.Attr(name); ok && v != nil {
				pk.Value = format(KindInteger, v)
			}
		}
		out[i] = pk
	}
	return out
}

// Validate checks every own field and every inline entry. It never stops
// early; child errors are copied under FieldName keys.
func (f *Form) Validate() bool {
	f.errors = make(map[string][]string)
	valid := true
	for name, msgs := range f.validateFields() {
		f.errors[name] = msgs
		valid = false
	}
	for _, set := range f.inlines {
		for _, entry := range set.Entries {
			childErrors := entry.Form.validateFields()
			if len(childErrors) == 0 {
				continue
			}
			valid = false
			for field, msgs := range childErrors {
				f.errors[FieldName(set.Inline.name, entry.Index, field)] = msgs
			}
		}
	}
	return valid
}

// Errors returns the aggregated error map of the last Validate call.
func (f *Form) Errors() map[string][]string {
	out := make(map[string][]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (f *Form) validateFields() map[string][]string {
	errs := make(map[string][]string)
	for _, bf := range f.fields {
		bf.Errors = nil
		empty := strings.TrimSpace(bf.Raw) == ""
		switch {
		case bf.Spec.Required() && empty:
			bf.Errors = append(bf.Errors, MsgRequired)
		case bf.processErr != "":
			bf.Errors = append(bf.Errors, bf.processErr)
		case empty:
		default:
			if rules := bf.Spec.valueRules(); rules != "" {
				if err := fieldValidator().Var(bf.Value, rules); err != nil {
					bf.Errors = append(bf.Errors, ruleMessages(err, bf.Spec.kind())...)
				}
			}
		}
		if len(bf.Errors) > 0 {
			errs[bf.Spec.Name] = append([]string(nil), bf.Errors...)
		}
	}
	return errs
}

// populateFields copies bound values onto obj, leaving key attributes alone.
func (f *Form) populateFields(obj store.Object, skip []string) {
	for _, bf := range f.fields {
		if contains(skip, bf.Spec.Name) {
			continue
		}
		obj.SetAttr(bf.Spec.Name, bf.Value)
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
