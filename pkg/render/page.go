package render

import (
	"strconv"

	"github.com/goliatone/go-crudform/pkg/form"
)

// Widgets selected from a field kind.
const (
	WidgetText     = "text"
	WidgetTextarea = "textarea"
	WidgetNumber   = "number"
	WidgetCheckbox = "checkbox"
	WidgetDateTime = "datetime"
	WidgetSelect   = "select"
)

// Flash is a queued one-shot message.
type Flash struct {
	Queue   string `json:"queue"`
	Message string `json:"message"`
}

// Page carries what every admin page shares.
type Page struct {
	Title   string      `json:"title"`
	ListURL string      `json:"list_url"`
	NewURL  string      `json:"new_url"`
	Flash   []Flash     `json:"flash"`
	CSRF    HiddenField `json:"csrf"`
}

// Column is one list column header.
type Column struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	CSSClass string `json:"css_class"`
	Boolean  bool   `json:"boolean"`
	HTML     bool   `json:"html"`
}

// Cell is one rendered list value. HTML cells are sanitised before they
// reach the template.
type Cell struct {
	Value    string `json:"value"`
	CSSClass string `json:"css_class"`
	Boolean  bool   `json:"boolean"`
	Checked  bool   `json:"checked"`
	HTML     bool   `json:"html"`
}

// Row is one listed object.
type Row struct {
	PK      string `json:"pk"`
	EditURL string `json:"edit_url"`
	Cells   []Cell `json:"cells"`
}

// ActionOption is one entry of the bulk action select.
type ActionOption struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// ListPage is rendered by crud/list.
type ListPage struct {
	Page
	ModelTitle       string         `json:"model_title"`
	ModelTitlePlural string         `json:"model_title_plural"`
	Columns          []Column       `json:"columns"`
	Rows             []Row          `json:"rows"`
	Actions          []ActionOption `json:"actions"`
	SelectedAction   string         `json:"selected_action"`
}

// DeleteItem is an object pending deletion.
type DeleteItem struct {
	PK    string `json:"pk"`
	Label string `json:"label"`
}

// DeletePage is rendered by crud/delete_confirm.
type DeletePage struct {
	Page
	ModelTitle       string       `json:"model_title"`
	ModelTitlePlural string       `json:"model_title_plural"`
	Action           string       `json:"action"`
	Items            []DeleteItem `json:"items"`
}

// EditPage is rendered by crud/edit.
type EditPage struct {
	Page
	ModelTitle string   `json:"model_title"`
	IsNew      bool     `json:"is_new"`
	ActionURL  string   `json:"action_url"`
	Form       FormView `json:"form"`
}

// Choice is one option of a select widget. Templates label it through the
// humanize filter.
type Choice struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// FieldView is a bound field ready for a template.
type FieldView struct {
	Name        string   `json:"name"`
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Widget      string   `json:"widget"`
	Value       string   `json:"value"`
	Checked     bool     `json:"checked"`
	Required    bool     `json:"required"`
	Description string   `json:"description"`
	Errors      []string `json:"errors"`
	Choices     []Choice `json:"choices"`
}

// FieldsetView groups fields under an optional title.
type FieldsetView struct {
	Title  string      `json:"title"`
	Fields []FieldView `json:"fields"`
}

// EntryView is one inline row.
type EntryView struct {
	Index      string        `json:"index"`
	IsExtra    bool          `json:"is_extra"`
	DeleteName string        `json:"delete_name"`
	Hidden     []HiddenField `json:"hidden"`
	Fields     []FieldView   `json:"fields"`
}

// InlineView is one inline with its control inputs.
type InlineView struct {
	Name        string      `json:"name"`
	Title       string      `json:"title"`
	TitlePlural string      `json:"title_plural"`
	CountName   string      `json:"count_name"`
	CountValue  string      `json:"count_value"`
	AddName     string      `json:"add_name"`
	Headers     []string    `json:"headers"`
	Entries     []EntryView `json:"entries"`
}

// FormView is the template shape of a bound form.
type FormView struct {
	Fieldsets []FieldsetView `json:"fieldsets"`
	Inlines   []InlineView   `json:"inlines"`
	Errors    []string       `json:"errors"`
}

// FormViewOption configures NewFormView.
type FormViewOption func(*formViewConfig)

type formViewConfig struct {
	widgets *WidgetRegistry
}

// WithWidgets selects widgets through reg instead of the built-in registry.
func WithWidgets(reg *WidgetRegistry) FormViewOption {
	return func(cfg *formViewConfig) {
		if reg != nil {
			cfg.widgets = reg
		}
	}
}

// NewFormView flattens f. Input names of inline rows follow the dense
// numbering produced by reconciliation, so a resubmitted page reads back the
// same rows.
func NewFormView(f *form.Form, opts ...FormViewOption) FormView {
	if f == nil {
		return FormView{}
	}
	cfg := formViewConfig{widgets: defaultWidgets}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	var view FormView
	for _, fs := range f.Fieldsets() {
		set := FieldsetView{Title: fs.Title}
		for _, bf := range fs.Fields {
			set.Fields = append(set.Fields, newFieldView(bf, cfg.widgets))
		}
		view.Fieldsets = append(view.Fieldsets, set)
	}
	for _, set := range f.Inlines() {
		view.Inlines = append(view.Inlines, newInlineView(set, cfg.widgets))
	}
	return view
}

func newInlineView(set *form.InlineSet, widgets *WidgetRegistry) InlineView {
	name := set.Inline.Name()
	iv := InlineView{
		Name:        name,
		Title:       set.Inline.Title(),
		TitlePlural: set.Inline.TitlePlural(),
		CountName:   form.CountKey(name),
		CountValue:  strconv.Itoa(set.Count()),
		AddName:     form.AddKey(name),
	}
	for _, field := range set.Inline.Type().Fields() {
		iv.Headers = append(iv.Headers, field.DisplayLabel())
	}
	for _, entry := range set.Entries {
		ev := EntryView{
			Index:      strconv.Itoa(entry.Index),
			IsExtra:    entry.IsExtra,
			DeleteName: form.DeleteKey(name, entry.Index),
			Hidden:     PrimaryKeyFields(entry.Form.PrimaryKeys()),
		}
		for _, bf := range entry.Form.Fields() {
			ev.Fields = append(ev.Fields, newFieldView(bf, widgets))
		}
		iv.Entries = append(iv.Entries, ev)
	}
	return iv
}

// NewFieldView maps a bound field onto its widget using the built-in
// registry.
func NewFieldView(bf *form.BoundField) FieldView {
	return newFieldView(bf, defaultWidgets)
}

func newFieldView(bf *form.BoundField, widgets *WidgetRegistry) FieldView {
	fv := FieldView{
		Name:        bf.Name,
		ID:          bf.ID,
		Label:       bf.Label(),
		Value:       bf.Raw,
		Widget:      widgets.Resolve(bf.Spec),
		Required:    bf.Spec.Required(),
		Description: bf.Spec.Description,
		Errors:      append([]string(nil), bf.Errors...),
	}
	switch fv.Widget {
	case WidgetCheckbox:
		fv.Checked = bf.Checked()
	case WidgetSelect:
		for _, c := range bf.Spec.Choices() {
			fv.Choices = append(fv.Choices, Choice{Value: c, Selected: c == bf.Raw})
		}
	}
	return fv
}
