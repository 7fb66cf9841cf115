// Package crudform assembles an admin from a configuration file, a schema
// catalog and a store: one form type and one view per configured model,
// a shared renderer and metrics, and the routes serving them.
package crudform

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	theme "github.com/goliatone/go-theme"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-crudform/pkg/config"
	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/schema"
	"github.com/goliatone/go-crudform/pkg/store"
	"github.com/goliatone/go-crudform/pkg/views"
)

// Catalog describes models: keys, relationships and editable fields.
// *openapi.Catalog satisfies it.
type Catalog interface {
	schema.Metadata
	Fields(model string) ([]form.Field, error)
}

// Option configures an Admin.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	actions    map[string]views.Action
	displays   map[string]views.DisplayFunc
	guard      views.GuardFunc
	selector   theme.ThemeSelector
	renderer   views.Renderer
	widgets    *render.WidgetRegistry
}

// WithLogger sets the logger shared by every view.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the admin metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithActions makes bulk actions available. Models opt in by listing the
// action name under "actions" in the configuration.
func WithActions(actions ...views.Action) Option {
	return func(o *options) {
		if o.actions == nil {
			o.actions = make(map[string]views.Action)
		}
		for _, a := range actions {
			o.actions[a.Name] = a
		}
	}
}

// WithDisplay overrides how objects of model are named.
func WithDisplay(model string, fn views.DisplayFunc) Option {
	return func(o *options) {
		if o.displays == nil {
			o.displays = make(map[string]views.DisplayFunc)
		}
		o.displays[model] = fn
	}
}

// WithGuard installs an authorisation check on every view.
func WithGuard(guard views.GuardFunc) Option {
	return func(o *options) {
		o.guard = guard
	}
}

// WithThemeSelector resolves the configured theme through selector instead of
// the bundled manifest.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *options) {
		o.selector = selector
	}
}

// WithRenderer replaces the page renderer built from the configuration.
func WithRenderer(r views.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithWidgets picks edit form widgets of every view through reg.
func WithWidgets(reg *render.WidgetRegistry) Option {
	return func(o *options) {
		o.widgets = reg
	}
}

// Admin is the set of views of one configuration.
type Admin struct {
	cfg     *config.Config
	types   map[string]*form.Type
	views   []*views.View
	metrics *views.Metrics
	logger  *slog.Logger
}

// New builds the admin. Every configured model must be known to catalog, and
// every inline must resolve to exactly one relationship.
func New(cfg *config.Config, catalog Catalog, provider store.Provider, opts ...Option) (*Admin, error) {
	if cfg == nil {
		return nil, fmt.Errorf("crudform: configuration is nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("crudform: catalog is nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("crudform: store provider is nil")
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	renderer := o.renderer
	if renderer == nil {
		r, err := render.New(
			render.WithStaticURL(cfg.StaticURL()),
			render.WithTemplatesDir(cfg.TemplateDir),
			render.WithTheme(o.selector, cfg.Theme.Name, cfg.Theme.Variant),
		)
		if err != nil {
			return nil, fmt.Errorf("crudform: %s: %w", cfg.Source, err)
		}
		renderer = r
	}

	metrics, err := views.NewMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("crudform: register metrics: %w", err)
	}

	a := &Admin{cfg: cfg, types: make(map[string]*form.Type), metrics: metrics, logger: logger}
	for _, name := range cfg.ModelNames() {
		model := cfg.Models[name]
		typ, err := BuildType(catalog, name, model)
		if err != nil {
			return nil, fmt.Errorf("crudform: %s: %w", cfg.Source, err)
		}
		viewOpts := []views.Option{
			views.WithURLPath(model.URLPath),
			views.WithProvider(provider),
			views.WithMetadata(catalog),
			views.WithRenderer(renderer),
			views.WithLogger(logger),
			views.WithMetrics(metrics),
			views.WithMaxRows(cfg.MaxRows),
			views.WithListDisplay(model.ListDisplay...),
			views.WithHTMLColumns(model.HTMLColumns...),
			views.WithGuard(o.guard),
			views.WithWidgets(o.widgets),
		}
		if fn, ok := o.displays[name]; ok {
			viewOpts = append(viewOpts, views.WithDisplay(fn))
		}
		for _, actionName := range model.Actions {
			if actionName == views.ActionDelete {
				continue
			}
			action, ok := o.actions[actionName]
			if !ok {
				return nil, fmt.Errorf("crudform: %s model %q: unknown action %q", cfg.Source, name, actionName)
			}
			viewOpts = append(viewOpts, views.WithActions(action))
		}
		v, err := views.New(typ, viewOpts...)
		if err != nil {
			return nil, fmt.Errorf("crudform: %s: %w", cfg.Source, err)
		}
		a.types[name] = typ
		a.views = append(a.views, v)
	}
	return a, nil
}

// BuildType derives the form type of model from catalog and its
// configuration entry.
func BuildType(catalog Catalog, name string, model config.Model) (*form.Type, error) {
	fields, err := selectFields(catalog, name, model.Fields, model.Labels)
	if err != nil {
		return nil, err
	}
	typeOpts := []form.TypeOption{form.WithFields(fields...)}
	if model.Title != "" {
		typeOpts = append(typeOpts, form.WithTitle(model.Title))
	}
	if model.TitlePlural != "" {
		typeOpts = append(typeOpts, form.WithTitlePlural(model.TitlePlural))
	}
	if len(model.Fieldsets) > 0 {
		sets := make([]form.Fieldset, 0, len(model.Fieldsets))
		for _, fs := range model.Fieldsets {
			sets = append(sets, form.Fieldset{Title: fs.Title, Fields: fs.Fields})
		}
		typeOpts = append(typeOpts, form.WithFieldsets(sets...))
	}
	for _, inline := range model.Inlines {
		childFields, err := selectFields(catalog, inline.Model, inline.Fields, nil)
		if err != nil {
			return nil, fmt.Errorf("model %q inline: %w", name, err)
		}
		child, err := form.NewType(inline.Model, form.WithFields(childFields...))
		if err != nil {
			return nil, fmt.Errorf("model %q inline: %w", name, err)
		}
		inlineOpts := []form.InlineOption{form.WithExtra(inline.Extra)}
		if inline.Name != "" {
			inlineOpts = append(inlineOpts, form.WithInlineName(inline.Name))
		}
		if inline.Relationship != "" {
			inlineOpts = append(inlineOpts, form.WithRelationshipName(inline.Relationship))
		}
		typeOpts = append(typeOpts, form.WithInlines(form.NewInline(child, inlineOpts...)))
	}
	typ, err := form.NewType(name, typeOpts...)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	return typ, nil
}

// selectFields picks the named catalog fields in the given order; no names
// keeps every field.
func selectFields(catalog Catalog, model string, names []string, labels map[string]string) ([]form.Field, error) {
	all, err := catalog.Fields(model)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]form.Field, len(all))
	for _, f := range all {
		byName[f.Name] = f
	}
	selected := all
	if len(names) > 0 {
		selected = make([]form.Field, 0, len(names))
		for _, n := range names {
			f, ok := byName[n]
			if !ok {
				return nil, fmt.Errorf("model %q has no editable field %q", model, n)
			}
			selected = append(selected, f)
		}
	}
	out := make([]form.Field, len(selected))
	for i, f := range selected {
		if label, ok := labels[f.Name]; ok {
			f.Label = label
		}
		out[i] = f
	}
	return out, nil
}

// Config returns the configuration the admin was built from.
func (a *Admin) Config() *config.Config { return a.cfg }

// Metrics returns the collectors shared by every view.
func (a *Admin) Metrics() *views.Metrics { return a.metrics }

// Views returns the views ordered by model name.
func (a *Admin) Views() []*views.View {
	return append([]*views.View(nil), a.views...)
}

// View returns the view of model.
func (a *Admin) View(model string) (*views.View, bool) {
	for _, v := range a.views {
		if v.Model() == model {
			return v, true
		}
	}
	return nil, false
}

// Type returns the form type built for model.
func (a *Admin) Type(model string) (*form.Type, bool) {
	typ, ok := a.types[model]
	return typ, ok
}

// Models lists the configured models.
func (a *Admin) Models() []string {
	out := make([]string, 0, len(a.types))
	for name := range a.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RegisterRoutes registers every view and, unless disabled, the bundled
// static assets on mux.
func (a *Admin) RegisterRoutes(mux views.Mux) ([]string, error) {
	if mux == nil {
		return nil, fmt.Errorf("crudform: missing mux")
	}
	var patterns []string
	for _, v := range a.views {
		p, err := v.RegisterRoutes(mux)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p...)
	}
	if prefix := a.cfg.StaticURL(); prefix != "" {
		pattern := prefix + "/"
		mux.Handle(pattern, StaticHandler(prefix))
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

// Handler returns a ServeMux with every route registered.
func (a *Admin) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	if _, err := a.RegisterRoutes(mux); err != nil {
		return nil, err
	}
	return mux, nil
}

// StaticHandler serves the bundled assets under prefix.
func StaticHandler(prefix string) http.Handler {
	return http.StripPrefix(prefix+"/", http.FileServer(http.FS(render.StaticFS())))
}
