// Package views serves the list, new and edit pages of one model over
// net/http. Every request runs in its own store transaction: handlers commit
// on success and roll back on every error path.
package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/schema"
	"github.com/goliatone/go-crudform/pkg/store"
)

// Route names are "{model}.{suffix}".
const (
	RouteList = "list"
	RouteNew  = "new"
	RouteEdit = "edit"
)

// Renderer produces the pages a View serves. *render.Renderer satisfies it.
type Renderer interface {
	ContentType() string
	List(ctx context.Context, page render.ListPage) ([]byte, error)
	Edit(ctx context.Context, page render.EditPage) ([]byte, error)
	DeleteConfirm(ctx context.Context, page render.DeletePage) ([]byte, error)
}

// GuardFunc authorises a request before any work is done. A returned
// HTTPError picks the status; anything else is a 403.
type GuardFunc func(r *http.Request) error

// DisplayFunc renders an object in list rows and confirmation pages.
type DisplayFunc func(obj store.Object) string

// Option configures a View.
type Option func(*config)

type config struct {
	urlPath     string
	provider    store.Provider
	meta        schema.Metadata
	renderer    Renderer
	logger      *slog.Logger
	metrics     *Metrics
	maxRows     int
	listDisplay []string
	htmlColumns []string
	display     DisplayFunc
	actions     []Action
	guard       GuardFunc
	widgets     *render.WidgetRegistry
}

// WithURLPath mounts the view under path, e.g. "/polls".
func WithURLPath(path string) Option {
	return func(cfg *config) {
		cfg.urlPath = path
	}
}

// WithProvider sets where request transactions come from.
func WithProvider(p store.Provider) Option {
	return func(cfg *config) {
		cfg.provider = p
	}
}

// WithMetadata sets the schema used for keys and relationships.
func WithMetadata(md schema.Metadata) Option {
	return func(cfg *config) {
		cfg.meta = md
	}
}

// WithRenderer sets the page renderer.
func WithRenderer(r Renderer) Option {
	return func(cfg *config) {
		cfg.renderer = r
	}
}

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithMetrics records requests on m.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
	}
}

// WithMaxRows caps the inline rows a submission may address.
func WithMaxRows(n int) Option {
	return func(cfg *config) {
		cfg.maxRows = n
	}
}

// WithWidgets picks edit form widgets through reg.
func WithWidgets(reg *render.WidgetRegistry) Option {
	return func(cfg *config) {
		cfg.widgets = reg
	}
}

// WithListDisplay selects the list columns by attribute name.
func WithListDisplay(columns ...string) Option {
	return func(cfg *config) {
		cfg.listDisplay = append([]string(nil), columns...)
	}
}

// WithHTMLColumns marks list columns whose values are HTML. They are
// sanitised before rendering.
func WithHTMLColumns(columns ...string) Option {
	return func(cfg *config) {
		cfg.htmlColumns = append([]string(nil), columns...)
	}
}

// WithDisplay overrides how objects are named.
func WithDisplay(fn DisplayFunc) Option {
	return func(cfg *config) {
		cfg.display = fn
	}
}

// WithActions appends bulk actions after the built-in delete.
func WithActions(actions ...Action) Option {
	return func(cfg *config) {
		cfg.actions = append(cfg.actions, actions...)
	}
}

// WithGuard installs an authorisation check run on every request.
func WithGuard(guard GuardFunc) Option {
	return func(cfg *config) {
		cfg.guard = guard
	}
}

// View serves one model. It is safe for concurrent use; all per-request
// state lives in the request's transaction and form.
type View struct {
	typ         *form.Type
	urlPath     string
	provider    store.Provider
	meta        schema.Metadata
	renderer    Renderer
	logger      *slog.Logger
	metrics     *Metrics
	maxRows     int
	pkAttrs     []string
	listDisplay []string
	htmlColumns map[string]bool
	display     DisplayFunc
	actions     []Action
	guard       GuardFunc
	widgets     *render.WidgetRegistry
}

// New builds the view of typ. Inline relationships are resolved up front so
// configuration mistakes surface here rather than on the first request.
func New(typ *form.Type, opts ...Option) (*View, error) {
	if typ == nil {
		return nil, fmt.Errorf("views: form type is nil")
	}
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	switch {
	case cfg.provider == nil:
		return nil, fmt.Errorf("views: %s: missing store provider", typ.Model())
	case cfg.meta == nil:
		return nil, fmt.Errorf("views: %s: missing schema metadata", typ.Model())
	case cfg.renderer == nil:
		return nil, fmt.Errorf("views: %s: missing renderer", typ.Model())
	}

	urlPath := normalisePath(cfg.urlPath)
	if urlPath == "/" {
		return nil, fmt.Errorf("views: %s: url path is required", typ.Model())
	}
	pkAttrs, err := cfg.meta.PrimaryKeys(typ.Model())
	if err != nil {
		return nil, fmt.Errorf("views: %s: %w", typ.Model(), err)
	}
	for _, inline := range typ.Inlines() {
		if _, err := form.ResolveRelationship(cfg.meta, typ.Model(), inline); err != nil {
			return nil, fmt.Errorf("views: %s: %w", typ.Model(), err)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	v := &View{
		typ:         typ,
		urlPath:     urlPath,
		provider:    cfg.provider,
		meta:        cfg.meta,
		renderer:    cfg.renderer,
		logger:      logger.With("model", typ.Model()),
		metrics:     cfg.metrics,
		maxRows:     cfg.maxRows,
		pkAttrs:     pkAttrs,
		listDisplay: cfg.listDisplay,
		htmlColumns: make(map[string]bool, len(cfg.htmlColumns)),
		display:     cfg.display,
		guard:       cfg.guard,
		widgets:     cfg.widgets,
	}
	for _, name := range cfg.htmlColumns {
		v.htmlColumns[name] = true
	}
	if v.display == nil {
		v.display = v.defaultDisplay
	}
	actions, err := buildActions(v, cfg.actions)
	if err != nil {
		return nil, err
	}
	v.actions = actions
	return v, nil
}

// Type returns the form type served.
func (v *View) Type() *form.Type { return v.typ }

// Model returns the served model name.
func (v *View) Model() string { return v.typ.Model() }

// URLPath returns the list URL.
func (v *View) URLPath() string { return v.urlPath }

// ListURL returns the URL of the list page.
func (v *View) ListURL() string { return v.urlPath }

// NewURL returns the URL of the creation page.
func (v *View) NewURL() string { return v.urlPath + "/new" }

// EditURL returns the URL of the edit page of pk.
func (v *View) EditURL(pk store.PK) string {
	return v.urlPath + "/" + pk.String() + "/edit"
}

// RouteName returns the name of one of the view's routes.
func (v *View) RouteName(suffix string) string {
	return v.typ.Model() + "." + suffix
}

// Route is a named handler pattern.
type Route struct {
	Name    string
	Pattern string
	Handler http.Handler
}

// Routes lists the view's routes with net/http ServeMux patterns.
func (v *View) Routes() []Route {
	return []Route{
		{Name: v.RouteName(RouteList), Pattern: v.urlPath, Handler: http.HandlerFunc(v.ServeList)},
		{Name: v.RouteName(RouteNew), Pattern: v.NewURL(), Handler: http.HandlerFunc(v.ServeNew)},
		{Name: v.RouteName(RouteEdit), Pattern: v.urlPath + "/{pks}/edit", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v.ServeEdit(w, r, r.PathValue("pks"))
		})},
	}
}

// Mux is the minimal interface required to register a net/http handler.
// It is satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterRoutes registers every route on mux and returns the patterns.
func (v *View) RegisterRoutes(mux Mux) ([]string, error) {
	if mux == nil {
		return nil, fmt.Errorf("views: missing mux")
	}
	routes := v.Routes()
	patterns := make([]string, 0, len(routes))
	for _, route := range routes {
		mux.Handle(route.Pattern, route.Handler)
		patterns = append(patterns, route.Pattern)
	}
	return patterns, nil
}

func normalisePath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// defaultDisplay uses the first declared string field, then "Title pk".
func (v *View) defaultDisplay(obj store.Object) string {
	for _, field := range v.typ.Fields() {
		if field.ResolvedKind() != form.KindString {
			continue
		}
		if raw, ok := obj.Attr(field.Name); ok {
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if pk, ok := store.PKOf(obj, v.pkAttrs); ok {
		return v.typ.Title() + " " + pk.String()
	}
	return v.typ.Title()
}

// allow runs the guard. It writes the denial and reports false when the
// request must stop.
func (v *View) allow(w http.ResponseWriter, r *http.Request, view string) bool {
	if v.guard == nil {
		return true
	}
	err := v.guard(r)
	if err == nil {
		return true
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode() > 0 {
		code = httpErr.StatusCode()
	}
	v.logger.Info("request denied", "view", view, "remote", r.RemoteAddr, "error", err)
	v.metrics.request(v.Model(), view, outcomeFor(code))
	http.Error(w, http.StatusText(code), code)
	return false
}

// fail rolls back tx, logs err and writes its status.
func (v *View) fail(w http.ResponseWriter, r *http.Request, view string, tx store.Tx, err error) {
	if tx != nil {
		_ = tx.Rollback(r.Context())
	}
	code, outcome := statusOf(err)
	if code >= http.StatusInternalServerError {
		v.logger.Error("request failed", "view", view, "path", r.URL.Path, "error", err)
	} else {
		v.logger.Info("request rejected", "view", view, "path", r.URL.Path, "status", code, "error", err)
	}
	v.metrics.request(v.Model(), view, outcome)
	http.Error(w, http.StatusText(code), code)
}

func (v *View) write(w http.ResponseWriter, r *http.Request, view, outcome string, body []byte) {
	w.Header().Set("Content-Type", v.renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	v.metrics.request(v.Model(), view, outcome)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func (v *View) redirect(w http.ResponseWriter, r *http.Request, view, target string, fl *flashes) {
	fl.keep(w)
	v.metrics.request(v.Model(), view, OutcomeRedirected)
	http.Redirect(w, r, target, http.StatusFound)
}

// page fills the fields every page shares, draining the flash queue.
func (v *View) page(w http.ResponseWriter, r *http.Request, title string, fl *flashes) render.Page {
	return render.Page{
		Title:   title,
		ListURL: v.ListURL(),
		NewURL:  v.NewURL(),
		Flash:   fl.drain(w, r),
		CSRF:    render.CSRFToken(csrfToken(w, r)),
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodHead, http.MethodPost}, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
