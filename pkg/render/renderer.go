// Package render turns admin view models into HTML pages through a template
// engine, a go-theme selection and the bundled templates.
package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-crudform/pkg/form"
	rendertemplate "github.com/goliatone/go-crudform/pkg/render/template"
	"github.com/goliatone/go-crudform/pkg/render/template/gotemplate"
)

// Option configures a Renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateDir      string
	templateRenderer rendertemplate.TemplateRenderer
	staticURL        string
	selector         theme.ThemeSelector
	themeName        string
	themeVariant     string
}

// WithTemplatesFS replaces the bundled templates.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir overlays a directory on the bundled templates. Files found
// there win over bundled ones with the same name.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templateDir = strings.TrimSpace(path)
	}
}

// WithTemplateRenderer injects a custom template engine.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithStaticURL sets the prefix bundled assets are served under. An empty
// prefix drops the asset links from pages.
func WithStaticURL(prefix string) Option {
	return func(cfg *config) {
		cfg.staticURL = strings.TrimRight(strings.TrimSpace(prefix), "/")
	}
}

// WithTheme selects the theme pages render with. A nil selector keeps the
// bundled manifest and only picks the variant.
func WithTheme(selector theme.ThemeSelector, name, variant string) Option {
	return func(cfg *config) {
		cfg.selector = selector
		cfg.themeName = name
		cfg.themeVariant = variant
	}
}

// Renderer renders the list, edit and delete confirmation pages.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
	theme     *theme.RendererConfig
}

// New builds a Renderer. The theme is resolved once, up front, and handed to
// templates as the theme and static_url globals together with the humanize
// filter.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	engine := cfg.templateRenderer
	if engine == nil {
		opts := []gotemplate.Option{
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".html"),
		}
		if cfg.templateDir != "" {
			opts = append(opts, gotemplate.WithBaseDir(cfg.templateDir))
		}
		e, err := gotemplate.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("render: configure template renderer: %w", err)
		}
		engine = e
	}

	selector := cfg.selector
	if selector == nil {
		s, err := NewManifestSelector(DefaultThemeName, "", DefaultManifest(cfg.staticURL))
		if err != nil {
			return nil, err
		}
		selector = s
	}
	themeCfg, err := ResolveTheme(selector, cfg.themeName, cfg.themeVariant)
	if err != nil {
		return nil, fmt.Errorf("render: resolve theme: %w", err)
	}

	err = engine.GlobalContext(map[string]any{
		"theme":      newThemeView(themeCfg),
		"static_url": cfg.staticURL,
	})
	if err != nil {
		return nil, fmt.Errorf("render: template globals: %w", err)
	}
	err = engine.RegisterFilter("humanize", func(input any, _ any) (any, error) {
		return form.Humanize(fmt.Sprint(input)), nil
	})
	if err != nil && !errors.Is(err, rendertemplate.ErrFilterExists) {
		return nil, fmt.Errorf("render: register humanize filter: %w", err)
	}

	return &Renderer{templates: engine, theme: themeCfg}, nil
}

// ContentType of every rendered page.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Theme returns the resolved theme configuration.
func (r *Renderer) Theme() *theme.RendererConfig { return r.theme }

// List renders a ListPage.
func (r *Renderer) List(ctx context.Context, page ListPage) ([]byte, error) {
	return r.render(ctx, PartialList, page)
}

// Edit renders an EditPage.
func (r *Renderer) Edit(ctx context.Context, page EditPage) ([]byte, error) {
	return r.render(ctx, PartialEdit, page)
}

// DeleteConfirm renders a DeletePage.
func (r *Renderer) DeleteConfirm(ctx context.Context, page DeletePage) ([]byte, error) {
	return r.render(ctx, PartialDeleteConfirm, page)
}

func (r *Renderer) render(ctx context.Context, partial string, data any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.templates == nil {
		return nil, fmt.Errorf("render: template renderer is nil")
	}
	name := defaultPartials()[partial]
	if r.theme != nil && r.theme.Partials[partial] != "" {
		name = r.theme.Partials[partial]
	}
	out, err := r.templates.RenderTemplate(name, data)
	if err != nil {
		return nil, fmt.Errorf("render: %s: %w", partial, err)
	}
	return []byte(out), nil
}
