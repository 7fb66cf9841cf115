package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Keys looked up in a theme's templates and assets.
const (
	PartialList          = "crud.list"
	PartialEdit          = "crud.edit"
	PartialDeleteConfirm = "crud.delete_confirm"

	AssetStylesheet = "crud.stylesheet"
	AssetListScript = "crud.list_script"

	// DefaultThemeName is the manifest registered when no theme is configured.
	DefaultThemeName = "crud"
)

var (
	ErrUnknownTheme   = errors.New("render: unknown theme")
	ErrUnknownVariant = errors.New("render: unknown theme variant")
)

func defaultPartials() map[string]string {
	return map[string]string{
		PartialList:          "crud/list",
		PartialEdit:          "crud/edit",
		PartialDeleteConfirm: "crud/delete_confirm",
	}
}

// CSSVar is one custom property derived from a theme token.
type CSSVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ThemeView is the slice of the theme templates see.
type ThemeView struct {
	Name       string   `json:"name"`
	Variant    string   `json:"variant"`
	CSSVars    []CSSVar `json:"css_vars"`
	Stylesheet string   `json:"stylesheet"`
	ListScript string   `json:"list_script"`
}

// DefaultManifest describes the bundled look. Assets resolve below
// staticURL; an empty prefix leaves them unresolved.
func DefaultManifest(staticURL string) *theme.Manifest {
	m := &theme.Manifest{
		Name:    DefaultThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			"brand": "#2c5aa0",
			"text":  "#222222",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"brand": "#8fb4ff",
					"text":  "#eeeeee",
				},
			},
		},
	}
	if staticURL != "" {
		m.Assets = theme.Assets{
			Prefix: staticURL,
			Files: map[string]string{
				AssetStylesheet: StylesheetName,
				AssetListScript: ListScriptName,
			},
		}
	}
	return m
}

// ManifestSelector is a theme.ThemeSelector over a fixed set of manifests.
type ManifestSelector struct {
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)

// NewManifestSelector indexes manifests by name. defaultTheme is used when a
// selection names no theme and must be among manifests.
func NewManifestSelector(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) (*ManifestSelector, error) {
	s := &ManifestSelector{
		manifests:      make(map[string]*theme.Manifest, len(manifests)),
		defaultTheme:   strings.TrimSpace(defaultTheme),
		defaultVariant: strings.TrimSpace(defaultVariant),
	}
	for _, m := range manifests {
		if m == nil || strings.TrimSpace(m.Name) == "" {
			return nil, errors.New("render: theme manifest requires a name")
		}
		if _, dup := s.manifests[m.Name]; dup {
			return nil, fmt.Errorf("render: theme %q registered twice", m.Name)
		}
		s.manifests[m.Name] = m
	}
	if _, ok := s.manifests[s.defaultTheme]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, s.defaultTheme)
	}
	return s, nil
}

// Select implements theme.ThemeSelector.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	name = strings.TrimSpace(name)
	variant = strings.TrimSpace(variant)
	if name == "" {
		name = s.defaultTheme
		if variant == "" {
			variant = s.defaultVariant
		}
	}
	m, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	if variant != "" {
		if _, ok := m.Variants[variant]; !ok {
			return nil, fmt.Errorf("%w: %q has no variant %q", ErrUnknownVariant, name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: m}, nil
}

// ResolveTheme asks selector for name/variant and merges the variant's
// tokens, templates and assets over the manifest's.
func ResolveTheme(selector theme.ThemeSelector, name, variant string) (*theme.RendererConfig, error) {
	if selector == nil {
		return nil, errors.New("render: theme selector is nil")
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return nil, err
	}
	if selection == nil || selection.Manifest == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	return rendererConfig(selection), nil
}

func rendererConfig(selection *theme.Selection) *theme.RendererConfig {
	m := selection.Manifest
	tokens := mergeStrings(nil, m.Tokens)
	partials := mergeStrings(defaultPartials(), m.Templates)
	files := mergeStrings(nil, m.Assets.Files)
	prefix := m.Assets.Prefix

	if v, ok := m.Variants[selection.Variant]; ok {
		tokens = mergeStrings(tokens, v.Tokens)
		partials = mergeStrings(partials, v.Templates)
		files = mergeStrings(files, v.Assets.Files)
		if v.Assets.Prefix != "" {
			prefix = v.Assets.Prefix
		}
	}

	cssVars := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cssVars["--"+k] = v
	}

	return &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: partials,
		Tokens:   tokens,
		CSSVars:  cssVars,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok || file == "" {
				return ""
			}
			if prefix == "" || strings.Contains(file, "://") {
				return file
			}
			return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
		},
	}
}

func mergeStrings(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

func newThemeView(cfg *theme.RendererConfig) ThemeView {
	if cfg == nil {
		return ThemeView{}
	}
	view := ThemeView{Name: cfg.Theme, Variant: cfg.Variant}
	names := make([]string, 0, len(cfg.CSSVars))
	for name := range cfg.CSSVars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		view.CSSVars = append(view.CSSVars, CSSVar{Name: name, Value: cfg.CSSVars[name]})
	}
	if cfg.AssetURL != nil {
		view.Stylesheet = cfg.AssetURL(AssetStylesheet)
		view.ListScript = cfg.AssetURL(AssetListScript)
	}
	return view
}
