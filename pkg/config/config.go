// Package config reads the admin configuration file. Files may be JSON or
// YAML; JSON is tried first.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultStaticURLPrefix is where bundled assets are served.
	DefaultStaticURLPrefix = "/static/crud"
	// StaticDisabled as static_url_prefix turns asset serving off.
	StaticDisabled = "None"
)

// Config is the whole admin configuration.
type Config struct {
	StaticURLPrefix string           `json:"static_url_prefix" yaml:"static_url_prefix"`
	TemplateDir     string           `json:"template_dir" yaml:"template_dir"`
	Theme           Theme            `json:"theme" yaml:"theme"`
	MaxRows         int              `json:"max_rows" yaml:"max_rows"`
	Models          map[string]Model `json:"models" yaml:"models"`

	// Source is the file the configuration was read from.
	Source string `json:"-" yaml:"-"`
}

// Theme picks a go-theme manifest and variant.
type Theme struct {
	Name    string `json:"name" yaml:"name"`
	Variant string `json:"variant" yaml:"variant"`
}

// Model configures the admin of one model.
type Model struct {
	URLPath     string            `json:"url_path" yaml:"url_path"`
	Title       string            `json:"title" yaml:"title"`
	TitlePlural string            `json:"title_plural" yaml:"title_plural"`
	Fields      []string          `json:"fields" yaml:"fields"`
	Labels      map[string]string `json:"labels" yaml:"labels"`
	ListDisplay []string          `json:"list_display" yaml:"list_display"`
	HTMLColumns []string          `json:"html_columns" yaml:"html_columns"`
	Fieldsets   []Fieldset        `json:"fieldsets" yaml:"fieldsets"`
	Inlines     []Inline          `json:"inlines" yaml:"inlines"`
	Actions     []string          `json:"actions" yaml:"actions"`
}

// Fieldset groups fields on the edit page.
type Fieldset struct {
	Title  string   `json:"title" yaml:"title"`
	Fields []string `json:"fields" yaml:"fields"`
}

// Inline embeds child rows in the edit page of a model.
type Inline struct {
	Model        string   `json:"model" yaml:"model"`
	Name         string   `json:"name" yaml:"name"`
	Extra        int      `json:"extra" yaml:"extra"`
	Relationship string   `json:"relationship" yaml:"relationship"`
	Fields       []string `json:"fields" yaml:"fields"`
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadFS reads and validates name from fsys.
func LoadFS(fsys fs.FS, name string) (*Config, error) {
	if fsys == nil {
		return nil, errors.New("config: filesystem is nil")
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", name, err)
	}
	return Parse(data, name)
}

// Parse decodes data and validates it. source only appears in errors.
func Parse(data []byte, source string) (*Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("config: file %s is empty", source)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		cfg = Config{}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: invalid JSON or YAML: %w", source, err)
		}
	}
	cfg.Source = source
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StaticURL returns the asset prefix, or "" when serving is disabled.
func (c *Config) StaticURL() string {
	if c.StaticURLPrefix == StaticDisabled {
		return ""
	}
	return c.StaticURLPrefix
}

// ModelNames lists configured models alphabetically.
func (c *Config) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) normalise() error {
	c.StaticURLPrefix = strings.TrimSpace(c.StaticURLPrefix)
	switch c.StaticURLPrefix {
	case "":
		c.StaticURLPrefix = DefaultStaticURLPrefix
	case StaticDisabled:
	default:
		if !strings.HasPrefix(c.StaticURLPrefix, "/") {
			return fmt.Errorf("config: file %s: static_url_prefix %q must start with /", c.Source, c.StaticURLPrefix)
		}
		c.StaticURLPrefix = strings.TrimRight(c.StaticURLPrefix, "/")
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("config: file %s: max_rows must not be negative", c.Source)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("config: file %s declares no models", c.Source)
	}

	paths := make(map[string]string, len(c.Models))
	for _, name := range c.ModelNames() {
		m := c.Models[name]
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("config: file %s declares a model with an empty name", c.Source)
		}
		m.URLPath = strings.TrimRight(strings.TrimSpace(m.URLPath), "/")
		if m.URLPath == "" || !strings.HasPrefix(m.URLPath, "/") {
			return fmt.Errorf("config: file %s model %q: url_path must start with / and not be the root", c.Source, name)
		}
		if other, dup := paths[m.URLPath]; dup {
			return fmt.Errorf("config: file %s model %q: url_path %q already used by %q", c.Source, name, m.URLPath, other)
		}
		paths[m.URLPath] = name

		for i, inline := range m.Inlines {
			inline.Model = strings.TrimSpace(inline.Model)
			if inline.Model == "" {
				return fmt.Errorf("config: file %s model %q: inline %d names no model", c.Source, name, i)
			}
			if inline.Extra < 0 {
				return fmt.Errorf("config: file %s model %q: inline %q extra must not be negative", c.Source, name, inline.Model)
			}
			m.Inlines[i] = inline
		}
		for i, fs := range m.Fieldsets {
			if len(fs.Fields) == 0 {
				return fmt.Errorf("config: file %s model %q: fieldset %d lists no fields", c.Source, name, i)
			}
		}
		c.Models[name] = m
	}
	return nil
}
