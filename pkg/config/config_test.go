package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

const yamlConfig = `
template_dir: ./templates
theme:
  name: crud
  variant: dark
models:
  Poll:
    url_path: /polls/
    title_plural: Polls
    list_display: [question, published]
    inlines:
      - model: Choice
        extra: 3
  Choice:
    url_path: /choices
`

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(yamlConfig), "admin.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.StaticURL() != DefaultStaticURLPrefix {
		t.Fatalf("static url = %q", cfg.StaticURL())
	}
	if diff := cmp.Diff([]string{"Choice", "Poll"}, cfg.ModelNames()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
	poll := cfg.Models["Poll"]
	want := Model{
		URLPath:     "/polls",
		TitlePlural: "Polls",
		ListDisplay: []string{"question", "published"},
		Inlines:     []Inline{{Model: "Choice", Extra: 3}},
	}
	if diff := cmp.Diff(want, poll); diff != "" {
		t.Fatalf("poll mismatch (-want +got):\n%s", diff)
	}
	if cfg.Theme != (Theme{Name: "crud", Variant: "dark"}) {
		t.Fatalf("theme = %+v", cfg.Theme)
	}
}

func TestParseJSONAndDisabledStatic(t *testing.T) {
	raw := `{"static_url_prefix": "None", "models": {"Poll": {"url_path": "/polls"}}}`
	cfg, err := Parse([]byte(raw), "admin.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.StaticURL() != "" {
		t.Fatalf("static serving should be disabled, got %q", cfg.StaticURL())
	}
}

func TestParseErrorsNameFileAndModel(t *testing.T) {
	cases := map[string]string{
		"empty":          "   ",
		"no models":      `{"models": {}}`,
		"relative url":   `{"models": {"Poll": {"url_path": "polls"}}}`,
		"duplicate url":  `{"models": {"A": {"url_path": "/x"}, "B": {"url_path": "/x/"}}}`,
		"inline model":   `{"models": {"Poll": {"url_path": "/p", "inlines": [{"extra": 1}]}}}`,
		"negative extra": `{"models": {"Poll": {"url_path": "/p", "inlines": [{"model": "C", "extra": -1}]}}}`,
		"bad static":     `{"static_url_prefix": "static", "models": {"Poll": {"url_path": "/p"}}}`,
		"garbage":        "models: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw), "admin.yaml")
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), "admin.yaml") {
				t.Fatalf("error does not name the file: %v", err)
			}
		})
	}
}

func TestLoadFromDiskAndFS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.yaml")
	if err := os.WriteFile(path, []byte(yamlConfig), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("source = %q", cfg.Source)
	}

	fsCfg, err := LoadFS(fstest.MapFS{"admin.yaml": {Data: []byte(yamlConfig)}}, "admin.yaml")
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	if fsCfg.Models["Poll"].URLPath != "/polls" {
		t.Fatalf("url path = %q", fsCfg.Models["Poll"].URLPath)
	}
}
