package gotemplate_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-crudform/pkg/render/template"
	"github.com/goliatone/go-crudform/pkg/render/template/gotemplate"
)

func bundle() fstest.MapFS {
	return fstest.MapFS{
		"hello.html":           {Data: []byte(`Hello {{ name }}!`)},
		"escape.html":          {Data: []byte(`{{ v }}|{{ v|safe }}`)},
		"rows.html":            {Data: []byte(`{% for r in rows %}{{ r.display_name }};{% endfor %}`)},
		"page.html":            {Data: []byte(`[{% include "part.html" with who=name %}]`)},
		"part.html":            {Data: []byte(`bundled {{ who }}`)},
		"use-global.html":      {Data: []byte(`env={{ settings.env }} name={{ name }}`)},
		"use-filter.html":      {Data: []byte(`{{ name|shout_gotemplate_test }}`)},
		"admin/base.html":      {Data: []byte(`<{% block body %}{% endblock %}>`)},
		"admin/list.html":      {Data: []byte(`{% extends "admin/base.html" %}{% block body %}{% include "admin/row.html" %}{% endblock %}`)},
		"admin/row.html":       {Data: []byte(`row {{ n }}`)},
		"admin/deep/form.html": {Data: []byte(`{% include "admin/row.html" %}`)},
	}
}

func newEngine(t *testing.T, opts ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()
	engine, err := gotemplate.New(append([]gotemplate.Option{gotemplate.WithFS(bundle())}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngineRenderTemplate(t *testing.T) {
	result, err := newEngine(t).RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "Hello Ada!" {
		t.Fatalf("result %q", result)
	}
}

func TestEngineResolvesNamesFromRoot(t *testing.T) {
	engine := newEngine(t)
	for name, want := range map[string]string{
		"admin/list":      "<row 7>",
		"admin/deep/form": "row 7",
	} {
		result, err := engine.RenderTemplate(name, map[string]any{"n": "7"})
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		if result != want {
			t.Fatalf("%s: result %q, want %q", name, result, want)
		}
	}
}

func TestEngineEscapesByDefault(t *testing.T) {
	result, err := newEngine(t).RenderTemplate("escape", map[string]any{"v": "<b>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "&lt;b&gt;|<b>" {
		t.Fatalf("result %q", result)
	}
}

func TestEngineConvertsStructsThroughJSON(t *testing.T) {
	type row struct {
		DisplayName string `json:"display_name"`
	}
	result, err := newEngine(t).RenderTemplate("rows", struct {
		Rows []row `json:"rows"`
	}{Rows: []row{{"a"}, {"b"}}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "a;b;" {
		t.Fatalf("result %q", result)
	}
}

func TestEngineGlobalContext(t *testing.T) {
	engine := newEngine(t)
	type settings struct {
		Env string `json:"env"`
	}
	if err := engine.GlobalContext(map[string]any{"settings": settings{Env: "staging"}, "name": "global"}); err != nil {
		t.Fatalf("global context: %v", err)
	}
	result, err := engine.RenderTemplate("use-global", map[string]any{"name": "local"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "env=staging name=local" {
		t.Fatalf("result %q", result)
	}
}

func TestEngineRegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout_gotemplate_test", func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	err = engine.RegisterFilter("shout_gotemplate_test", func(input any, _ any) (any, error) { return input, nil })
	if !errors.Is(err, template.ErrFilterExists) {
		t.Fatalf("expected ErrFilterExists, got %v", err)
	}

	result, err := engine.RenderTemplate("use-filter", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "ADA!" {
		t.Fatalf("result %q", result)
	}
}

func TestEngineBaseDirOverridesBundle(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "part.html"), []byte(`local {{ who }}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	result, err := newEngine(t, gotemplate.WithBaseDir(dir)).RenderTemplate("page", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "[local Ada]" {
		t.Fatalf("result %q", result)
	}
}

func TestEngineRequiresTemplates(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without templates")
	}
}
