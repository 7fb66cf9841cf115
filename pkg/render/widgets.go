package render

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-crudform/pkg/form"
)

// WidgetMatcher decides whether a widget should render field.
type WidgetMatcher func(field form.Field) bool

type widgetRule struct {
	name     string
	priority int
	match    WidgetMatcher
	order    int
}

// WidgetRegistry picks the widget of a field. Higher priority wins; ties fall
// back to registration order. Fields nothing matches render as WidgetText.
type WidgetRegistry struct {
	mu    sync.RWMutex
	rules []widgetRule
}

// NewWidgetRegistry returns a registry holding the built-in kind matchers.
func NewWidgetRegistry() *WidgetRegistry {
	reg := &WidgetRegistry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher. Templates receive name as the field's widget, so
// a custom name needs a matching branch in a field template override.
func (r *WidgetRegistry) Register(name string, priority int, matcher WidgetMatcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, widgetRule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget of field.
func (r *WidgetRegistry) Resolve(field form.Field) string {
	if r == nil {
		return WidgetText
	}
	r.mu.RLock()
	rules := append([]widgetRule(nil), r.rules...)
	r.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, rule := range rules {
		if rule.match(field) {
			return rule.name
		}
	}
	return WidgetText
}

func kindIs(kinds ...form.Kind) WidgetMatcher {
	return func(field form.Field) bool {
		k := field.ResolvedKind()
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
}

func (r *WidgetRegistry) registerBuiltins() {
	r.Register(WidgetSelect, 90, func(field form.Field) bool {
		return field.ResolvedKind() == form.KindString && len(field.Choices()) > 0
	})
	r.Register(WidgetCheckbox, 80, kindIs(form.KindBoolean))
	r.Register(WidgetTextarea, 70, kindIs(form.KindText))
	r.Register(WidgetNumber, 60, kindIs(form.KindInteger, form.KindNumber))
	r.Register(WidgetDateTime, 50, kindIs(form.KindDateTime))
}

var defaultWidgets = NewWidgetRegistry()
