package render

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func htmlPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
	})
	return policy
}

// SanitizeHTML strips markup that is unsafe to render inside list cells.
func SanitizeHTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(htmlPolicy().Sanitize(trimmed))
}

// HTMLCell builds a cell that renders raw as markup after sanitising it.
func HTMLCell(raw, cssClass string) Cell {
	return Cell{Value: SanitizeHTML(raw), CSSClass: cssClass, HTML: true}
}
