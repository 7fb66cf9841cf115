package views

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-crudform/pkg/form"
)

const metricsNamespace = "crudform"

// Request outcomes recorded by RequestsTotal.
const (
	OutcomeRendered   = "rendered"
	OutcomeRedirected = "redirected"
	OutcomeInvalid    = "invalid"
	OutcomeNotFound   = "not_found"
	OutcomeConflict   = "conflict"
	OutcomeBadRequest = "bad_request"
	OutcomeForbidden  = "forbidden"
	OutcomeError      = "error"
)

// Metrics counts admin requests and the inline rows they reconcile. One
// instance is shared by every view of an admin.
type Metrics struct {
	// RequestsTotal labels: model, view (list, new, edit), outcome.
	RequestsTotal *prometheus.CounterVec
	// InlineRowsTotal labels: model, inline, state (existing, extra, deleted).
	InlineRowsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Admin requests by model, view and outcome.",
			},
			[]string{"model", "view", "outcome"},
		),
		InlineRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "inline_rows_total",
				Help:      "Inline rows reconciled by model, inline and state.",
			},
			[]string{"model", "inline", "state"},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.RequestsTotal, m.InlineRowsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) request(model, view, outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(model, view, outcome).Inc()
}

func (m *Metrics) inlines(model string, sets []*form.InlineSet) {
	if m == nil {
		return
	}
	for _, set := range sets {
		name := set.Inline.Name()
		existing := set.Existing()
		m.InlineRowsTotal.WithLabelValues(model, name, "existing").Add(float64(existing))
		m.InlineRowsTotal.WithLabelValues(model, name, "extra").Add(float64(set.Count() - existing))
		m.InlineRowsTotal.WithLabelValues(model, name, "deleted").Add(float64(set.Deleted))
	}
}
