// Package metrics counts what the session does: engine runs by outcome,
// rule inclusions, config loads. The registry is private to the process;
// it can be served over HTTP for scraping or rendered inline for the
// shell's status display.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the session's instrument set on a dedicated registry so
// the default registry's process collectors do not drown out four
// session counters.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	RulesIncluded prometheus.Counter
	ConfigLoads   prometheus.Counter
	RuleCount     prometheus.Gauge
}

// New creates and registers the session instruments.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wfsh_runs_total",
			Help: "Engine invocations by outcome.",
		}, []string{"outcome"}),
		RulesIncluded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wfsh_rules_included_total",
			Help: "Rule blocks included into the session.",
		}),
		ConfigLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wfsh_config_loads_total",
			Help: "Configuration blocks merged into the session.",
		}),
		RuleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wfsh_rule_count",
			Help: "Rules currently defined in the session.",
		}),
	}
	m.registry.MustRegister(m.RunsTotal, m.RulesIncluded, m.ConfigLoads, m.RuleCount)
	return m
}

// ObserveRun records one engine invocation outcome.
func (m *Metrics) ObserveRun(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry for HTTP serving.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Render returns the registry in the Prometheus text exposition format,
// for inline display when no HTTP listener is running.
func (m *Metrics) Render() (string, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, fam := range families {
		if err := enc.Encode(fam); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
