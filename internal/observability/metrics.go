package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/klyr/redirector/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	requestsTotal         *prometheus.CounterVec
	ruleMatchesTotal      *prometheus.CounterVec
	templateFailuresTotal *prometheus.CounterVec
	configReloadsTotal    *prometheus.CounterVec
	rulesLoaded           prometheus.Gauge
	requestDuration       *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "redirector_requests_total", Help: "Total requests"},
			[]string{"slot", "source", "code"},
		),
		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "redirector_rule_matches_total", Help: "Total requests resolved to a rule"},
			[]string{"pattern"},
		),
		templateFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "redirector_template_load_failures_total", Help: "Total custom template load failures"},
			[]string{"slot"},
		),
		configReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "redirector_config_reloads_total", Help: "Total configuration reload attempts"},
			[]string{"result"},
		),
		rulesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "redirector_rules_loaded", Help: "Number of rewrite rules in the active configuration"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redirector_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"slot"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.requestsTotal,
		m.ruleMatchesTotal,
		m.templateFailuresTotal,
		m.configReloadsTotal,
		m.rulesLoaded,
		m.requestDuration,
	)

	return m
}

func (m *Metrics) Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Observe(decision logging.Decision, duration time.Duration) {
	if m == nil {
		return
	}

	m.requestsTotal.WithLabelValues(decision.Slot, decision.Source, strconv.Itoa(decision.StatusCode)).Inc()
	m.requestDuration.WithLabelValues(decision.Slot).Observe(duration.Seconds())

	if decision.Matched {
		m.ruleMatchesTotal.WithLabelValues(decision.Pattern).Inc()
	}
}

// TemplateLoadFailed implements render.FailureObserver.
func (m *Metrics) TemplateLoadFailed(slot string) {
	if m == nil {
		return
	}
	m.templateFailuresTotal.WithLabelValues(slot).Inc()
}

func (m *Metrics) ConfigReloaded(err error, rules int) {
	if m == nil {
		return
	}
	if err != nil {
		m.configReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.configReloadsTotal.WithLabelValues("ok").Inc()
	m.rulesLoaded.Set(float64(rules))
}

// RulesLoaded records the rule count of the configuration in use.
func (m *Metrics) RulesLoaded(rules int) {
	if m == nil {
		return
	}
	m.rulesLoaded.Set(float64(rules))
}
