package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the service's Prometheus series. A nil *Collector is valid
// and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Backend query metrics
	queryDuration *prometheus.HistogramVec
	queriesTotal  *prometheus.CounterVec

	// Report metrics
	reportsTotal   *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec

	// Authorization metrics
	authzDecisions *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_backend_query_duration_seconds",
				Help:    "Duration of analytics backend queries in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"query"},
		),

		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_backend_queries_total",
				Help: "Total analytics backend queries by outcome",
			},
			[]string{"query", "status"},
		),

		reportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_reports_total",
				Help: "Total dashboard reports built, by tenant and outcome",
			},
			[]string{"tenant", "status"},
		),

		reportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_report_duration_seconds",
				Help:    "End-to-end duration of building one dashboard report",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tenant"},
		),

		authzDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_authz_decisions_total",
				Help: "Authorization decisions by outcome and reason",
			},
			[]string{"decision", "reason"},
		),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordQuery records one backend query. status is "ok" or a failure category.
func (c *Collector) RecordQuery(query, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.queryDuration.WithLabelValues(query).Observe(d.Seconds())
	c.queriesTotal.WithLabelValues(query, status).Inc()
}

func (c *Collector) RecordReport(tenant, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.reportsTotal.WithLabelValues(tenant, status).Inc()
	c.reportDuration.WithLabelValues(tenant).Observe(d.Seconds())
}

// RecordDecision records an authorization outcome. Tenant keys are not used as
// labels here since denied requests may carry arbitrary caller-supplied keys.
func (c *Collector) RecordDecision(allowed bool, reason string) {
	if c == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
		reason = "none"
	}
	c.authzDecisions.WithLabelValues(decision, reason).Inc()
}
