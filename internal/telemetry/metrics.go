// Package telemetry wires structured logging, Prometheus metrics, and OTel
// tracing for the rest of the application.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every Sentinel-specific Prometheus collector. Only
// OrchestratorHeartbeats and AlertsEmittedTotal (internal/app) and
// HTTPRequestDuration (internal/httpserver) are updated; the other
// collectors are registered but never set.
type Metrics struct {
	PoolConnections          *prometheus.GaugeVec
	AlertsEmittedTotal       *prometheus.CounterVec
	AutoHealIncidentsTotal   *prometheus.CounterVec
	DeployStageDuration      *prometheus.HistogramVec
	OrchestratorHeartbeats   prometheus.Counter
	TicketsCreatedTotal      prometheus.Counter
	NotificationsTotal       *prometheus.CounterVec
	HTTPRequestDuration      *prometheus.HistogramVec
}

// NewMetrics constructs the collector set without registering it; callers
// pass the result to NewMetricsRegistry or register individually.
func NewMetrics() *Metrics {
	return &Metrics{
		PoolConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentinel",
			Subsystem: "pool",
			Name:      "connections",
			Help:      "Current SSH connection pool size.",
		}, []string{"state"}),

		AlertsEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "alerts_emitted_total",
			Help:      "Total number of alerts emitted after dedup suppression.",
		}, []string{"metric", "level"}),

		AutoHealIncidentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "autoheal_incidents_total",
			Help:      "Total number of AutoHeal incidents, by outcome.",
		}, []string{"scenario", "success"}),

		DeployStageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "deploy_stage_duration_seconds",
			Help:      "Deploy stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy", "status"}),

		OrchestratorHeartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "orchestrator_heartbeats_total",
			Help:      "Total number of orchestrator heartbeats run.",
		}),

		TicketsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "tickets_created_total",
			Help:      "Total number of incidents created via the ticketing adapter.",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "notifications_total",
			Help:      "Total number of notifications posted, by provider.",
		}, []string{"provider"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentinel",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Operator HTTP API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PoolConnections,
		m.AlertsEmittedTotal,
		m.AutoHealIncidentsTotal,
		m.DeployStageDuration,
		m.OrchestratorHeartbeats,
		m.TicketsCreatedTotal,
		m.NotificationsTotal,
		m.HTTPRequestDuration,
	}
}

// NewMetricsRegistry builds a Prometheus registry with Go/process
// collectors plus every Sentinel-specific collector registered.
func NewMetricsRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := NewMetrics()
	reg.MustRegister(m.Collectors()...)
	return reg, m
}
