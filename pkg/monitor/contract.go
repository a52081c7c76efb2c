// Package monitor defines the collaborator contracts for the log
// collector/profiler. Remote log retrieval, parsing, and bottleneck
// identification are out of scope here — this package only describes
// the shape the Orchestrator and Alert Pipeline depend on, plus a
// minimal no-op implementation for wiring and tests.
package monitor

import (
	"context"
	"time"
)

// DiskUsage is one mounted filesystem's observed usage.
type DiskUsage struct {
	Device     string  `json:"device"`
	Mount      string  `json:"mount"`
	Percentage float64 `json:"percentage"`
}

// MemoryUsage summarizes system memory.
type MemoryUsage struct {
	TotalMB    float64 `json:"total"`
	UsedMB     float64 `json:"used"`
	FreeMB     float64 `json:"free"`
	Percentage float64 `json:"percentage"`
}

// HealthCheckStatus is the result of one configured healthcheck probe.
type HealthCheckStatus string

const (
	HealthHealthy   HealthCheckStatus = "healthy"
	HealthUnhealthy HealthCheckStatus = "unhealthy"
)

// HealthCheck is one probe result.
type HealthCheck struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Status    HealthCheckStatus `json:"status"`
	LatencyMs float64           `json:"latencyMs"`
	Error     string            `json:"error,omitempty"`
}

// MetricsSnapshot is treated as opaque by the core except for these named
// fields, which the Alert Pipeline evaluates.
type MetricsSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	System    struct {
		CPU    float64       `json:"cpu"`
		Memory MemoryUsage   `json:"memory"`
		Disk   []DiskUsage   `json:"disk"`
	} `json:"system"`
	HealthChecks []HealthCheck          `json:"healthchecks"`
	PromQuery    map[string]float64     `json:"promQuery,omitempty"`
}

// LogSummary is the opaque contract a log collector/profiler would return;
// the Orchestrator only needs the issue counts to feed the operations
// report.
type LogSummary struct {
	TotalIssues    int `json:"totalIssues"`
	CriticalIssues int `json:"criticalIssues"`
}

// MetricsCollector is the contract the Orchestrator relies on to obtain a
// MetricsSnapshot on each due metrics-collection task.
type MetricsCollector interface {
	Collect(ctx context.Context) (MetricsSnapshot, error)
}

// LogCollector is the contract the Orchestrator relies on for the
// periodic log-analysis task.
type LogCollector interface {
	Analyze(ctx context.Context) (LogSummary, error)
}

// NoopMetricsCollector is a minimal fixture satisfying MetricsCollector
// when no real collector is wired (test/dev default).
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) Collect(ctx context.Context) (MetricsSnapshot, error) {
	return MetricsSnapshot{Timestamp: time.Now()}, nil
}

// NoopLogCollector is a minimal fixture satisfying LogCollector when no
// real collector is wired.
type NoopLogCollector struct{}

func (NoopLogCollector) Analyze(ctx context.Context) (LogSummary, error) {
	return LogSummary{}, nil
}
