// Package report renders the Orchestrator's daily/weekly operations
// reports from a bounded in-memory history of metric samples, incidents,
// and log analysis summaries.
package report

import (
	"sync"
	"time"

	"github.com/opsloom/sentinel/pkg/autoheal"
	"github.com/opsloom/sentinel/pkg/monitor"
)

const maxSamples = 7 * 24 * 12 // one week at one sample per 5 minutes (the metrics cadence)

// sample is one recorded metrics snapshot, timestamped for windowed stats.
type sample struct {
	at  time.Time
	cpu float64
	mem float64
	max float64 // worst disk usage percentage observed in this sample
}

// History accumulates the data the daily/weekly operations report draws
// from. It is the reporting analog of the Remote Executor's audit ring:
// bounded, in-memory, process-wide.
type History struct {
	mu        sync.Mutex
	samples   []sample
	incidents []autoheal.HealResult
	lastLogs  monitor.LogSummary
}

// NewHistory constructs an empty History.
func NewHistory() *History {
	return &History{}
}

// RecordSnapshot appends one metrics sample, evicting the oldest once the
// window exceeds a week at the metrics collection cadence.
func (h *History) RecordSnapshot(snap monitor.MetricsSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	worstDisk := 0.0
	for _, d := range snap.System.Disk {
		if d.Percentage > worstDisk {
			worstDisk = d.Percentage
		}
	}

	h.samples = append(h.samples, sample{
		at:  snap.Timestamp,
		cpu: snap.System.CPU,
		mem: snap.System.Memory.Percentage,
		max: worstDisk,
	})
	if len(h.samples) > maxSamples {
		h.samples = h.samples[len(h.samples)-maxSamples:]
	}
}

// RecordIncident appends a completed AutoHeal result.
func (h *History) RecordIncident(result autoheal.HealResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.incidents = append(h.incidents, result)
}

// RecordLogSummary stores the most recent log analysis summary.
func (h *History) RecordLogSummary(summary monitor.LogSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastLogs = summary
}

// since returns samples/incidents with timestamps within [now-window, now],
// called with h.mu held.
func (h *History) since(now time.Time, window time.Duration) ([]sample, []autoheal.HealResult) {
	cutoff := now.Add(-window)

	var samples []sample
	for _, s := range h.samples {
		if s.at.After(cutoff) {
			samples = append(samples, s)
		}
	}

	var incidents []autoheal.HealResult
	for _, inc := range h.incidents {
		if inc.Timestamp.After(cutoff) {
			incidents = append(incidents, inc)
		}
	}
	return samples, incidents
}
