package alert

import (
	"fmt"
	"sort"

	"github.com/opsloom/sentinel/pkg/monitor"
)

// apiLatencyMetric is the threshold key used for healthcheck latency
// alerts, distinct from the probe's own healthy/unhealthy status.
const apiLatencyMetric = "api_latency_ms"

// Evaluate runs the fixed-order threshold evaluation over snapshot
// (cpu_usage, memory_usage, disk_usage per mount, healthchecks) and
// returns every alert that would fire absent deduplication.
func Evaluate(snapshot monitor.MetricsSnapshot, thresholds Thresholds, seq *idSeq) []Alert {
	var alerts []Alert
	now := snapshot.Timestamp

	if t, ok := thresholds["cpu_usage"]; ok {
		if level, fired := levelFor(snapshot.System.CPU, t); fired {
			alerts = append(alerts, newAlert(now, seq, "cpu_usage", snapshot.System.CPU, t, level,
				fmt.Sprintf("CPU usage at %.1f%%", snapshot.System.CPU)))
		}
	}

	if t, ok := thresholds["memory_usage"]; ok {
		if level, fired := levelFor(snapshot.System.Memory.Percentage, t); fired {
			alerts = append(alerts, newAlert(now, seq, "memory_usage", snapshot.System.Memory.Percentage, t, level,
				fmt.Sprintf("Memory usage at %.1f%%", snapshot.System.Memory.Percentage)))
		}
	}

	disks := append([]monitor.DiskUsage(nil), snapshot.System.Disk...)
	sort.Slice(disks, func(i, j int) bool { return disks[i].Mount < disks[j].Mount })
	if t, ok := thresholds["disk_usage"]; ok {
		for _, d := range disks {
			metric := "disk_usage_" + d.Mount
			if level, fired := levelFor(d.Percentage, t); fired {
				alerts = append(alerts, newAlert(now, seq, metric, d.Percentage, t, level,
					fmt.Sprintf("Disk usage on %s at %.1f%%", d.Mount, d.Percentage)))
			}
		}
	}

	latencyThreshold, hasLatencyThreshold := thresholds[apiLatencyMetric]
	for _, hc := range snapshot.HealthChecks {
		switch hc.Status {
		case monitor.HealthUnhealthy:
			alerts = append(alerts, Alert{
				ID:             seq.next(),
				Timestamp:      now,
				Metric:         "healthcheck_failed",
				Value:          0,
				Threshold:      0,
				Level:          LevelCritical,
				Message:        fmt.Sprintf("Healthcheck %q failed: %s", hc.Name, hc.Error),
				ShouldAutoHeal: false,
			})
		case monitor.HealthHealthy:
			if hasLatencyThreshold && hc.LatencyMs > latencyThreshold.Critical {
				alerts = append(alerts, Alert{
					ID:             seq.next(),
					Timestamp:      now,
					Metric:         "api_latency",
					Value:          hc.LatencyMs,
					Threshold:      latencyThreshold.Critical,
					Level:          LevelHigh,
					Message:        fmt.Sprintf("Healthcheck %q latency %.0fms exceeds threshold", hc.Name, hc.LatencyMs),
					ShouldAutoHeal: false,
				})
			}
		}
	}

	return alerts
}
