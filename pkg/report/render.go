package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/opsloom/sentinel/pkg/autoheal"
	"github.com/opsloom/sentinel/pkg/monitor"
)

// stats holds the min/max/avg of one metric across a window.
type stats struct {
	min, max, avg float64
}

func computeStats(values []float64) stats {
	if len(values) == 0 {
		return stats{}
	}
	s := stats{min: values[0], max: values[0]}
	var sum float64
	for _, v := range values {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
		sum += v
	}
	s.avg = sum / float64(len(values))
	return s
}

func (s stats) lines(label string) string {
	return fmt.Sprintf("- %s — Min: %.1f%%, Max: %.1f%%, Avg: %.1f%%\n", label, s.min, s.max, s.avg)
}

func incidentOutcome(r autoheal.HealResult) string {
	if r.Success {
		return "✅ Resolved"
	}
	return "❌ Failed"
}

// renderDaily builds the "# Daily Operations Report" markdown.
func renderDaily(now time.Time, samples []sample, incidents []autoheal.HealResult, logs monitor.LogSummary) string {
	var b strings.Builder

	b.WriteString("# Daily Operations Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format("2006-01-02T15:04:05Z07:00"))

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "%d incidents in the last 24 hours.\n\n", len(incidents))

	b.WriteString("## System Health\n\n")
	cpuStats, memStats, diskStats := metricStats(samples)
	b.WriteString("### CPU Usage\n\n")
	b.WriteString(cpuStats.lines("CPU"))
	b.WriteString("\n### Memory Usage\n\n")
	b.WriteString(memStats.lines("Memory"))
	b.WriteString("\n### Disk Usage\n\n")
	b.WriteString(diskStats.lines("Disk"))

	fmt.Fprintf(&b, "\n## Incidents (%d)\n\n", len(incidents))
	if len(incidents) == 0 {
		b.WriteString("No incidents in the last 24 hours.\n")
	} else {
		for _, inc := range incidents {
			fmt.Fprintf(&b, "- %s (%s): %s\n", inc.IncidentID, inc.Scenario, incidentOutcome(inc))
		}
	}

	b.WriteString("\n## Log Analysis Summary\n\n")
	fmt.Fprintf(&b, "**Total Issues Detected:** %d\n", logs.TotalIssues)
	fmt.Fprintf(&b, "**Critical Issues:** %d\n", logs.CriticalIssues)

	b.WriteString("\n## Recommendations\n\n")
	writeRecommendations(&b, cpuStats.max, memStats.max, diskStats.max, len(incidents))

	return b.String()
}

// renderWeekly builds the "# Weekly Operations Report" markdown.
func renderWeekly(now time.Time, samples []sample, incidents []autoheal.HealResult, logs monitor.LogSummary) string {
	var b strings.Builder

	b.WriteString("# Weekly Operations Report\n\n")
	b.WriteString("**Period:** Last 7 days\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format("2006-01-02T15:04:05Z07:00"))

	cpuStats, memStats, diskStats := metricStats(samples)
	b.WriteString("## System Health\n\n")
	b.WriteString(cpuStats.lines("CPU"))
	b.WriteString(memStats.lines("Memory"))
	b.WriteString(diskStats.lines("Disk"))

	fmt.Fprintf(&b, "\n## Incidents (%d)\n\n", len(incidents))
	top := incidents
	if len(top) > 10 {
		top = top[len(top)-10:]
	}
	if len(top) == 0 {
		b.WriteString("No incidents in the last 7 days.\n")
	} else {
		b.WriteString("Top 10 most recent:\n\n")
		for _, inc := range top {
			fmt.Fprintf(&b, "- %s (%s): %s\n", inc.IncidentID, inc.Scenario, incidentOutcome(inc))
		}
	}

	b.WriteString("\n## Log Analysis Summary\n\n")
	fmt.Fprintf(&b, "**Total Issues Detected:** %d\n", logs.TotalIssues)
	fmt.Fprintf(&b, "**Critical Issues:** %d\n", logs.CriticalIssues)

	b.WriteString("\n## Recommendations\n\n")
	writeRecommendations(&b, cpuStats.max, memStats.max, diskStats.max, len(incidents))

	return b.String()
}

func metricStats(samples []sample) (cpu, mem, disk stats) {
	var cpuVals, memVals, diskVals []float64
	for _, s := range samples {
		cpuVals = append(cpuVals, s.cpu)
		memVals = append(memVals, s.mem)
		diskVals = append(diskVals, s.max)
	}
	return computeStats(cpuVals), computeStats(memVals), computeStats(diskVals)
}

func writeRecommendations(b *strings.Builder, maxCPU, maxMem, maxDisk float64, incidentCount int) {
	any := false
	if maxCPU > 90 {
		b.WriteString("🔴 CPU usage exceeded 90%\n")
		any = true
	}
	if maxMem > 90 {
		b.WriteString("🔴 Memory usage exceeded 90%\n")
		any = true
	}
	if maxDisk > 85 {
		b.WriteString("🟡 Disk usage exceeded 85%\n")
		any = true
	}
	if incidentCount > 5 {
		b.WriteString("⚠️ Incident count exceeded 5\n")
		any = true
	}
	if !any {
		b.WriteString("✅ All Systems Nominal\n")
	}
}
