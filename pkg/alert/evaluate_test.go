package alert

import (
	"testing"
	"time"

	"github.com/opsloom/sentinel/pkg/monitor"
)

func snapshotWithCPU(cpu float64) monitor.MetricsSnapshot {
	var s monitor.MetricsSnapshot
	s.Timestamp = time.Now()
	s.System.CPU = cpu
	return s
}

// S1 — Alert dedup / threshold emission shape.
func TestEvaluateCPUCritical(t *testing.T) {
	thresholds := Thresholds{"cpu_usage": {Warning: 70, Critical: 90}}
	var seq idSeq
	alerts := Evaluate(snapshotWithCPU(95), thresholds, &seq)

	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Metric != "cpu_usage" || a.Level != LevelCritical || a.Value != 95 || a.Threshold != 90 {
		t.Fatalf("unexpected alert shape: %+v", a)
	}
	if a.ShouldAutoHeal {
		t.Errorf("cpu alerts must never be auto-heal eligible")
	}
}

// level must match the threshold boundary rules.
func TestLevelBoundaries(t *testing.T) {
	thresholds := Thresholds{"cpu_usage": {Warning: 70, Critical: 90}}

	cases := []struct {
		value float64
		level Level
		fires bool
	}{
		{69.9, "", false},
		{70, LevelHigh, true},
		{89.9, LevelHigh, true},
		{90, LevelCritical, true},
		{150, LevelCritical, true},
	}
	for _, c := range cases {
		var seq idSeq
		alerts := Evaluate(snapshotWithCPU(c.value), thresholds, &seq)
		if !c.fires {
			if len(alerts) != 0 {
				t.Errorf("value %v: expected no alert, got %+v", c.value, alerts)
			}
			continue
		}
		if len(alerts) != 1 || alerts[0].Level != c.level {
			t.Errorf("value %v: expected level %v, got %+v", c.value, c.level, alerts)
		}
	}
}

// S2 — disk auto-heal trigger.
func TestEvaluateDiskAutoHeal(t *testing.T) {
	thresholds := Thresholds{"disk_usage": {Warning: 80, Critical: 90}}
	var s monitor.MetricsSnapshot
	s.Timestamp = time.Now()
	s.System.Disk = []monitor.DiskUsage{{Mount: "/", Percentage: 95}}

	var seq idSeq
	alerts := Evaluate(s, thresholds, &seq)
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Metric != "disk_usage_/" || !a.ShouldAutoHeal || a.Level != LevelCritical {
		t.Fatalf("unexpected shape: %+v", a)
	}
}

// shouldAutoHeal is only set for disk_usage/memory_usage/process_down at high/critical.
func TestShouldAutoHealEligibility(t *testing.T) {
	cases := []struct {
		metric string
		level  Level
		want   bool
	}{
		{"disk_usage_/", LevelCritical, true},
		{"disk_usage_/", LevelHigh, true},
		{"disk_usage_/", LevelMedium, false},
		{"memory_usage", LevelCritical, true},
		{"process_down", LevelHigh, true},
		{"cpu_usage", LevelCritical, false},
		{"api_latency", LevelHigh, false},
		{"healthcheck_failed", LevelCritical, false},
	}
	for _, c := range cases {
		if got := shouldAutoHeal(c.metric, c.level); got != c.want {
			t.Errorf("shouldAutoHeal(%q, %q) = %v, want %v", c.metric, c.level, got, c.want)
		}
	}
}

func TestEvaluateHealthcheckFailure(t *testing.T) {
	var s monitor.MetricsSnapshot
	s.Timestamp = time.Now()
	s.HealthChecks = []monitor.HealthCheck{{Name: "api", Status: monitor.HealthUnhealthy, Error: "timeout"}}

	var seq idSeq
	alerts := Evaluate(s, Thresholds{}, &seq)
	if len(alerts) != 1 || alerts[0].Metric != "healthcheck_failed" || alerts[0].Level != LevelCritical {
		t.Fatalf("unexpected: %+v", alerts)
	}
	if alerts[0].ShouldAutoHeal {
		t.Errorf("healthcheck_failed must never be auto-heal eligible")
	}
}

func TestEvaluateHighLatencyHealthcheck(t *testing.T) {
	var s monitor.MetricsSnapshot
	s.Timestamp = time.Now()
	s.HealthChecks = []monitor.HealthCheck{{Name: "api", Status: monitor.HealthHealthy, LatencyMs: 900}}

	thresholds := Thresholds{"api_latency_ms": {Warning: 200, Critical: 500}}
	var seq idSeq
	alerts := Evaluate(s, thresholds, &seq)
	if len(alerts) != 1 || alerts[0].Metric != "api_latency" || alerts[0].Level != LevelHigh {
		t.Fatalf("unexpected: %+v", alerts)
	}
}
