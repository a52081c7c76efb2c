package alert

import (
	"context"
	"testing"
	"time"
)

func TestDeduplicatorSuppressesWithinWindow(t *testing.T) {
	d := NewDeduplicator(nil, 300*time.Second, nil)
	ctx := context.Background()
	now := time.Now()

	if d.ShouldSuppress(ctx, "cpu_usage-critical", now) {
		t.Fatalf("first emission must not be suppressed")
	}
	if !d.ShouldSuppress(ctx, "cpu_usage-critical", now.Add(time.Second)) {
		t.Fatalf("second emission within window must be suppressed")
	}
}

func TestDeduplicatorExpiresAfterWindow(t *testing.T) {
	d := NewDeduplicator(nil, 50*time.Millisecond, nil)
	ctx := context.Background()
	now := time.Now()

	d.ShouldSuppress(ctx, "mem-high", now)
	if d.ShouldSuppress(ctx, "mem-high", now.Add(100*time.Millisecond)) {
		t.Fatalf("emission after window elapsed must not be suppressed")
	}
}

// S1 end-to-end: repeated Process() call on identical input yields no alerts.
func TestPipelineProcessSuppressesRepeat(t *testing.T) {
	thresholds := Thresholds{"cpu_usage": {Warning: 70, Critical: 90}}
	dedup := NewDeduplicator(nil, DefaultDedupWindow, nil)
	ticketDedup := NewDeduplicator(nil, DefaultDedupWindow, nil)
	p := NewPipeline(thresholds, dedup, ticketDedup, nil, nil, nil, nil)

	snap := snapshotWithCPU(95)
	first := p.Process(snap)
	if len(first) != 1 {
		t.Fatalf("expected one alert on first process, got %d", len(first))
	}

	second := p.Process(snap)
	if len(second) != 0 {
		t.Fatalf("expected empty list on immediate repeat, got %+v", second)
	}
}
