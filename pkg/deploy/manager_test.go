package deploy

import (
	"context"
	"testing"
	"time"
)

type stubSampler struct {
	byStage map[string]ObservedMetrics
}

func (s stubSampler) Sample(ctx context.Context, stageName string, targets any) (ObservedMetrics, error) {
	if m, ok := s.byStage[stageName]; ok {
		return m, nil
	}
	return ObservedMetrics{}, nil
}

type stubRollback struct{ calls int }

func (r *stubRollback) Rollback(ctx context.Context, d Deployment, reason string, partial bool) error {
	r.calls++
	return nil
}

// S7 — canary rejection: second stage's metrics breach maxErrorRate;
// deployment fails, earlier stage remains success.
func TestCanaryRejectsOnMetricBreach(t *testing.T) {
	sampler := stubSampler{byStage: map[string]ObservedMetrics{
		"stage-1": {ErrorRate: 0.01},
		"stage-2": {ErrorRate: 0.6}, // exceeds maxErrorRate below
	}}
	mgr := New(nil, sampler, nil, nil, nil, nil)

	spec := Spec{
		Strategy: StrategyCanary,
		Stages: []StageSpec{
			{Name: "stage-1", Percentage: 10, MonitorDuration: 5 * time.Millisecond, SampleInterval: time.Millisecond, Thresholds: MetricThresholds{MaxErrorRate: 0.5}},
			{Name: "stage-2", Percentage: 50, MonitorDuration: 5 * time.Millisecond, SampleInterval: time.Millisecond, Thresholds: MetricThresholds{MaxErrorRate: 0.5}},
		},
	}

	d := mgr.DeployHotfix(context.Background(), spec)

	if d.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", d.Status)
	}
	if len(d.Stages) != 2 {
		t.Fatalf("expected 2 stage results, got %d", len(d.Stages))
	}
	if d.Stages[0].Status != StageSuccess {
		t.Errorf("expected earlier stage to remain success, got %s", d.Stages[0].Status)
	}
	if d.Stages[1].Status != StageFailed {
		t.Errorf("expected failing stage to be marked failed, got %s", d.Stages[1].Status)
	}
}

func TestCanaryAutoRollbackOnBreach(t *testing.T) {
	sampler := stubSampler{byStage: map[string]ObservedMetrics{
		"stage-1": {ErrorRate: 0.9},
	}}
	rb := &stubRollback{}
	mgr := New(nil, sampler, nil, nil, rb, nil)

	spec := Spec{
		Strategy:     StrategyCanary,
		AutoRollback: true,
		Stages: []StageSpec{
			{Name: "stage-1", Percentage: 10, MonitorDuration: 5 * time.Millisecond, SampleInterval: time.Millisecond, Thresholds: MetricThresholds{MaxErrorRate: 0.5}},
		},
	}

	d := mgr.DeployHotfix(context.Background(), spec)
	if d.Status != StatusRolledBack || !d.RolledBack {
		t.Fatalf("expected rolled_back status, got %s", d.Status)
	}
	if rb.calls != 1 {
		t.Errorf("expected rollback invoked once, got %d", rb.calls)
	}
}

func TestDirectStrategySucceedsWithoutThresholds(t *testing.T) {
	mgr := New(nil, stubSampler{}, nil, nil, nil, nil)
	spec := Spec{
		Strategy: StrategyDirect,
		Stages:   []StageSpec{{Name: "production"}},
	}
	d := mgr.DeployHotfix(context.Background(), spec)
	if d.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s: %s", d.Status, d.Error)
	}
}

func TestObservedMetricsBreach(t *testing.T) {
	m := ObservedMetrics{ErrorRate: 0.1, ResponseTime: 500, CPU: 90, Memory: 50}
	th := MetricThresholds{MaxErrorRate: 0.05}
	if got := m.Breach(th); got == "" {
		t.Errorf("expected a breach for error rate")
	}
	if got := (ObservedMetrics{}).Breach(MetricThresholds{}); got != "" {
		t.Errorf("expected no breach when thresholds unset, got %q", got)
	}
}
