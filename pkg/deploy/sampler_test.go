package deploy

import (
	"context"
	"testing"

	"github.com/opsloom/sentinel/pkg/monitor"
)

type stubCollector struct {
	snap monitor.MetricsSnapshot
	err  error
}

func (c stubCollector) Collect(ctx context.Context) (monitor.MetricsSnapshot, error) {
	return c.snap, c.err
}

func TestSnapshotSamplerMapsFields(t *testing.T) {
	snap := monitor.MetricsSnapshot{
		PromQuery: map[string]float64{"errorRate": 0.2, "responseTime": 150},
	}
	snap.System.CPU = 0.5
	snap.System.Memory.Percentage = 0.8

	sampler := NewSnapshotSampler(stubCollector{snap: snap})

	got, err := sampler.Sample(context.Background(), "stage-1", nil)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if got.ErrorRate != 0.2 || got.ResponseTime != 150 || got.CPU != 0.5 || got.Memory != 0.8 {
		t.Errorf("got %+v, want errorRate=0.2 responseTime=150 cpu=0.5 memory=0.8", got)
	}
}
