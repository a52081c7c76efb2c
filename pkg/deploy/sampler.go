package deploy

import (
	"context"

	"github.com/opsloom/sentinel/pkg/monitor"
)

// SnapshotSampler implements MetricSampler by taking one MetricsSnapshot
// per sample and mapping its named fields onto ObservedMetrics. errorRate
// and responseTime have no fixed home in MetricsSnapshot's system fields,
// so they are read from the collector's promQuery map (opaque except for
// these named fields).
type SnapshotSampler struct {
	collector monitor.MetricsCollector
}

// NewSnapshotSampler wraps a MetricsCollector for use as a deploy stage's
// MetricSampler.
func NewSnapshotSampler(collector monitor.MetricsCollector) *SnapshotSampler {
	return &SnapshotSampler{collector: collector}
}

// Sample ignores stageName/targets: the collector reports fleet-wide
// metrics, not per-stage ones, since it only produces a single
// MetricsSnapshot shape.
func (s *SnapshotSampler) Sample(ctx context.Context, stageName string, targets any) (ObservedMetrics, error) {
	snap, err := s.collector.Collect(ctx)
	if err != nil {
		return ObservedMetrics{}, err
	}

	return ObservedMetrics{
		ErrorRate:    snap.PromQuery["errorRate"],
		ResponseTime: snap.PromQuery["responseTime"],
		CPU:          snap.System.CPU,
		Memory:       snap.System.Memory.Percentage,
	}, nil
}
