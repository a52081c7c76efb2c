package alert

import (
	"context"

	"github.com/opsloom/sentinel/pkg/monitor"
)

// RunResult is the one-shot composition result used by the scheduler.
type RunResult struct {
	AlertsProcessed int            `json:"alertsProcessed"`
	Results         []HandleResult `json:"results"`
}

// Run evaluates snapshot, dedups, and handles every surviving alert —
// the composition the Orchestrator's due alert-evaluation task invokes.
func (p *Pipeline) Run(ctx context.Context, snapshot monitor.MetricsSnapshot) RunResult {
	alerts := p.Process(snapshot)
	results := make([]HandleResult, 0, len(alerts))
	for _, a := range alerts {
		results = append(results, p.Handle(ctx, a, HandleOptions{}))
	}
	return RunResult{AlertsProcessed: len(alerts), Results: results}
}
