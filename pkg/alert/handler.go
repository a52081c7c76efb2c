package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/opsloom/sentinel/pkg/monitor"
)

// Action names one side effect recorded against a HandleResult.
type Action string

const (
	ActionLogged           Action = "logged"
	ActionNotified         Action = "notified"
	ActionAutoHealTriggered Action = "autoheal_triggered"
)

// Ticketer is the subset of the Ticketing Adapter the pipeline needs.
// Outbound calls are best-effort: their failures must never propagate out
// of Handle.
type Ticketer interface {
	CreateIncidentFromAlert(ctx context.Context, a Alert) error
	AddOccurrenceComment(ctx context.Context, dedupKey string) (found bool, err error)
}

// Notifier is the subset of the notification fan-out the pipeline needs.
type Notifier interface {
	NotifyAlert(ctx context.Context, a Alert) error
}

// AutoHealTrigger spawns a heal() invocation without the handler awaiting
// it.
type AutoHealTrigger interface {
	TriggerAsync(scenario string, context map[string]any)
}

// HandleOptions customizes one Handle call.
type HandleOptions struct {
	// CreateJSMTicket, when explicitly false, skips ticketing dispatch
	// even if a Ticketer is configured.
	CreateJSMTicket *bool
}

// HandleResult is the outcome of handling a single alert.
type HandleResult struct {
	Actions          []Action `json:"actions"`
	AutoHealRequested bool    `json:"autoHealRequested"`
}

func (r *HandleResult) record(a Action) {
	r.Actions = append(r.Actions, a)
}

// Pipeline composes threshold evaluation, dedup, and dispatch.
type Pipeline struct {
	thresholds Thresholds
	dedup      *Deduplicator
	ticketDedup *Deduplicator
	ticketer   Ticketer
	notifier   Notifier
	autoHeal   AutoHealTrigger
	logger     *slog.Logger
	seq        idSeq
}

// NewPipeline constructs a Pipeline. ticketer, notifier, and autoHeal may
// be nil, in which case the corresponding dispatch step is skipped.
func NewPipeline(thresholds Thresholds, dedup, ticketDedup *Deduplicator, ticketer Ticketer, notifier Notifier, autoHeal AutoHealTrigger, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		thresholds:  thresholds,
		dedup:       dedup,
		ticketDedup: ticketDedup,
		ticketer:    ticketer,
		notifier:    notifier,
		autoHeal:    autoHeal,
		logger:      logger,
	}
}

// Process evaluates snapshot against thresholds and suppresses
// already-emitted (metric, level) pairs within the dedup window.
func (p *Pipeline) Process(snapshot monitor.MetricsSnapshot) []Alert {
	candidates := Evaluate(snapshot, p.thresholds, &p.seq)
	now := time.Now()
	out := make([]Alert, 0, len(candidates))
	for _, a := range candidates {
		if p.dedup.ShouldSuppress(context.Background(), a.DedupKey(), now) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Handle executes the side-effect dispatch for one already-deduplicated
// alert.
func (p *Pipeline) Handle(ctx context.Context, a Alert, opts HandleOptions) HandleResult {
	var result HandleResult
	result.record(ActionLogged)
	p.logger.Info("alert handled", "metric", a.Metric, "level", a.Level, "value", a.Value)

	createTicket := opts.CreateJSMTicket == nil || *opts.CreateJSMTicket
	if p.ticketer != nil && createTicket {
		p.dispatchTicket(ctx, a)
	}

	if a.Level == LevelCritical && p.notifier != nil {
		if err := p.notifier.NotifyAlert(ctx, a); err != nil {
			p.logger.Warn("alert notify failed", "error", err)
		} else {
			result.record(ActionNotified)
		}
	}

	if a.ShouldAutoHeal {
		result.record(ActionAutoHealTriggered)
		result.AutoHealRequested = true
		if p.autoHeal != nil {
			p.autoHeal.TriggerAsync(scenarioForMetric(a.Metric), map[string]any{
				contextKeyForMetric(a.Metric): a.Value,
			})
		}
	}

	return result
}

func (p *Pipeline) dispatchTicket(ctx context.Context, a Alert) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("ticketing dispatch panicked", "recovered", r)
		}
	}()

	now := time.Now()
	if !p.ticketDedup.ShouldSuppress(ctx, a.DedupKey(), now) {
		if err := p.ticketer.CreateIncidentFromAlert(ctx, a); err != nil {
			p.logger.Warn("ticket creation failed", "error", err)
		}
		return
	}
	if _, err := p.ticketer.AddOccurrenceComment(ctx, a.DedupKey()); err != nil {
		p.logger.Warn("ticket comment failed", "error", err)
	}
}

// scenarioForMetric maps an alert metric name to the AutoHeal scenario
// most likely to address it.
func scenarioForMetric(metric string) string {
	switch {
	case metric == "memory_usage":
		return "memory_leak"
	case len(metric) >= len("disk_usage") && metric[:len("disk_usage")] == "disk_usage":
		return "disk_space_low"
	default:
		return "process_down"
	}
}

// contextKeyForMetric maps an alert metric name to the context key
// AutoHeal's validation recognizes. Per-mount disk metrics carry a
// "disk_usage_<mount>" suffix (e.g. "disk_usage_/var") that autoheal's
// numeric key set doesn't include, so it collapses back to "disk_usage"
// before being handed to TriggerAsync.
func contextKeyForMetric(metric string) string {
	const diskPrefix = "disk_usage_"
	if len(metric) > len(diskPrefix) && metric[:len(diskPrefix)] == diskPrefix {
		return "disk_usage"
	}
	return metric
}
