// Package notify fans alert and incident notifications out to chat
// platforms (Slack, Mattermost) through a provider-agnostic interface.
package notify

import (
	"context"
	"log/slog"

	"github.com/opsloom/sentinel/pkg/alert"
)

// Provider is the interface every chat platform implements.
type Provider interface {
	// Name returns the provider identifier ("slack", "mattermost").
	Name() string

	// PostAlert sends an alert notification to the configured channel.
	PostAlert(ctx context.Context, msg AlertMessage) error

	// PostIncidentUpdate notifies about an AutoHeal or deploy-rollback
	// outcome tied to an existing incident.
	PostIncidentUpdate(ctx context.Context, msg IncidentUpdateMessage) error
}

// AlertMessage is the platform-agnostic alert notification sent when a
// critical alert fires.
type AlertMessage struct {
	AlertID  string
	Metric   string
	Level    string
	Value    float64
	Message  string
	IssueKey string // ticketing key, if one was created
}

// IncidentUpdateMessage notifies about AutoHeal/rollback outcomes.
type IncidentUpdateMessage struct {
	IncidentID string
	Success    bool
	Summary    string
	ReportPath string
}

// Fanout dispatches to every registered Provider, logging (not propagating)
// individual provider failures — same best-effort-outbound posture as the
// ticketing adapter.
type Fanout struct {
	providers []Provider
	log       *slog.Logger
}

// NewFanout constructs a Fanout over the given providers.
func NewFanout(log *slog.Logger, providers ...Provider) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	return &Fanout{providers: providers, log: log}
}

// NotifyAlert implements alert.Notifier. It reports an error only when
// every provider failed; a partial success is still considered notified.
func (f *Fanout) NotifyAlert(ctx context.Context, a alert.Alert) error {
	if len(f.providers) == 0 {
		return nil
	}
	msg := AlertMessage{
		AlertID: a.ID,
		Metric:  a.Metric,
		Level:   string(a.Level),
		Value:   a.Value,
		Message: a.Message,
	}
	var lastErr error
	succeeded := 0
	for _, p := range f.providers {
		if err := p.PostAlert(ctx, msg); err != nil {
			f.log.Warn("notify: provider failed to post alert", "provider", p.Name(), "error", err)
			lastErr = err
			continue
		}
		succeeded++
	}
	if succeeded == 0 {
		return lastErr
	}
	return nil
}

// NotifyIncidentUpdate fans an AutoHeal/rollback outcome out to every
// provider, best-effort.
func (f *Fanout) NotifyIncidentUpdate(ctx context.Context, msg IncidentUpdateMessage) {
	for _, p := range f.providers {
		if err := p.PostIncidentUpdate(ctx, msg); err != nil {
			f.log.Warn("notify: provider failed to post incident update", "provider", p.Name(), "error", err)
		}
	}
}
