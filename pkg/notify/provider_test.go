package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/opsloom/sentinel/pkg/alert"
)

type stubProvider struct {
	name    string
	failAll bool
	posted  int
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) PostAlert(ctx context.Context, msg AlertMessage) error {
	s.posted++
	if s.failAll {
		return errors.New("boom")
	}
	return nil
}
func (s *stubProvider) PostIncidentUpdate(ctx context.Context, msg IncidentUpdateMessage) error {
	if s.failAll {
		return errors.New("boom")
	}
	return nil
}

func TestNotifyAlertSucceedsIfAnyProviderSucceeds(t *testing.T) {
	failing := &stubProvider{name: "slack", failAll: true}
	working := &stubProvider{name: "mattermost", failAll: false}
	f := NewFanout(nil, failing, working)

	err := f.NotifyAlert(context.Background(), alert.Alert{ID: "a1", Metric: "cpu_usage", Level: alert.LevelCritical})
	if err != nil {
		t.Fatalf("expected nil error when at least one provider succeeds, got %v", err)
	}
	if failing.posted != 1 || working.posted != 1 {
		t.Errorf("expected both providers to be attempted")
	}
}

func TestNotifyAlertFailsWhenAllProvidersFail(t *testing.T) {
	a := &stubProvider{name: "slack", failAll: true}
	b := &stubProvider{name: "mattermost", failAll: true}
	f := NewFanout(nil, a, b)

	err := f.NotifyAlert(context.Background(), alert.Alert{ID: "a1", Metric: "cpu_usage", Level: alert.LevelCritical})
	if err == nil {
		t.Fatalf("expected error when every provider fails")
	}
}

func TestNotifyAlertNoProvidersIsNoop(t *testing.T) {
	f := NewFanout(nil)
	if err := f.NotifyAlert(context.Background(), alert.Alert{ID: "a1"}); err != nil {
		t.Fatalf("expected nil with no providers configured, got %v", err)
	}
}
