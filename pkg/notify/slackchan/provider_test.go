package slackchan

import (
	"context"
	"testing"

	"github.com/opsloom/sentinel/pkg/notify"
)

func TestPostAlertDisabledWithoutToken(t *testing.T) {
	p := New("", "", nil)
	if p.Name() != "slack" {
		t.Errorf("expected provider name slack, got %s", p.Name())
	}
	if err := p.PostAlert(context.Background(), notify.AlertMessage{AlertID: "a1", Metric: "cpu_usage", Level: "critical"}); err != nil {
		t.Fatalf("expected nil error when disabled, got %v", err)
	}
}

func TestPostIncidentUpdateDisabledWithoutToken(t *testing.T) {
	p := New("", "", nil)
	if err := p.PostIncidentUpdate(context.Background(), notify.IncidentUpdateMessage{IncidentID: "heal-1", Success: true}); err != nil {
		t.Fatalf("expected nil error when disabled, got %v", err)
	}
}
