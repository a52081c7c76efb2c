package mmchan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opsloom/sentinel/pkg/notify"
)

func TestPostAlertSendsAuthorizedRequest(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := New(srv.URL, "tok123", "chan1", srv.Client(), nil)
	err := p.PostAlert(context.Background(), notify.AlertMessage{AlertID: "a1", Metric: "disk_usage", Level: "critical", Message: "disk full"})
	if err != nil {
		t.Fatalf("PostAlert: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if gotPath != "/api/v4/posts" {
		t.Errorf("expected /api/v4/posts, got %q", gotPath)
	}
}

func TestPostAlertDisabledWhenUnconfigured(t *testing.T) {
	p := New("", "", "", nil, nil)
	if err := p.PostAlert(context.Background(), notify.AlertMessage{AlertID: "a1"}); err != nil {
		t.Fatalf("expected nil error when disabled, got %v", err)
	}
}

func TestPostAlertErrorsOnServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"down"}`))
	}))
	defer srv.Close()

	p := New(srv.URL, "tok", "chan1", srv.Client(), nil)
	if err := p.PostAlert(context.Background(), notify.AlertMessage{AlertID: "a1"}); err == nil {
		t.Fatalf("expected error on 500 response")
	}
}
