package ticketing

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opsloom/sentinel/pkg/alert"
	"github.com/opsloom/sentinel/pkg/autoheal"
)

type stubDoer struct {
	calls     atomic.Int64
	responses []func(req *http.Request) *http.Response
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	i := s.calls.Add(1) - 1
	if int(i) >= len(s.responses) {
		return jsonResponse(200, `{"issueKey":"INC-999"}`), nil
	}
	return s.responses[i](req), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

func testConfig() Config {
	return Config{
		Enabled:       true,
		BaseURL:       "https://tickets.example.com",
		ServiceDeskID: "10",
		RequestTypeID: "20",
		Auth:          AuthConfig{Type: AuthBearer, Token: "t"},
		RateLimiting:  RateLimiting{MaxRequestsPerMinute: 6000}, // fast for tests
		Deduplication: Deduplication{Enabled: true, WindowMinutes: 10},
	}
}

func sampleAlert(metric string, level alert.Level) alert.Alert {
	return alert.Alert{Metric: metric, Level: level, Value: 95, Message: "disk at 95%"}
}

func TestCreateIncidentFromAlertCreatesOnce(t *testing.T) {
	doer := &stubDoer{responses: []func(*http.Request) *http.Response{
		func(r *http.Request) *http.Response { return jsonResponse(200, `{"issueKey":"INC-1"}`) },
	}}
	a := New(testConfig(), doer, nil)

	err := a.CreateIncidentFromAlert(context.Background(), sampleAlert("disk_usage", alert.LevelCritical))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doer.calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", doer.calls.Load())
	}
}

func TestCreateIncidentFromAlertDedupsWithinWindow(t *testing.T) {
	doer := &stubDoer{responses: []func(*http.Request) *http.Response{
		func(r *http.Request) *http.Response { return jsonResponse(200, `{"issueKey":"INC-2"}`) },
		func(r *http.Request) *http.Response { return jsonResponse(200, `{}`) }, // comment add
	}}
	a := New(testConfig(), doer, nil)
	al := sampleAlert("disk_usage", alert.LevelCritical)

	if err := a.CreateIncidentFromAlert(context.Background(), al); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := a.CreateIncidentFromAlert(context.Background(), al); err != nil {
		t.Fatalf("second create (should comment): %v", err)
	}
	if doer.calls.Load() != 2 {
		t.Fatalf("expected create + comment = 2 calls, got %d", doer.calls.Load())
	}
}

func TestCreateIncidentDisabledIsNoop(t *testing.T) {
	doer := &stubDoer{}
	cfg := testConfig()
	cfg.Enabled = false
	a := New(cfg, doer, nil)
	if err := a.CreateIncidentFromAlert(context.Background(), sampleAlert("cpu_usage", alert.LevelHigh)); err != nil {
		t.Fatalf("expected nil error when disabled, got %v", err)
	}
	if doer.calls.Load() != 0 {
		t.Errorf("expected no outbound calls, got %d", doer.calls.Load())
	}
}

func TestRetryAfter429ThenSucceeds(t *testing.T) {
	doer := &stubDoer{responses: []func(*http.Request) *http.Response{
		func(r *http.Request) *http.Response {
			resp := jsonResponse(429, ``)
			resp.Header.Set("Retry-After", "0")
			return resp
		},
		func(r *http.Request) *http.Response { return jsonResponse(200, `{"issueKey":"INC-3"}`) },
	}}
	a := New(testConfig(), doer, nil)
	err := a.CreateIncidentFromAlert(context.Background(), sampleAlert("memory_usage", alert.LevelCritical))
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if doer.calls.Load() != 2 {
		t.Fatalf("expected 2 calls (429 then success), got %d", doer.calls.Load())
	}
}

func TestUpdateIncidentWithHealResult(t *testing.T) {
	doer := &stubDoer{}
	a := New(testConfig(), doer, nil)
	heal := autoheal.HealResult{Success: true, IncidentID: "heal-1", Actions: []autoheal.ActionRecord{{Command: "systemctl restart nginx", Success: true}}}
	if err := a.UpdateIncidentWithHealResult(context.Background(), "INC-1", heal); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestCloseIncidentRequiresMappedTransition(t *testing.T) {
	doer := &stubDoer{}
	a := New(testConfig(), doer, nil)
	if err := a.CloseIncident(context.Background(), "INC-1", "resolved"); err == nil {
		t.Fatalf("expected error for unmapped resolution")
	}
}

func TestCloseIncidentWithMappedTransition(t *testing.T) {
	doer := &stubDoer{}
	cfg := testConfig()
	cfg.TransitionMapping = map[string]string{"resolved": "31"}
	a := New(cfg, doer, nil)
	if err := a.CloseIncident(context.Background(), "INC-1", "resolved"); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRetryAfterHeaderParsing(t *testing.T) {
	cases := map[string]time.Duration{"": time.Second, "3": 3 * time.Second, "garbage": time.Second}
	for in, want := range cases {
		if got := retryAfter(in); got != want {
			t.Errorf("retryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAddCommentErrorsOnServerFailure(t *testing.T) {
	doer := &stubDoer{responses: []func(*http.Request) *http.Response{
		func(r *http.Request) *http.Response { return jsonResponse(500, `{"error":"boom"}`) },
	}}
	a := New(testConfig(), doer, nil)
	err := a.AddComment(context.Background(), "INC-1", "hello", true)
	if err == nil {
		t.Fatalf("expected error on 500")
	}
}
