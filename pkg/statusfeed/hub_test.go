package statusfeed

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opsloom/sentinel/pkg/orchestrator"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestBroadcastDeliversToConnectedClient(t *testing.T) {
	hub := NewHub(newTestLogger())
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let registration land

	summary := orchestrator.Summary{RunCount: 7, TasksExecuted: 3}
	hub.Broadcast(summary)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got orchestrator.Summary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RunCount != 7 || got.TasksExecuted != 3 {
		t.Errorf("got %+v, want RunCount=7 TasksExecuted=3", got)
	}
}

func TestBroadcastWithNoClientsIsNoop(t *testing.T) {
	hub := NewHub(newTestLogger())
	hub.Broadcast(orchestrator.Summary{RunCount: 1})
}
