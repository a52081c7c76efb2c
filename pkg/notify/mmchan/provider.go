// Package mmchan implements notify.Provider for Mattermost via its REST API
// (spec: generic chat notification, no teacher-specific on-call slash
// commands carried over).
package mmchan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opsloom/sentinel/pkg/notify"
)

// Provider posts notifications to a Mattermost channel via the bot-token
// REST API (POST /api/v4/posts).
type Provider struct {
	baseURL    string
	botToken   string
	channelID  string
	httpClient *http.Client
	log        *slog.Logger
}

// New constructs a Provider. An empty baseURL or botToken degrades to
// logging-only, matching the Slack provider's posture.
func New(baseURL, botToken, channelID string, httpClient *http.Client, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		botToken:   botToken,
		channelID:  channelID,
		httpClient: httpClient,
		log:        log,
	}
}

func (p *Provider) Name() string { return "mattermost" }

func (p *Provider) enabled() bool {
	return p.baseURL != "" && p.botToken != "" && p.channelID != ""
}

type post struct {
	ChannelID string `json:"channel_id"`
	Message   string `json:"message"`
}

// PostAlert sends an alert to the configured Mattermost channel.
func (p *Provider) PostAlert(ctx context.Context, msg notify.AlertMessage) error {
	if !p.enabled() {
		p.log.Debug("mattermost provider disabled, skipping alert post", "alert_id", msg.AlertID)
		return nil
	}
	text := fmt.Sprintf("**[%s] %s**\n%s", msg.Level, msg.Metric, msg.Message)
	if msg.IssueKey != "" {
		text += fmt.Sprintf("\nTicket: `%s`", msg.IssueKey)
	}
	return p.createPost(ctx, text)
}

// PostIncidentUpdate posts an AutoHeal/rollback outcome.
func (p *Provider) PostIncidentUpdate(ctx context.Context, msg notify.IncidentUpdateMessage) error {
	if !p.enabled() {
		return nil
	}
	status := "Resolved"
	if !msg.Success {
		status = "Failed"
	}
	return p.createPost(ctx, fmt.Sprintf("**Incident %s: %s**\n%s", msg.IncidentID, status, msg.Summary))
}

func (p *Provider) createPost(ctx context.Context, message string) error {
	body, err := json.Marshal(post{ChannelID: p.channelID, Message: message})
	if err != nil {
		return fmt.Errorf("encoding mattermost post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v4/posts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mattermost request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.botToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to mattermost: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mattermost post failed: status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
