// Package slackchan implements notify.Provider for Slack.
package slackchan

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"

	"github.com/opsloom/sentinel/pkg/notify"
)

// Provider posts alert and incident-update notifications to a Slack channel
// via a bot token. A nil/empty token degrades to logging-only.
type Provider struct {
	client  *goslack.Client
	channel string
	log     *slog.Logger
}

// New constructs a Provider. If botToken is empty, posts are logged but
// not sent — a disabled notifier that never touches the network.
func New(botToken, channel string, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Provider{client: client, channel: channel, log: log}
}

func (p *Provider) Name() string { return "slack" }

func (p *Provider) enabled() bool { return p.client != nil && p.channel != "" }

func severityEmoji(level string) string {
	switch level {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	default:
		return "🔵"
	}
}

// PostAlert sends an alert to the configured Slack channel.
func (p *Provider) PostAlert(ctx context.Context, msg notify.AlertMessage) error {
	if !p.enabled() {
		p.log.Debug("slack provider disabled, skipping alert post", "alert_id", msg.AlertID)
		return nil
	}

	header := goslack.NewHeaderBlock(goslack.NewTextBlockObject(goslack.PlainTextType,
		fmt.Sprintf("%s %s: %s", severityEmoji(msg.Level), msg.Level, msg.Metric), true, false))
	section := goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, msg.Message, false, false), nil, nil)
	blocks := []goslack.Block{header, section}
	if msg.IssueKey != "" {
		blocks = append(blocks, goslack.NewContextBlock("", goslack.NewTextBlockObject(
			goslack.MarkdownType, fmt.Sprintf("Ticket: *%s*", msg.IssueKey), false, false)))
	}

	opts := []goslack.MsgOption{
		goslack.MsgOptionBlocks(blocks...),
		goslack.MsgOptionText(fmt.Sprintf("%s %s: %s", severityEmoji(msg.Level), msg.Level, msg.Metric), false),
	}
	_, _, err := p.client.PostMessageContext(ctx, p.channel, opts...)
	if err != nil {
		return fmt.Errorf("posting alert to slack: %w", err)
	}
	return nil
}

// PostIncidentUpdate posts an AutoHeal/rollback outcome.
func (p *Provider) PostIncidentUpdate(ctx context.Context, msg notify.IncidentUpdateMessage) error {
	if !p.enabled() {
		return nil
	}
	emoji := "✅"
	if !msg.Success {
		emoji = "❌"
	}
	text := fmt.Sprintf("%s Incident %s: %s", emoji, msg.IncidentID, msg.Summary)
	_, _, err := p.client.PostMessageContext(ctx, p.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting incident update to slack: %w", err)
	}
	return nil
}
