// Package ticketing implements alert-to-incident creation with
// composite-key dedup, rate-limited and retried outbound calls, and
// lifecycle operations (comment/transition/close/link-report).
package ticketing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsloom/sentinel/pkg/alert"
	"github.com/opsloom/sentinel/pkg/autoheal"
)

// Adapter implements alert.Ticketer plus the full ticketing operation set.
type Adapter struct {
	cfg       Config
	transport *transport
	cache     *dedupCache
	log       *slog.Logger
}

// New constructs an Adapter. client is typically an *http.Client; tests
// substitute a stub HTTPDoer.
func New(cfg Config, client HTTPDoer, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		cfg:       cfg,
		transport: newTransport(client, cfg),
		cache:     newDedupCache(cfg.dedupWindow()),
		log:       log,
	}
}

type createIssueRequest struct {
	ServiceDeskID string         `json:"serviceDeskId"`
	RequestTypeID string         `json:"requestTypeId"`
	Summary       string         `json:"summary"`
	Description   string         `json:"description"`
	Priority      string         `json:"priority"`
	IssueType     string         `json:"issueType"`
	Labels        []string       `json:"labels,omitempty"`
	CustomFields  map[string]any `json:"customFields,omitempty"`
}

type createIssueResponse struct {
	IssueKey string `json:"issueKey"`
}

// CreateIncidentFromAlert dedups against the composite (metric,level) key
// cache; within the window it appends an occurrence comment instead of
// creating a duplicate incident. Satisfies alert.Ticketer.
func (a *Adapter) CreateIncidentFromAlert(ctx context.Context, al alert.Alert) error {
	if !a.cfg.Enabled {
		return nil
	}
	key := al.DedupKey()
	now := time.Now()

	if ref, ok := a.cache.Lookup(key, now); ok {
		_, err := a.AddOccurrenceComment(ctx, key)
		if err != nil {
			return fmt.Errorf("appending occurrence comment to %s: %w", ref.IssueKey, err)
		}
		return nil
	}

	req := createIssueRequest{
		ServiceDeskID: a.cfg.ServiceDeskID,
		RequestTypeID: a.cfg.RequestTypeID,
		Summary:       fmt.Sprintf("[%s] %s", al.Level, al.Metric),
		Description:   al.Message,
		Priority:      a.cfg.PriorityMapping[string(al.Level)],
		IssueType:     a.cfg.IssueTypeMapping[al.Metric],
		Labels:        a.cfg.Labels,
		CustomFields:  a.cfg.CustomFields,
	}

	data, err := a.transport.do(ctx, "POST", a.cfg.BaseURL+"/rest/servicedeskapi/request", req)
	if err != nil {
		return fmt.Errorf("creating incident: %w", err)
	}

	var resp createIssueResponse
	if jsonErr := decodeJSON(data, &resp); jsonErr != nil {
		return fmt.Errorf("decoding create-incident response: %w", jsonErr)
	}

	a.cache.Store(key, resp.IssueKey, now)
	return nil
}

// AddOccurrenceComment appends a repeat-occurrence comment to the issue
// currently cached for dedupKey. Satisfies alert.Ticketer.
func (a *Adapter) AddOccurrenceComment(ctx context.Context, dedupKey string) (bool, error) {
	ref, ok := a.cache.Lookup(dedupKey, time.Now())
	if !ok {
		return false, nil
	}
	return true, a.AddComment(ctx, ref.IssueKey, "Alert condition recurred.", false)
}

type healResultPayload struct {
	Success    bool     `json:"success"`
	IncidentID string   `json:"incidentId"`
	Actions    []string `json:"actions"`
	Reason     string   `json:"reason,omitempty"`
}

// UpdateIncidentWithHealResult appends an AutoHeal outcome as a comment on
// the incident referenced by key.
func (a *Adapter) UpdateIncidentWithHealResult(ctx context.Context, key string, heal autoheal.HealResult) error {
	if !a.cfg.Enabled {
		return nil
	}
	actions := make([]string, 0, len(heal.Actions))
	for _, act := range heal.Actions {
		actions = append(actions, act.Command)
	}
	payload := healResultPayload{Success: heal.Success, IncidentID: heal.IncidentID, Actions: actions, Reason: heal.Reason}
	_, err := a.transport.do(ctx, "POST", fmt.Sprintf("%s/rest/servicedeskapi/request/%s/comment", a.cfg.BaseURL, key), payload)
	if err != nil {
		return fmt.Errorf("updating incident %s with heal result: %w", key, err)
	}
	return nil
}

type transitionRequest struct {
	TransitionID string `json:"id"`
	Resolution   string `json:"resolution,omitempty"`
}

// CloseIncident transitions the issue to its resolved state per
// TransitionMapping[resolution].
func (a *Adapter) CloseIncident(ctx context.Context, key, resolution string) error {
	if !a.cfg.Enabled {
		return nil
	}
	transitionID, ok := a.cfg.TransitionMapping[resolution]
	if !ok {
		return fmt.Errorf("no transition mapped for resolution %q", resolution)
	}
	req := transitionRequest{TransitionID: transitionID, Resolution: resolution}
	_, err := a.transport.do(ctx, "POST", fmt.Sprintf("%s/rest/servicedeskapi/request/%s/transition", a.cfg.BaseURL, key), req)
	if err != nil {
		return fmt.Errorf("closing incident %s: %w", key, err)
	}
	return nil
}

type commentRequest struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

// AddComment posts a comment to the issue identified by key.
func (a *Adapter) AddComment(ctx context.Context, key, text string, public bool) error {
	if !a.cfg.Enabled {
		return nil
	}
	req := commentRequest{Body: text, Public: public}
	_, err := a.transport.do(ctx, "POST", fmt.Sprintf("%s/rest/servicedeskapi/request/%s/comment", a.cfg.BaseURL, key), req)
	if err != nil {
		return fmt.Errorf("commenting on %s: %w", key, err)
	}
	return nil
}

type linkReportRequest struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// LinkReportToIncident attaches a reference to a generated report (incident
// or operations) to the issue identified by key.
func (a *Adapter) LinkReportToIncident(ctx context.Context, key, path, reportType string) error {
	if !a.cfg.Enabled {
		return nil
	}
	req := linkReportRequest{Path: path, Type: reportType}
	_, err := a.transport.do(ctx, "POST", fmt.Sprintf("%s/rest/servicedeskapi/request/%s/attachment", a.cfg.BaseURL, key), req)
	if err != nil {
		return fmt.Errorf("linking report to %s: %w", key, err)
	}
	return nil
}
