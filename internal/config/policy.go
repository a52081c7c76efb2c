package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/opsloom/sentinel/pkg/alert"
	"github.com/opsloom/sentinel/pkg/autoheal"
	"github.com/opsloom/sentinel/pkg/executor"
	"github.com/opsloom/sentinel/pkg/fleet"
	"github.com/opsloom/sentinel/pkg/ticketing"
)

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// LoadThresholds parses the alert-thresholds policy file:
// `{ <metric>: {warning, critical} }`.
func LoadThresholds(path string) (alert.Thresholds, error) {
	var out alert.Thresholds
	if err := readJSON(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// playbookFile is the on-disk shape of one playbook entry:
// `{ <scenario>: { condition?: string, actions:[string,…] } }`.
type playbookFile struct {
	Condition string   `json:"condition"`
	Actions   []string `json:"actions"`
}

// LoadPlaybooks parses the AutoHeal playbooks policy file into a Store.
// The file is decoded into a map, which does not keep the file's key order,
// so playbooks are added to the Store sorted by scenario name: condition-
// based first-match selection follows name order, not the order in which
// the file lists the playbooks.
func LoadPlaybooks(path string) (*autoheal.Store, error) {
	var raw map[string]playbookFile
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	scenarios := make([]string, 0, len(raw))
	for scenario := range raw {
		scenarios = append(scenarios, scenario)
	}
	sort.Strings(scenarios)
	store := autoheal.NewStore()
	for _, scenario := range scenarios {
		pb := raw[scenario]
		store.Add(autoheal.Playbook{Name: scenario, Condition: pb.Condition, Actions: pb.Actions})
	}
	return store, nil
}

// serverFile is the on-disk shape of the servers policy file:
// `{ ssh:{user,port,privateKey|keyPath}, groups:{<name>:[host,…]} }`.
type serverFile struct {
	SSH struct {
		User       string `json:"user"`
		Port       int    `json:"port"`
		PrivateKey string `json:"privateKey"`
		KeyPath    string `json:"keyPath"`
	} `json:"ssh"`
	Groups map[string][]string `json:"groups"`
}

// LoadServers parses the servers policy file into a fleet.Registry; every
// host referenced by a group is registered with the file's shared SSH
// defaults, keyed by its address.
func LoadServers(path string) (*fleet.Registry, error) {
	var raw serverFile
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	registry := fleet.NewRegistry()
	seen := make(map[string]bool)
	for group, hosts := range raw.Groups {
		registry.AddGroup(group, hosts)
		for _, h := range hosts {
			if seen[h] {
				continue
			}
			seen[h] = true
			registry.AddHost(fleet.Host{
				Identity: h,
				SSH: fleet.SSHParams{
					Address:        h,
					Port:           raw.SSH.Port,
					User:           raw.SSH.User,
					PrivateKeyPEM:  []byte(raw.SSH.PrivateKey),
					PrivateKeyPath: raw.SSH.KeyPath,
				},
			})
		}
	}
	return registry, nil
}

// allowlistFile is the on-disk shape of the SSH allowlist policy file:
// `{ allowedCommands:[string,…] }` (wildcard `*` permitted).
type allowlistFile struct {
	AllowedCommands []string `json:"allowedCommands"`
}

// LoadAllowlist parses the SSH allowlist policy file into an
// executor.Policy with RequireApproval left false; callers flip it per
// deployment posture.
func LoadAllowlist(path string) (executor.Policy, error) {
	var raw allowlistFile
	if err := readJSON(path, &raw); err != nil {
		return executor.Policy{}, err
	}
	return executor.Policy{Allowlist: raw.AllowedCommands}, nil
}

// ticketingFile is the on-disk shape of the ticketing policy file; auth
// secrets are resolved from "${VAR}"-style environment references before
// this struct is built into a ticketing.Config.
type ticketingFile struct {
	Enabled       bool   `json:"enabled"`
	BaseURL       string `json:"baseUrl"`
	ServiceDeskID string `json:"serviceDeskId"`
	RequestTypeID string `json:"requestTypeId"`
	Auth          struct {
		Type     string `json:"type"`
		Username string `json:"username"`
		Password string `json:"password"`
		Token    string `json:"token"`
	} `json:"auth"`
	RateLimiting struct {
		MaxRequestsPerMinute int `json:"maxRequestsPerMinute"`
	} `json:"rateLimiting"`
	Deduplication struct {
		Enabled       bool `json:"enabled"`
		WindowMinutes int  `json:"windowMinutes"`
	} `json:"deduplication"`
	PriorityMapping   map[string]string `json:"priorityMapping"`
	IssueTypeMapping  map[string]string `json:"issueTypeMapping"`
	TransitionMapping map[string]string `json:"transitionMapping"`
	CustomFields      map[string]any    `json:"customFields"`
	Labels            []string          `json:"labels"`
}

// LoadTicketing parses the ticketing policy file into a ticketing.Config,
// substituting "${VAR}" auth fields from the environment.
func LoadTicketing(path string) (ticketing.Config, error) {
	var raw ticketingFile
	if err := readJSON(path, &raw); err != nil {
		return ticketing.Config{}, err
	}
	auth := ticketing.AuthConfig{
		Type:     ticketing.AuthType(raw.Auth.Type),
		Username: expandEnvRef(raw.Auth.Username),
		Password: expandEnvRef(raw.Auth.Password),
		Token:    expandEnvRef(raw.Auth.Token),
	}
	return ticketing.Config{
		Enabled:       raw.Enabled,
		BaseURL:       raw.BaseURL,
		ServiceDeskID: raw.ServiceDeskID,
		RequestTypeID: raw.RequestTypeID,
		Auth:          auth,
		RateLimiting:  ticketing.RateLimiting{MaxRequestsPerMinute: raw.RateLimiting.MaxRequestsPerMinute},
		Deduplication: ticketing.Deduplication{Enabled: raw.Deduplication.Enabled, WindowMinutes: raw.Deduplication.WindowMinutes},
		PriorityMapping:   raw.PriorityMapping,
		IssueTypeMapping:  raw.IssueTypeMapping,
		TransitionMapping: raw.TransitionMapping,
		CustomFields:      raw.CustomFields,
		Labels:            raw.Labels,
	}, nil
}

// expandEnvRef resolves a "${VAR}" reference to its environment value; any
// other string (including empty) passes through unchanged.
func expandEnvRef(s string) string {
	if len(s) > 3 && s[0] == '$' && s[1] == '{' && s[len(s)-1] == '}' {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}
