package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{"default host is 0.0.0.0", func(c *Config) bool { return c.Host == "0.0.0.0" }, "0.0.0.0"},
		{"default port is 8080", func(c *Config) bool { return c.Port == 8080 }, "8080"},
		{"default log level is info", func(c *Config) bool { return c.LogLevel == "info" }, "info"},
		{"default log format is json", func(c *Config) bool { return c.LogFormat == "json" }, "json"},
		{"default metrics path", func(c *Config) bool { return c.MetricsPath == "/metrics" }, "/metrics"},
		{"listen addr format", func(c *Config) bool { return c.ListenAddr() == "0.0.0.0:8080" }, "0.0.0.0:8080"},
		{"default report hour", func(c *Config) bool { return c.ReportHour == 9 }, "9"},
		{"default ticketing rate", func(c *Config) bool { return c.TicketingRatePerMinute == 50 }, "50"},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadThresholds(t *testing.T) {
	path := writeTemp(t, "thresholds.json", `{"cpu_usage":{"warning":70,"critical":90}}`)
	th, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("LoadThresholds: %v", err)
	}
	if th["cpu_usage"].Critical != 90 {
		t.Errorf("expected critical 90, got %v", th["cpu_usage"].Critical)
	}
}

func TestLoadPlaybooks(t *testing.T) {
	path := writeTemp(t, "playbooks.json", `{"disk_space_low":{"actions":["df -h"]}}`)
	store, err := LoadPlaybooks(path)
	if err != nil {
		t.Fatalf("LoadPlaybooks: %v", err)
	}
	pb, ok := store.Get("disk_space_low")
	if !ok || len(pb.Actions) != 1 {
		t.Fatalf("expected disk_space_low playbook with 1 action, got %+v", pb)
	}
}

func TestLoadServersRegistersHostsWithSharedSSHDefaults(t *testing.T) {
	path := writeTemp(t, "servers.json", `{"ssh":{"user":"ops","port":22},"groups":{"web":["web-1","web-2"]}}`)
	registry, err := LoadServers(path)
	if err != nil {
		t.Fatalf("LoadServers: %v", err)
	}
	host, ok := registry.Host("web-1")
	if !ok || host.SSH.User != "ops" || host.SSH.Port != 22 {
		t.Fatalf("expected web-1 with shared ssh defaults, got %+v ok=%v", host, ok)
	}
}

func TestLoadAllowlist(t *testing.T) {
	path := writeTemp(t, "allowlist.json", `{"allowedCommands":["systemctl *","df -h"]}`)
	policy, err := LoadAllowlist(path)
	if err != nil {
		t.Fatalf("LoadAllowlist: %v", err)
	}
	if len(policy.Allowlist) != 2 {
		t.Fatalf("expected 2 allowlist entries, got %d", len(policy.Allowlist))
	}
}

func TestLoadTicketingExpandsEnvRefs(t *testing.T) {
	t.Setenv("JSM_TOKEN", "secret-token")
	path := writeTemp(t, "ticketing.json", `{"enabled":true,"baseUrl":"https://t.example.com","auth":{"type":"bearer","token":"${JSM_TOKEN}"}}`)
	cfg, err := LoadTicketing(path)
	if err != nil {
		t.Fatalf("LoadTicketing: %v", err)
	}
	if cfg.Auth.Token != "secret-token" {
		t.Fatalf("expected env-expanded token, got %q", cfg.Auth.Token)
	}
}

func TestExpandEnvRefPassesThroughNonReferences(t *testing.T) {
	if got := expandEnvRef("plain-value"); got != "plain-value" {
		t.Errorf("expected passthrough, got %q", got)
	}
}
