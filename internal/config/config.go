// Package config loads Sentinel's environment-driven runtime configuration
// and the JSON policy files (thresholds, playbooks, servers, allowlist,
// ticketing).
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Host string `env:"SENTINEL_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SENTINEL_PORT" envDefault:"8080"`

	// Database / Redis (optional — the core runs fully in-memory when unset;
	// Postgres only mirrors history for durability).
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Telemetry
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	MetricsPath  string `env:"METRICS_PATH" envDefault:"/metrics"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// SSH / connection pool defaults
	SSHPoolMaxConnections int           `env:"SSH_POOL_MAX_CONNECTIONS" envDefault:"50"`
	SSHPoolIdleTimeout    time.Duration `env:"SSH_POOL_IDLE_TIMEOUT" envDefault:"300s"`
	SSHConnectTimeout     time.Duration `env:"SSH_CONNECT_TIMEOUT" envDefault:"10s"`

	// Remote executor defaults
	ExecTimeout time.Duration `env:"EXEC_TIMEOUT" envDefault:"30s"`

	// Alert pipeline
	AlertDedupWindow    time.Duration `env:"ALERT_DEDUP_WINDOW" envDefault:"5m"`
	TicketingDedupWindow time.Duration `env:"TICKETING_DEDUP_WINDOW" envDefault:"30m"`

	// Ticketing adapter
	TicketingRatePerMinute int `env:"TICKETING_RATE_PER_MINUTE" envDefault:"50"`

	// Deploy manager
	DeploySampleInterval time.Duration `env:"DEPLOY_SAMPLE_INTERVAL" envDefault:"10s"`

	// Orchestrator
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"60s"`
	ReportHour        int           `env:"REPORT_HOUR" envDefault:"9"`

	// Slack (optional — unset disables the provider)
	SlackBotToken     string `env:"SLACK_BOT_TOKEN"`
	SlackAlertChannel string `env:"SLACK_ALERT_CHANNEL"`

	// Mattermost (optional — unset disables the provider)
	MattermostURL       string `env:"MATTERMOST_URL"`
	MattermostBotToken  string `env:"MATTERMOST_BOT_TOKEN"`
	MattermostChannelID string `env:"MATTERMOST_CHANNEL_ID"`

	// Policy file paths
	ThresholdsFile string `env:"THRESHOLDS_FILE" envDefault:"config/thresholds.json"`
	PlaybooksFile  string `env:"PLAYBOOKS_FILE" envDefault:"config/playbooks.json"`
	ServersFile    string `env:"SERVERS_FILE" envDefault:"config/servers.json"`
	AllowlistFile  string `env:"ALLOWLIST_FILE" envDefault:"config/allowlist.json"`
	TicketingFile  string `env:"TICKETING_FILE" envDefault:"config/ticketing.json"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
