// Package app wires every Sentinel component into a running process: the
// fleet registry, connection pool, remote executor, alert pipeline,
// auto-heal executor, patch generator, deploy manager, rollback engine,
// ticketing adapter, notification fan-out, orchestrator heartbeat loop,
// and the operator HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/opsloom/sentinel/internal/archive"
	"github.com/opsloom/sentinel/internal/config"
	"github.com/opsloom/sentinel/internal/httpserver"
	"github.com/opsloom/sentinel/internal/platform"
	"github.com/opsloom/sentinel/internal/telemetry"
	"github.com/opsloom/sentinel/pkg/alert"
	"github.com/opsloom/sentinel/pkg/approval"
	"github.com/opsloom/sentinel/pkg/autoheal"
	"github.com/opsloom/sentinel/pkg/deploy"
	"github.com/opsloom/sentinel/pkg/executor"
	"github.com/opsloom/sentinel/pkg/monitor"
	"github.com/opsloom/sentinel/pkg/notify"
	"github.com/opsloom/sentinel/pkg/notify/mmchan"
	"github.com/opsloom/sentinel/pkg/notify/slackchan"
	"github.com/opsloom/sentinel/pkg/orchestrator"
	"github.com/opsloom/sentinel/pkg/patch"
	"github.com/opsloom/sentinel/pkg/report"
	"github.com/opsloom/sentinel/pkg/rollback"
	"github.com/opsloom/sentinel/pkg/sshpool"
	"github.com/opsloom/sentinel/pkg/statusfeed"
	"github.com/opsloom/sentinel/pkg/ticketing"
)

const (
	patchDir      = "patches"
	incidentDir   = "reports/incidents"
	operationsDir = "reports/operations"

	deploymentHistoryCapacity = 500
	// criticalRollback marks every wired rollback.Engine as handling a
	// critical (database-affecting) operation, defaulting to dry-run
	// absent explicit approval.
	criticalRollback = true
)

// Run reads configuration, connects optional infrastructure, wires every
// component, and serves the operator HTTP API until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting sentinel", "listen", cfg.ListenAddr())

	shutdownTracer, err := telemetry.InitTracer(ctx, "sentinel", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("running archive migrations: %w", err)
		}
		db, err = platform.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
	} else {
		logger.Info("archive database not configured, running in-memory only")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = platform.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
	} else {
		logger.Info("redis not configured, alert dedup falls back to in-memory")
	}

	metricsReg, metrics := telemetry.NewMetricsRegistry()

	registry, err := config.LoadServers(cfg.ServersFile)
	if err != nil {
		return fmt.Errorf("loading servers policy: %w", err)
	}

	policy, err := config.LoadAllowlist(cfg.AllowlistFile)
	if err != nil {
		return fmt.Errorf("loading allowlist policy: %w", err)
	}

	thresholds, err := config.LoadThresholds(cfg.ThresholdsFile)
	if err != nil {
		return fmt.Errorf("loading thresholds policy: %w", err)
	}

	playbooks, err := config.LoadPlaybooks(cfg.PlaybooksFile)
	if err != nil {
		return fmt.Errorf("loading playbooks policy: %w", err)
	}

	ticketingCfg, err := config.LoadTicketing(cfg.TicketingFile)
	if err != nil {
		return fmt.Errorf("loading ticketing policy: %w", err)
	}

	pool := sshpool.New(sshpool.Config{
		MaxConnections: cfg.SSHPoolMaxConnections,
		IdleTimeout:    cfg.SSHPoolIdleTimeout,
		ConnectTimeout: cfg.SSHConnectTimeout,
	}, sshpool.NewSSHDialer(), logger)
	defer pool.CloseAll()

	exec := executor.New(registry, pool, policy, logger)

	gate := approval.NewGate()

	archiveWriter := archive.NewWriter(db, logger)
	archiveWriter.Start(ctx)
	defer archiveWriter.Close()

	autoHealExec := autoheal.NewExecutor(playbooks, autoheal.NewLocalRunner(), autoheal.NewFileReportWriter(incidentDir), logger)

	alertDedup := alert.NewDeduplicator(rdb, cfg.AlertDedupWindow, logger)
	ticketDedup := alert.NewDeduplicator(rdb, cfg.TicketingDedupWindow, logger)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	ticketer := ticketing.New(ticketingCfg, httpClient, logger)

	fanout := buildNotifyFanout(cfg, logger)

	alertPipeline := alert.NewPipeline(thresholds, alertDedup, ticketDedup, ticketer, fanout, autoHealExec, logger)

	deploymentStore := deploy.NewStore(deploymentHistoryCapacity)

	rollbackEngine := rollback.New(exec, rollback.NewRemoteRestorer(exec), gate, criticalRollback, logger)

	deployManager := deploy.New(
		exec,
		deploy.NewSnapshotSampler(monitor.NoopMetricsCollector{}),
		gate,
		deploy.NewRemoteBackuper(exec, patchDir),
		rollbackEngine,
		logger,
	)

	patchGenerator := patch.NewGenerator()

	history := report.NewHistory()
	reportGenerator := report.NewGenerator(history, operationsDir)

	feed := statusfeed.NewHub(logger)

	metricsCollector := monitor.NoopMetricsCollector{}
	logCollector := monitor.NoopLogCollector{}

	snapshotCache := newSnapshotCache()

	metricsTask := orchestrator.Task{
		Name: "metrics",
		Run: func(ctx context.Context) error {
			snap, err := metricsCollector.Collect(ctx)
			if err != nil {
				return fmt.Errorf("collecting metrics: %w", err)
			}
			snapshotCache.set(snap)
			history.RecordSnapshot(snap)
			processAndHandle(ctx, alertPipeline, snap, metrics, logger)
			return nil
		},
	}

	alertsTask := orchestrator.Task{
		Name: "alerts",
		Run: func(ctx context.Context) error {
			processAndHandle(ctx, alertPipeline, snapshotCache.get(), metrics, logger)
			return nil
		},
	}

	logsTask := orchestrator.Task{
		Name: "logs",
		Run: func(ctx context.Context) error {
			summary, err := logCollector.Analyze(ctx)
			if err != nil {
				return fmt.Errorf("analyzing logs: %w", err)
			}
			history.RecordLogSummary(summary)
			return nil
		},
	}

	orch := orchestrator.New(metricsTask, logsTask, alertsTask, reportGenerator, cfg.ReportHour, logger)
	go runHeartbeatLoop(ctx, orch, cfg.HeartbeatInterval, metrics, feed)
	defer orch.Stop()

	srv := httpserver.NewServer(logger, metricsReg, metrics, cfg.CORSAllowedOrigins, httpserver.Dependencies{
		DB:         db,
		Redis:      rdb,
		Heal:       autoHealExec,
		Deployer:   deployManager,
		Deployment: deploymentStore,
		Rollback:   rollbackEngine,
		Executor:   exec,
		Feed:       feed,
		Patcher:    patchGenerator,
		Archive:    archiveWriter,
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("operator api listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down operator api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// snapshotCache holds the most recent metrics snapshot for the alerts
// task, which runs on a tighter schedule than metrics collection and so
// re-evaluates the last collected snapshot instead of re-collecting.
// metricsTask and alertsTask can run concurrently within one heartbeat,
// so access is mutex-protected.
type snapshotCache struct {
	mu   sync.Mutex
	snap monitor.MetricsSnapshot
}

func newSnapshotCache() *snapshotCache { return &snapshotCache{} }

func (c *snapshotCache) set(snap monitor.MetricsSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
}

func (c *snapshotCache) get() monitor.MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// runHeartbeatLoop drives the Orchestrator's heartbeat on interval,
// broadcasting each Summary to connected status-feed consoles. It runs
// until ctx is cancelled.
func runHeartbeatLoop(ctx context.Context, orch *orchestrator.Orchestrator, interval time.Duration, metrics *telemetry.Metrics, feed *statusfeed.Hub) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	broadcast := func() {
		summary := orch.Heartbeat(ctx)
		metrics.OrchestratorHeartbeats.Inc()
		feed.Broadcast(summary)
	}

	broadcast()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			broadcast()
		}
	}
}

// processAndHandle runs one Process+Handle pass over snapshot and counts
// each emitted alert. Heals that Handle triggers run through TriggerAsync,
// independently of this pass, and their incidents are not archived here.
func processAndHandle(ctx context.Context, p *alert.Pipeline, snapshot monitor.MetricsSnapshot, metrics *telemetry.Metrics, logger *slog.Logger) {
	for _, a := range p.Process(snapshot) {
		metrics.AlertsEmittedTotal.WithLabelValues(a.Metric, string(a.Level)).Inc()
		result := p.Handle(ctx, a, alert.HandleOptions{})
		logger.Debug("alert pipeline dispatched", "metric", a.Metric, "level", a.Level, "actions", result.Actions)
	}
}

// buildNotifyFanout registers whichever chat providers are configured;
// an unconfigured provider is simply omitted (spec: notifications are
// best-effort and optional).
func buildNotifyFanout(cfg *config.Config, logger *slog.Logger) *notify.Fanout {
	var providers []notify.Provider
	if cfg.SlackBotToken != "" {
		providers = append(providers, slackchan.New(cfg.SlackBotToken, cfg.SlackAlertChannel, logger))
	}
	if cfg.MattermostURL != "" && cfg.MattermostBotToken != "" {
		providers = append(providers, mmchan.New(cfg.MattermostURL, cfg.MattermostBotToken, cfg.MattermostChannelID, &http.Client{Timeout: 15 * time.Second}, logger))
	}
	return notify.NewFanout(logger, providers...)
}
