package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/opsloom/sentinel/internal/archive"
	"github.com/opsloom/sentinel/internal/telemetry"
	"github.com/opsloom/sentinel/pkg/autoheal"
	"github.com/opsloom/sentinel/pkg/deploy"
	"github.com/opsloom/sentinel/pkg/executor"
	"github.com/opsloom/sentinel/pkg/patch"
	"github.com/opsloom/sentinel/pkg/rollback"
	"github.com/opsloom/sentinel/pkg/statusfeed"
)

// Server holds the operator HTTP API's dependencies. Unlike the
// multi-tenant SaaS surface this is grounded on, Sentinel's API is a small,
// single-operator control plane: trigger a heal, kick a hotfix deploy, roll
// one back, or resolve a pending command approval.
type Server struct {
	Router  *chi.Mux
	Logger  *slog.Logger
	DB      *pgxpool.Pool // nil when no archive database is configured
	Redis   *redis.Client // nil when no cache/dedup backend is configured
	Metrics *prometheus.Registry

	heal       *autoheal.Executor
	deployer   *deploy.Manager
	deployment *deploy.Store
	rollback   *rollback.Engine
	exec       *executor.Executor
	feed       *statusfeed.Hub
	patcher    *patch.Generator
	archive    *archive.Writer

	startedAt time.Time
}

// Dependencies bundles the domain components the operator surface exposes.
// Any nil field disables its corresponding endpoints; DB and Redis are only
// probed by /readyz when non-nil.
type Dependencies struct {
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Heal       *autoheal.Executor
	Deployer   *deploy.Manager
	Deployment *deploy.Store
	Rollback   *rollback.Engine
	Executor   *executor.Executor
	Feed       *statusfeed.Hub
	Patcher    *patch.Generator
	Archive    *archive.Writer
}

// NewServer wires middleware, health endpoints, and the operator API.
func NewServer(logger *slog.Logger, metricsReg *prometheus.Registry, m *telemetry.Metrics, corsOrigins []string, deps Dependencies) *Server {
	s := &Server{
		Router:     chi.NewRouter(),
		Logger:     logger,
		DB:         deps.DB,
		Redis:      deps.Redis,
		Metrics:    metricsReg,
		heal:       deps.Heal,
		deployer:   deps.Deployer,
		deployment: deps.Deployment,
		rollback:   deps.Rollback,
		exec:       deps.Executor,
		feed:       deps.Feed,
		patcher:    deps.Patcher,
		archive:    deps.Archive,
		startedAt:  time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics(m))
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)
	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	if s.feed != nil {
		s.Router.Get("/ws/status", s.feed.ServeHTTP)
	}

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/heal", s.handleHeal)
		r.Post("/patches/generate", s.handleGeneratePatch)
		r.Get("/platform/commands", s.handlePlatformCommands)
		r.Post("/deployments", s.handleDeployHotfix)
		r.Get("/deployments", s.handleListDeployments)
		r.Get("/deployments/{id}", s.handleGetDeployment)
		r.Post("/deployments/{id}/rollback", s.handleRollback)
		r.Get("/executor/audit", s.handleExecutorAudit)
		r.Post("/executor/approvals/{id}/approve", s.handleApprove)
		r.Post("/executor/approvals/{id}/deny", s.handleDeny)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz only probes the backends this deployment actually configured;
// both are optional, so their absence is never a readiness failure.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.DB != nil {
		if err := s.DB.Ping(ctx); err != nil {
			s.Logger.Error("readiness check: database ping failed", "error", err)
			RespondError(w, http.StatusServiceUnavailable, "unavailable", "database not ready")
			return
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			s.Logger.Error("readiness check: redis ping failed", "error", err)
			RespondError(w, http.StatusServiceUnavailable, "unavailable", "redis not ready")
			return
		}
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusResponse is the JSON shape returned by /api/v1/status.
type statusResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Database      string `json:"database"`
	Redis         string `json:"redis"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := time.Since(s.startedAt)

	resp := statusResponse{
		Status:        "ok",
		Uptime:        uptime.Truncate(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Database:      "disabled",
		Redis:         "disabled",
	}

	if s.DB != nil {
		if err := s.DB.Ping(ctx); err != nil {
			resp.Database = "error"
			resp.Status = "degraded"
		} else {
			resp.Database = "ok"
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			resp.Redis = "error"
			resp.Status = "degraded"
		} else {
			resp.Redis = "ok"
		}
	}

	Respond(w, http.StatusOK, resp)
}
