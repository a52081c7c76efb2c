// Package rollback implements stage-reverse restore from backups with
// post-rollback health verification.
package rollback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsloom/sentinel/pkg/deploy"
	"github.com/opsloom/sentinel/pkg/executor"
)

// Restorer performs the actual file/service restore on a target set,
// locating the most recent backup directory itself (`ls -dt /tmp/backup-*`).
type Restorer interface {
	Snapshot(ctx context.Context, targets any) error
	RestoreFromBackup(ctx context.Context, targets any) error
	RestartServices(ctx context.Context, targets any) error
}

// ApprovalGate gates critical rollback operations (e.g. a DB rollback)
// behind explicit approval; absent approval, the operation defaults to
// dry-run.
type ApprovalGate interface {
	Await(ctx context.Context, deploymentID, reason string) (approved bool)
}

// Record is the outcome of one rollback() invocation.
type Record struct {
	DeploymentID string
	Reason       string
	Partial      bool
	StagesRolled []string
	Healthy      bool
	Timestamp    time.Time
	Error        string
}

// ErrUnrecoverable signals "rolled back but unhealthy".
var ErrUnrecoverable = fmt.Errorf("rolled back but unhealthy")

// Engine executes rollback(deploymentId, reason, {partial}).
type Engine struct {
	exec     *executor.Executor
	restorer Restorer
	approval ApprovalGate
	critical bool
	log      *slog.Logger
}

// New constructs an Engine. critical marks this Engine instance as
// handling critical operations (e.g. database rollback), which default to
// dry-run absent explicit approval.
func New(exec *executor.Executor, restorer Restorer, approval ApprovalGate, critical bool, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{exec: exec, restorer: restorer, approval: approval, critical: critical, log: log}
}

// Rollback selects affected stages (partial picks failed/in-progress
// stages, else all success stages), restores them in reverse order, and
// re-verifies health across all rolled-back stages.
func (e *Engine) Rollback(ctx context.Context, d deploy.Deployment, reason string, partial bool) error {
	record := Record{DeploymentID: d.ID, Reason: reason, Partial: partial, Timestamp: time.Now()}

	if e.critical && e.approval != nil {
		if !e.approval.Await(ctx, d.ID, reason) {
			e.log.Warn("rollback: critical operation not approved, running dry-run", "deployment", d.ID)
			return nil
		}
	}

	stages := selectStages(d.Stages, partial)
	for i := len(stages) - 1; i >= 0; i-- {
		stage := stages[i]
		if err := e.restorer.Snapshot(ctx, stage.Name); err != nil {
			e.log.Warn("rollback: snapshot failed", "stage", stage.Name, "error", err)
		}
		if err := e.restorer.RestoreFromBackup(ctx, stage.Name); err != nil {
			return fmt.Errorf("restoring stage %s: %w", stage.Name, err)
		}
		if err := e.restorer.RestartServices(ctx, stage.Name); err != nil {
			return fmt.Errorf("restarting services for stage %s: %w", stage.Name, err)
		}
		record.StagesRolled = append(record.StagesRolled, stage.Name)
	}

	healthy, err := e.verifyHealth(ctx, record.StagesRolled)
	if err != nil {
		return fmt.Errorf("post-rollback health verification: %w", err)
	}
	record.Healthy = healthy
	if !healthy {
		return ErrUnrecoverable
	}
	return nil
}

func selectStages(stages []deploy.StageResult, partial bool) []deploy.StageResult {
	var out []deploy.StageResult
	for _, s := range stages {
		if partial {
			if s.Status == deploy.StageFailed || s.Status == deploy.StageInProgress {
				out = append(out, s)
			}
		} else if s.Status == deploy.StageSuccess {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) verifyHealth(ctx context.Context, stageNames []string) (bool, error) {
	if e.exec == nil || len(stageNames) == 0 {
		return true, nil
	}
	br, err := e.exec.Execute(ctx, stageNames, "systemctl is-active app", executor.Options{Parallel: true})
	if err != nil {
		return false, err
	}
	return br.OverallSuccess, nil
}
