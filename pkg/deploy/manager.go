package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opsloom/sentinel/pkg/executor"
)

// MetricSampler samples a stage's observed metrics once; the manager
// averages samples itself over the stage's monitor window.
type MetricSampler interface {
	Sample(ctx context.Context, stageName string, targets any) (ObservedMetrics, error)
}

// ApprovalGate blocks until a stage's requireApproval decision is made.
type ApprovalGate interface {
	Await(ctx context.Context, deploymentID, stageName string) (approved bool)
}

// Backuper prepares backups/uploads patched files/restarts services on
// targets as part of the common deploy prelude.
type Backuper interface {
	Backup(ctx context.Context, targets any) error
	Upload(ctx context.Context, targets any, patchID string) error
	RestartServices(ctx context.Context, targets any) error
}

// Rollbacker is the subset of the Rollback Engine the manager invokes on
// stage failure when AutoRollback is set.
type Rollbacker interface {
	Rollback(ctx context.Context, d Deployment, reason string, partial bool) error
}

// Manager orchestrates deployHotfix.
type Manager struct {
	exec     *executor.Executor
	sampler  MetricSampler
	approval ApprovalGate
	backup   Backuper
	rollback Rollbacker
	log      *slog.Logger
}

// New constructs a Manager. sampler, approval, backup, and rollback may be
// nil; a nil sampler degrades monitoring to an always-passing no-op.
func New(exec *executor.Executor, sampler MetricSampler, approval ApprovalGate, backup Backuper, rollback Rollbacker, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{exec: exec, sampler: sampler, approval: approval, backup: backup, rollback: rollback, log: log}
}

// DeployHotfix runs the configured strategy end-to-end.
func (m *Manager) DeployHotfix(ctx context.Context, spec Spec) Deployment {
	d := Deployment{
		ID:         uuid.NewString(),
		PatchID:    spec.PatchID,
		Repository: spec.Repository,
		Strategy:   spec.Strategy,
		StartedAt:  time.Now(),
	}

	var err error
	switch spec.Strategy {
	case StrategyCanary:
		err = m.runCanary(ctx, spec, &d)
	case StrategyBlueGreen:
		err = m.runBlueGreen(ctx, spec, &d)
	case StrategyDirect:
		err = m.runDirect(ctx, spec, &d)
	default:
		err = fmt.Errorf("unknown strategy %q", spec.Strategy)
	}

	d.CompletedAt = time.Now()
	if err != nil {
		d.Error = err.Error()
		if spec.AutoRollback && m.rollback != nil {
			if rbErr := m.rollback.Rollback(ctx, d, err.Error(), true); rbErr != nil {
				m.log.Error("deploy: rollback failed", "error", rbErr)
				d.Status = StatusFailed
			} else {
				d.Status = StatusRolledBack
				d.RolledBack = true
			}
		} else {
			d.Status = StatusFailed
		}
		return d
	}

	d.Status = StatusCompleted
	return d
}

// runCanary executes ordered stages in declared order.
func (m *Manager) runCanary(ctx context.Context, spec Spec, d *Deployment) error {
	for _, stage := range spec.Stages {
		result, err := m.runStage(ctx, d.ID, stage)
		d.Stages = append(d.Stages, result)
		if err != nil {
			return err
		}
	}
	return nil
}

// runDirect deploys and health-checks once.
func (m *Manager) runDirect(ctx context.Context, spec Spec, d *Deployment) error {
	if len(spec.Stages) == 0 {
		return fmt.Errorf("direct strategy requires a stage")
	}
	stage := spec.Stages[0]
	stage.Percentage = 100
	result, err := m.runStage(ctx, d.ID, stage)
	d.Stages = append(d.Stages, result)
	return err
}

// runBlueGreen deploys to green and health-checks it, then monitors green
// against its thresholds once per traffic step (10%, 50%, 100%, in that
// order); the first breach fails the deployment. It does not move traffic
// itself: nothing is switched back to blue on a breach, and blue is not
// shut down on success.
func (m *Manager) runBlueGreen(ctx context.Context, spec Spec, d *Deployment) error {
	if len(spec.Stages) == 0 {
		return fmt.Errorf("blue_green strategy requires a green stage")
	}
	green := spec.Stages[0]
	greenResult, err := m.deployAndHealthCheck(ctx, green)
	d.Stages = append(d.Stages, greenResult)
	if err != nil {
		return fmt.Errorf("green deploy failed: %w", err)
	}

	steps := []int{10, 50, 100}
	for _, pct := range steps {
		stepName := fmt.Sprintf("traffic-%d", pct)
		metrics, err := m.monitorStage(ctx, stepName, green.Targets, green.MonitorDuration, green.SampleInterval)
		if err != nil {
			return fmt.Errorf("traffic shift %d%%: %w", pct, err)
		}
		if breach := metrics.Breach(green.Thresholds); breach != "" {
			d.Stages = append(d.Stages, StageResult{
				Name: stepName, Percentage: pct, Status: StageFailed,
				StartedAt: time.Now(), CompletedAt: time.Now(), Metrics: metrics, Error: breach,
			})
			return fmt.Errorf("traffic shift %d%%: %s", pct, breach)
		}
		d.Stages = append(d.Stages, StageResult{
			Name: stepName, Percentage: pct, Status: StageSuccess,
			StartedAt: time.Now(), CompletedAt: time.Now(), Metrics: metrics,
		})
	}
	return nil
}

func (m *Manager) deployAndHealthCheck(ctx context.Context, stage StageSpec) (StageResult, error) {
	result := StageResult{Name: stage.Name, Percentage: stage.Percentage, Status: StageInProgress, StartedAt: time.Now()}

	if m.backup != nil {
		if err := m.prelude(ctx, stage); err != nil {
			result.Status = StageFailed
			result.Error = err.Error()
			result.CompletedAt = time.Now()
			return result, err
		}
	}

	if err := m.healthCheck(ctx, stage); err != nil {
		result.Status = StageFailed
		result.Error = err.Error()
		result.CompletedAt = time.Now()
		return result, err
	}

	result.Status = StageSuccess
	result.CompletedAt = time.Now()
	return result, nil
}

// runStage executes the full per-stage lifecycle: deploy, health check,
// metric monitor, threshold validation, approval gate, wait.
func (m *Manager) runStage(ctx context.Context, deploymentID string, stage StageSpec) (StageResult, error) {
	result, err := m.deployAndHealthCheck(ctx, stage)
	if err != nil {
		return result, err
	}

	metrics, err := m.monitorStage(ctx, stage.Name, stage.Targets, stage.MonitorDuration, stage.SampleInterval)
	if err != nil {
		result.Status = StageFailed
		result.Error = err.Error()
		return result, err
	}
	result.Metrics = metrics

	if breach := metrics.Breach(stage.Thresholds); breach != "" {
		result.Status = StageFailed
		result.Error = breach
		return result, fmt.Errorf("%s", breach)
	}

	if stage.RequireApproval && m.approval != nil {
		if !m.approval.Await(ctx, deploymentID, stage.Name) {
			result.Status = StageFailed
			result.Error = "approval denied"
			return result, fmt.Errorf("stage %s: approval denied", stage.Name)
		}
	}

	if stage.WaitTime > 0 {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(stage.WaitTime):
		}
	}

	result.Status = StageSuccess
	result.CompletedAt = time.Now()
	return result, nil
}

func (m *Manager) prelude(ctx context.Context, stage StageSpec) error {
	if err := m.backup.Backup(ctx, stage.Targets); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if err := m.backup.Upload(ctx, stage.Targets, ""); err != nil {
		return fmt.Errorf("upload patched files: %w", err)
	}
	if err := m.backup.RestartServices(ctx, stage.Targets); err != nil {
		return fmt.Errorf("restart services: %w", err)
	}
	return nil
}

func (m *Manager) healthCheck(ctx context.Context, stage StageSpec) error {
	if stage.HealthCheckCmd == "" || m.exec == nil {
		return nil
	}
	attempts := stage.HealthAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := stage.HealthBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		br, err := m.exec.Execute(ctx, stage.Targets, stage.HealthCheckCmd, executor.Options{Parallel: true})
		if err != nil {
			lastErr = err
		} else if br.OverallSuccess {
			return nil
		} else {
			lastErr = fmt.Errorf("health check failed on one or more targets")
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("health check: %w", lastErr)
}

func (m *Manager) monitorStage(ctx context.Context, name string, targets any, duration, interval time.Duration) (ObservedMetrics, error) {
	if m.sampler == nil {
		return ObservedMetrics{}, nil
	}
	if duration <= 0 {
		duration = 30 * time.Second
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	var sum ObservedMetrics
	count := 0
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		sample, err := m.sampler.Sample(ctx, name, targets)
		if err != nil {
			return ObservedMetrics{}, fmt.Errorf("sampling metrics: %w", err)
		}
		sum.ErrorRate += sample.ErrorRate
		sum.ResponseTime += sample.ResponseTime
		sum.CPU += sample.CPU
		sum.Memory += sample.Memory
		count++

		select {
		case <-ctx.Done():
			return ObservedMetrics{}, ctx.Err()
		case <-time.After(interval):
		}
	}
	if count == 0 {
		return ObservedMetrics{}, nil
	}
	return ObservedMetrics{
		ErrorRate:    sum.ErrorRate / float64(count),
		ResponseTime: sum.ResponseTime / float64(count),
		CPU:          sum.CPU / float64(count),
		Memory:       sum.Memory / float64(count),
	}, nil
}
