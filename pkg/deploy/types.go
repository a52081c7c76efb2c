// Package deploy implements multi-stage rollout (canary/blue-green/direct)
// with per-stage health and metric gating, backed by the Remote Executor
// and Connection Pool.
package deploy

import "time"

// Strategy names a rollout strategy.
type Strategy string

const (
	StrategyCanary    Strategy = "canary"
	StrategyBlueGreen Strategy = "blue_green"
	StrategyDirect    Strategy = "direct"
)

// Status is a Deployment's terminal status.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// StageStatus is one StageResult's lifecycle state.
type StageStatus string

const (
	StageInProgress StageStatus = "in_progress"
	StageSuccess    StageStatus = "success"
	StageFailed     StageStatus = "failed"
)

// StageSpec configures one rollout stage.
type StageSpec struct {
	Name            string
	Percentage      int
	Targets         any // resolved via fleet.Registry, like executor targets
	HealthCheckCmd  string
	HealthAttempts  int
	HealthBackoff   time.Duration
	MonitorDuration time.Duration
	SampleInterval  time.Duration
	Thresholds      MetricThresholds
	RequireApproval bool
	WaitTime        time.Duration
}

// MetricThresholds gates a stage's observed average metrics.
type MetricThresholds struct {
	MaxErrorRate    float64
	MaxResponseTime float64
	MaxCPU          float64
	MaxMemory       float64
}

// ObservedMetrics is the averaged sample set gathered during a stage's
// monitor window.
type ObservedMetrics struct {
	ErrorRate    float64
	ResponseTime float64
	CPU          float64
	Memory       float64
}

// Breach returns the first threshold the observed metrics violate, if any.
func (o ObservedMetrics) Breach(t MetricThresholds) string {
	switch {
	case t.MaxErrorRate > 0 && o.ErrorRate > t.MaxErrorRate:
		return "errorRate validation breach"
	case t.MaxResponseTime > 0 && o.ResponseTime > t.MaxResponseTime:
		return "responseTime validation breach"
	case t.MaxCPU > 0 && o.CPU > t.MaxCPU:
		return "cpu validation breach"
	case t.MaxMemory > 0 && o.Memory > t.MaxMemory:
		return "memory validation breach"
	default:
		return ""
	}
}

// StageResult is one executed stage's outcome.
type StageResult struct {
	Name        string          `json:"name"`
	Percentage  int             `json:"percentage"`
	Status      StageStatus     `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt,omitempty"`
	Metrics     ObservedMetrics `json:"metrics"`
	Error       string          `json:"error,omitempty"`
}

// Spec is the deployHotfix request.
type Spec struct {
	PatchID      string
	Repository   string
	Strategy     Strategy
	Stages       []StageSpec
	AutoRollback bool
}

// Deployment is the result of one deployHotfix invocation.
type Deployment struct {
	ID          string        `json:"id"`
	PatchID     string        `json:"patchId"`
	Repository  string        `json:"repository"`
	Strategy    Strategy      `json:"strategy"`
	Stages      []StageResult `json:"stages"`
	Status      Status        `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt,omitempty"`
	Error       string        `json:"error,omitempty"`
	RolledBack  bool          `json:"rolledBack"`
}
