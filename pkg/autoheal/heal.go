package autoheal

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ActionRecord is the outcome of one executed playbook action.
type ActionRecord struct {
	Command    string `json:"command"`
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// HealResult is the outcome of one heal() invocation.
type HealResult struct {
	Success    bool
	Scenario   string
	Playbook   string
	Actions    []ActionRecord
	IncidentID string
	Timestamp  time.Time
	Duration   time.Duration
	Reason     string
	ReportPath string
}

// Executor selects and runs playbooks against context, sanitizing and
// sequentially executing each instantiated command.
type Executor struct {
	store    *Store
	runner   CommandRunner
	reporter ReportWriter
	log      *slog.Logger

	seq atomic.Uint64
}

// NewExecutor constructs an Executor.
func NewExecutor(store *Store, runner CommandRunner, reporter ReportWriter, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{store: store, runner: runner, reporter: reporter, log: log}
}

func (e *Executor) nextIncidentID() string {
	n := e.seq.Add(1)
	return fmt.Sprintf("heal-%d", time.Now().UnixNano()+int64(n))
}

// TriggerAsync spawns a Heal call without waiting for it, satisfying
// alert.AutoHealTrigger — the alert pipeline dispatches a heal and moves on
// without awaiting its outcome.
func (e *Executor) TriggerAsync(scenario string, rawContext map[string]any) {
	go e.Heal(context.Background(), scenario, rawContext)
}

// Heal selects a playbook for scenario/context and executes it
// sequentially, stopping at the first failing action.
func (e *Executor) Heal(ctx context.Context, scenario string, rawContext map[string]any) HealResult {
	start := time.Now()

	validScenario, err := validateScenario(scenario)
	if err != nil {
		return HealResult{Success: false, Scenario: scenario, Reason: err.Error(), Timestamp: start}
	}

	validated, err := validateContext(rawContext, e.log)
	if err != nil {
		return HealResult{Success: false, Scenario: validScenario, Reason: err.Error(), Timestamp: start}
	}

	playbook, ok := e.selectPlaybook(validScenario, validated.Numeric)
	if !ok {
		return HealResult{Success: false, Scenario: validScenario, Reason: "No applicable playbook found", Timestamp: start}
	}

	result := HealResult{
		Scenario:   validScenario,
		Playbook:   playbook.Name,
		IncidentID: e.nextIncidentID(),
		Timestamp:  start,
	}

	values := validated.templateValues()
	success := true
	for _, template := range playbook.Actions {
		command := instantiate(template, values)
		record := e.runAction(ctx, command)
		result.Actions = append(result.Actions, record)
		if !record.Success {
			success = false
			break
		}
	}

	result.Success = success
	result.Duration = time.Since(start)
	if !success {
		result.Reason = "playbook action failed"
	}

	if e.reporter != nil {
		if path, err := e.reporter.WriteIncidentReport(result); err != nil {
			e.log.Warn("autoheal: failed writing incident report", "error", err)
		} else {
			result.ReportPath = path
		}
	}

	return result
}

// selectPlaybook implements two-stage selection: direct scenario match,
// else first-by-insertion-order playbook whose condition evaluates true.
func (e *Executor) selectPlaybook(scenario string, numericContext map[string]float64) (Playbook, bool) {
	if p, ok := e.store.Get(scenario); ok {
		return p, true
	}
	for _, p := range e.store.InOrder() {
		if p.Condition == "" {
			continue
		}
		if evalCondition(p.Condition, numericContext) {
			return p, true
		}
	}
	return Playbook{}, false
}

func (e *Executor) runAction(ctx context.Context, command string) ActionRecord {
	start := time.Now()
	record := ActionRecord{Command: command}

	if err := sanitize(command); err != nil {
		record.Error = err.Error()
		record.DurationMs = time.Since(start).Milliseconds()
		return record
	}

	stdout, stderr, err := e.runner.Run(ctx, command)
	record.Stdout = stdout
	record.Stderr = stderr
	record.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		record.Error = err.Error()
		return record
	}
	record.Success = true
	return record
}
