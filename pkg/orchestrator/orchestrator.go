package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskResult is one task's outcome within a single heartbeat.
type TaskResult struct {
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Summary is heartbeat()'s return value.
type Summary struct {
	Timestamp      time.Time    `json:"timestamp"`
	RunCount       uint64       `json:"runCount"`
	TasksExecuted  int          `json:"tasksExecuted"`
	Successful     int          `json:"successful"`
	Failed         int          `json:"failed"`
	Results        []TaskResult `json:"results"`
}

// Task is one named unit of scheduled work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// ReportGenerator decides and emits daily/weekly operations reports; it is
// invoked on every heartbeat and internally decides whether anything is due.
type ReportGenerator interface {
	// MaybeGenerate runs the daily/weekly report evaluation and emits
	// whichever report(s) are due, given the current due-decisions.
	MaybeGenerate(ctx context.Context, daily, weekly bool) error
}

// Orchestrator runs the heartbeat loop.
type Orchestrator struct {
	metrics Task
	logs    Task
	alerts  Task
	reports ReportGenerator

	reportHour int
	now        func() time.Time
	log        *slog.Logger

	mu              sync.Mutex
	runCount        uint64
	lastRun         map[string]time.Time
	lastDailyReport time.Time

	stop chan struct{}
}

// New constructs an Orchestrator. reportHour<=0 uses DefaultReportHour.
func New(metrics, logs, alerts Task, reports ReportGenerator, reportHour int, log *slog.Logger) *Orchestrator {
	if reportHour <= 0 {
		reportHour = DefaultReportHour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		metrics:    metrics,
		logs:       logs,
		alerts:     alerts,
		reports:    reports,
		reportHour: reportHour,
		now:        time.Now,
		log:        log,
		lastRun:    make(map[string]time.Time),
	}
}

const (
	taskMetrics      = "metrics"
	taskLogs         = "logs"
	taskAlerts       = "alerts"
	taskDailyReport  = "daily-report"
	taskWeeklyReport = "weekly-report"
	taskReports      = "reports"
)

// Heartbeat increments runCount, composes the due task list, runs all due
// tasks concurrently with independent failure domains, and returns the
// summary.
func (o *Orchestrator) Heartbeat(ctx context.Context) Summary {
	o.mu.Lock()
	o.runCount++
	runCount := o.runCount
	now := o.now()

	due := make([]Task, 0, 5)
	if dueByInterval(o.lastRun[taskMetrics], MetricsInterval, now) {
		due = append(due, o.metrics)
	}
	if dueByInterval(o.lastRun[taskLogs], LogsInterval, now) {
		due = append(due, o.logs)
	}
	if dueByInterval(o.lastRun[taskAlerts], AlertsInterval, now) {
		due = append(due, o.alerts)
	}

	dailyDue := dueDailyReport(o.lastDailyReport, o.reportHour, now)
	weeklyDue := dueWeeklyReport(o.lastDailyReport, now)
	if o.reports != nil {
		due = append(due, Task{
			Name: reportTaskName(dailyDue, weeklyDue),
			Run: func(ctx context.Context) error {
				return o.reports.MaybeGenerate(ctx, dailyDue, weeklyDue)
			},
		})
	}
	o.mu.Unlock()

	results := o.runConcurrently(ctx, due)

	o.mu.Lock()
	for _, r := range results {
		switch r.Name {
		case taskMetrics, taskLogs, taskAlerts:
			o.lastRun[r.Name] = now
		case taskDailyReport, taskDailyReport + "+" + taskWeeklyReport:
			if dailyDue {
				o.lastDailyReport = now
			}
		}
	}
	o.mu.Unlock()

	summary := Summary{Timestamp: now, RunCount: runCount, TasksExecuted: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func reportTaskName(daily, weekly bool) string {
	switch {
	case daily && weekly:
		return taskDailyReport + "+" + taskWeeklyReport
	case weekly:
		return taskWeeklyReport
	case daily:
		return taskDailyReport
	default:
		return taskReports
	}
}

// runConcurrently runs each due task in its own goroutine; a panicking or
// erroring task never aborts its peers.
func (o *Orchestrator) runConcurrently(ctx context.Context, tasks []Task) []TaskResult {
	if len(tasks) == 0 {
		return nil
	}
	results := make([]TaskResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			results[i] = o.runOne(ctx, task)
		}(i, task)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) runOne(ctx context.Context, task Task) (result TaskResult) {
	result.Name = task.Name
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
			o.log.Error("orchestrator task panicked", "task", task.Name, "recovered", r)
		}
		result.DurationMs = o.now().Sub(start).Milliseconds()
	}()

	if err := task.Run(ctx); err != nil {
		result.Success = false
		result.Error = err.Error()
		o.log.Error("orchestrator task failed", "task", task.Name, "error", err)
		return result
	}
	result.Success = true
	return result
}

// Start performs one immediate heartbeat, then schedules recurring
// heartbeats at interval until ctx is cancelled or Stop is called. Panics
// inside a heartbeat are caught so the recurring schedule survives.
func (o *Orchestrator) Start(ctx context.Context, interval time.Duration) {
	o.mu.Lock()
	if o.stop == nil {
		o.stop = make(chan struct{})
	}
	o.mu.Unlock()

	o.safeHeartbeat(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		case <-ticker.C:
			o.safeHeartbeat(ctx)
		}
	}
}

func (o *Orchestrator) safeHeartbeat(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("orchestrator heartbeat panicked", "recovered", r)
		}
	}()
	o.Heartbeat(ctx)
}

// Stop ends a running Start loop.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
}
