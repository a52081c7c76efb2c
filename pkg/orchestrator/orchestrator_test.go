package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func countingTask(name string, n *atomic.Int64, fail bool) Task {
	return Task{Name: name, Run: func(ctx context.Context) error {
		n.Add(1)
		if fail {
			return errors.New("boom")
		}
		return nil
	}}
}

func TestHeartbeatRunsAllTasksOnFirstCall(t *testing.T) {
	var metricsN, logsN, alertsN atomic.Int64
	o := New(
		countingTask("metrics", &metricsN, false),
		countingTask("logs", &logsN, false),
		countingTask("alerts", &alertsN, false),
		nil, 0, nil,
	)
	summary := o.Heartbeat(context.Background())
	if summary.TasksExecuted != 3 {
		t.Fatalf("expected 3 tasks on first heartbeat, got %d", summary.TasksExecuted)
	}
	if summary.RunCount != 1 {
		t.Errorf("expected runCount 1, got %d", summary.RunCount)
	}
	if metricsN.Load() != 1 || logsN.Load() != 1 || alertsN.Load() != 1 {
		t.Errorf("expected each task run once")
	}
}

func TestHeartbeatSkipsNotYetDueTasks(t *testing.T) {
	var metricsN, logsN, alertsN atomic.Int64
	o := New(
		countingTask("metrics", &metricsN, false),
		countingTask("logs", &logsN, false),
		countingTask("alerts", &alertsN, false),
		nil, 0, nil,
	)
	fixed := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return fixed }

	o.Heartbeat(context.Background()) // all due (first run)
	summary := o.Heartbeat(context.Background())
	if summary.TasksExecuted != 0 {
		t.Fatalf("expected no tasks due immediately after first run, got %d", summary.TasksExecuted)
	}
}

func TestHeartbeatFailureInOneTaskDoesNotAbortPeers(t *testing.T) {
	var metricsN, logsN, alertsN atomic.Int64
	o := New(
		countingTask("metrics", &metricsN, true), // fails
		countingTask("logs", &logsN, false),
		countingTask("alerts", &alertsN, false),
		nil, 0, nil,
	)
	summary := o.Heartbeat(context.Background())
	if summary.Failed != 1 || summary.Successful != 2 {
		t.Fatalf("expected 1 failed, 2 successful; got failed=%d successful=%d", summary.Failed, summary.Successful)
	}
	if logsN.Load() != 1 || alertsN.Load() != 1 {
		t.Errorf("expected peer tasks to still run")
	}
}

func TestHeartbeatTaskPanicIsRecovered(t *testing.T) {
	panicking := Task{Name: "metrics", Run: func(ctx context.Context) error {
		panic("kaboom")
	}}
	var logsN, alertsN atomic.Int64
	o := New(panicking, countingTask("logs", &logsN, false), countingTask("alerts", &alertsN, false), nil, 0, nil)
	summary := o.Heartbeat(context.Background())
	if summary.Failed != 1 {
		t.Fatalf("expected the panicking task recorded as failed, got %d failed", summary.Failed)
	}
	if logsN.Load() != 1 || alertsN.Load() != 1 {
		t.Errorf("expected peer tasks to still run despite panic")
	}
}

type recordingReports struct {
	dailyCalls, weeklyCalls int
}

func (r *recordingReports) MaybeGenerate(ctx context.Context, daily, weekly bool) error {
	if daily {
		r.dailyCalls++
	}
	if weekly {
		r.weeklyCalls++
	}
	return nil
}

func TestDailyReportDueAtReportHourOncePerDay(t *testing.T) {
	var n atomic.Int64
	reports := &recordingReports{}
	o := New(countingTask("metrics", &n, false), countingTask("logs", &n, false), countingTask("alerts", &n, false), reports, 9, nil)

	nineAM := time.Date(2026, 7, 27, 9, 0, 0, 0, time.UTC) // Monday
	o.now = func() time.Time { return nineAM }
	o.Heartbeat(context.Background())
	if reports.dailyCalls != 1 {
		t.Fatalf("expected daily report to run at hour 9, got %d calls", reports.dailyCalls)
	}

	// Second heartbeat same day/hour must not re-run the daily report.
	o.Heartbeat(context.Background())
	if reports.dailyCalls != 1 {
		t.Fatalf("expected daily report to run at most once per day, got %d calls", reports.dailyCalls)
	}
}

func TestWeeklyReportRequiresMondayHour10AndSixDaysSinceDaily(t *testing.T) {
	var n atomic.Int64
	reports := &recordingReports{}
	o := New(countingTask("metrics", &n, false), countingTask("logs", &n, false), countingTask("alerts", &n, false), reports, 9, nil)

	lastMonday9am := time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return lastMonday9am }
	o.Heartbeat(context.Background())
	if reports.dailyCalls != 1 {
		t.Fatalf("expected seed daily report, got %d", reports.dailyCalls)
	}

	thisMonday10am := time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return thisMonday10am }
	o.Heartbeat(context.Background())
	if reports.weeklyCalls != 1 {
		t.Fatalf("expected weekly report to run, got %d calls", reports.weeklyCalls)
	}
}

func TestWeeklyReportSkippedWhenFewerThanSixDaysSinceDaily(t *testing.T) {
	var n atomic.Int64
	reports := &recordingReports{}
	o := New(countingTask("metrics", &n, false), countingTask("logs", &n, false), countingTask("alerts", &n, false), reports, 9, nil)

	wednesday9am := time.Date(2026, 7, 22, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return wednesday9am }
	o.Heartbeat(context.Background())

	nextMonday10am := time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC) // 5 days since daily
	o.now = func() time.Time { return nextMonday10am }
	o.Heartbeat(context.Background())
	if reports.weeklyCalls != 0 {
		t.Fatalf("expected weekly report skipped (only 5 days since daily), got %d calls", reports.weeklyCalls)
	}
}

func TestStartRunsImmediatelyThenStops(t *testing.T) {
	var n atomic.Int64
	o := New(countingTask("metrics", &n, false), countingTask("logs", &n, false), countingTask("alerts", &n, false), nil, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Start(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
	if n.Load() < 3 {
		t.Errorf("expected the immediate heartbeat to have run all 3 tasks, got %d total calls", n.Load())
	}
}
