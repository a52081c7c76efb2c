// Package orchestrator implements a heartbeat loop that runs due-time
// tasks concurrently with independent failure domains, and decides when
// to emit daily/weekly operations reports.
package orchestrator

import "time"

// Default per-task intervals.
const (
	MetricsInterval = 5 * time.Minute
	LogsInterval    = 10 * time.Minute
	AlertsInterval  = 2 * time.Minute

	// DefaultReportHour is the local hour at which the daily report runs,
	// absent an explicit ReportHour override.
	DefaultReportHour = 9
	weeklyReportHour  = 10
	weeklyMinDays     = 6
)

// dueByInterval reports whether a periodic task is due: never run, or its
// interval has elapsed since lastRun.
func dueByInterval(lastRun time.Time, interval time.Duration, now time.Time) bool {
	return lastRun.IsZero() || now.Sub(lastRun) >= interval
}

// dueDailyReport reports whether the daily report should run: local hour
// equals reportHour and it hasn't already run today.
func dueDailyReport(lastDaily time.Time, reportHour int, now time.Time) bool {
	if now.Hour() != reportHour {
		return false
	}
	return lastDaily.IsZero() || !sameCalendarDay(lastDaily, now)
}

// dueWeeklyReport reports whether the weekly report should run: Monday,
// local hour 10, and at least weeklyMinDays since the last daily report.
func dueWeeklyReport(lastDaily time.Time, now time.Time) bool {
	if now.Weekday() != time.Monday || now.Hour() != weeklyReportHour {
		return false
	}
	if lastDaily.IsZero() {
		return true
	}
	return now.Sub(lastDaily) >= weeklyMinDays*24*time.Hour
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
