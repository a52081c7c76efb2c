package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Generator implements orchestrator.ReportGenerator, rendering and writing
// daily/weekly operations reports from a History.
type Generator struct {
	history *History
	dir     string
	now     func() time.Time
}

// NewGenerator constructs a Generator writing markdown reports into dir.
func NewGenerator(history *History, dir string) *Generator {
	return &Generator{history: history, dir: dir, now: time.Now}
}

// MaybeGenerate renders and writes whichever report(s) the orchestrator
// determined are due.
func (g *Generator) MaybeGenerate(ctx context.Context, daily, weekly bool) error {
	if !daily && !weekly {
		return nil
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	now := g.now()

	if daily {
		g.history.mu.Lock()
		samples, incidents := g.history.since(now, 24*time.Hour)
		logs := g.history.lastLogs
		g.history.mu.Unlock()

		content := renderDaily(now, samples, incidents, logs)
		path := filepath.Join(g.dir, fmt.Sprintf("daily-%s.md", now.Format("2006-01-02")))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing daily report: %w", err)
		}
	}

	if weekly {
		g.history.mu.Lock()
		samples, incidents := g.history.since(now, 7*24*time.Hour)
		logs := g.history.lastLogs
		g.history.mu.Unlock()

		content := renderWeekly(now, samples, incidents, logs)
		path := filepath.Join(g.dir, fmt.Sprintf("weekly-%s.md", now.Format("2006-01-02")))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing weekly report: %w", err)
		}
	}

	return nil
}
