package autoheal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReportWriter persists a markdown incident report and returns its path.
type ReportWriter interface {
	WriteIncidentReport(result HealResult) (path string, err error)
}

// fileReportWriter writes reports to a directory on the local filesystem.
type fileReportWriter struct {
	dir string
}

// NewFileReportWriter returns a ReportWriter that writes into dir.
func NewFileReportWriter(dir string) ReportWriter {
	return fileReportWriter{dir: dir}
}

func (w fileReportWriter) WriteIncidentReport(result HealResult) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(w.dir, result.IncidentID+".md")
	if err := os.WriteFile(path, []byte(RenderIncidentReport(result)), 0o644); err != nil {
		return "", fmt.Errorf("writing incident report: %w", err)
	}
	return path, nil
}

// RenderIncidentReport renders the markdown incident report: title with
// incident id, a Resolved/Failed status line, per-action numbered
// sections, stdout/stderr blocks, and a manual-intervention note on
// failure.
func RenderIncidentReport(result HealResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Incident Report: %s\n\n", result.IncidentID)
	if result.Success {
		b.WriteString("**Status:** ✅ Resolved\n\n")
	} else {
		b.WriteString("**Status:** ❌ Failed\n\n")
	}
	fmt.Fprintf(&b, "**Scenario:** %s\n", result.Scenario)
	fmt.Fprintf(&b, "**Playbook:** %s\n", result.Playbook)
	fmt.Fprintf(&b, "**Timestamp:** %s\n", result.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "**Duration:** %s\n\n", result.Duration)

	for i, action := range result.Actions {
		fmt.Fprintf(&b, "## Action %d: `%s`\n\n", i+1, action.Command)
		if action.Success {
			b.WriteString("Result: success\n\n")
		} else {
			b.WriteString("Result: failed\n\n")
		}
		if action.Stdout != "" {
			fmt.Fprintf(&b, "**Stdout:**\n```\n%s\n```\n\n", action.Stdout)
		}
		if action.Stderr != "" {
			fmt.Fprintf(&b, "**Stderr:**\n```\n%s\n```\n\n", action.Stderr)
		}
		if action.Error != "" {
			fmt.Fprintf(&b, "**Error:** %s\n\n", action.Error)
		}
	}

	if !result.Success {
		b.WriteString("Manual intervention may be required.\n")
	}

	return b.String()
}
