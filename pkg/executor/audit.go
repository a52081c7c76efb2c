package executor

import (
	"sync"
	"time"

	"github.com/opsloom/sentinel/pkg/fleet"
)

// AuditEntry records one execute() invocation for later inspection.
type AuditEntry struct {
	Timestamp time.Time
	Target    any
	Command   string
	Parallel  bool
	DryRun    bool
	Denied    bool
	Summary   fleet.Summary
}

// auditRing is a bounded FIFO ring buffer of the last N invocations,
// adapted from a buffered-channel-backed audit writer into a purely
// in-memory structure since this component has no durable sink.
type auditRing struct {
	mu      sync.Mutex
	entries []AuditEntry
	cap     int
}

func newAuditRing(capacity int) *auditRing {
	return &auditRing{cap: capacity}
}

func (r *auditRing) append(e AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

// recent returns up to n of the most recent entries, newest last.
func (r *auditRing) recent(n int) []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]AuditEntry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}
