// Package approval provides a minimal default-deny approval gate shared by
// the Deploy Manager's per-stage requireApproval and the Rollback Engine's
// critical-operation gate. Absent an explicit Grant call, Await returns
// false at once, without blocking — a deploy stage that requires approval
// fails as denied, and critical rollbacks fall back to dry-run, both
// defaulting safe rather than proceeding unattended.
package approval

import "context"

// key identifies one pending approval by (subject, label) — a deployment ID
// paired with a stage name or rollback reason.
type key struct {
	subject string
	label   string
}

// Gate is an in-memory, process-wide approval registry. It mirrors the
// Remote Executor's own approval registry (pkg/executor) but is decoupled
// from it since deploy/rollback approvals are a distinct decision from
// command-allowlist approval.
type Gate struct {
	granted map[key]bool
}

// NewGate constructs an empty Gate.
func NewGate() *Gate {
	return &Gate{granted: make(map[key]bool)}
}

// Grant records an operator's approval (or denial) decision for subject/label.
func (g *Gate) Grant(subject, label string, approved bool) {
	g.granted[key{subject, label}] = approved
}

// Await implements both deploy.ApprovalGate and rollback.ApprovalGate
// (identical method shape: ctx, subject id, label) -> approved. It never
// blocks: an unresolved approval is simply treated as not-yet-granted.
func (g *Gate) Await(ctx context.Context, subject, label string) bool {
	return g.granted[key{subject, label}]
}
