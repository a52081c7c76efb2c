// Package executor implements target resolution, command allow-policy,
// parallel/sequential fan-out over the connection pool, per-exec
// timeout, and a bounded audit trail.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsloom/sentinel/pkg/fleet"
	"github.com/opsloom/sentinel/pkg/sshpool"
)

const (
	defaultExecTimeout = 30 * time.Second
	auditCapacity      = 1000
	auditRecentN       = 10
)

// ApprovalRequest is the extension point for gated commands: every
// RequireApproval call registers a new pending request and is denied.
// Approve/Deny record a decision on an existing request, but Execute never
// consults an earlier request, so a recorded approval does not let a later
// call through.
type ApprovalRequest struct {
	ID       uint64
	Target   any
	Command  string
	Decision ApprovalDecision
}

// ApprovalDecision is the outcome of an ApprovalRequest.
type ApprovalDecision int

const (
	ApprovalPending ApprovalDecision = iota
	ApprovalApproved
	ApprovalDenied
)

// Options configure a single execute() call.
type Options struct {
	Parallel        bool
	DryRun          bool
	RequireApproval bool
	Timeout         time.Duration
}

// Executor is the Remote Executor. It borrows connections from a Pool for
// the duration of one command and never holds them longer.
type Executor struct {
	registry *fleet.Registry
	pool     *sshpool.Pool
	policy   Policy
	log      *slog.Logger

	audit *auditRing

	mu        sync.Mutex
	approvals map[uint64]*ApprovalRequest
	nextID    atomic.Uint64
}

// New constructs an Executor over registry and pool, enforcing policy.
func New(registry *fleet.Registry, pool *sshpool.Pool, policy Policy, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		registry:  registry,
		pool:      pool,
		policy:    policy,
		log:       log,
		audit:     newAuditRing(auditCapacity),
		approvals: make(map[uint64]*ApprovalRequest),
	}
}

// Execute resolves target, enforces policy, and dispatches command either
// in parallel or sequentially, returning an aggregated BatchResult.
func (e *Executor) Execute(ctx context.Context, target any, command string, opts Options) (fleet.BatchResult, error) {
	hosts := e.registry.Resolve(target)

	entry := AuditEntry{
		Timestamp: time.Now(),
		Target:    target,
		Command:   command,
		Parallel:  opts.Parallel,
		DryRun:    opts.DryRun,
	}
	defer func() { e.audit.append(entry) }()

	if !e.policy.Allow(command) {
		entry.Denied = true
		results := denyAll(hosts, "command denied by policy")
		br := fleet.NewBatchResult(results)
		entry.Summary = br.Summary
		return br, nil
	}

	if opts.RequireApproval {
		req := e.register(target, command)
		if req.Decision != ApprovalApproved {
			entry.Denied = true
			results := denyAll(hosts, "approval required and not granted")
			br := fleet.NewBatchResult(results)
			entry.Summary = br.Summary
			return br, nil
		}
	}

	if opts.DryRun {
		results := make([]fleet.ExecutionResult, 0, len(hosts))
		now := time.Now()
		for _, h := range hosts {
			results = append(results, fleet.ExecutionResult{
				Host: h.Identity, Success: true, ExitCode: 0,
				Stdout: "(dry-run)", Timestamp: now,
			})
		}
		br := fleet.NewBatchResult(results)
		entry.Summary = br.Summary
		return br, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}

	var results []fleet.ExecutionResult
	if opts.Parallel {
		results = e.runParallel(ctx, hosts, command, timeout)
	} else {
		results = e.runSequential(ctx, hosts, command, timeout)
	}

	br := fleet.NewBatchResult(results)
	entry.Summary = br.Summary
	return br, nil
}

func denyAll(hosts []fleet.Host, reason string) []fleet.ExecutionResult {
	now := time.Now()
	out := make([]fleet.ExecutionResult, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, fleet.ExecutionResult{
			Host: h.Identity, Success: false, Error: reason, Timestamp: now,
		})
	}
	return out
}

func (e *Executor) runParallel(ctx context.Context, hosts []fleet.Host, command string, timeout time.Duration) []fleet.ExecutionResult {
	results := make([]fleet.ExecutionResult, len(hosts))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range hosts {
		i, h := i, h
		g.Go(func() error {
			results[i] = e.runOne(gctx, h, command, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) runSequential(ctx context.Context, hosts []fleet.Host, command string, timeout time.Duration) []fleet.ExecutionResult {
	results := make([]fleet.ExecutionResult, 0, len(hosts))
	for _, h := range hosts {
		results = append(results, e.runOne(ctx, h, command, timeout))
	}
	return results
}

func (e *Executor) runOne(ctx context.Context, h fleet.Host, command string, timeout time.Duration) fleet.ExecutionResult {
	start := time.Now()
	res := fleet.ExecutionResult{Host: h.Identity, Timestamp: start}

	client, err := e.pool.Acquire(ctx, h)
	if err != nil {
		res.Error = fmt.Sprintf("acquire connection: %v", err)
		res.DurationMs = time.Since(start).Milliseconds()
		return res
	}
	defer e.pool.Release(h)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := client.NewSession()
	if err != nil {
		res.Error = fmt.Sprintf("open session: %v", err)
		res.DurationMs = time.Since(start).Milliseconds()
		return res
	}
	defer session.Close()

	done := make(chan struct{})
	var out []byte
	var runErr error
	go func() {
		out, runErr = session.CombinedOutput(command)
		close(done)
	}()

	select {
	case <-done:
	case <-execCtx.Done():
		_ = session.Close()
		res.Error = "timeout"
		res.DurationMs = time.Since(start).Milliseconds()
		return res
	}

	res.Stdout = string(out)
	res.DurationMs = time.Since(start).Milliseconds()
	if runErr != nil {
		res.Success = false
		res.Error = runErr.Error()
		return res
	}
	res.Success = true
	res.ExitCode = 0
	return res
}

// register creates a pending ApprovalRequest (denied by default).
func (e *Executor) register(target any, command string) *ApprovalRequest {
	id := e.nextID.Add(1)
	req := &ApprovalRequest{ID: id, Target: target, Command: command, Decision: ApprovalPending}
	e.mu.Lock()
	e.approvals[id] = req
	e.mu.Unlock()
	return req
}

// Approve flips a pending ApprovalRequest to approved.
func (e *Executor) Approve(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	req, ok := e.approvals[id]
	if !ok {
		return false
	}
	req.Decision = ApprovalApproved
	return true
}

// Deny flips a pending ApprovalRequest to denied.
func (e *Executor) Deny(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	req, ok := e.approvals[id]
	if !ok {
		return false
	}
	req.Decision = ApprovalDenied
	return true
}

// Status exposes the latest 10 audit entries.
func (e *Executor) Status() []AuditEntry {
	return e.audit.recent(auditRecentN)
}
