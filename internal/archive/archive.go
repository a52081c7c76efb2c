// Package archive mirrors Incident/Deployment/Patch history to Postgres
// when a database is configured. It is purely additive: every read in
// the system comes from the in-memory lists/stores the core components
// already keep, never from here.
package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsloom/sentinel/pkg/autoheal"
	"github.com/opsloom/sentinel/pkg/deploy"
	"github.com/opsloom/sentinel/pkg/patch"
)

const (
	bufferSize = 256
)

type entry struct {
	query string
	args  []any
}

// Writer is an async, buffered best-effort archive writer, grounded on the
// teacher's audit.Writer: entries are queued on a channel and flushed by a
// background goroutine; a full buffer drops the entry rather than blocking
// the caller.
type Writer struct {
	pool    *pgxpool.Pool
	log     *slog.Logger
	entries chan entry
	wg      sync.WaitGroup
}

// NewWriter constructs a Writer. pool may be nil, in which case every
// Archive* call is a no-op (no DATABASE_URL configured).
func NewWriter(pool *pgxpool.Pool, log *slog.Logger) *Writer {
	return &Writer{pool: pool, log: log, entries: make(chan entry, bufferSize)}
}

// Start begins the background flush loop. No-op when pool is nil.
func (w *Writer) Start(ctx context.Context) {
	if w.pool == nil {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close drains and stops the flush loop.
func (w *Writer) Close() {
	if w.pool == nil {
		return
	}
	close(w.entries)
	w.wg.Wait()
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case e, ok := <-w.entries:
			if !ok {
				return
			}
			w.write(ctx, e)
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case e, ok := <-w.entries:
			if !ok {
				return
			}
			w.write(context.Background(), e)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, e entry) {
	if _, err := w.pool.Exec(ctx, e.query, e.args...); err != nil {
		w.log.Warn("archive: write failed", "error", err)
	}
}

func (w *Writer) enqueue(e entry) {
	if w.pool == nil {
		return
	}
	select {
	case w.entries <- e:
	default:
		w.log.Warn("archive: buffer full, dropping entry")
	}
}

// ArchiveDeployment mirrors one Deployment.
func (w *Writer) ArchiveDeployment(d deploy.Deployment) {
	payload, err := json.Marshal(d)
	if err != nil {
		w.log.Warn("archive: marshaling deployment", "error", err)
		return
	}
	w.enqueue(entry{
		query: `INSERT INTO deployment_archive (id, patch_id, status, payload, started_at)
		        VALUES ($1, $2, $3, $4, $5)
		        ON CONFLICT (id) DO UPDATE SET status = $3, payload = $4`,
		args: []any{d.ID, d.PatchID, string(d.Status), payload, d.StartedAt},
	})
}

// ArchiveIncident mirrors one AutoHeal HealResult.
func (w *Writer) ArchiveIncident(result autoheal.HealResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		w.log.Warn("archive: marshaling incident", "error", err)
		return
	}
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	w.enqueue(entry{
		query: `INSERT INTO incident_archive (id, scenario, success, payload, occurred_at)
		        VALUES ($1, $2, $3, $4, $5)
		        ON CONFLICT (id) DO NOTHING`,
		args: []any{result.IncidentID, result.Scenario, result.Success, payload, ts},
	})
}

// ArchivePatch mirrors one generated Patch.
func (w *Writer) ArchivePatch(p patch.Patch) {
	payload, err := json.Marshal(p)
	if err != nil {
		w.log.Warn("archive: marshaling patch", "error", err)
		return
	}
	w.enqueue(entry{
		query: `INSERT INTO patch_archive (id, issue_type, payload, generated_at)
		        VALUES ($1, $2, $3, $4)
		        ON CONFLICT (id) DO NOTHING`,
		args: []any{p.ID, p.IssueType, payload, p.Timestamp},
	})
}
