package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupWindow is the default suppression window.
const DefaultDedupWindow = 5 * time.Minute

// Deduplicator suppresses repeat emissions of the same (metric, level) key
// within a fixed window measured from the last emission. It prefers Redis
// as a shared hot path but degrades to an in-memory map when Redis is
// unavailable or unconfigured; no durable store is required.
type Deduplicator struct {
	rdb    *redis.Client
	window time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	local map[string]time.Time
}

// NewDeduplicator constructs a Deduplicator. rdb may be nil, in which case
// the in-memory map is used exclusively.
func NewDeduplicator(rdb *redis.Client, window time.Duration, logger *slog.Logger) *Deduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{rdb: rdb, window: window, logger: logger, local: make(map[string]time.Time)}
}

// ShouldSuppress reports whether key was last emitted within the window,
// and if not, records now as the new last-emission time (refreshing it).
func (d *Deduplicator) ShouldSuppress(ctx context.Context, key string, now time.Time) bool {
	if d.rdb != nil {
		return d.shouldSuppressRedis(ctx, key, now)
	}
	return d.shouldSuppressLocal(key, now)
}

func (d *Deduplicator) shouldSuppressRedis(ctx context.Context, key string, now time.Time) bool {
	redisKey := "alert:dedup:" + key
	set, err := d.rdb.SetNX(ctx, redisKey, now.Unix(), d.window).Result()
	if err != nil {
		d.logger.Warn("alert dedup: redis unavailable, falling back to in-memory", "error", err)
		return d.shouldSuppressLocal(key, now)
	}
	if set {
		return false
	}
	// Key already existed: this hit is suppressed and the window is left
	// untouched, matching shouldSuppressLocal's fixed-window behavior.
	return true
}

func (d *Deduplicator) shouldSuppressLocal(key string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purgeExpiredLocked(now)
	last, ok := d.local[key]
	if ok && now.Sub(last) < d.window {
		return true
	}
	d.local[key] = now
	return false
}

// purgeExpiredLocked opportunistically evicts expired entries. Caller must
// hold d.mu.
func (d *Deduplicator) purgeExpiredLocked(now time.Time) {
	for k, t := range d.local {
		if now.Sub(t) >= d.window {
			delete(d.local, k)
		}
	}
}
