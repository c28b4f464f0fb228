// Package ratelimit enforces a fixed-window request cap per client,
// counted in redis so the window is shared across server instances.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Counter increments the named key and returns the new count. The
// window duration bounds the key's lifetime in the backing store.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter caps requests per client per fixed window for one route.
type Limiter struct {
	counter Counter
	name    string
	limit   int64
	window  time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a limiter for the named route allowing limit requests
// per window.
func New(counter Counter, name string, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		counter: counter,
		name:    name,
		limit:   int64(limit),
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether the client may proceed, and how long until the
// current window resets. The limiter fails open when the counter store
// is unreachable.
func (l *Limiter) Allow(ctx context.Context, clientID string) (bool, time.Duration) {
	now := l.now()
	slot := now.UnixNano() / int64(l.window)
	retryAfter := time.Duration(slot+1)*l.window - time.Duration(now.UnixNano())

	key := fmt.Sprintf("ratelimit:%s:%s:%d", l.name, clientID, slot)
	count, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		l.logger.Warn("rate limiter store unreachable, allowing request", "route", l.name, "error", err)
		return true, 0
	}
	return count <= l.limit, retryAfter
}
