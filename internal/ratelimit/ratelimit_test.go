package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCounter is an in-memory Counter mirroring the redis fixed-window
// behavior.
type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}}
}

func (c *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	limiter := New(newMemCounter(), "create", 3, time.Hour, nil)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow(t.Context(), "10.0.0.1")
		require.True(t, allowed, "request %d", i+1)
	}
	allowed, retryAfter := limiter.Allow(t.Context(), "10.0.0.1")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestLimiterIsolatesClients(t *testing.T) {
	limiter := New(newMemCounter(), "create", 1, time.Hour, nil)

	allowed, _ := limiter.Allow(t.Context(), "10.0.0.1")
	require.True(t, allowed)
	allowed, _ = limiter.Allow(t.Context(), "10.0.0.1")
	require.False(t, allowed)

	// A different client gets its own window.
	allowed, _ = limiter.Allow(t.Context(), "10.0.0.2")
	assert.True(t, allowed)
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	limiter := New(newMemCounter(), "create", 1, time.Minute, nil)

	base := time.Unix(1000, 0)
	limiter.now = func() time.Time { return base }

	allowed, _ := limiter.Allow(t.Context(), "10.0.0.1")
	require.True(t, allowed)
	allowed, _ = limiter.Allow(t.Context(), "10.0.0.1")
	require.False(t, allowed)

	// The next window starts a fresh count.
	limiter.now = func() time.Time { return base.Add(time.Minute) }
	allowed, _ = limiter.Allow(t.Context(), "10.0.0.1")
	assert.True(t, allowed)
}

func TestLimiterFailsOpen(t *testing.T) {
	counter := newMemCounter()
	counter.err = errors.New("store unreachable")
	limiter := New(counter, "create", 1, time.Minute, nil)

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow(t.Context(), "10.0.0.1")
		assert.True(t, allowed)
	}
}
