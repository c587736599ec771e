package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tipcast/tipcast/internal/clock"
)

// MemoryReplayCache is a TTL-indexed map of seen (token, nonce) pairs.
type MemoryReplayCache struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	clock clock.Clock
}

func NewMemoryReplayCache(clk clock.Clock) *MemoryReplayCache {
	return &MemoryReplayCache{
		seen:  make(map[string]time.Time),
		clock: clk,
	}
}

func (c *MemoryReplayCache) MarkNonce(_ context.Context, token, nonce string, ttl time.Duration) (bool, error) {
	key := token + ":" + nonce
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if expires, ok := c.seen[key]; ok && expires.After(now) {
		return false, nil
	}
	c.seen[key] = now.Add(ttl)
	c.prune(now)
	return true, nil
}

// prune drops expired entries. Called under the lock; cheap enough to
// run on every write at the request rates the gate sees.
func (c *MemoryReplayCache) prune(now time.Time) {
	for key, expires := range c.seen {
		if !expires.After(now) {
			delete(c.seen, key)
		}
	}
}

// MemorySlidingWindow is a per-key sliding-window counter.
type MemorySlidingWindow struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	clock   clock.Clock
}

func NewMemorySlidingWindow(clk clock.Clock) *MemorySlidingWindow {
	return &MemorySlidingWindow{
		windows: make(map[string][]time.Time),
		clock:   clk,
	}
}

func (l *MemorySlidingWindow) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := l.clock.Now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.windows[key][:0]
	for _, at := range l.windows[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= limit {
		l.windows[key] = kept
		return false, nil
	}

	l.windows[key] = append(kept, now)
	return true, nil
}
