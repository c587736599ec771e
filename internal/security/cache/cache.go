package cache

import (
	"context"
	"time"
)

// ReplayCache remembers (token, nonce) pairs for the replay window.
// The in-memory form is single-instance only; a clustered deployment
// swaps in the redis form without touching call sites.
type ReplayCache interface {
	// MarkNonce records the pair and reports whether it was fresh.
	// A false return means the nonce was already seen inside ttl.
	MarkNonce(ctx context.Context, token, nonce string, ttl time.Duration) (bool, error)
}

// RateLimiter enforces a sliding-window request ceiling per key.
type RateLimiter interface {
	// Allow counts one request against key and reports whether it fits
	// inside the window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
