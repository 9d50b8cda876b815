package channels

import (
	"sync"
	"time"
)

const (
	// maxTrackedSenders caps the number of tracked webhook senders so a
	// flood of rotating sender ids cannot exhaust memory.
	maxTrackedSenders = 4096

	// senderWindow is the sliding window for per-sender counting.
	senderWindow = 60 * time.Second

	// senderMaxHits is the max webhook events per sender within a window.
	senderMaxHits = 30
)

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// WebhookRateLimiter bounds per-sender webhook event rates. Channels
// that receive HTTP webhooks (Instagram, Messenger, web chat) consult it
// before publishing to the bus. Safe for concurrent use.
type WebhookRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

// NewWebhookRateLimiter creates a bounded webhook rate limiter.
func NewWebhookRateLimiter() *WebhookRateLimiter {
	return &WebhookRateLimiter{entries: make(map[string]*rateLimitEntry)}
}

// Allow returns true if the sender is within rate limits. Stale entries
// are pruned when the tracked set approaches the cap.
func (r *WebhookRateLimiter) Allow(senderKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	if len(r.entries) >= maxTrackedSenders {
		for k, e := range r.entries {
			if now.Sub(e.windowStart) >= senderWindow {
				delete(r.entries, k)
			}
		}
		for len(r.entries) >= maxTrackedSenders {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[senderKey]
	if !ok || now.Sub(e.windowStart) >= senderWindow {
		r.entries[senderKey] = &rateLimitEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= senderMaxHits
}
