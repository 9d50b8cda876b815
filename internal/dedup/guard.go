// Package dedup rejects re-delivered webhook events and already-processed
// message identifiers. Webhook platforms redeliver on slow acknowledgement,
// so both an exact message-id check and a fuzzy event-signature check are
// kept.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an event signature suppresses near-duplicates.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxEntries caps each cache; past it, expired entries are
	// evicted first, then the oldest survivors.
	DefaultMaxEntries = 1000
	// DefaultSweepInterval is the background sweep cadence.
	DefaultSweepInterval = 30 * time.Minute
)

// Signature derives the idempotency key for an event that lacks a platform
// message id: channel + sender + timestamp + leading message text.
func Signature(channel, senderID string, timestamp int64, text string) string {
	if len(text) > 32 {
		text = text[:32]
	}
	return fmt.Sprintf("%s|%s|%d|%s", channel, senderID, timestamp, text)
}

// Guard is a short-lived idempotency cache. Message ids are checked
// exactly; signatures suppress near-duplicates within a TTL window.
// Both caches are bounded and swept periodically. Safe for concurrent use.
type Guard struct {
	mu         sync.Mutex
	messageIDs map[string]time.Time
	signatures map[string]time.Time
	ttl        time.Duration
	maxEntries int
}

// NewGuard creates a guard; zero values select the defaults.
func NewGuard(ttl time.Duration, maxEntries int) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Guard{
		messageIDs: make(map[string]time.Time),
		signatures: make(map[string]time.Time),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// SeenMessageID records a platform message id, reporting true if it was
// already recorded within the TTL window.
func (g *Guard) SeenMessageID(id string) bool {
	if id == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return seen(g.messageIDs, id, g.ttl, g.maxEntries)
}

// SeenSignature records an event signature, reporting true if an identical
// signature was recorded within the TTL window.
func (g *Guard) SeenSignature(sig string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return seen(g.signatures, sig, g.ttl, g.maxEntries)
}

// Sweep drops expired entries from both caches and returns how many were
// removed.
func (g *Guard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	n := 0
	for _, cache := range []map[string]time.Time{g.messageIDs, g.signatures} {
		for k, at := range cache {
			if now.Sub(at) > g.ttl {
				delete(cache, k)
				n++
			}
		}
	}
	return n
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (g *Guard) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep()
		}
	}
}

// seen checks and records key in cache, evicting as needed to stay bounded.
func seen(cache map[string]time.Time, key string, ttl time.Duration, maxEntries int) bool {
	now := time.Now()
	if at, ok := cache[key]; ok && now.Sub(at) <= ttl {
		return true
	}

	if len(cache) >= maxEntries {
		evict(cache, ttl, maxEntries, now)
	}
	cache[key] = now
	return false
}

// evict removes expired entries, then the oldest survivors until the cache
// has room for one more entry.
func evict(cache map[string]time.Time, ttl time.Duration, maxEntries int, now time.Time) {
	for k, at := range cache {
		if now.Sub(at) > ttl {
			delete(cache, k)
		}
	}
	for len(cache) >= maxEntries {
		var oldestKey string
		var oldestAt time.Time
		for k, at := range cache {
			if oldestKey == "" || at.Before(oldestAt) {
				oldestKey = k
				oldestAt = at
			}
		}
		delete(cache, oldestKey)
	}
}
