package channels

import (
	"fmt"
	"testing"
)

func TestWebhookRateLimiter_AllowsWithinWindow(t *testing.T) {
	r := NewWebhookRateLimiter()
	for i := 0; i < senderMaxHits; i++ {
		if !r.Allow("sender1") {
			t.Fatalf("hit %d denied, want all %d allowed", i+1, senderMaxHits)
		}
	}
	if r.Allow("sender1") {
		t.Error("hit beyond the window limit should be denied")
	}
}

func TestWebhookRateLimiter_SendersAreIndependent(t *testing.T) {
	r := NewWebhookRateLimiter()
	for i := 0; i < senderMaxHits+5; i++ {
		r.Allow("noisy")
	}
	if !r.Allow("quiet") {
		t.Error("an unrelated sender must not inherit the limit")
	}
}

func TestWebhookRateLimiter_BoundedTracking(t *testing.T) {
	r := NewWebhookRateLimiter()
	for i := 0; i < maxTrackedSenders+100; i++ {
		r.Allow(fmt.Sprintf("sender-%d", i))
	}
	r.mu.Lock()
	n := len(r.entries)
	r.mu.Unlock()
	if n > maxTrackedSenders {
		t.Errorf("tracked senders = %d, cap is %d", n, maxTrackedSenders)
	}
}
