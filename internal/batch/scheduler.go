// Package batch coalesces bursts of message fragments from one sender into
// a single resolution. People type replies across several short messages;
// answering each fragment separately wastes model calls and produces
// disjointed replies.
package batch

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultWindow is the trailing-edge debounce delay: a new fragment always
// pushes the fire time forward by this much.
const DefaultWindow = time.Second

// FireFunc receives the newline-joined fragments of one batch.
type FireFunc func(ctx context.Context, combined string)

type pending struct {
	fragments []string
	timer     *time.Timer
	ctx       context.Context
	fire      FireFunc
}

// Scheduler holds at most one pending batch and one outstanding timer per
// sender key. All fragments buffered for a key are delivered to exactly one
// fire call, in arrival order. Safe for concurrent use across keys.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*pending
	window  time.Duration
}

// NewScheduler creates a scheduler; window <= 0 selects the default.
func NewScheduler(window time.Duration) *Scheduler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Scheduler{
		pending: make(map[string]*pending),
		window:  window,
	}
}

// Schedule buffers a fragment for key and (re)starts the debounce timer.
// When the window elapses with no new fragment, fire is invoked once with
// the joined buffer. The latest ctx and fire passed for a key win.
func (s *Scheduler) Schedule(ctx context.Context, key, fragment string, fire FireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[key]
	if !ok {
		p = &pending{}
		s.pending[key] = p
	}
	p.fragments = append(p.fragments, fragment)
	p.ctx = ctx
	p.fire = fire

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(s.window, func() {
		s.fire(key)
	})
}

// Flush fires any pending batch for key immediately. Used on shutdown.
func (s *Scheduler) Flush(key string) {
	s.fire(key)
}

// PendingKeys returns the keys with a batch still buffering.
func (s *Scheduler) PendingKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	return keys
}

// fire detaches the batch under lock, then resolves outside it. Detaching
// first makes a fragment arriving mid-resolution start a fresh batch
// instead of being lost.
func (s *Scheduler) fire(key string) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok {
		// Timer raced a Flush or an earlier fire; nothing to do.
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	if p.timer != nil {
		p.timer.Stop()
	}
	combined := strings.Join(p.fragments, "\n")
	ctx, fn := p.ctx, p.fire
	s.mu.Unlock()

	if fn != nil {
		fn(ctx, combined)
	}
}
