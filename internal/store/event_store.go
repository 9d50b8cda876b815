package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one structured pipeline record: which stage ran, for whom, how
// long it took, and what it matched. Side effect only, never a correctness
// dependency.
type Event struct {
	ID         uuid.UUID     `json:"id"`
	BusinessID string        `json:"business_id"`
	SenderID   string        `json:"sender_id"`
	Channel    string        `json:"channel"`
	Stage      string        `json:"stage"` // pipeline layer or engine step
	Duration   time.Duration `json:"duration"`
	Content    string        `json:"content,omitempty"` // matched phrase / reply preview / error detail
	CreatedAt  time.Time     `json:"created_at"`
}

// EventStore persists pipeline events. Implementations must be safe to
// call fire-and-forget; errors are for the caller to log, nothing more.
type EventStore interface {
	Record(ctx context.Context, ev Event) error
}
