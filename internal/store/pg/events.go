package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// PGEventStore appends pipeline events to an audit table.
type PGEventStore struct {
	db *sql.DB
}

func NewPGEventStore(db *sql.DB) *PGEventStore {
	return &PGEventStore{db: db}
}

func (s *PGEventStore) Record(ctx context.Context, ev store.Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.Must(uuid.NewV7())
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_events (id, business_id, sender_id, channel, stage, duration_ms, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.BusinessID, ev.SenderID, ev.Channel, ev.Stage,
		ev.Duration.Milliseconds(), ev.Content, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}
