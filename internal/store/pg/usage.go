package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PGUsageStore tracks monthly consumption counters with one row per
// (business, kind, month).
type PGUsageStore struct {
	db *sql.DB
}

func NewPGUsageStore(db *sql.DB) *PGUsageStore {
	return &PGUsageStore{db: db}
}

func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

func (s *PGUsageStore) Track(ctx context.Context, businessID, kind string, amount int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_counters (business_id, kind, month, amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (business_id, kind, month)
		 DO UPDATE SET amount = usage_counters.amount + EXCLUDED.amount`,
		businessID, kind, currentMonth(), amount,
	)
	if err != nil {
		return fmt.Errorf("track usage: %w", err)
	}
	return nil
}

func (s *PGUsageStore) MonthUsage(ctx context.Context, businessID, kind string) (int64, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx,
		`SELECT amount FROM usage_counters WHERE business_id = $1 AND kind = $2 AND month = $3`,
		businessID, kind, currentMonth(),
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("month usage: %w", err)
	}
	return amount, nil
}

func (s *PGUsageStore) ResetMonth(ctx context.Context) error {
	// Stale months are kept for reporting; only rows older than a year are
	// dropped.
	cutoff := time.Now().UTC().AddDate(-1, 0, 0).Format("2006-01")
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_counters WHERE month < $1`, cutoff,
	)
	if err != nil {
		return fmt.Errorf("reset usage months: %w", err)
	}
	return nil
}
