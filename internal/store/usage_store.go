package store

import "context"

// Usage kinds.
const (
	UsageMessage = "message"
	UsageVoice   = "voice"
	UsageImage   = "image"
)

// UsageStore tracks per-business consumption counters. Tracking happens
// only after a successful resolution; a tracking failure is logged by the
// caller, never rolled back.
type UsageStore interface {
	// Track adds amount to the business's counter for kind.
	Track(ctx context.Context, businessID, kind string, amount int64) error
	// MonthUsage returns consumption for the current calendar month.
	MonthUsage(ctx context.Context, businessID, kind string) (int64, error)
	// ResetMonth zeroes counters whose month has rolled over.
	ResetMonth(ctx context.Context) error
}
