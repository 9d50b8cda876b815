package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/shopchat/internal/dedup"
	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// Maintenance runs scheduled background jobs: monthly usage rollover and
// an extra dedup sweep. Schedules are cron expressions checked once a
// minute.
type Maintenance struct {
	usage        store.UsageStore
	guard        *dedup.Guard
	rolloverCron string
	cron         *gronx.Gronx
}

// NewMaintenance creates the job runner. An empty cron expression
// disables the rollover job.
func NewMaintenance(usage store.UsageStore, guard *dedup.Guard, rolloverCron string) *Maintenance {
	return &Maintenance{
		usage:        usage,
		guard:        guard,
		rolloverCron: rolloverCron,
		cron:         gronx.New(),
	}
}

// Run ticks once a minute until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context) {
	if m.rolloverCron != "" && !m.cron.IsValid(m.rolloverCron) {
		slog.Error("invalid usage rollover cron, job disabled", "cron", m.rolloverCron)
		m.rolloverCron = ""
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Maintenance) tick(ctx context.Context) {
	if m.rolloverCron == "" {
		return
	}
	due, err := m.cron.IsDue(m.rolloverCron, time.Now())
	if err != nil || !due {
		return
	}

	start := time.Now()
	if err := m.usage.ResetMonth(ctx); err != nil {
		slog.Error("usage rollover failed", "error", err)
	} else {
		slog.Info("usage rollover done", "took", time.Since(start))
	}

	if n := m.guard.Sweep(); n > 0 {
		slog.Debug("dedup sweep evicted entries", "count", n)
	}
}
