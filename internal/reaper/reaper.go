// Package reaper periodically sweeps the session table for idle sessions,
// per spec.md §4.7: any session whose LastActivity has aged past the
// configured session timeout is removed, and a one-line summary of every
// session that survives the sweep is logged.
package reaper

import (
	"context"
	"time"

	"github.com/thvlayu/Netual/internal/metrics"
	"github.com/thvlayu/Netual/internal/sessiontable"
	"github.com/thvlayu/Netual/internal/telemetry"
)

// Reaper runs the periodic sweep.
type Reaper struct {
	table    *sessiontable.Table
	logger   telemetry.Logger
	interval time.Duration
	timeout  time.Duration
}

// New constructs a Reaper. interval is how often a sweep runs; timeout is
// the idle duration after which a session is removed.
func New(table *sessiontable.Table, logger telemetry.Logger, interval, timeout time.Duration) *Reaper {
	return &Reaper{table: table, logger: logger, interval: interval, timeout: timeout}
}

// Run sweeps every interval until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	removed, remaining := r.table.Reap(time.Now(), r.timeout)
	if removed > 0 {
		metrics.SessionsReaped.Add(float64(removed))
		r.logger.Printf("reaper: removed %d idle session(s)", removed)
	}
	metrics.ActiveSessions.Set(float64(len(remaining)))
	for _, s := range remaining {
		r.logger.Printf("reaper: session %d paths=%d dedup_entries=%d", s.SessionID, s.Paths, s.DedupEntries)
	}
}
