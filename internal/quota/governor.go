// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package quota implements the Quota Governor: it wraps every
// outbound call to the data-API backend, detects the domain-specific
// "quota exceeded" signal, computes the next reset instant in a fixed
// wall-clock zone (Pacific time, DST-aware — never a relative offset),
// and waits in configurable intervals emitting progress until the
// caller's context is cancelled.
//
// The governor is stateless across process restarts: on restart it
// recomputes the next reset from current wall-clock.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/ytarchive/internal/logging"
	"github.com/tomtom215/ytarchive/internal/metrics"
)

// ErrQuotaExhausted is the sentinel a data-API backend call returns (or
// wraps) to signal the domain-specific quota-exceeded condition.
var ErrQuotaExhausted = errors.New("quota: daily quota exhausted")

// resetZone is the fixed wall-clock zone quota accounting is anchored to: quota
// resets at local midnight Pacific time, DST-aware via the zoneinfo
// database.
const resetZone = "America/Los_Angeles"

// Config configures the governor. Zero values fall back to the defaults.
type Config struct {
	Enabled       bool
	MaxWait       time.Duration // 0 means unbounded
	CheckInterval time.Duration // default 30 minutes
}

// Governor wraps quota-bound calls and waits out quota exhaustion.
type Governor struct {
	cfg   Config
	clock Clock
	loc   *time.Location
}

// New constructs a Governor. It fails closed (returns an error) if the
// Pacific zoneinfo database entry cannot be loaded, since a silently wrong
// timezone would corrupt every reset computation.
func New(cfg Config, clock Clock) (*Governor, error) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Minute
	}
	if clock == nil {
		clock = SystemClock{}
	}
	loc, err := time.LoadLocation(resetZone)
	if err != nil {
		return nil, fmt.Errorf("quota: load %s location: %w", resetZone, err)
	}
	return &Governor{cfg: cfg, clock: clock, loc: loc}, nil
}

// NextReset returns the next quota reset instant: local midnight in the
// Pacific zone strictly after now.
func (g *Governor) NextReset(now time.Time) time.Time {
	local := now.In(g.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc).AddDate(0, 0, 1)
	return next
}

// Do executes fn, and if it returns ErrQuotaExhausted while the governor
// is enabled, waits for the next quota reset or until MaxWait has elapsed
// (emitting progress every CheckInterval) and then returns nil — Do does
// not retry fn itself; the caller retries after Do returns nil, matching
// the Enumerator Facade's call-and-recall shape. With the governor
// disabled the quota error is returned unchanged. Do returns ctx.Err() if
// the wait is cancelled.
func (g *Governor) Do(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, ErrQuotaExhausted) {
		return err
	}
	if !g.cfg.Enabled {
		return err
	}
	return g.wait(ctx)
}

// wait blocks until the next quota reset, MaxWait, or ctx cancellation,
// whichever comes first, emitting a progress log line every
// CheckInterval; the time waited is added to the wait-seconds metric
// once, when it returns.
func (g *Governor) wait(ctx context.Context) error {
	now := g.clock.Now()
	reset := g.NextReset(now)
	deadline := reset
	if g.cfg.MaxWait > 0 && now.Add(g.cfg.MaxWait).Before(deadline) {
		deadline = now.Add(g.cfg.MaxWait)
	}

	metrics.QuotaGovernorWaitsTotal.Inc()
	logging.Ctx(ctx).Warn().
		Time("reset_at", reset).
		Dur("max_wait_left", deadline.Sub(now)).
		Msg("quota exhausted, waiting for reset")

	ticker := time.NewTicker(g.cfg.CheckInterval)
	defer ticker.Stop()

	start := g.clock.Now()
	for {
		remaining := deadline.Sub(g.clock.Now())
		if remaining <= 0 {
			metrics.QuotaGovernorWaitSeconds.Add(g.clock.Now().Sub(start).Seconds())
			return nil
		}
		select {
		case <-ctx.Done():
			metrics.QuotaGovernorWaitSeconds.Add(g.clock.Now().Sub(start).Seconds())
			return ctx.Err()
		case <-ticker.C:
			logging.Ctx(ctx).Info().
				Dur("remaining", deadline.Sub(g.clock.Now())).
				Msg("quota governor still waiting")
		}
	}
}
