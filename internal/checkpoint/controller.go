// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package checkpoint

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tomtom215/ytarchive/internal/logging"
	"github.com/tomtom215/ytarchive/internal/metrics"
	"github.com/tomtom215/ytarchive/internal/store"
)

// Config drives the controller's periodic-checkpoint policy
// ([backup] in config.toml).
type Config struct {
	// Interval is the number of processed videos between checkpoint
	// commits; <= 0 disables periodic checkpointing (only the
	// end-of-source and interrupt commits still fire).
	Interval int
	Enabled  bool

	// AutoCommitOnInterrupt controls whether InterruptCommit actually
	// runs on cancellation, or the caller is left to decide.
	AutoCommitOnInterrupt bool
}

// Controller is the Interrupt/Checkpoint Controller: it owns the
// checkpoint WAL, tracks per-source processed-video counts since the
// last checkpoint, and drives commits to the Content-Store Adapter at
// the three required moments — periodic (every N videos), end-of-source,
// and on cancellation.
type Controller struct {
	store *store.Store
	wal   *WAL
	cfg   Config

	mu        sync.Mutex
	processed map[string]int // source URL -> videos processed since last checkpoint
}

// New constructs a Controller. walPath is conventionally
// "<archive>/.sync/checkpoints.json".
func New(st *store.Store, walPath string, cfg Config) (*Controller, error) {
	w, err := OpenWAL(walPath)
	if err != nil {
		return nil, err
	}
	return &Controller{
		store:     st,
		wal:       w,
		cfg:       cfg,
		processed: make(map[string]int),
	}, nil
}

// WithSignals returns a context cancelled on SIGINT/SIGTERM. The
// Archiver's root
// context is derived from this so every suspension point observes
// cancellation and unwinds cleanly.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// RecordVideo increments the per-source processed count and reports
// whether a periodic checkpoint is now due.
func (c *Controller) RecordVideo(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed[source]++
	if !c.cfg.Enabled || c.cfg.Interval <= 0 {
		return false
	}
	return c.processed[source]%c.cfg.Interval == 0
}

// resetCount zeroes the per-source counter after a successful checkpoint.
func (c *Controller) resetCount(source string) {
	c.mu.Lock()
	c.processed[source] = 0
	c.mu.Unlock()
}

// Checkpoint performs a periodic checkpoint commit covering the videos
// processed so far in this source pass. The commit message names the
// source and the progress ratio.
func (c *Controller) Checkpoint(ctx context.Context, source string, processedCount, total int) error {
	msg := fmt.Sprintf("Checkpoint: %s (%d/%d videos)", source, processedCount, total)
	if err := c.commit(ctx, source, msg); err != nil {
		return err
	}
	c.resetCount(source)
	return nil
}

// SourceComplete performs the commit required after a source pass
// finishes, regardless of whether a periodic checkpoint just fired.
func (c *Controller) SourceComplete(ctx context.Context, source string, total int) error {
	msg := fmt.Sprintf("Backup complete: %s (%d videos)", source, total)
	if err := c.commit(ctx, source, msg); err != nil {
		return err
	}
	c.resetCount(source)
	return nil
}

// InterruptCommit performs the "Partial backup (interrupted)" commit.
// It uses a fresh background context since
// the caller's own context is typically already cancelled by the time
// this runs.
func (c *Controller) InterruptCommit(source string, processedCount int) error {
	if !c.cfg.AutoCommitOnInterrupt {
		return nil
	}
	msg := fmt.Sprintf("Partial backup (interrupted): %s (%d videos)", source, processedCount)
	return c.commit(context.Background(), source, msg)
}

// commit writes a pending WAL entry, runs the store commit, and
// confirms the entry. A crash between the two steps leaves a
// recoverable, informational "unconfirmed" trace rather than a
// half-committed index, since store.Commit itself is atomic at the git
// layer.
func (c *Controller) commit(ctx context.Context, source, message string) error {
	entry, err := c.wal.Begin(source, message)
	if err != nil {
		return fmt.Errorf("checkpoint: begin: %w", err)
	}
	if err := c.store.Commit(ctx, message); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("source", source).Msg("checkpoint commit failed")
		return fmt.Errorf("checkpoint: commit: %w", err)
	}
	if err := c.wal.Confirm(entry.ID); err != nil {
		return fmt.Errorf("checkpoint: confirm: %w", err)
	}
	metrics.CheckpointCommitsTotal.WithLabelValues(source).Inc()
	logging.Ctx(ctx).Info().Str("source", source).Str("message", message).Msg("checkpoint commit")
	return nil
}

// PendingEntries exposes unconfirmed WAL entries found at startup, so
// callers can log a warning about an interrupted prior commit.
func (c *Controller) PendingEntries() []*Entry {
	return c.wal.Pending()
}
