// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package quota

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance wall-clock time deterministically instead
// of sleeping.
type fakeClock struct {
	now atomic.Int64 // unix nano
}

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.now.Store(t.UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, c.now.Load()) }
func (c *fakeClock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}

func TestNextReset_IsLocalMidnightPacific(t *testing.T) {
	g, err := New(Config{}, SystemClock{})
	require.NoError(t, err)

	loc, err := time.LoadLocation(resetZone)
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 15, 30, 0, 0, loc)
	reset := g.NextReset(now)

	require.Equal(t, 0, reset.Hour())
	require.True(t, reset.After(now))
	require.Equal(t, 15, reset.Day())
}

func TestDo_PassesThroughNonQuotaErrors(t *testing.T) {
	g, err := New(Config{Enabled: true}, SystemClock{})
	require.NoError(t, err)

	sentinel := errors.New("boom")
	err = g.Do(context.Background(), func() error { return sentinel })
	require.ErrorIs(t, err, sentinel)
}

func TestDo_SucceedsImmediatelyWhenFnSucceeds(t *testing.T) {
	g, err := New(Config{Enabled: true}, SystemClock{})
	require.NoError(t, err)
	require.NoError(t, g.Do(context.Background(), func() error { return nil }))
}

func TestDo_DisabledGovernorReturnsQuotaErrorUnresolved(t *testing.T) {
	g, err := New(Config{Enabled: false}, SystemClock{})
	require.NoError(t, err)
	err = g.Do(context.Background(), func() error { return ErrQuotaExhausted })
	require.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestDo_CancellationUnwindsWait(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	g, err := New(Config{Enabled: true, CheckInterval: time.Millisecond}, clock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.Do(ctx, func() error { return ErrQuotaExhausted })
	}()

	cancel()
	err = <-done
	require.ErrorIs(t, err, context.Canceled)
}
