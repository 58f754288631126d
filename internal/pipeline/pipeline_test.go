// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunVideoExecutesAllJobs(t *testing.T) {
	p := New(Config{MaxVideos: 2, MaxComponents: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var ran atomic.Int32
	jobs := []ComponentJob{
		{Name: "metadata", Fn: func(context.Context) error { ran.Add(1); return nil }},
		{Name: "thumbnail", Fn: func(context.Context) error { ran.Add(1); return nil }},
		{Name: "captions", Fn: func(context.Context) error { ran.Add(1); return errors.New("no captions") }},
	}

	results := p.RunVideo(ctx, "v1", jobs)
	require.Len(t, results, 3)
	require.EqualValues(t, 3, ran.Load())

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	require.Equal(t, 1, failed)
}

func TestRunVideoBoundsComponentConcurrency(t *testing.T) {
	p := New(Config{MaxVideos: 1, MaxComponents: 2})
	ctx := context.Background()

	var inFlight, maxObserved atomic.Int32
	job := func(name string) ComponentJob {
		return ComponentJob{Name: name, Fn: func(context.Context) error {
			n := inFlight.Add(1)
			for {
				cur := maxObserved.Load()
				if n <= cur || maxObserved.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}}
	}

	jobs := []ComponentJob{job("a"), job("b"), job("c"), job("d")}
	p.RunVideo(ctx, "v1", jobs)

	require.LessOrEqual(t, maxObserved.Load(), int32(2))
}

func TestRunVideoRespectsContextCancellation(t *testing.T) {
	p := New(Config{MaxVideos: 1, MaxComponents: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The semaphore pre-acquire races against ctx.Done in RunVideo; since
	// ctx is already cancelled, either path is acceptable but the call
	// must not hang and must report an error for every job it can't run.
	results := p.RunVideo(ctx, "v1", []ComponentJob{
		{Name: "metadata", Fn: func(context.Context) error { return nil }},
	})
	require.Len(t, results, 1)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, 8, cfg.MaxVideos)
	require.Equal(t, 4, cfg.MaxComponents)
}
