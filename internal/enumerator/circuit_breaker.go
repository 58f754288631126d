// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package enumerator

import (
	"context"
	"errors"
	"regexp"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/ytarchive/internal/metrics"
	"github.com/tomtom215/ytarchive/internal/models"
	"github.com/tomtom215/ytarchive/internal/quota"
	"github.com/tomtom215/ytarchive/internal/retry"
)

// circuitBreakerBackend wraps a Backend with a gobreaker circuit
// breaker: open the breaker once a minimum sample of calls crosses a
// failure ratio, so a degraded data API stops accumulating latency on
// every call and instead fails fast until it recovers.
type circuitBreakerBackend struct {
	inner   Backend
	breaker *gobreaker.CircuitBreaker[any]
	name    string
}

// newCircuitBreakerBackend wraps inner, naming the breaker name for
// metrics/logging correlation.
func newCircuitBreakerBackend(inner Backend, name string) *circuitBreakerBackend {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		ReadyToTrip: readyToTrip,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, quota.ErrQuotaExhausted)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}
	return &circuitBreakerBackend{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		name:    name,
	}
}

// readyToTrip opens the breaker once at least 10 requests have been seen
// and 60% or more failed.
func readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 10 {
		return false
	}
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return failureRatio >= 0.6
}

func (b *circuitBreakerBackend) Name() string { return b.inner.Name() }

func (b *circuitBreakerBackend) ListFlat(ctx context.Context, sourceURL string) ([]FlatID, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		return b.inner.ListFlat(ctx, sourceURL)
	})
	b.record(err)
	if res == nil {
		return nil, err
	}
	return res.([]FlatID), err
}

type detailBatchResult struct {
	videos map[string]*models.Video
	errs   map[string]error
}

func (b *circuitBreakerBackend) DetailBatch(ctx context.Context, ids []string) (map[string]*models.Video, map[string]error, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		videos, errs, innerErr := b.inner.DetailBatch(ctx, ids)
		return detailBatchResult{videos: videos, errs: errs}, innerErr
	})
	b.record(err)
	if res == nil {
		return nil, nil, err
	}
	r := res.(detailBatchResult)
	return r.videos, r.errs, err
}

func (b *circuitBreakerBackend) Comments(ctx context.Context, videoID string, depth int) ([]models.Comment, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Comments(ctx, videoID, depth)
	})
	b.record(err)
	if res == nil {
		return nil, err
	}
	return res.([]models.Comment), err
}

func (b *circuitBreakerBackend) Captions(ctx context.Context, videoID string, langFilter *regexp.Regexp) ([]models.Caption, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Captions(ctx, videoID, langFilter)
	})
	b.record(err)
	if res == nil {
		return nil, err
	}
	return res.([]models.Caption), err
}

func (b *circuitBreakerBackend) ThumbnailURL(ctx context.Context, videoID string) (string, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		return b.inner.ThumbnailURL(ctx, videoID)
	})
	b.record(err)
	if res == nil {
		return "", err
	}
	return res.(string), err
}

// record updates the request-outcome counter; quota exhaustion is not
// counted as a breaker failure since it is an expected, handled condition
// the Quota Governor resolves, not a sign of backend degradation.
func (b *circuitBreakerBackend) record(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if kind, ok := retry.KindOf(err); (ok && kind == retry.QuotaExhausted) || errors.Is(err, quota.ErrQuotaExhausted) {
			outcome = "quota-exhausted"
		}
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, outcome).Inc()
}
