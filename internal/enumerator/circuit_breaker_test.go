// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package enumerator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerBackend_PassesThroughSuccess(t *testing.T) {
	inner := &fakeBackend{name: "data-api", listFlatIDs: []FlatID{{ID: "v1"}}}
	cb := newCircuitBreakerBackend(inner, "data-api")

	entries, err := cb.ListFlat(context.Background(), "src")
	require.NoError(t, err)
	require.Equal(t, []FlatID{{ID: "v1"}}, entries)
}

func TestCircuitBreakerBackend_PassesThroughFailure(t *testing.T) {
	inner := &fakeBackend{name: "data-api", listFlatErr: errors.New("boom")}
	cb := newCircuitBreakerBackend(inner, "data-api")

	_, err := cb.ListFlat(context.Background(), "src")
	require.Error(t, err)
}

func TestCircuitBreakerBackend_OpensAfterRepeatedFailures(t *testing.T) {
	inner := &fakeBackend{name: "data-api", listFlatErr: errors.New("boom")}
	cb := newCircuitBreakerBackend(inner, "data-api")

	for i := 0; i < 10; i++ {
		_, _ = cb.ListFlat(context.Background(), "src")
	}
	require.Equal(t, 10, inner.calls)

	// Breaker should now be open: subsequent calls fail without reaching inner.
	_, err := cb.ListFlat(context.Background(), "src")
	require.Error(t, err)
	require.Equal(t, 10, inner.calls, "breaker should short-circuit without calling inner")
}
