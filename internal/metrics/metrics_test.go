// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveComponentFetch(t *testing.T) {
	before := testutil.ToFloat64(ComponentFetchErrors.WithLabelValues("metadata", "network-transient"))
	ObserveComponentFetch("metadata", 25*time.Millisecond, "network-transient")
	after := testutil.ToFloat64(ComponentFetchErrors.WithLabelValues("metadata", "network-transient"))
	require.Equal(t, before+1, after)
}

func TestObserveComponentFetch_NoErrorKind(t *testing.T) {
	require.NotPanics(t, func() {
		ObserveComponentFetch("thumbnail", 5*time.Millisecond, "")
	})
}

func TestCircuitBreakerGaugeLabels(t *testing.T) {
	CircuitBreakerState.WithLabelValues("data-api").Set(1)
	require.Equal(t, float64(1), testutil.ToFloat64(CircuitBreakerState.WithLabelValues("data-api")))
}
