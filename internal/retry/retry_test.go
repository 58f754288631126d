// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecide_NetworkTransientRetriesThenSkips(t *testing.T) {
	for attempt := 1; attempt < maxAttempts; attempt++ {
		a := Decide(NetworkTransient, attempt, 0)
		require.Equal(t, ActionRetry, a.Kind, "attempt %d", attempt)
		require.Greater(t, a.After, time.Duration(0))
	}
	a := Decide(NetworkTransient, maxAttempts, 0)
	require.Equal(t, ActionSkip, a.Kind)
	require.Equal(t, ScopeComponent, a.Scope)
}

func TestDecide_BackoffIsCappedAndExponential(t *testing.T) {
	require.Equal(t, 2*time.Second, backoffDelay(1, 0))
	require.Equal(t, 4*time.Second, backoffDelay(2, 0))
	require.Equal(t, 8*time.Second, backoffDelay(3, 0))
	require.Equal(t, backoffCap, backoffDelay(20, 0))
}

func TestDecide_RetryAfterHintOverridesBackoff(t *testing.T) {
	a := Decide(NetworkRateLimited, 1, 90*time.Second)
	require.Equal(t, ActionRetry, a.Kind)
	require.Equal(t, 90*time.Second, a.After)
}

func TestDecide_AuthAbortsSource(t *testing.T) {
	a := Decide(Auth, 1, 0)
	require.Equal(t, Action{Kind: ActionAbort, Scope: ScopeSource}, a)
}

func TestDecide_RemoteUnavailableSkipsVideo(t *testing.T) {
	a := Decide(RemoteUnavailable, 1, 0)
	require.Equal(t, Action{Kind: ActionSkip, Scope: ScopeVideo}, a)
}

func TestDecide_ContentStoreFatalAbortsArchive(t *testing.T) {
	a := Decide(ContentStoreFatal, 1, 0)
	require.Equal(t, Action{Kind: ActionAbort, Scope: ScopeArchive}, a)
}

func TestDecide_ContentStoreTransientAbortsAfterThreeAttempts(t *testing.T) {
	require.Equal(t, ActionRetry, Decide(ContentStoreTransient, 1, 0).Kind)
	require.Equal(t, ActionRetry, Decide(ContentStoreTransient, 2, 0).Kind)
	a := Decide(ContentStoreTransient, 3, 0)
	require.Equal(t, Action{Kind: ActionAbort, Scope: ScopeSource}, a)
}

func TestDecide_QuotaExhaustedNeverEscalates(t *testing.T) {
	a := Decide(QuotaExhausted, 50, 0)
	require.Equal(t, ActionRetry, a.Kind)
}
