// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package metrics exposes the archival pipeline's Prometheus
instrumentation: per-component fetch duration/error counters, quota
governor wait counters, checkpoint commit counters, and the data-API
circuit breaker's state and transition counters.

Metrics are package-level collectors registered via promauto at
import time; nothing here requires explicit initialization. They are
only served over HTTP when internal/statusserver is enabled
([status] in config.toml, or --status-addr); they are never a hard requirement for backup/update
to run headless.
*/
package metrics
