// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cache provides the in-process data structures used to dedupe
video ids across sources and to cache facade lookups during a single
archive run.

# Overview

Two implementations are exported:

  - IDCache: a size- and TTL-bounded cache with O(1) Get/Add/Remove,
    used by the Enumerator Facade to avoid repeat detail-fetch calls for
    ids resolved earlier in the same run.
  - BloomFilter: a probabilistic pre-filter used by the Filter/Scope
    Engine to cheaply reject ids that are definitely not in a large
    playlist include/exclude set before falling back to an exact check.
    A bloom filter never produces a false negative, so it is only ever
    used to short-circuit a negative result, never to confirm membership
    on its own.

Both are plain in-memory structures; nothing here is durable. Durable
state lives in internal/syncstate and internal/checkpoint.
*/
package cache
