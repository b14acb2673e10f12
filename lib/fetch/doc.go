// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch is the top-level entry point of the module: a
// [Coordinator] that combines the on-disk cache (lib/cachestore) with
// the protocol client (lib/protocol) to give callers one operation —
// fetch an artifact by build ID and kind — with these guarantees:
//
//   - an artifact already cached is never re-downloaded;
//   - at most one network fetch is in flight per cache key, across
//     all goroutines of this process and all processes sharing the
//     cache directory;
//   - every caller for a key observes the identical outcome, success
//     or failure;
//   - a failure is never cached: the next call retries fresh.
//
// In-process deduplication is a shared promise per key: the first
// caller to miss becomes the leader, later callers join and wait on
// its done channel. The registry mutex guards membership only — all
// blocking I/O happens outside it. Cross-process exclusivity comes
// from the store's per-key advisory file lock, taken by the leader
// after winning the in-process race. Both layers key on the same
// [buildid.Request.CacheKey], which is what makes them deduplicate
// the same requests.
package fetch
