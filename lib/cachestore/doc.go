// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

// Package cachestore maps artifact requests to stable on-disk
// locations and enforces the single-writer discipline that keeps the
// cache consistent under concurrency.
//
// Each entry is in one of three states. Absent: no file at the entry
// path. Pending: a partial ".part-*" file exists beside the target,
// owned by the fetch that holds the entry's advisory lock. Complete:
// the final file exists, published by an atomic rename, immutable
// thereafter. Build-id addressing makes every Complete entry
// permanently valid, so nothing here ever deletes or rewrites one.
//
// [Store.Lookup] observes Complete entries without taking any lock.
// [Store.Begin] acquires a per-key flock shared with other processes
// using the same cache directory; holding it, the caller is the only
// writer for that key anywhere on the machine. flock dies with its
// holder, so a Pending file whose lock is free is abandoned — Begin
// removes such leftovers before handing out the [Guard].
//
// [Guard.Commit] streams the artifact into a temp file beside the
// target and publishes it with one rename. Readers either see nothing
// or the fully written file; there is no in-between. A CBOR metadata
// sidecar (size, source URL, content digest, fetch time) is written
// after the publish; if it is ever missing, Lookup degrades to
// file-stat information rather than failing.
package cachestore
