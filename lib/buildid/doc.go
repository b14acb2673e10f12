// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildid defines the value types that identify what to
// fetch: [BuildID], the content-derived identifier embedded in
// compiled artifacts, and [Request], a (build ID, artifact kind) pair
// that serves as both the protocol query key and the cache key.
//
// [Request.CacheKey] is the single key derivation shared by every
// layer that needs per-request identity (the in-process fetch
// registry, the cross-process file lock, the on-disk entry path). It
// is injective — distinct requests produce distinct keys — which is
// what makes "one in-flight fetch per key" actually mean "one
// in-flight fetch per request".
//
// Validation happens here, before any I/O: malformed hex, empty IDs,
// and source paths with traversal segments are all rejected with
// errors wrapping [ErrInvalidEncoding].
package buildid
