// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package cachestore

import "fmt"

// StoreError wraps a local filesystem failure during lookup, begin,
// or commit. The cache entry involved is left Absent or abandoned
// Pending — never ambiguous — so a subsequent fetch retries cleanly.
type StoreError struct {
	// Op names the failed operation ("lookup", "lock", "commit", ...).
	Op string

	// Path is the filesystem path involved.
	Path string

	// Err is the underlying cause.
	Err error
}

func (err *StoreError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", err.Op, err.Path, err.Err)
}

func (err *StoreError) Unwrap() error { return err.Err }
