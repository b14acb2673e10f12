// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"sync"
	"time"

	"github.com/debuginfod-go/debuginfod/lib/clock"
)

// minimumBackoff is applied when a server signals overload without a
// usable retry hint.
const minimumBackoff = 30 * time.Second

// backoffTracker remembers, per server, a deadline before which the
// server must not be queried again. Deadlines are set from server
// throttle responses and extend monotonically: a later hint may push
// a deadline out but never pull it in. A deadline clears only by
// expiring — a recovered server simply stops sending throttle
// responses once queried again.
//
// State is in-memory and scoped to one Client. This is a courtesy to
// overloaded servers, not a correctness mechanism.
type backoffTracker struct {
	mu    sync.Mutex
	clock clock.Clock
	until map[string]time.Time
}

func newBackoffTracker(clk clock.Clock) *backoffTracker {
	return &backoffTracker{
		clock: clk,
		until: make(map[string]time.Time),
	}
}

// shouldSkip reports whether the server is inside an active backoff
// window.
func (tracker *backoffTracker) shouldSkip(server string) bool {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	deadline, ok := tracker.until[server]
	return ok && tracker.clock.Now().Before(deadline)
}

// recordHint notes that server signaled overload. A non-positive
// hint falls back to [minimumBackoff]. The deadline only ever moves
// later.
func (tracker *backoffTracker) recordHint(server string, hint time.Duration) {
	if hint <= 0 {
		hint = minimumBackoff
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	deadline := tracker.clock.Now().Add(hint)
	if existing, ok := tracker.until[server]; ok && existing.After(deadline) {
		return
	}
	tracker.until[server] = deadline
}
