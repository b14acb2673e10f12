// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability. Production
// code injects [Real]; tests inject [Fake] with deterministic time
// control.
//
// The rate-limit backoff tracker is the main consumer: its deadlines
// are pure functions of "now", so tests advance a fake clock instead
// of sleeping through real backoff windows.
package clock

import "time"

// Clock provides the time operations this module needs. Code that
// would otherwise call time.Now or time.After takes a Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. If d <= 0, the channel receives
	// immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the calling goroutine for at least duration d.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
