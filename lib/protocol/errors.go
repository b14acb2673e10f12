// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// errBackoff marks a server skipped because it is inside a
// rate-limit backoff window. It appears as that server's outcome in
// an aggregate error.
var errBackoff = errors.New("server in rate-limit backoff")

// ServerOutcome records what happened at one server during a fetch.
// Err is never nil: successful servers do not appear in aggregates
// (a fetch that succeeded anywhere returns no error at all).
type ServerOutcome struct {
	// Server is the base URL of the server.
	Server string

	// Err is the per-server failure: a not-found report, a throttle
	// response, a transport error, or a backoff skip.
	Err error
}

// NotFoundError reports that every configured server affirmatively
// stated it does not have the artifact. This is the "truly does not
// exist" signal, distinct from availability problems.
type NotFoundError struct {
	// Key is the canonical cache key of the request.
	Key string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("debuginfod: %s not found on any configured server", err.Key)
}

// ServersError reports that no server returned the artifact and at
// least one failed for a reason other than affirmative absence. It
// carries one outcome per consulted server, in server-list order, so
// callers can distinguish "nothing exists anywhere" from "some
// servers are unreachable".
type ServersError struct {
	// Key is the canonical cache key of the request.
	Key string

	// Outcomes holds one entry per server, preserving server order.
	Outcomes []ServerOutcome
}

func (err *ServersError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "debuginfod: fetching %s failed on all %d servers", err.Key, len(err.Outcomes))
	for _, outcome := range err.Outcomes {
		fmt.Fprintf(&builder, "; %s: %v", outcome.Server, outcome.Err)
	}
	return builder.String()
}

// IsNotFound reports whether err means every server affirmed the
// artifact's absence.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
