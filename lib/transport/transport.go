// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport is the narrow boundary between the fetch
// coordination core and the network: one blocking "GET bytes from a
// URL" operation returning a classified result. The protocol layer
// never inspects HTTP specifics — it sees a [StatusClass], an
// optional content length, an optional retry hint, and a body stream.
//
// [HTTPTransport] is the production implementation on net/http. Tests
// substitute their own [Transport] to simulate server behavior
// without sockets.
package transport

import (
	"context"
	"io"
	"time"
)

// StatusClass classifies a server response for the protocol layer.
type StatusClass int

const (
	// StatusSuccess means the server returned the artifact; Body
	// carries its bytes.
	StatusSuccess StatusClass = iota

	// StatusNotFound means the server affirmatively reported that it
	// does not have the artifact.
	StatusNotFound

	// StatusThrottled means the server signaled overload and should
	// not be queried again until the retry hint expires.
	StatusThrottled

	// StatusOtherFailure covers every other server-side failure:
	// internal errors, bad gateways, malformed responses.
	StatusOtherFailure
)

// String returns a short tag for logging.
func (c StatusClass) String() string {
	switch c {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not-found"
	case StatusThrottled:
		return "throttled"
	default:
		return "failure"
	}
}

// Result is the outcome of one GET. Body is non-nil only for
// [StatusSuccess]; the caller owns it and must close it.
type Result struct {
	// Status is the response classification.
	Status StatusClass

	// StatusCode is the raw HTTP status code, for diagnostics.
	StatusCode int

	// ContentLength is the server-declared artifact size in bytes,
	// or -1 if the server did not declare one.
	ContentLength int64

	// RetryAfter is the server-supplied backoff hint for
	// [StatusThrottled] responses. Zero when the server gave no
	// usable hint.
	RetryAfter time.Duration

	// Body streams the artifact bytes on success. Nil otherwise.
	Body io.ReadCloser

	// URL is the request URL, echoed back for aggregation and the
	// success Response's source attribution.
	URL string
}

// Transport performs one blocking HTTP GET. Implementations return an
// error only when no classified server response was obtained (connect
// failure, timeout, malformed response); any response the server
// actually sent — including errors — comes back as a Result.
type Transport interface {
	Get(ctx context.Context, url string) (*Result, error)
}
