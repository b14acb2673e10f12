// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/debuginfod-go/debuginfod/lib/clock"
)

// maxErrorDrain bounds how much of a non-success response body is
// read before the connection is released for reuse. Error bodies are
// diagnostic text; anything past this is noise.
const maxErrorDrain int64 = 64 << 10

// defaultUserAgent identifies this client to debuginfod servers.
const defaultUserAgent = "debuginfod-go"

// HTTPConfig configures an [HTTPTransport]. The zero value is usable:
// it means http.DefaultClient, no request timeout beyond the
// client's own, and the default User-Agent.
type HTTPConfig struct {
	// Client is the underlying HTTP client. When nil, a client is
	// constructed with Timeout applied.
	Client *http.Client

	// Timeout bounds each GET end to end (connect through body
	// read). Applied only when Client is nil; a caller-supplied
	// Client keeps its own settings.
	Timeout time.Duration

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// Clock provides time for Retry-After date parsing. Defaults to
	// clock.Real().
	Clock clock.Clock
}

// HTTPTransport implements [Transport] on net/http, classifying
// responses into the four status classes and extracting Retry-After
// hints from throttling responses.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
	clock     clock.Clock
}

// NewHTTPTransport creates an HTTPTransport from the given
// configuration.
func NewHTTPTransport(config HTTPConfig) *HTTPTransport {
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &HTTPTransport{client: client, userAgent: userAgent, clock: clk}
}

// Get performs one GET and classifies the response. See [Transport]
// for the error contract.
func (t *HTTPTransport) Get(ctx context.Context, url string) (*Result, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	request.Header.Set("User-Agent", t.userAgent)

	response, err := t.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	result := &Result{
		StatusCode:    response.StatusCode,
		ContentLength: response.ContentLength,
		URL:           url,
	}

	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		result.Status = StatusSuccess
		result.Body = response.Body
		return result, nil

	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusGone:
		result.Status = StatusNotFound

	case response.StatusCode == http.StatusTooManyRequests || response.StatusCode == http.StatusServiceUnavailable:
		result.Status = StatusThrottled
		result.RetryAfter = t.retryAfter(response.Header)

	default:
		result.Status = StatusOtherFailure
	}

	// Drain a bounded amount so the connection can be reused, then
	// close. Non-success results carry no body.
	io.Copy(io.Discard, io.LimitReader(response.Body, maxErrorDrain)) //nolint:errcheck
	response.Body.Close()
	return result, nil
}

// retryAfter parses the Retry-After header, which carries either a
// delay in seconds or an HTTP-date.
func (t *HTTPTransport) retryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if duration := at.Sub(t.clock.Now()); duration > 0 {
			return duration
		}
	}
	return 0
}
