// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/debuginfod-go/debuginfod/lib/buildid"
	"github.com/debuginfod-go/debuginfod/lib/clock"
	"github.com/debuginfod-go/debuginfod/lib/transport"
)

// Config holds configuration for creating a protocol [Client].
type Config struct {
	// Servers is the ordered list of debuginfod server base URLs.
	// Order defines fallback priority: earlier servers are tried
	// first. Must be non-empty; each URL must parse and use http or
	// https.
	Servers []string

	// Transport performs the HTTP GETs. Defaults to an
	// [transport.HTTPTransport] with default settings.
	Transport transport.Transport

	// Clock provides time for backoff tracking. Defaults to
	// clock.Real(). Inject clock.Fake() in tests.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Client speaks the debuginfod protocol against an ordered list of
// servers. It tries servers in configured order, returns the first
// success, and aggregates per-server failures when no server can
// supply the artifact. Servers that signaled overload are skipped
// until their backoff deadline passes.
//
// Client is safe for concurrent use.
type Client struct {
	servers   []string
	transport transport.Transport
	backoff   *backoffTracker
	logger    *slog.Logger
}

// NewClient creates a protocol client from the given configuration.
// Returns an error if the server list is empty or contains an
// unparseable or non-HTTP URL.
func NewClient(config Config) (*Client, error) {
	if len(config.Servers) == 0 {
		return nil, fmt.Errorf("debuginfod: no servers configured")
	}

	servers := make([]string, 0, len(config.Servers))
	for _, raw := range config.Servers {
		trimmed := strings.TrimSpace(raw)
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("debuginfod: parsing server URL %q: %w", raw, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("debuginfod: server URL %q: unsupported scheme %q", raw, parsed.Scheme)
		}
		if parsed.Host == "" {
			return nil, fmt.Errorf("debuginfod: server URL %q has no host", raw)
		}
		servers = append(servers, strings.TrimRight(trimmed, "/"))
	}

	httpTransport := config.Transport
	if httpTransport == nil {
		httpTransport = transport.NewHTTPTransport(transport.HTTPConfig{})
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		servers:   servers,
		transport: httpTransport,
		backoff:   newBackoffTracker(clk),
		logger:    logger,
	}, nil
}

// Response is a successful network fetch: the artifact's byte stream
// plus what is known about it. The caller owns Body and must close
// it.
type Response struct {
	// Body streams the artifact bytes.
	Body io.ReadCloser

	// ContentLength is the server-declared size, or -1 if unknown.
	ContentLength int64

	// SourceURL is the URL that supplied the artifact.
	SourceURL string
}

// Fetch tries each configured server in order and returns the first
// success. Per-server failures are collected, never dropped: if no
// server succeeds, the returned error is a [NotFoundError] when every
// server affirmed absence, otherwise a [ServersError] carrying one
// outcome per server in server order.
func (c *Client) Fetch(ctx context.Context, request buildid.Request) (*Response, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	key := request.CacheKey()
	outcomes := make([]ServerOutcome, 0, len(c.servers))
	notFoundCount := 0

	for _, server := range c.servers {
		if c.backoff.shouldSkip(server) {
			c.logger.Debug("skipping server in backoff", "server", server, "key", key)
			outcomes = append(outcomes, ServerOutcome{Server: server, Err: errBackoff})
			continue
		}

		requestURL := server + "/" + request.URLPath()
		c.logger.Debug("requesting artifact", "url", requestURL)

		result, err := c.transport.Get(ctx, requestURL)
		if err != nil {
			c.logger.Warn("request failed", "url", requestURL, "error", err)
			outcomes = append(outcomes, ServerOutcome{Server: server, Err: err})
			continue
		}

		switch result.Status {
		case transport.StatusSuccess:
			return &Response{
				Body:          result.Body,
				ContentLength: result.ContentLength,
				SourceURL:     result.URL,
			}, nil

		case transport.StatusNotFound:
			notFoundCount++
			outcomes = append(outcomes, ServerOutcome{
				Server: server,
				Err:    fmt.Errorf("not found (HTTP %d)", result.StatusCode),
			})

		case transport.StatusThrottled:
			c.backoff.recordHint(server, result.RetryAfter)
			c.logger.Warn("server throttled", "server", server, "retry_after", result.RetryAfter)
			outcomes = append(outcomes, ServerOutcome{
				Server: server,
				Err:    fmt.Errorf("throttled (HTTP %d)", result.StatusCode),
			})

		default:
			c.logger.Warn("server failure", "url", requestURL, "status", result.StatusCode)
			outcomes = append(outcomes, ServerOutcome{
				Server: server,
				Err:    fmt.Errorf("request failed (HTTP %d)", result.StatusCode),
			})
		}
	}

	if notFoundCount == len(outcomes) {
		return nil, &NotFoundError{Key: key}
	}
	return nil, &ServersError{Key: key, Outcomes: outcomes}
}
