// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/debuginfod-go/debuginfod/lib/buildid"
	"github.com/debuginfod-go/debuginfod/lib/cachestore"
	"github.com/debuginfod-go/debuginfod/lib/protocol"
)

// Origin tags where a Response's bytes came from.
type Origin int

const (
	// OriginNetwork means this call downloaded the artifact.
	OriginNetwork Origin = iota

	// OriginCache means the artifact was already present locally
	// (or was committed by a concurrent fetch this call waited on).
	OriginCache
)

// String returns "network" or "cache".
func (o Origin) String() string {
	if o == OriginCache {
		return "cache"
	}
	return "network"
}

// Response is the uniform fetch result handed to every caller,
// whether it led the download, joined one in flight, or hit the
// cache.
type Response struct {
	// Path is the materialized artifact file inside the cache. The
	// file is complete and immutable.
	Path string

	// Size is the artifact size in bytes.
	Size int64

	// SourceURL is the URL that supplied the artifact when Origin is
	// OriginNetwork. Empty for cache hits; the committing fetch's
	// URL remains available in the store's metadata sidecar.
	SourceURL string

	// Digest is the lowercase hex BLAKE3 digest recorded when the
	// artifact was committed. Empty for entries cached without a
	// sidecar.
	Digest string

	// Origin tags whether this call touched the network.
	Origin Origin
}

// Open opens the cached artifact file for reading.
func (r *Response) Open() (io.ReadCloser, error) {
	return os.Open(r.Path)
}

// Fetcher is the network side the coordinator drives: one
// fetch-from-servers operation. *protocol.Client is the production
// implementation.
type Fetcher interface {
	Fetch(ctx context.Context, request buildid.Request) (*protocol.Response, error)
}

// Config holds configuration for creating a [Coordinator].
type Config struct {
	// Store is the on-disk cache. Required.
	Store *cachestore.Store

	// Client fetches artifacts from the configured servers.
	// Required; usually a *protocol.Client.
	Client Fetcher

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Coordinator is the top-level fetch entry point. It serves from the
// cache when possible and otherwise guarantees at most one in-flight
// network fetch per cache key: concurrent same-key callers in this
// process join the in-flight fetch, and callers in other processes
// are excluded by the store's per-key lock. Every caller for a key
// observes the identical outcome.
//
// Coordinator is safe for concurrent use.
type Coordinator struct {
	store  *cachestore.Store
	client Fetcher
	logger *slog.Logger

	// mu guards only inflight membership. It is never held across
	// network or file I/O.
	mu       sync.Mutex
	inflight map[string]*inflightFetch
}

// inflightFetch is the shared outcome of one leader's fetch. done is
// closed exactly once, after response and err are set; joiners read
// them only after done.
type inflightFetch struct {
	done     chan struct{}
	response *Response
	err      error
}

// NewCoordinator creates a Coordinator from the given configuration.
func NewCoordinator(config Config) (*Coordinator, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("fetch: Config.Store is required")
	}
	if config.Client == nil {
		return nil, fmt.Errorf("fetch: Config.Client is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:    config.Store,
		client:   config.Client,
		logger:   logger,
		inflight: make(map[string]*inflightFetch),
	}, nil
}

// Fetch returns the artifact for the request, from cache if present,
// downloading and caching it otherwise. A failed fetch leaves the key
// retryable — there is no negative caching.
//
// ctx bounds this caller's wait only. A joiner whose context ends
// stops waiting; the in-flight download proceeds to completion on
// behalf of the remaining callers.
func (c *Coordinator) Fetch(ctx context.Context, request buildid.Request) (*Response, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	if entry, ok, err := c.store.Lookup(request); err != nil {
		return nil, err
	} else if ok {
		c.logger.Debug("cache hit", "path", entry.Path)
		return cacheResponse(entry), nil
	}

	key := request.CacheKey()

	c.mu.Lock()
	if flight, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-flight.done:
			return flight.response, flight.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	flight := &inflightFetch{done: make(chan struct{})}
	c.inflight[key] = flight
	c.mu.Unlock()

	// This call is the leader. The deferred completion runs on every
	// exit — including a panic below — so joined waiters are never
	// left blocked on done.
	response := (*Response)(nil)
	err := errors.New("debuginfod: in-flight fetch aborted")
	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		flight.response = response
		flight.err = err
		close(flight.done)
	}()

	response, err = c.lead(ctx, request)
	return response, err
}

// lead performs the actual miss path: cross-process exclusivity,
// post-lock re-check, network fetch, commit.
func (c *Coordinator) lead(ctx context.Context, request buildid.Request) (*Response, error) {
	guard, err := c.store.Begin(ctx, request)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	// Another process holding the lock may have committed the entry
	// while this one waited.
	if entry, ok, err := c.store.Lookup(request); err != nil {
		return nil, err
	} else if ok {
		c.logger.Debug("entry committed by concurrent process", "path", entry.Path)
		return cacheResponse(entry), nil
	}

	networkResponse, err := c.client.Fetch(ctx, request)
	if err != nil {
		return nil, err
	}
	defer networkResponse.Body.Close()

	entry, err := guard.Commit(networkResponse.Body, networkResponse.ContentLength, networkResponse.SourceURL)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("artifact cached",
		"path", entry.Path, "size", entry.Size, "source", entry.SourceURL)

	return &Response{
		Path:      entry.Path,
		Size:      entry.Size,
		SourceURL: entry.SourceURL,
		Digest:    entry.Digest,
		Origin:    OriginNetwork,
	}, nil
}

// cacheResponse builds the caller-visible Response for a Complete
// entry. The source URL is deliberately left empty — the bytes came
// from local disk, not a server.
func cacheResponse(entry *cachestore.Entry) *Response {
	return &Response{
		Path:   entry.Path,
		Size:   entry.Size,
		Digest: entry.Digest,
		Origin: OriginCache,
	}
}
