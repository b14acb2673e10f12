// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"fmt"
	"log/slog"

	"github.com/debuginfod-go/debuginfod/lib/cachestore"
	"github.com/debuginfod-go/debuginfod/lib/config"
	"github.com/debuginfod-go/debuginfod/lib/protocol"
	"github.com/debuginfod-go/debuginfod/lib/transport"
)

// New assembles the full stack — store, HTTP transport, protocol
// client, coordinator — from a resolved configuration. Returns
// [config.ErrNoServers] when the server list is empty, which callers
// conventionally treat as "debuginfod disabled".
func New(cfg config.Config, logger *slog.Logger) (*Coordinator, error) {
	if len(cfg.Servers) == 0 {
		return nil, config.ErrNoServers
	}
	if logger == nil {
		logger = slog.Default()
	}

	store, err := cachestore.NewStore(cachestore.StoreConfig{
		Root:    cfg.CacheDir,
		MaxSize: cfg.MaxSize,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	client, err := protocol.NewClient(protocol.Config{
		Servers: cfg.Servers,
		Transport: transport.NewHTTPTransport(transport.HTTPConfig{
			Timeout: cfg.Timeout,
		}),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring protocol client: %w", err)
	}

	return NewCoordinator(Config{
		Store:  store,
		Client: client,
		Logger: logger,
	})
}

// NewFromEnv resolves configuration from the standard DEBUGINFOD_*
// environment variables and assembles the stack with [New].
func NewFromEnv(logger *slog.Logger) (*Coordinator, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg, logger)
}
