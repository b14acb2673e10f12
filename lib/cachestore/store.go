// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package cachestore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/debuginfod-go/debuginfod/lib/buildid"
	"github.com/debuginfod-go/debuginfod/lib/clock"
)

// partSuffix distinguishes in-progress temp files from entries. Temp
// files live beside their target so the publishing rename never
// crosses filesystems.
const partSuffix = ".part-"

// metaSuffix marks the CBOR metadata sidecar beside each entry.
const metaSuffix = ".meta"

// lockSuffix marks the per-key advisory lock file beside each entry.
const lockSuffix = ".lock"

// StoreConfig holds configuration for creating a [Store].
type StoreConfig struct {
	// Root is the cache directory. Created if it does not exist.
	Root string

	// MaxSize, when positive, bounds the size of any single
	// committed artifact in bytes. Commits exceeding it fail and
	// leave the entry Absent.
	MaxSize int64

	// Clock provides commit timestamps. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Store is the on-disk artifact cache rooted at a single directory,
// shared cooperatively with other processes (and other
// debuginfod-aware programs) using the same root. See the package
// documentation for the entry state machine.
type Store struct {
	root    string
	maxSize int64
	clock   clock.Clock
	logger  *slog.Logger
}

// NewStore creates a Store rooted at config.Root, creating the
// directory if needed.
func NewStore(config StoreConfig) (*Store, error) {
	if config.Root == "" {
		return nil, fmt.Errorf("cachestore: empty cache root")
	}
	if err := os.MkdirAll(config.Root, 0o755); err != nil {
		return nil, &StoreError{Op: "create root", Path: config.Root, Err: err}
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		root:    config.Root,
		maxSize: config.MaxSize,
		clock:   clk,
		logger:  logger,
	}, nil
}

// Entry describes a Complete cache entry.
type Entry struct {
	// Path is the absolute path of the cached artifact file.
	Path string

	// Size is the artifact size in bytes.
	Size int64

	// SourceURL is the URL that originally supplied the artifact.
	// Empty when the metadata sidecar is missing.
	SourceURL string

	// Digest is the lowercase hex BLAKE3 digest recorded at commit
	// time. Empty when the metadata sidecar is missing.
	Digest string

	// FetchedAt is when the artifact was committed. Zero when the
	// metadata sidecar is missing.
	FetchedAt time.Time
}

// entryPath maps a request's canonical cache key onto the filesystem:
// one subtree per build ID hex string, one file per artifact kind
// beneath it (source entries in a "source" subdirectory, their
// escaped path as the filename). The key's segments contain no
// separators beyond the structural ones, so this is a straight join.
func (s *Store) entryPath(request buildid.Request) string {
	segments := strings.Split(request.CacheKey(), "/")
	return filepath.Join(append([]string{s.root}, segments...)...)
}

// Lookup checks for a Complete entry. It takes no locks and touches
// no network: safe to call concurrently with commits of other keys,
// and with commits of the same key (the publish rename is atomic, so
// Lookup sees the entry either fully or not at all).
//
// The boolean reports whether a Complete entry exists. An error is
// returned only for filesystem failures other than absence.
func (s *Store) Lookup(request buildid.Request) (*Entry, bool, error) {
	path := s.entryPath(request)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &StoreError{Op: "lookup", Path: path, Err: err}
	}

	entry := &Entry{Path: path, Size: info.Size()}

	// The sidecar enriches the entry but its absence (or corruption)
	// is not an error: the artifact file is authoritative.
	data, err := os.ReadFile(path + metaSuffix)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("unreadable cache metadata", "path", path+metaSuffix, "error", err)
		}
		return entry, true, nil
	}
	record, err := unmarshalMetadata(data)
	if err != nil {
		s.logger.Warn("corrupt cache metadata", "path", path+metaSuffix, "error", err)
		return entry, true, nil
	}

	entry.Size = record.Size
	entry.SourceURL = record.SourceURL
	entry.Digest = record.Digest
	entry.FetchedAt = time.Unix(record.FetchedAt, 0)
	return entry, true, nil
}

// removeAbandonedParts deletes leftover partial files for an entry.
// Callers must hold the entry's lock: any ".part-*" file visible
// while the lock is held belonged to a fetch that died before
// cleaning up. Matching is by literal name prefix, not glob — an
// escaped source path may legitimately contain glob metacharacters.
func (s *Store) removeAbandonedParts(path string) {
	directory := filepath.Dir(path)
	base := filepath.Base(path)

	names, err := os.ReadDir(directory)
	if err != nil {
		return
	}
	for _, dirEntry := range names {
		name := dirEntry.Name()
		if !strings.HasPrefix(name, base+partSuffix) &&
			!strings.HasPrefix(name, base+metaSuffix+partSuffix) {
			continue
		}
		stale := filepath.Join(directory, name)
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("removing abandoned partial file", "path", stale, "error", err)
			continue
		}
		s.logger.Debug("removed abandoned partial file", "path", stale)
	}
}
