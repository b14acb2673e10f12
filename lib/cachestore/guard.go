// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package cachestore

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/debuginfod-go/debuginfod/lib/buildid"
)

// Guard is the exclusive write handle for one cache entry, returned
// by [Store.Begin]. While it is held, no other caller — in this
// process or any other sharing the cache directory — can write the
// same entry.
//
// The success path consumes the guard via [Guard.Commit]. Every other
// exit path must call [Guard.Release] (idempotent, safe to defer):
// it drops the lock without publishing anything, leaving any partial
// state for the next Begin to clean up.
type Guard struct {
	store     *Store
	entryPath string
	lockFile  *os.File
	lockPath  string
	done      bool
}

// Begin prepares an exclusive fetch for the request's entry. It
// acquires the entry's cross-process advisory lock — blocking while
// another holder is writing the same key, unless ctx ends first —
// and then removes any partial files abandoned by a crashed holder.
//
// Callers should re-run [Store.Lookup] after Begin returns: another
// process may have committed the entry while this one waited for the
// lock.
func (s *Store) Begin(ctx context.Context, request buildid.Request) (*Guard, error) {
	path := s.entryPath(request)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StoreError{Op: "create entry directory", Path: filepath.Dir(path), Err: err}
	}

	lockPath := path + lockSuffix
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &StoreError{Op: "open lock", Path: lockPath, Err: err}
	}

	// flock has no deadline parameter; acquire in a goroutine so a
	// caller-imposed context can stop waiting. If the caller gives
	// up, the goroutine releases the lock whenever it finally
	// arrives.
	acquired := make(chan error, 1)
	go func() { acquired <- flockExclusive(lockFile) }()

	select {
	case err := <-acquired:
		if err != nil {
			lockFile.Close()
			return nil, &StoreError{Op: "lock", Path: lockPath, Err: err}
		}
	case <-ctx.Done():
		go func() {
			if <-acquired == nil {
				flockUnlock(lockFile) //nolint:errcheck
			}
			lockFile.Close()
		}()
		return nil, ctx.Err()
	}

	s.removeAbandonedParts(path)

	return &Guard{
		store:     s,
		entryPath: path,
		lockFile:  lockFile,
		lockPath:  lockPath,
	}, nil
}

// Release drops the entry lock without publishing. Idempotent; also
// called internally by Commit after a successful publish.
func (g *Guard) Release() {
	if g.done {
		return
	}
	g.done = true
	flockUnlock(g.lockFile) //nolint:errcheck
	g.lockFile.Close()
}

// Commit streams body into the entry, publishing it with an atomic
// rename — the single point at which the entry becomes visible to
// Lookup. On any failure the temp file is discarded and the entry
// reverts to Absent; the guard is released either way.
//
// declaredSize is the server-announced content length, or -1 if
// unknown; a mismatch with the bytes actually received fails the
// commit. sourceURL is recorded in the metadata sidecar along with
// the stream's BLAKE3 digest.
func (g *Guard) Commit(body io.Reader, declaredSize int64, sourceURL string) (*Entry, error) {
	if g.done {
		return nil, fmt.Errorf("cachestore: commit on released guard for %s", g.entryPath)
	}
	defer g.Release()

	store := g.store
	directory := filepath.Dir(g.entryPath)
	base := filepath.Base(g.entryPath)

	tmpFile, err := os.CreateTemp(directory, base+partSuffix+"*")
	if err != nil {
		return nil, &StoreError{Op: "create temp file", Path: directory, Err: err}
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	hasher := blake3.New()
	written, err := copyBounded(io.MultiWriter(tmpFile, hasher), body, store.maxSize)
	if err != nil {
		tmpFile.Close()
		return nil, &StoreError{Op: "commit", Path: tmpPath, Err: err}
	}

	if declaredSize >= 0 && written != declaredSize {
		tmpFile.Close()
		return nil, &StoreError{
			Op:   "commit",
			Path: tmpPath,
			Err:  fmt.Errorf("received %d bytes, server declared %d", written, declaredSize),
		}
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return nil, &StoreError{Op: "commit", Path: tmpPath, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return nil, &StoreError{Op: "commit", Path: tmpPath, Err: err}
	}

	// The publish point: after this rename, Lookup observes the
	// entry; before it, nothing.
	if err := os.Rename(tmpPath, g.entryPath); err != nil {
		return nil, &StoreError{Op: "publish", Path: g.entryPath, Err: err}
	}
	success = true

	digest := hex.EncodeToString(hasher.Sum(nil))
	fetchedAt := store.clock.Now()

	record := &entryMetadata{
		Version:   metadataVersion,
		Size:      written,
		SourceURL: sourceURL,
		Digest:    digest,
		FetchedAt: fetchedAt.Unix(),
	}
	// Sidecar failure does not fail the commit: the entry is already
	// published and Lookup degrades to stat information.
	if err := store.writeMetadata(g.entryPath, record); err != nil {
		store.logger.Warn("writing cache metadata", "path", g.entryPath+metaSuffix, "error", err)
	}

	return &Entry{
		Path:      g.entryPath,
		Size:      written,
		SourceURL: sourceURL,
		Digest:    digest,
		FetchedAt: fetchedAt,
	}, nil
}

// writeMetadata writes the sidecar record via the same temp-and-rename
// discipline as the entry itself.
func (s *Store) writeMetadata(entryPath string, record *entryMetadata) error {
	data, err := marshalMetadata(record)
	if err != nil {
		return err
	}

	directory := filepath.Dir(entryPath)
	tmpFile, err := os.CreateTemp(directory, filepath.Base(entryPath)+metaSuffix+partSuffix+"*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, entryPath+metaSuffix); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// copyBounded copies src to dst, failing once more than limit bytes
// arrive (limit <= 0 means unbounded). The bound is a protocol-level
// safety valve against servers that stream forever.
func copyBounded(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	if limit <= 0 {
		return io.Copy(dst, src)
	}
	written, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return written, err
	}
	if written > limit {
		return written, fmt.Errorf("artifact exceeds size limit of %d bytes", limit)
	}
	return written, nil
}
