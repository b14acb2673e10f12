// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package cachestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/debuginfod-go/debuginfod/lib/buildid"
	"github.com/debuginfod-go/debuginfod/lib/testutil"
)

var testRequest = buildid.Request{
	BuildID: buildid.New([]byte{0xae, 0xb9, 0xa9, 0x83}),
	Kind:    buildid.KindDebugInfo,
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func commit(t *testing.T, store *Store, request buildid.Request, content string, sourceURL string) *Entry {
	t.Helper()
	guard, err := store.Begin(context.Background(), request)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	entry, err := guard.Commit(strings.NewReader(content), int64(len(content)), sourceURL)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return entry
}

func TestLookupAbsent(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Lookup(testRequest)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("absent entry reported present")
	}
}

func TestCommitThenLookup(t *testing.T) {
	store := newTestStore(t)
	committed := commit(t, store, testRequest, "debug info bytes", "https://a.example/buildid/aeb9a983/debuginfo")

	if committed.Size != int64(len("debug info bytes")) {
		t.Errorf("Size = %d", committed.Size)
	}
	if committed.Digest == "" {
		t.Error("no digest recorded")
	}

	entry, ok, err := store.Lookup(testRequest)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("committed entry not found")
	}
	if entry.SourceURL != committed.SourceURL {
		t.Errorf("SourceURL = %q, want %q", entry.SourceURL, committed.SourceURL)
	}
	if entry.Digest != committed.Digest {
		t.Errorf("Digest = %q, want %q", entry.Digest, committed.Digest)
	}
	if entry.FetchedAt.IsZero() {
		t.Error("FetchedAt not recorded")
	}

	content, err := os.ReadFile(entry.Path)
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	if string(content) != "debug info bytes" {
		t.Fatalf("cached content = %q", content)
	}

	// No temp files survive a successful commit.
	assertNoPartFiles(t, filepath.Dir(entry.Path))
}

func TestCommitSourceEntry(t *testing.T) {
	store := newTestStore(t)
	request := buildid.Request{
		BuildID:    testRequest.BuildID,
		Kind:       buildid.KindSource,
		SourcePath: "/usr/src/debug/main.c",
	}
	commit(t, store, request, "int main(void) {}", "https://a.example/x")

	entry, ok, err := store.Lookup(request)
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	// The escaped path is a single filename under the source subdir.
	if got := filepath.Base(filepath.Dir(entry.Path)); got != "source" {
		t.Fatalf("source entry parent = %q", got)
	}
}

func TestCommitSizeMismatch(t *testing.T) {
	store := newTestStore(t)
	guard, err := store.Begin(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_, err = guard.Commit(strings.NewReader("short"), 100, "https://a.example/x")
	if err == nil {
		t.Fatal("expected error for truncated stream")
	}
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("err = %T, want *StoreError", err)
	}
	assertAbsent(t, store, testRequest)
}

func TestCommitMaxSize(t *testing.T) {
	store, err := NewStore(StoreConfig{Root: t.TempDir(), MaxSize: 4})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	guard, err := store.Begin(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_, err = guard.Commit(strings.NewReader("way too large"), -1, "https://a.example/x")
	if err == nil {
		t.Fatal("expected error for oversized artifact")
	}
	assertAbsent(t, store, testRequest)
}

// errorReader fails partway through the stream, like a dropped
// connection mid-download.
type errorReader struct{ remaining int }

func (r *errorReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), r.remaining)
	r.remaining -= n
	return n, nil
}

func TestCommitStreamFailureRevertsToAbsent(t *testing.T) {
	store := newTestStore(t)
	guard, err := store.Begin(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_, err = guard.Commit(&errorReader{remaining: 10}, -1, "https://a.example/x")
	if err == nil {
		t.Fatal("expected error for failed stream")
	}
	assertAbsent(t, store, testRequest)
	assertNoPartFiles(t, filepath.Dir(store.entryPath(testRequest)))
}

func TestReleaseWithoutCommitLeavesAbsent(t *testing.T) {
	store := newTestStore(t)
	guard, err := store.Begin(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	guard.Release()
	guard.Release() // idempotent
	assertAbsent(t, store, testRequest)

	// The key is immediately reusable.
	commit(t, store, testRequest, "second attempt", "https://a.example/x")
}

func TestCommitOnReleasedGuardFails(t *testing.T) {
	store := newTestStore(t)
	guard, err := store.Begin(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	guard.Release()
	if _, err := guard.Commit(strings.NewReader("x"), -1, ""); err == nil {
		t.Fatal("expected error committing through a released guard")
	}
}

func TestBeginRemovesAbandonedParts(t *testing.T) {
	store := newTestStore(t)
	path := store.entryPath(testRequest)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	// A partial file left by a crashed fetch: no live lock holder.
	stale := path + partSuffix + "12345"
	if err := os.WriteFile(stale, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	guard, err := store.Begin(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer guard.Release()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("abandoned partial file survived Begin")
	}
}

func TestLookupWithoutSidecar(t *testing.T) {
	store := newTestStore(t)
	// An entry written by another debuginfod-aware program that does
	// not produce sidecars (or a crash between publish and sidecar
	// write).
	path := store.entryPath(testRequest)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("foreign bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	entry, ok, err := store.Lookup(testRequest)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("entry not found")
	}
	if entry.Size != int64(len("foreign bytes")) {
		t.Errorf("Size = %d", entry.Size)
	}
	if entry.SourceURL != "" || entry.Digest != "" || !entry.FetchedAt.IsZero() {
		t.Error("sidecar-less entry fabricated metadata")
	}
}

func TestLookupCorruptSidecar(t *testing.T) {
	store := newTestStore(t)
	entry := commit(t, store, testRequest, "bytes", "https://a.example/x")
	if err := os.WriteFile(entry.Path+metaSuffix, []byte("not cbor"), 0o644); err != nil {
		t.Fatal(err)
	}

	recovered, ok, err := store.Lookup(testRequest)
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if recovered.Size != int64(len("bytes")) {
		t.Errorf("stat fallback Size = %d", recovered.Size)
	}
}

func TestBeginBlocksUntilRelease(t *testing.T) {
	store := newTestStore(t)
	guard, err := store.Begin(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	type result struct {
		guard *Guard
		err   error
	}
	second := make(chan result, 1)
	go func() {
		g, err := store.Begin(context.Background(), testRequest)
		second <- result{g, err}
	}()

	select {
	case <-second:
		t.Fatal("second Begin acquired the lock while the first held it")
	case <-time.After(100 * time.Millisecond):
	}

	guard.Release()

	r := testutil.RequireReceive(t, second, 5*time.Second, "second Begin after Release")
	if r.err != nil {
		t.Fatalf("second Begin: %v", r.err)
	}
	r.guard.Release()
}

func TestBeginHonorsContext(t *testing.T) {
	store := newTestStore(t)
	guard, err := store.Begin(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer guard.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = store.Begin(ctx, testRequest)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestDistinctKindsAreDistinctEntries(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, testRequest, "debug", "https://a.example/d")

	executable := buildid.Request{BuildID: testRequest.BuildID, Kind: buildid.KindExecutable}
	assertAbsent(t, store, executable)

	commit(t, store, executable, "elf", "https://a.example/e")
	entry, ok, _ := store.Lookup(testRequest)
	if !ok || entry.Size != int64(len("debug")) {
		t.Fatal("executable commit disturbed the debuginfo entry")
	}
}

func assertAbsent(t *testing.T, store *Store, request buildid.Request) {
	t.Helper()
	_, ok, err := store.Lookup(request)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("entry unexpectedly present")
	}
}

func assertNoPartFiles(t *testing.T, directory string) {
	t.Helper()
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, dirEntry := range entries {
		if strings.Contains(dirEntry.Name(), partSuffix) {
			t.Fatalf("leftover temp file %s", dirEntry.Name())
		}
	}
}
