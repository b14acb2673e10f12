// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package buildid

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies which of the artifacts associated with a build ID a
// request refers to. The set is closed: debuginfod servers expose
// exactly these three endpoints per build ID.
type Kind int

const (
	// KindDebugInfo is the separate debug information file
	// (DWARF data, typically what .gnu_debuglink points at).
	KindDebugInfo Kind = iota

	// KindExecutable is the executable image itself.
	KindExecutable

	// KindSource is a single source file, identified by the path
	// recorded in the artifact's debug information.
	KindSource
)

// String returns the protocol tag for the kind ("debuginfo",
// "executable", "source").
func (k Kind) String() string {
	switch k {
	case KindDebugInfo:
		return "debuginfo"
	case KindExecutable:
		return "executable"
	case KindSource:
		return "source"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request identifies one fetchable artifact: a build ID plus an
// artifact kind, with a source file path when Kind is [KindSource].
// Two requests address the same cache entry iff all fields compare
// equal.
type Request struct {
	BuildID BuildID
	Kind    Kind

	// SourcePath is the source file path as recorded in debug
	// information, usually absolute ("/usr/src/debug/..."). Set iff
	// Kind is KindSource.
	SourcePath string
}

// Validate checks the request before any I/O or URL construction.
// Returns an error wrapping [ErrInvalidEncoding] for an empty build
// ID, an unknown kind, a missing or unsafe source path (upward
// traversal segments, NUL bytes), or a source path on a non-source
// kind.
func (r Request) Validate() error {
	if len(r.BuildID) == 0 {
		return fmt.Errorf("%w: empty build ID", ErrInvalidEncoding)
	}
	switch r.Kind {
	case KindDebugInfo, KindExecutable:
		if r.SourcePath != "" {
			return fmt.Errorf("%w: source path set on %s request", ErrInvalidEncoding, r.Kind)
		}
	case KindSource:
		if err := validateSourcePath(r.SourcePath); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown artifact kind %d", ErrInvalidEncoding, int(r.Kind))
	}
	return nil
}

// validateSourcePath rejects paths that could escape the artifact's
// logical source root once placed in a URL or cache path. The path is
// otherwise taken verbatim: it is an identifier from debug
// information, not a local filesystem path, so no cleaning or
// normalization is applied (a normalized path would be a different
// protocol key).
func validateSourcePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: source request without a path", ErrInvalidEncoding)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("%w: source path contains NUL byte", ErrInvalidEncoding)
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return fmt.Errorf("%w: source path %q contains traversal segment", ErrInvalidEncoding, path)
		}
	}
	return nil
}

// CacheKey returns the canonical cache key for the request:
//
//	<hex-buildid>/debuginfo
//	<hex-buildid>/executable
//	<hex-buildid>/source/<escaped-path>
//
// The mapping is injective: the source path is percent-escaped
// (including any "/" it contains), so a path can never alias a
// debuginfo or executable key, and distinct paths produce distinct
// keys. The key doubles as the entry's relative location under the
// cache root.
func (r Request) CacheKey() string {
	hex := r.BuildID.String()
	switch r.Kind {
	case KindSource:
		return hex + "/source/" + escapeSourcePath(r.SourcePath)
	default:
		return hex + "/" + r.Kind.String()
	}
}

// URLPath returns the debuginfod protocol path for the request,
// relative to a server base URL:
//
//	buildid/<hex-buildid>/debuginfo
//	buildid/<hex-buildid>/executable
//	buildid/<hex-buildid>/source/<escaped-path>
func (r Request) URLPath() string {
	return "buildid/" + r.CacheKey()
}

// escapeSourcePath percent-escapes a source path into a single path
// segment. url.PathEscape escapes "/" as %2F, which is exactly the
// collapse-to-one-segment behavior both the cache key and the
// protocol path need.
func escapeSourcePath(path string) string {
	return url.PathEscape(path)
}
