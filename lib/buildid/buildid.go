// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package buildid

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidEncoding is wrapped by every error this package returns
// for malformed input: bad hex in a build ID string, an empty build
// ID, or an unsafe source path. Callers test for it with errors.Is.
var ErrInvalidEncoding = errors.New("invalid encoding")

// BuildID is the content-derived identifier embedded in a compiled
// artifact (the GNU build ID note in ELF files). It is an opaque byte
// sequence: typically 20 bytes for SHA-1 based IDs, 8 or 16 for other
// schemes. Two BuildIDs are equal iff their raw bytes are equal — a
// shorter ID is never equal to one it prefixes.
type BuildID []byte

// New wraps raw build ID bytes. Any byte sequence is a valid BuildID;
// construction from bytes never fails.
func New(raw []byte) BuildID {
	id := make(BuildID, len(raw))
	copy(id, raw)
	return id
}

// Parse decodes a hex-encoded build ID string. Input is
// case-insensitive. Returns an error wrapping [ErrInvalidEncoding] if
// the string has odd length or contains non-hex characters.
func Parse(s string) (BuildID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: build ID %q is not valid hex: %v", ErrInvalidEncoding, s, err)
	}
	return BuildID(raw), nil
}

// String returns the lowercase hex form of the build ID. This is the
// form used both as a protocol path segment and as a cache key
// component. Encoding then parsing is lossless.
func (id BuildID) String() string {
	return hex.EncodeToString(id)
}

// Equal reports whether two build IDs have identical raw bytes.
func (id BuildID) Equal(other BuildID) bool {
	return bytes.Equal(id, other)
}
