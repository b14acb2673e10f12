// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

package cachestore

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// metadataVersion is the current sidecar record format version.
const metadataVersion = 1

// entryMetadata is the CBOR sidecar record written beside each
// Complete entry. It lets a cache hit reconstruct the original fetch
// Response (size, source attribution, digest) without touching the
// network. The record is auxiliary: the entry file alone is
// authoritative for existence and content.
type entryMetadata struct {
	// Version is the record format version. Currently 1.
	Version int `json:"version"`

	// Size is the artifact size in bytes.
	Size int64 `json:"size"`

	// SourceURL is the URL that supplied the artifact.
	SourceURL string `json:"source_url"`

	// Digest is the lowercase hex BLAKE3 digest of the artifact
	// bytes, computed while committing. Recorded for consumers;
	// nothing in this module re-verifies it.
	Digest string `json:"digest"`

	// FetchedAt is the commit time as Unix seconds.
	FetchedAt int64 `json:"fetched_at"`
}

// cborEncMode uses Core Deterministic Encoding (RFC 8949 §4.2):
// the same record always produces identical bytes.
var cborEncMode cbor.EncMode

// cborDecMode accepts standard CBOR.
var cborDecMode cbor.DecMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cachestore: CBOR encoder initialization: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("cachestore: CBOR decoder initialization: " + err.Error())
	}
}

func marshalMetadata(record *entryMetadata) ([]byte, error) {
	data, err := cborEncMode.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata record: %w", err)
	}
	return data, nil
}

func unmarshalMetadata(data []byte) (*entryMetadata, error) {
	var record entryMetadata
	if err := cborDecMode.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decoding metadata record: %w", err)
	}
	if record.Version != metadataVersion {
		return nil, fmt.Errorf("unsupported metadata record version %d", record.Version)
	}
	return &record, nil
}
