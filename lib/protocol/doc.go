// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol implements the client side of the debuginfod HTTP
// protocol: turning an artifact request into candidate URLs across an
// ordered server list, classifying each server's answer, and
// aggregating the outcomes into a single result.
//
// The server list is a fallback chain. The first success wins and
// stops the iteration; every failure mode — affirmative absence,
// throttling, transport trouble — is recorded per server and carried
// in the final error, so a caller can tell "the artifact does not
// exist" ([NotFoundError]) apart from "servers were unreachable or
// overloaded" ([ServersError]).
//
// Servers that respond with a throttle signal are remembered and
// skipped until their backoff deadline expires. That state lives in
// memory inside the [Client]; see the tracker in ratelimit.go.
//
// This package does no caching. [Client.Fetch] always touches the
// network; the fetch coordinator layers caching and request
// deduplication on top.
package protocol
