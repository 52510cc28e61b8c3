// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay decodes the chat streaming format produced by the relay
// backend into plain-text content deltas.
//
// The wire format is loosely framed: the response body arrives in
// arbitrary network chunks, records end when the accumulated buffer
// (whitespace-trimmed) ends with '}', and each record may carry zero or
// more "content" fields, optionally behind SSE "data: " prefixes. The
// decoder is tolerant of malformed surroundings and only relies on the
// content fields themselves being well-formed JSON strings.
//
// # Key Types
//
//   - Decoder: Stateful incremental decoder over an io.Reader
//
// # Usage
//
//	dec := relay.NewDecoder(resp.Body)
//	err := dec.Process(ctx, func(delta string) {
//	    fmt.Print(delta)
//	})
package relay
