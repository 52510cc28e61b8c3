// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
)

// ============================================================================
// CONSTANTS
// ============================================================================

// contentPattern extracts the "content" field value from a record. It is
// deliberately tolerant: the record may be a JSON object, an SSE-prefixed
// fragment, or several concatenated objects, and the pattern matches every
// content field it finds, in order. Escaped quotes inside the value are
// handled by the alternation.
var contentPattern = regexp.MustCompile(`"content":\s*"((?:\\"|[^"])*)"`)

// ssePrefix is stripped from records before extraction. The relay backend
// frames some responses as SSE data lines and some as bare JSON; removing
// the prefix normalizes both shapes.
const ssePrefix = "data: "

const readChunkSize = 4096

// ============================================================================
// DECODER
// ============================================================================

// Decoder incrementally decodes a streamed chat response into content
// deltas. It is stateful: bytes are accumulated across Read calls until a
// record boundary is seen (the trimmed buffer ends with '}'), then every
// content field in the buffered record is emitted as one delta, in order,
// and the buffer resets.
//
// Because accumulation is byte-oriented and extraction only runs on a
// complete record, multi-byte UTF-8 sequences split across network chunks
// are reassembled before any string handling happens.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r         io.Reader
	buf       []byte
	chunk     []byte
	pending   []string
	discarded int
	done      bool
	err       error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:     r,
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next content delta. It returns io.EOF once the stream
// ends and all buffered deltas have been drained. Bytes still accumulated
// when the stream ends without reaching a record boundary are discarded,
// not emitted; Discarded reports how many.
func (d *Decoder) Next() (string, error) {
	for {
		if len(d.pending) > 0 {
			delta := d.pending[0]
			d.pending = d.pending[1:]
			return delta, nil
		}
		if d.done {
			return "", d.err
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.buf = append(d.buf, d.chunk[:n]...)
			if bytes.HasSuffix(bytes.TrimSpace(d.buf), []byte("}")) {
				d.extract()
			}
		}
		if err != nil {
			d.done = true
			d.err = err
			if len(d.buf) > 0 {
				d.discarded += len(d.buf)
				d.buf = d.buf[:0]
			}
		}
	}
}

// Process drains the stream, invoking fn once per delta in arrival order.
// It returns nil on clean end of stream, ctx.Err() if the context is
// cancelled first, or the underlying read error.
func (d *Decoder) Process(ctx context.Context, fn func(delta string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delta, err := d.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fn(delta)
	}
}

// Discarded returns the number of buffered bytes dropped because the
// stream ended before they reached a record boundary.
func (d *Decoder) Discarded() int {
	return d.discarded
}

// extract runs content extraction over the accumulated buffer and resets
// it. Zero matches is valid: keep-alive or metadata records produce no
// deltas.
func (d *Decoder) extract() {
	record := strings.ReplaceAll(string(d.buf), ssePrefix, "")
	for _, m := range contentPattern.FindAllStringSubmatch(record, -1) {
		d.pending = append(d.pending, unescape(m[1]))
	}
	d.buf = d.buf[:0]
}

// ============================================================================
// UNESCAPING
// ============================================================================

// unescape resolves the JSON short escapes in a captured content value.
// The capture can never contain an unescaped '"', so this covers every
// escape the backend produces; unknown sequences pass through verbatim.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
