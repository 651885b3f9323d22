/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"

	"github.com/carverauto/printfleet/pkg/logger"
)

const (
	delimiter = '\n'

	// DefaultMaxFrameSize bounds a buffered, not yet delimited fragment.
	DefaultMaxFrameSize = 4 << 20

	readChunkSize  = 32 << 10
	maxLoggedBytes = 256
)

// concatenated matches a closing brace directly followed by an opening one,
// which happens when the transport coalesces writes.
var concatenated = regexp.MustCompile(`\}\s*\{`)

var repaired = []byte("}\n{")

// Decoder splits a byte stream into JSON object fragments. Fragments that are
// not valid JSON are logged and skipped; only transport errors end decoding.
type Decoder struct {
	r        io.Reader
	log      logger.Logger
	maxFrame int
	buf      []byte
	queue    []json.RawMessage
	chunk    []byte
}

func NewDecoder(r io.Reader, log logger.Logger, maxFrame int) *Decoder {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}

	return &Decoder{
		r:        r,
		log:      log,
		maxFrame: maxFrame,
		chunk:    make([]byte, readChunkSize),
	}
}

// Next blocks until a fragment is available or the reader fails.
func (d *Decoder) Next() (json.RawMessage, error) {
	for len(d.queue) == 0 {
		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.feed(d.chunk[:n])
		}

		if err != nil {
			if len(d.queue) > 0 {
				break
			}

			return nil, err
		}
	}

	raw := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]

	return raw, nil
}

func (d *Decoder) feed(data []byte) {
	d.buf = append(d.buf, data...)
	d.buf = concatenated.ReplaceAll(d.buf, repaired)

	for {
		i := bytes.IndexByte(d.buf, delimiter)
		if i < 0 {
			break
		}

		d.parse(d.buf[:i])
		d.buf = d.buf[i+1:]
	}

	d.skipNoise()

	rest := bytes.TrimSpace(d.buf)

	switch {
	case len(rest) == 0:
		d.buf = d.buf[:0]
	case json.Valid(rest):
		// a complete object that arrived without its delimiter
		d.parse(rest)
		d.buf = d.buf[:0]
	case len(d.buf) > d.maxFrame:
		d.log.Error().
			Err(errFrameTooLarge).
			Int("size", len(d.buf)).
			Msg("Dropping oversized rpc fragment")

		d.buf = nil
	}
}

// skipNoise drops undelimited bytes in front of the next object, such as a
// banner a driver printed without a trailing newline.
func (d *Decoder) skipNoise() {
	rest := bytes.TrimLeft(d.buf, " \t\r\n")
	if len(rest) == 0 || rest[0] == '{' {
		return
	}

	i := bytes.IndexByte(rest, '{')
	if i < 0 {
		i = len(rest)
	}

	d.log.Warn().
		Str("fragment", truncate(rest[:i])).
		Msg("Dropping malformed rpc message")

	d.buf = rest[i:]
}

func (d *Decoder) parse(fragment []byte) {
	fragment = bytes.TrimSpace(fragment)
	if len(fragment) == 0 {
		return
	}

	if i := bytes.IndexByte(fragment, '{'); i > 0 {
		d.log.Warn().
			Str("fragment", truncate(fragment[:i])).
			Msg("Dropping malformed rpc message")

		fragment = fragment[i:]
	}

	if !json.Valid(fragment) {
		d.log.Warn().
			Str("fragment", truncate(fragment)).
			Msg("Dropping malformed rpc message")

		return
	}

	d.queue = append(d.queue, append(json.RawMessage(nil), fragment...))
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBytes {
		return string(b[:maxLoggedBytes]) + "..."
	}

	return string(b)
}
