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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/carverauto/printfleet/pkg/logger"
	"go.lsp.dev/jsonrpc2"
)

// stream carries jsonrpc2 messages as newline delimited JSON over a raw
// transport. Fragments that frame correctly but do not decode as a message
// are logged and skipped so a noisy peer never fails the connection.
// Responses are only passed on for calls this side actually wrote.
type stream struct {
	conn io.ReadWriteCloser
	dec  *Decoder
	log  logger.Logger

	wmu sync.Mutex

	mu      sync.Mutex
	pending map[jsonrpc2.ID]struct{}
}

// NewStream wraps conn. maxFrame bounds an undelimited fragment; zero means
// DefaultMaxFrameSize.
func NewStream(conn io.ReadWriteCloser, log logger.Logger, maxFrame int) jsonrpc2.Stream {
	return &stream{
		conn:    conn,
		dec:     NewDecoder(conn, log, maxFrame),
		log:     log,
		pending: make(map[jsonrpc2.ID]struct{}),
	}
}

func (s *stream) Read(context.Context) (jsonrpc2.Message, int64, error) {
	for {
		raw, err := s.dec.Next()
		if err != nil {
			return nil, 0, err
		}

		msg, err := jsonrpc2.DecodeMessage(raw)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("fragment", truncate(raw)).
				Msg("Dropping malformed rpc message")

			continue
		}

		if resp, ok := msg.(*jsonrpc2.Response); ok && !s.settle(resp.ID()) {
			s.log.Warn().
				Str("id", fmt.Sprint(resp.ID())).
				Msg("Dropping response with unknown id")

			continue
		}

		return msg, int64(len(raw)), nil
	}
}

func (s *stream) settle(id jsonrpc2.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[id]; !ok {
		return false
	}

	delete(s.pending, id)

	return true
}

func (s *stream) Write(_ context.Context, msg jsonrpc2.Message) (int64, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}

	b = append(b, delimiter)

	if call, ok := msg.(*jsonrpc2.Call); ok {
		s.mu.Lock()
		s.pending[call.ID()] = struct{}{}
		s.mu.Unlock()
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	n, err := s.conn.Write(b)

	return int64(n), err
}

func (s *stream) Close() error {
	return s.conn.Close()
}
