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
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/carverauto/printfleet/pkg/logger"
	"go.lsp.dev/jsonrpc2"
)

// HandlerFunc serves one method. A nil result is answered with
// {"success":true}.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

var defaultResult = json.RawMessage(`{"success":true}`)

// Server answers requests read from a transport using an explicit method
// table. Method names may contain dots; they are matched verbatim.
type Server struct {
	conn jsonrpc2.Conn
	log  logger.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	wg sync.WaitGroup
}

func NewServer(conn io.ReadWriteCloser, log logger.Logger) *Server {
	return &Server{
		conn:     jsonrpc2.NewConn(NewStream(conn, log, DefaultMaxFrameSize)),
		log:      log,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers h for method, replacing any previous handler.
func (s *Server) Handle(method string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[method] = h
}

// Notify sends a notification. Write failures are logged.
func (s *Server) Notify(method string, params interface{}) {
	raw, err := marshalParams(params)
	if err != nil {
		s.log.Error().Err(err).Str("method", method).Msg("Failed to encode notification")

		return
	}

	if err := s.conn.Notify(context.Background(), method, raw); err != nil {
		s.log.Error().Err(err).Str("method", method).Msg("Failed to write notification")
	}
}

// Serve reads requests until the transport ends or ctx is canceled. Handlers
// run concurrently and receive a context canceled when Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
	}()

	s.conn.Go(ctx, s.handle)

	select {
	case <-ctx.Done():
		_ = s.conn.Close()
		<-s.conn.Done()

		return nil
	case <-s.conn.Done():
	}

	if err := s.conn.Err(); err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
		return err
	}

	return nil
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	call, ok := req.(*jsonrpc2.Call)
	if !ok {
		s.log.Warn().Str("method", req.Method()).Msg("Ignoring rpc message that is not a request")

		return nil
	}

	s.mu.RLock()
	h, ok := s.handlers[call.Method()]
	s.mu.RUnlock()

	if !ok {
		s.log.Warn().Str("method", call.Method()).Msg("Ignoring request for unknown method")

		return nil
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		result, err := s.call(ctx, h, call)
		if err := reply(ctx, result, err); err != nil {
			s.log.Error().
				Err(err).
				Str("method", call.Method()).
				Str("id", fmt.Sprint(call.ID())).
				Msg("Failed to write rpc response")
		}
	}()

	return nil
}

func (s *Server) call(ctx context.Context, h HandlerFunc, req *jsonrpc2.Call) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("method", req.Method()).
				Interface("panic", r).
				Msg("Handler panicked")

			result = nil
			err = &Error{Code: CodeInternalError, Message: fmt.Sprint(r)}
		}
	}()

	result, err = h(ctx, req.Params())
	if err != nil {
		var rpcErr *Error
		if !errors.As(err, &rpcErr) {
			rpcErr = &Error{Code: CodeInternalError, Message: err.Error()}
		}

		return nil, rpcErr
	}

	if result == nil {
		return defaultResult, nil
	}

	raw, err := marshalParams(result)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}

	return raw, nil
}
