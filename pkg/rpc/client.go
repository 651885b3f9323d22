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

// NotificationHandler receives notifications in the order they were read.
// It runs on the client's read loop and must not block on Invoke of the same
// client.
type NotificationHandler func(method string, params json.RawMessage)

// Client issues requests over a transport. Correlation by id is done by the
// underlying jsonrpc2 connection. The client never times out a call on its
// own; bound calls with ctx.
type Client struct {
	conn     jsonrpc2.Conn
	log      logger.Logger
	maxFrame int

	mu        sync.Mutex
	listeners []NotificationHandler
	closed    bool
	err       error

	startOnce sync.Once
	done      chan struct{}
}

type ClientOption func(*Client)

// WithMaxFrameSize overrides DefaultMaxFrameSize for the client's decoder.
func WithMaxFrameSize(n int) ClientOption {
	return func(c *Client) {
		c.maxFrame = n
	}
}

// NewClient wraps conn. Register listeners, then call Start.
func NewClient(conn io.ReadWriteCloser, log logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		log:      log,
		maxFrame: DefaultMaxFrameSize,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.conn = jsonrpc2.NewConn(NewStream(conn, log, c.maxFrame))

	return c
}

// OnNotification registers h for every incoming notification.
func (c *Client) OnNotification(h NotificationHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, h)
}

// Start launches the read loop.
func (c *Client) Start() {
	c.startOnce.Do(func() {
		c.conn.Go(context.Background(), c.handle)

		go func() {
			<-c.conn.Done()
			c.release(c.conn.Err())
		}()
	})
}

// Done is closed once the transport has ended and every pending call has
// been released.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read loop, or nil for a clean EOF.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Invoke sends method with params and waits for the matching response.
func (c *Client) Invoke(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	if c.isClosed() {
		return nil, ErrClosed
	}

	// a dead transport never answers, so the call is released with it
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c.done:
			cancel()
		case <-callCtx.Done():
		}
	}()

	var result json.RawMessage

	_, err = c.conn.Call(callCtx, method, raw, &result)
	if err == nil {
		return result, nil
	}

	var rpcErr *Error

	switch {
	case errors.As(err, &rpcErr):
		return nil, rpcErr
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case c.isClosed():
		return nil, ErrClosed
	}

	// the call is released once the transport is gone or ctx ends
	c.log.Error().
		Err(err).
		Str("method", method).
		Msg("Failed to write rpc request")

	<-callCtx.Done()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return nil, ErrClosed
}

// Call is Invoke followed by decoding the result into out. A nil out
// discards the result.
func (c *Client) Call(ctx context.Context, method string, params, out interface{}) error {
	raw, err := c.Invoke(ctx, method, params)
	if err != nil {
		return err
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	return json.Unmarshal(raw, out)
}

// Close closes the transport. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.release(nil)

	return c.conn.Close()
}

func (c *Client) handle(_ context.Context, _ jsonrpc2.Replier, req jsonrpc2.Request) error {
	if call, ok := req.(*jsonrpc2.Call); ok {
		c.log.Warn().
			Str("method", call.Method()).
			Str("id", fmt.Sprint(call.ID())).
			Msg("Unexpected request on client channel, treating as notification")
	}

	c.mu.Lock()
	listeners := c.listeners
	c.mu.Unlock()

	for _, l := range listeners {
		l(req.Method(), req.Params())
	}

	return nil
}

func (c *Client) release(err error) {
	if errors.Is(err, io.EOF) {
		err = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.err = err

	close(c.done)
}
