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
	"net"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
)

// peer is the far end of a client under test, driven by hand.
type peer struct {
	conn   net.Conn
	stream jsonrpc2.Stream
}

func newClientPair(t *testing.T) (*Client, *peer) {
	t.Helper()

	a, b := net.Pipe()
	c := NewClient(a, logger.NewTestLogger())

	t.Cleanup(func() {
		_ = c.Close()
		_ = b.Close()
	})

	return c, &peer{conn: b, stream: NewStream(b, logger.NewTestLogger(), 0)}
}

func (p *peer) next(t *testing.T) *jsonrpc2.Call {
	t.Helper()

	msg, _, err := p.stream.Read(context.Background())
	require.NoError(t, err)

	call, ok := msg.(*jsonrpc2.Call)
	require.True(t, ok, "expected a call, got %T", msg)

	return call
}

func (p *peer) reply(t *testing.T, id jsonrpc2.ID, result interface{}, rpcErr error) {
	t.Helper()

	resp, err := jsonrpc2.NewResponse(id, result, rpcErr)
	require.NoError(t, err)

	_, err = p.stream.Write(context.Background(), resp)
	require.NoError(t, err)
}

func (p *peer) notify(t *testing.T, method string, params interface{}) {
	t.Helper()

	n, err := jsonrpc2.NewNotification(method, params)
	require.NoError(t, err)

	_, err = p.stream.Write(context.Background(), n)
	require.NoError(t, err)
}

func idNumber(t *testing.T, id jsonrpc2.ID) int64 {
	t.Helper()

	b, err := json.Marshal(&id)
	require.NoError(t, err)

	var n int64
	require.NoError(t, json.Unmarshal(b, &n))

	return n
}

func TestClientAllocatesIncreasingIDs(t *testing.T) {
	c, p := newClientPair(t)
	c.Start()

	last := int64(0)

	for i := 0; i < 3; i++ {
		done := make(chan error, 1)

		go func() {
			_, err := c.Invoke(context.Background(), "getStatus", nil)
			done <- err
		}()

		req := p.next(t)
		assert.Equal(t, "getStatus", req.Method())

		id := idNumber(t, req.ID())
		assert.Greater(t, id, last)
		last = id

		p.reply(t, req.ID(), json.RawMessage(`{"state":"ready"}`), nil)
		require.NoError(t, <-done)
	}
}

func TestClientCorrelatesOutOfOrderResponses(t *testing.T) {
	c, p := newClientPair(t)
	c.Start()

	var (
		wg      sync.WaitGroup
		results = make(map[string]string)
		mu      sync.Mutex
	)

	for _, method := range []string{"first", "second"} {
		wg.Add(1)

		go func(method string) {
			defer wg.Done()

			raw, err := c.Invoke(context.Background(), method, map[string]string{"m": method})
			assert.NoError(t, err)

			mu.Lock()
			results[method] = string(raw)
			mu.Unlock()
		}(method)
	}

	reqs := make(map[string]jsonrpc2.ID)

	for i := 0; i < 2; i++ {
		req := p.next(t)
		reqs[req.Method()] = req.ID()
	}

	p.reply(t, reqs["second"], "two", nil)
	p.reply(t, reqs["first"], "one", nil)
	wg.Wait()

	assert.Equal(t, `"one"`, results["first"])
	assert.Equal(t, `"two"`, results["second"])
}

func TestClientDeliversNotificationsInOrder(t *testing.T) {
	c, p := newClientPair(t)

	got := make(chan string, 3)
	c.OnNotification(func(method string, params json.RawMessage) {
		got <- method + string(params)
	})
	c.Start()

	for _, n := range []string{"a", "b", "c"} {
		p.notify(t, "status", n)
	}

	assert.Equal(t, `status"a"`, <-got)
	assert.Equal(t, `status"b"`, <-got)
	assert.Equal(t, `status"c"`, <-got)
}

func TestClientSurvivesUnknownResponseID(t *testing.T) {
	c, p := newClientPair(t)

	got := make(chan string, 1)
	c.OnNotification(func(method string, _ json.RawMessage) { got <- method })
	c.Start()

	p.reply(t, jsonrpc2.NewNumberID(99), json.RawMessage(`{}`), nil)
	p.notify(t, "ready", nil)

	assert.Equal(t, "ready", <-got)
}

func TestClientSurvivesNoiseBetweenMessages(t *testing.T) {
	c, p := newClientPair(t)

	got := make(chan string, 2)
	c.OnNotification(func(method string, _ json.RawMessage) { got <- method })
	c.Start()

	_, err := p.conn.Write([]byte("driver booting\n[1,2]\n{\"id\":\"\"}\n"))
	require.NoError(t, err)
	p.notify(t, "ready", nil)

	assert.Equal(t, "ready", <-got)
}

func TestClientReturnsPeerError(t *testing.T) {
	c, p := newClientPair(t)
	c.Start()

	done := make(chan error, 1)

	go func() {
		_, err := c.Invoke(context.Background(), "command", nil)
		done <- err
	}()

	req := p.next(t)
	p.reply(t, req.ID(), nil, &Error{Code: CodeInternalError, Message: "boom"})

	err := <-done

	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "boom", rpcErr.Message)
	assert.Equal(t, CodeInternalError, rpcErr.Code)
}

func TestClientReleasesPendingCallsOnTransportClose(t *testing.T) {
	c, p := newClientPair(t)
	c.Start()

	done := make(chan error, 1)

	go func() {
		_, err := c.Invoke(context.Background(), "getStatus", nil)
		done <- err
	}()

	p.next(t)
	require.NoError(t, p.conn.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("pending call was not released")
	}

	<-c.Done()

	_, err := c.Invoke(context.Background(), "getStatus", nil)
	require.ErrorIs(t, err, ErrClosed)
}

func TestClientHonorsContext(t *testing.T) {
	c, p := newClientPair(t)
	c.Start()

	go func() {
		_, _, _ = p.stream.Read(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Invoke(ctx, "getStatus", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientCallDecodesResult(t *testing.T) {
	c, p := newClientPair(t)
	c.Start()

	go func() {
		msg, _, err := p.stream.Read(context.Background())
		if err != nil {
			return
		}

		if call, ok := msg.(*jsonrpc2.Call); ok {
			resp, _ := jsonrpc2.NewResponse(call.ID(), json.RawMessage(`{"state":"paused"}`), nil)
			_, _ = p.stream.Write(context.Background(), resp)
		}
	}()

	var out struct {
		State string `json:"state"`
	}

	require.NoError(t, c.Call(context.Background(), "getStatus", nil, &out))
	assert.Equal(t, "paused", out.State)
}
