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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(conn net.Conn) *Server {
	s := NewServer(conn, logger.NewTestLogger())

	s.Handle("getStatus", func(context.Context, json.RawMessage) (interface{}, error) {
		return map[string]string{"state": "ready"}, nil
	})
	s.Handle("status.get", func(context.Context, json.RawMessage) (interface{}, error) {
		return map[string]string{"state": "printing"}, nil
	})
	s.Handle("cleanup", func(context.Context, json.RawMessage) (interface{}, error) {
		return nil, nil
	})
	s.Handle("echo", func(_ context.Context, params json.RawMessage) (interface{}, error) {
		return params, nil
	})
	s.Handle("fail", func(context.Context, json.RawMessage) (interface{}, error) {
		return nil, errors.New("driver exploded")
	})
	s.Handle("panic", func(context.Context, json.RawMessage) (interface{}, error) {
		panic("bad driver")
	})

	return s
}

func newServerPair(t *testing.T) (*Client, *Server) {
	t.Helper()

	a, b := net.Pipe()
	srv := newTestServer(b)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})

	go func() {
		defer close(served)

		_ = srv.Serve(ctx)
	}()

	c := NewClient(a, logger.NewTestLogger())
	c.Start()

	t.Cleanup(func() {
		cancel()
		_ = c.Close()
		<-served
	})

	return c, srv
}

func TestServerDispatchesByMethodName(t *testing.T) {
	c, _ := newServerPair(t)
	ctx := context.Background()

	tests := []struct {
		method string
		params interface{}
		want   string
	}{
		{method: "getStatus", want: `{"state":"ready"}`},
		{method: "status.get", want: `{"state":"printing"}`},
		{method: "cleanup", want: `{"success":true}`},
		{method: "echo", params: map[string]int{"x": 1}, want: `{"x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			raw, err := c.Invoke(ctx, tt.method, tt.params)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestServerReportsHandlerFailures(t *testing.T) {
	c, _ := newServerPair(t)

	for _, method := range []string{"fail", "panic"} {
		_, err := c.Invoke(context.Background(), method, nil)

		var rpcErr *Error
		require.True(t, errors.As(err, &rpcErr), method)
		assert.Equal(t, CodeInternalError, rpcErr.Code)
	}
}

func TestServerIgnoresUnknownMethods(t *testing.T) {
	c, _ := newServerPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Invoke(ctx, "nope.missing", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	raw, err := c.Invoke(context.Background(), "getStatus", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"ready"}`, string(raw))
}

func TestServerIgnoresRequestsWithoutIDOrMethod(t *testing.T) {
	a, b := net.Pipe()
	srv := newTestServer(b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = srv.Serve(ctx) }()

	in := `{"jsonrpc":"2.0","method":"getStatus"}` + "\n" +
		`{"jsonrpc":"2.0","id":5}` + "\n" +
		`{"jsonrpc":"2.0","id":6,"method":"getStatus"}` + "\n"

	_, err := a.Write([]byte(in))
	require.NoError(t, err)

	raw, err := NewDecoder(a, logger.NewTestLogger(), 0).Next()
	require.NoError(t, err)

	var resp struct {
		ID     int64           `json:"id"`
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, int64(6), resp.ID)
	assert.JSONEq(t, `{"state":"ready"}`, string(resp.Result))
}

func TestServerServeReturnsOnCancel(t *testing.T) {
	_, b := net.Pipe()
	srv := newTestServer(b)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)

	go func() { served <- srv.Serve(ctx) }()

	cancel()

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServerNotify(t *testing.T) {
	c, srv := newServerPair(t)

	got := make(chan string, 1)
	c.OnNotification(func(method string, params json.RawMessage) {
		got <- method + " " + string(params)
	})

	srv.Notify("status", map[string]string{"state": "printing"})

	assert.Equal(t, `status {"state":"printing"}`, <-got)
}

func TestWebSocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}

	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		srv := NewServer(NewWebSocketTransport(conn), logger.NewTestLogger())
		srv.Handle("getStatus", func(context.Context, json.RawMessage) (interface{}, error) {
			return map[string]string{"state": "ready"}, nil
		})

		_ = srv.Serve(r.Context())
	}))
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	c := NewClient(NewWebSocketTransport(conn), logger.NewTestLogger())
	c.Start()

	defer c.Close()

	for i := 0; i < 3; i++ {
		raw, err := c.Invoke(context.Background(), "getStatus", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"state":"ready"}`, string(raw))
	}
}
