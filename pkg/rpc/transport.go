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
	"errors"
	"io"
	"sync"

	"github.com/gorilla/websocket"
)

type pipe struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

// NewPipe joins a read side and a write side, typically a child's stdout and
// stdin, into one transport. Close closes both.
func NewPipe(r io.ReadCloser, w io.WriteCloser) io.ReadWriteCloser {
	return &pipe{Reader: r, Writer: w, closers: []io.Closer{w, r}}
}

func (p *pipe) Close() error {
	var errs []error

	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// wsTransport adapts a websocket connection to a byte stream. Each write is
// sent as one text message.
type wsTransport struct {
	conn *websocket.Conn
	r    io.Reader
	wmu  sync.Mutex
}

func NewWebSocketTransport(conn *websocket.Conn) io.ReadWriteCloser {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Read(p []byte) (int, error) {
	for {
		if t.r == nil {
			_, r, err := t.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}

				return 0, err
			}

			t.r = r
		}

		n, err := t.r.Read(p)
		if errors.Is(err, io.EOF) {
			t.r = nil

			if n == 0 {
				continue
			}

			return n, nil
		}

		return n, err
	}
}

func (t *wsTransport) Write(p []byte) (int, error) {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	if err := t.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (t *wsTransport) Close() error {
	t.wmu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.wmu.Unlock()

	return t.conn.Close()
}
