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

package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/rpc"
	"github.com/gorilla/websocket"
)

// WebSocketLauncher attaches to a driver host running elsewhere, for printers
// that are only reachable from another machine. The remote host starts a
// worker per connection and tears it down when the socket closes.
type WebSocketLauncher struct {
	URL    string
	Dialer *websocket.Dialer
	Log    logger.Logger
}

type remoteProcess struct {
	transport io.ReadWriteCloser
	done      chan struct{}
	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

func (l *WebSocketLauncher) Launch(ctx context.Context, locator string, device models.DeviceData) (Process, error) {
	if l.URL == "" {
		return nil, errNoRemote
	}

	u, err := url.Parse(l.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLaunch, err)
	}

	deviceJSON, err := json.Marshal(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLaunch, err)
	}

	q := u.Query()
	q.Set("locator", locator)
	q.Set("device", string(deviceJSON))
	u.RawQuery = q.Encode()

	dialer := l.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLaunch, err)
	}

	if l.Log != nil {
		l.Log.Info().Str("url", l.URL).Str("locator", locator).Msg("Attached to remote driver host")
	}

	p := &remoteProcess{done: make(chan struct{})}
	p.transport = &watchedTransport{ReadWriteCloser: rpc.NewWebSocketTransport(conn), p: p}

	return p, nil
}

func (p *remoteProcess) Transport() io.ReadWriteCloser { return p.transport }
func (p *remoteProcess) Done() <-chan struct{}         { return p.done }

func (p *remoteProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

func (p *remoteProcess) Kill() error {
	err := p.transport.Close()
	p.exit(nil)

	return err
}

func (p *remoteProcess) exit(err error) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()

		close(p.done)
	})
}

// watchedTransport treats the end of the socket as the remote worker exiting.
type watchedTransport struct {
	io.ReadWriteCloser
	p *remoteProcess
}

func (t *watchedTransport) Read(b []byte) (int, error) {
	n, err := t.ReadWriteCloser.Read(b)
	if err != nil {
		if errors.Is(err, io.EOF) {
			t.p.exit(nil)
		} else {
			t.p.exit(err)
		}
	}

	return n, err
}
