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
	"io"
	"net"
	"sync"

	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
)

// InProcessLauncher hosts drivers on goroutines of the manager itself,
// connected over an in-memory pipe. A misbehaving driver body can take the
// manager down with it, so it is meant for the virtual printer and tests.
type InProcessLauncher struct {
	Registry driver.Registry
	Log      logger.Logger
}

type inProcess struct {
	conn     net.Conn
	peer     net.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	killOnce sync.Once
}

func (l *InProcessLauncher) Launch(_ context.Context, locator string, device models.DeviceData) (Process, error) {
	deviceJSON, err := json.Marshal(device)
	if err != nil {
		return nil, err
	}

	conn, peer := net.Pipe()

	// the worker outlives the launch call, so it gets its own context
	ctx, cancel := context.WithCancel(context.Background())

	p := &inProcess{
		conn:   conn,
		peer:   peer,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	host := driver.NewHost(l.Registry, l.Log)

	go func() {
		defer close(p.done)

		p.err = host.Serve(ctx, peer, locator, deviceJSON)
	}()

	return p, nil
}

func (p *inProcess) Transport() io.ReadWriteCloser { return p.conn }
func (p *inProcess) Done() <-chan struct{}         { return p.done }

func (p *inProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *inProcess) Kill() error {
	p.killOnce.Do(func() {
		p.cancel()
		_ = p.peer.Close()
	})

	return nil
}
