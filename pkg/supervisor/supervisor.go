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
	"sync"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/rpc"
)

// DefaultStopGrace is how long a worker gets to clean up before it is killed.
const DefaultStopGrace = time.Second

const methodCleanup = "cleanup"

// Hooks receive worker lifecycle events. Any of them may be nil.
type Hooks struct {
	// OnNotification gets every notification the worker sends.
	OnNotification rpc.NotificationHandler
	// OnExit runs after the current worker has exited and the supervisor has
	// dropped its references.
	OnExit func(err error)
	// OnTransportError runs when the channel fails while the worker may still
	// be alive.
	OnTransportError func(err error)
}

// Supervisor owns at most one worker for one device.
type Supervisor struct {
	device   models.DeviceData
	resolver Resolver
	launcher Launcher
	hooks    Hooks
	log      logger.Logger

	mu     sync.Mutex
	proc   Process
	client *rpc.Client
	gen    uint64
}

func New(device models.DeviceData, resolver Resolver, launcher Launcher, hooks Hooks, log logger.Logger) *Supervisor {
	return &Supervisor{
		device:   device,
		resolver: resolver,
		launcher: launcher,
		hooks:    hooks,
		log:      log,
	}
}

// Start launches the worker and returns the rpc client attached to it. If a
// worker is already running its client is returned.
func (s *Supervisor) Start(ctx context.Context) (*rpc.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	locator, err := s.resolver.Resolve(&s.device)
	if err != nil {
		return nil, err
	}

	proc, err := s.launcher.Launch(ctx, locator, s.device)
	if err != nil {
		return nil, err
	}

	client := rpc.NewClient(proc.Transport(), s.log)
	if s.hooks.OnNotification != nil {
		client.OnNotification(s.hooks.OnNotification)
	}

	client.Start()

	s.gen++
	s.proc = proc
	s.client = client

	go s.watch(s.gen, proc, client)

	s.log.Debug().Str("locator", locator).Uint64("generation", s.gen).Msg("Driver worker attached")

	return client, nil
}

// Client returns the current rpc client, or nil when no worker runs.
func (s *Supervisor) Client() *rpc.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client
}

func (s *Supervisor) Running() bool {
	return s.Client() != nil
}

// Kill terminates the worker immediately and drops the references to it.
func (s *Supervisor) Kill() {
	s.mu.Lock()
	proc, client := s.proc, s.client
	s.proc, s.client = nil, nil
	s.mu.Unlock()

	if proc == nil {
		return
	}

	if err := proc.Kill(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to kill driver worker")
	}

	if client != nil {
		_ = client.Close()
	}
}

// Stop asks the worker to clean up, gives it grace to exit on its own and
// then kills it. Stop always completes within roughly grace.
func (s *Supervisor) Stop(ctx context.Context, grace time.Duration) {
	s.mu.Lock()
	proc, client := s.proc, s.client
	s.mu.Unlock()

	if proc == nil {
		return
	}

	if grace <= 0 {
		grace = DefaultStopGrace
	}

	gctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	if _, err := client.Invoke(gctx, methodCleanup, nil); err != nil {
		s.log.Debug().Err(err).Msg("Driver cleanup was not acknowledged")
	}

	select {
	case <-proc.Done():
	case <-gctx.Done():
	}

	s.Kill()
}

func (s *Supervisor) watch(gen uint64, proc Process, client *rpc.Client) {
	select {
	case <-proc.Done():
	case <-client.Done():
		if err := client.Err(); err != nil {
			s.log.Warn().Err(err).Msg("Driver channel failed")

			if s.hooks.OnTransportError != nil {
				s.hooks.OnTransportError(err)
			}
		}

		<-proc.Done()
	}

	s.mu.Lock()
	current := s.gen == gen
	if current && s.proc == proc {
		s.proc, s.client = nil, nil
	}
	s.mu.Unlock()

	_ = client.Close()

	s.log.Info().Err(proc.Err()).Uint64("generation", gen).Msg("Driver worker exited")

	if current && s.hooks.OnExit != nil {
		s.hooks.OnExit(proc.Err())
	}
}
