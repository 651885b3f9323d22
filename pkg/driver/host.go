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

package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

const (
	MethodGetStatus   = "getStatus"
	MethodCommand     = "command"
	MethodLoadModel   = "loadmodel"
	MethodCleanup     = "cleanup"
	NotifyInformation = "information"

	cleanupTimeout = time.Second
)

// InformationPayload accompanies the information notification.
type InformationPayload struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Host runs one driver inside a worker and exposes it over an rpc channel.
type Host struct {
	registry Registry
	log      logger.Logger
}

func NewHost(registry Registry, log logger.Logger) *Host {
	return &Host{registry: registry, log: log}
}

// Serve builds the driver named by locator for the JSON encoded device and
// serves it over conn until conn closes or ctx ends. A driver that fails to
// build is reported with an information notification and the worker keeps
// serving without a driver.
func (h *Host) Serve(ctx context.Context, conn io.ReadWriteCloser, locator string, deviceJSON []byte) error {
	srv := rpc.NewServer(conn, h.log)

	drv, err := h.construct(ctx, locator, deviceJSON)
	if err != nil {
		h.log.Error().Err(err).Str("locator", locator).Msg("Failed to install driver")
	} else {
		h.log.Info().Str("locator", locator).Msg("Driver installed")
		register(srv, drv)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()

		return srv.Serve(gctx)
	})

	g.Go(func() error {
		if drv == nil {
			srv.Notify(NotifyInformation, InformationPayload{
				Message: "failed to install driver",
				Error:   err.Error(),
			})

			return nil
		}

		h.relay(gctx, srv, drv)

		return nil
	})

	serveErr := g.Wait()

	if drv != nil {
		cctx, ccancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer ccancel()

		if _, err := drv.Cleanup(cctx); err != nil {
			h.log.Warn().Err(err).Msg("Driver cleanup failed")
		}
	}

	return serveErr
}

func (h *Host) construct(ctx context.Context, locator string, deviceJSON []byte) (drv Driver, err error) {
	defer func() {
		if r := recover(); r != nil {
			drv = nil
			err = fmt.Errorf("%w: %v", errConstruct, r)
		}
	}()

	if locator == "" {
		return nil, fmt.Errorf("%w: empty locator", errUnknownLocator)
	}

	var device models.DeviceData
	if err := json.Unmarshal(deviceJSON, &device); err != nil {
		return nil, fmt.Errorf("%w: bad device data: %w", errConstruct, err)
	}

	drv, err = h.registry.Get(ctx, locator, device, h.log)
	if err != nil {
		return nil, err
	}

	if drv == nil {
		return nil, fmt.Errorf("%w: factory returned no driver", errConstruct)
	}

	return drv, nil
}

func (h *Host) relay(ctx context.Context, srv *rpc.Server, drv Driver) {
	events := drv.Events()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			h.log.Debug().Str("event", ev.Name).Msg("Relaying driver event")
			srv.Notify(ev.Name, ev.Payload)
		}
	}
}

func register(srv *rpc.Server, drv Driver) {
	srv.Handle(MethodGetStatus, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return drv.GetStatus(ctx)
	})

	srv.Handle(MethodCommand, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var p models.CommandParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}

		return drv.Command(ctx, p)
	})

	srv.Handle(MethodLoadModel, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var asset models.Asset
		if err := decode(params, &asset); err != nil {
			return nil, err
		}

		return drv.LoadModel(ctx, asset)
	})

	srv.Handle(MethodCleanup, func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return drv.Cleanup(ctx)
	})
}

func decode(params json.RawMessage, out interface{}) error {
	if len(params) == 0 {
		return nil
	}

	if err := json.Unmarshal(params, out); err != nil {
		return &rpc.Error{Code: rpc.CodeInvalidParams, Message: err.Error()}
	}

	return nil
}
