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

//go:generate mockgen -destination=mock_supervisor.go -package=supervisor github.com/carverauto/printfleet/pkg/supervisor Launcher,Process

// Package supervisor owns the driver worker behind one printer connection.
package supervisor

import (
	"context"
	"io"

	"github.com/carverauto/printfleet/pkg/models"
)

// Process is a running driver worker.
type Process interface {
	// Transport carries the rpc channel to the worker.
	Transport() io.ReadWriteCloser
	// Done is closed when the worker has exited.
	Done() <-chan struct{}
	// Err reports why the worker exited, once Done is closed.
	Err() error
	// Kill terminates the worker. It is safe to call more than once.
	Kill() error
}

// Launcher starts a worker running the driver named by locator for device.
type Launcher interface {
	Launch(ctx context.Context, locator string, device models.DeviceData) (Process, error)
}

// Resolver maps a device to its driver locator.
type Resolver interface {
	Resolve(device *models.DeviceData) (string, error)
}
