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

// Package driver defines the contract hardware drivers implement and the
// worker side plumbing that exposes a driver over an rpc channel.
package driver

import (
	"context"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
)

// Event names a driver may emit.
const (
	EventReady  = "ready"
	EventStatus = "status"
	EventError  = "error"
)

// Event is an application event relayed to the manager as a notification.
type Event struct {
	Name    string
	Payload interface{}
}

// ReadyPayload accompanies EventReady.
type ReadyPayload struct {
	SerialNumber string `json:"serialNumber,omitempty"`
}

// ErrorPayload accompanies EventError.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Driver is implemented by every hardware driver body.
type Driver interface {
	GetStatus(ctx context.Context) (models.Status, error)
	Command(ctx context.Context, params models.CommandParams) (models.Result, error)
	LoadModel(ctx context.Context, asset models.Asset) (models.Result, error)
	// Cleanup releases the hardware. It is idempotent.
	Cleanup(ctx context.Context) (models.Result, error)
	Events() <-chan Event
}

// Factory builds a driver for one device.
type Factory func(ctx context.Context, device models.DeviceData, log logger.Logger) (Driver, error)
