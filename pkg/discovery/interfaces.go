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

// Package discovery reports printers appearing and disappearing.
package discovery

import (
	"context"

	"github.com/carverauto/printfleet/pkg/models"
)

// EventKind says whether a device appeared or went away.
type EventKind string

const (
	DeviceUp   EventKind = "up"
	DeviceDown EventKind = "down"
)

// DeviceEvent is a change in the set of reachable devices.
type DeviceEvent struct {
	Kind   EventKind
	Device models.DeviceData
}

// Source sends device events to out until ctx is done. Run must not close
// out.
type Source interface {
	Run(ctx context.Context, out chan<- DeviceEvent) error
}
