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

//go:generate mockgen -destination=mock_events.go -package=events github.com/carverauto/printfleet/pkg/events Publisher

// Package events publishes printer lifecycle events as CloudEvents.
package events

import (
	"context"

	"github.com/carverauto/printfleet/pkg/models"
)

// Publisher delivers printer events to subscribers outside the manager.
type Publisher interface {
	PublishPrinterEvent(ctx context.Context, data *models.PrinterEventData) error
	Close() error
}
