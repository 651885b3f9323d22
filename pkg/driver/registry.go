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
	"fmt"
	"sort"
	"sync"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
)

// Registry stores driver factories keyed by locator.
type Registry interface {
	Register(locator string, factory Factory)
	Get(ctx context.Context, locator string, device models.DeviceData, log logger.Logger) (Driver, error)
	Locators() []string
}

type driverRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty driver registry.
func NewRegistry() Registry {
	return &driverRegistry{factories: make(map[string]Factory)}
}

func (r *driverRegistry) Register(locator string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[locator] = factory
}

// Get looks up the factory for locator and builds a driver for device.
func (r *driverRegistry) Get(ctx context.Context, locator string, device models.DeviceData, log logger.Logger) (Driver, error) {
	r.mu.RLock()
	f, ok := r.factories[locator]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownLocator, locator)
	}

	return f(ctx, device, log)
}

func (r *driverRegistry) Locators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for l := range r.factories {
		out = append(out, l)
	}

	sort.Strings(out)

	return out
}
