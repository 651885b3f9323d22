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

	"github.com/carverauto/printfleet/pkg/models"
)

// Router picks a launcher by device type, falling back to Default.
type Router struct {
	Default Launcher
	ByType  map[models.DeviceType]Launcher
}

func (r *Router) Launch(ctx context.Context, locator string, device models.DeviceData) (Process, error) {
	if l, ok := r.ByType[device.Type]; ok {
		return l.Launch(ctx, locator, device)
	}

	return r.Default.Launch(ctx, locator, device)
}
