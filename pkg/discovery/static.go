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

package discovery

import (
	"context"

	"github.com/carverauto/printfleet/pkg/models"
)

// Static announces a fixed list of devices once and never withdraws them.
type Static struct {
	Devices []models.DeviceData
}

func (s *Static) Run(ctx context.Context, out chan<- DeviceEvent) error {
	for _, d := range s.Devices {
		select {
		case out <- DeviceEvent{Kind: DeviceUp, Device: d.Clone()}:
		case <-ctx.Done():
			return nil
		}
	}

	<-ctx.Done()

	return nil
}
