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
	"testing"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	var got models.DeviceData

	r.Register("ember", func(_ context.Context, d models.DeviceData, _ logger.Logger) (Driver, error) {
		got = d

		return nil, nil
	})
	r.Register("conveyor", nil)

	_, err := r.Get(context.Background(), "ember", models.DeviceData{Identifier: "e1"}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "e1", got.Identifier)

	_, err = r.Get(context.Background(), "octoprint", models.DeviceData{}, logger.NewTestLogger())
	require.ErrorIs(t, err, errUnknownLocator)

	assert.Equal(t, []string{"conveyor", "ember"}, r.Locators())
}

func TestResolver(t *testing.T) {
	t.Parallel()

	r := NewResolver([]USBRule{
		{VID: 0x2341, PID: AnyProduct, Locator: "gcode"},
		{VID: 0x16c0, PID: 0x0483, Locator: "teensy"},
		{VID: 0x1234, PID: 1, Locator: ""},
	})

	tests := []struct {
		name    string
		device  models.DeviceData
		want    string
		wantErr bool
	}{
		{name: "octoprint", device: models.DeviceData{Type: models.DeviceTypeOctoprint}, want: "octoprint"},
		{name: "ember", device: models.DeviceData{Type: models.DeviceTypeEmber}, want: "ember"},
		{name: "virtual", device: models.DeviceData{Type: models.DeviceTypeVirtual}, want: "virtual"},
		{name: "conveyor", device: models.DeviceData{Type: models.DeviceTypeConveyor}, want: "conveyor"},
		{name: "usb wildcard pid", device: models.DeviceData{Type: models.DeviceTypeUSB, VID: 0x2341, PID: 0x42}, want: "gcode"},
		{name: "serial exact pid", device: models.DeviceData{Type: models.DeviceTypeSerial, VID: 0x16c0, PID: 0x0483}, want: "teensy"},
		{name: "usb pid mismatch", device: models.DeviceData{Type: models.DeviceTypeUSB, VID: 0x16c0, PID: 1}, wantErr: true},
		{name: "rule without locator", device: models.DeviceData{Type: models.DeviceTypeUSB, VID: 0x1234, PID: 1}, wantErr: true},
		{name: "unknown type", device: models.DeviceData{Type: "laser"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Resolve(&tt.device)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoDriverAvailable)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
