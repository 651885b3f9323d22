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

package driver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/driver/virtual"
	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notification struct {
	method string
	params json.RawMessage
}

func startHost(t *testing.T, registry driver.Registry, locator string) (*rpc.Client, <-chan notification) {
	t.Helper()

	a, b := net.Pipe()

	notes := make(chan notification, 64)

	client := rpc.NewClient(a, logger.NewTestLogger())
	client.OnNotification(func(method string, params json.RawMessage) {
		select {
		case notes <- notification{method: method, params: params}:
		default:
		}
	})
	client.Start()

	device, err := json.Marshal(models.DeviceData{Identifier: "host-1", Type: models.DeviceTypeVirtual})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})

	go func() {
		defer close(served)

		_ = driver.NewHost(registry, logger.NewTestLogger()).Serve(ctx, b, locator, device)
	}()

	t.Cleanup(func() {
		cancel()
		_ = client.Close()
		<-served
	})

	return client, notes
}

func waitNote(t *testing.T, notes <-chan notification, method string) notification {
	t.Helper()

	deadline := time.After(2 * time.Second)

	for {
		select {
		case n := <-notes:
			if n.method == method {
				return n
			}
		case <-deadline:
			t.Fatalf("no %s notification", method)
		}
	}
}

func virtualRegistry(t *testing.T) driver.Registry {
	t.Helper()

	r := driver.NewRegistry()
	r.Register(virtual.Locator, virtual.NewFactory(virtual.Config{WorkDir: t.TempDir()}))

	return r
}

func TestHostServesDriver(t *testing.T) {
	client, notes := startHost(t, virtualRegistry(t), virtual.Locator)
	ctx := context.Background()

	ready := waitNote(t, notes, driver.EventReady)
	assert.JSONEq(t, `{"serialNumber":"VP-host-1"}`, string(ready.params))

	var status models.Status
	require.NoError(t, client.Call(ctx, driver.MethodGetStatus, nil, &status))
	assert.Equal(t, models.PrinterStateReady, status.State)

	var res models.Result
	require.NoError(t, client.Call(ctx, driver.MethodCommand, models.CommandParams{}.With(models.CommandPause), &res))
	assert.False(t, res.Success)

	require.NoError(t, client.Call(ctx, driver.MethodLoadModel, models.Asset{Type: models.AssetTypeURL, URL: "x"}, &res))
	assert.Equal(t, []string{models.DriverErrBadAsset}, res.Errors)

	require.NoError(t, client.Call(ctx, driver.MethodCleanup, nil, &res))
	assert.Equal(t, models.PrinterStateDisconnected, res.State)
}

func TestHostSurvivesDriverConstructionFailure(t *testing.T) {
	tests := []struct {
		name    string
		factory driver.Factory
	}{
		{
			name: "error",
			factory: func(context.Context, models.DeviceData, logger.Logger) (driver.Driver, error) {
				return nil, errors.New("no such port")
			},
		},
		{
			name: "panic",
			factory: func(context.Context, models.DeviceData, logger.Logger) (driver.Driver, error) {
				panic("rogue driver")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := driver.NewRegistry()
			r.Register("broken", tt.factory)

			client, notes := startHost(t, r, "broken")

			info := waitNote(t, notes, driver.NotifyInformation)

			var payload driver.InformationPayload
			require.NoError(t, json.Unmarshal(info.params, &payload))
			assert.Equal(t, "failed to install driver", payload.Message)

			// still alive, but nothing answers
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := client.Invoke(ctx, driver.MethodGetStatus, nil)
			require.ErrorIs(t, err, context.DeadlineExceeded)

			select {
			case <-client.Done():
				t.Fatal("worker channel closed")
			default:
			}
		})
	}
}

func TestHostUnknownLocator(t *testing.T) {
	_, notes := startHost(t, driver.NewRegistry(), "ember")

	waitNote(t, notes, driver.NotifyInformation)
}
