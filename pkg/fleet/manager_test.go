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

package fleet

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/printfleet/pkg/connection"
	"github.com/carverauto/printfleet/pkg/discovery"
	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/driver/virtual"
	"github.com/carverauto/printfleet/pkg/events"
	"github.com/carverauto/printfleet/pkg/files"
	"github.com/carverauto/printfleet/pkg/jobs"
	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type eventLog struct {
	mu     sync.Mutex
	events []*models.PrinterEventData
}

func (l *eventLog) add(_ context.Context, data *models.PrinterEventData) error {
	l.mu.Lock()
	l.events = append(l.events, data)
	l.mu.Unlock()

	return nil
}

func (l *eventLog) has(printerID, event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.events {
		if e.PrinterID == printerID && e.Event == event {
			return true
		}
	}

	return false
}

func virtualDevice(name, id string) models.DeviceData {
	return models.DeviceData{ServiceName: name, Identifier: id, Type: models.DeviceTypeVirtual}
}

func newTestManager(t *testing.T, pub events.Publisher) (*Manager, *files.Registry) {
	t.Helper()

	log := logger.NewTestLogger()

	reg := driver.NewRegistry()
	reg.Register(virtual.Locator, virtual.NewFactory(virtual.Config{
		WorkDir:          t.TempDir(),
		ConnectDelay:     models.Duration(5 * time.Millisecond),
		LoadTick:         models.Duration(5 * time.Millisecond),
		LoadTicks:        1,
		PrintTick:        models.Duration(5 * time.Millisecond),
		PrintTicks:       4,
		ProgressInterval: models.Duration(5 * time.Millisecond),
	}))

	fileReg, err := files.NewRegistry(t.TempDir(), log)
	require.NoError(t, err)

	m := NewManager(Options{
		Resolver:   driver.NewResolver(nil),
		Launcher:   &supervisor.InProcessLauncher{Registry: reg, Log: log},
		Jobs:       jobs.NewRegistry(log),
		Files:      fileReg,
		Publisher:  pub,
		Connection: connection.Config{DisconnectGrace: models.Duration(20 * time.Millisecond)},
	}, log)

	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	return m, fileReg
}

func TestAddRejectsDuplicatesAndNamesUniquely(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	first, err := m.Add(ctx, virtualDevice("Bench", "v1"), "")
	require.NoError(t, err)
	assert.Equal(t, "Bench", first.Name)
	assert.True(t, first.Connected)
	assert.NotEmpty(t, first.ID)

	_, err = m.Add(ctx, virtualDevice("Bench", "v1"), "")
	require.ErrorIs(t, err, ErrDuplicateDevice)

	second, err := m.Add(ctx, virtualDevice("Bench", "v2"), "")
	require.NoError(t, err)
	assert.Equal(t, "Bench (2)", second.Name)

	third, err := m.Add(ctx, virtualDevice("Other", "v3"), "Bench")
	require.NoError(t, err)
	assert.Equal(t, "Bench (3)", third.Name)

	list := m.Printers()
	require.Len(t, list, 3)
	assert.Equal(t, "Bench", list[0].Name)
}

func TestAddInvalidAndUnsupported(t *testing.T) {
	m, _ := newTestManager(t, nil)

	_, err := m.Add(context.Background(), models.DeviceData{}, "")
	require.ErrorIs(t, err, models.ErrInvalidDevice)

	_, err = m.Add(context.Background(), models.DeviceData{ServiceName: "U", Identifier: "u", Type: models.DeviceTypeUSB}, "")
	require.ErrorIs(t, err, ErrConnectFailed)
	assert.Empty(t, m.Printers())
}

func TestRemoveAndUnknownPrinter(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	info, err := m.Add(ctx, virtualDevice("Bench", "v1"), "")
	require.NoError(t, err)

	require.NoError(t, m.RemoveDevice(ctx, virtualDevice("Bench", "v1")))
	assert.Empty(t, m.Printers())

	require.ErrorIs(t, m.Remove(ctx, info.ID), ErrPrinterNotFound)

	_, err = m.Command(ctx, info.ID, models.CommandPause, nil)
	require.ErrorIs(t, err, ErrPrinterNotFound)

	_, err = m.Status(ctx, info.ID)
	require.ErrorIs(t, err, ErrPrinterNotFound)

	// the device can come back
	_, err = m.Add(ctx, virtualDevice("Bench", "v1"), "")
	require.NoError(t, err)
}

func TestPrintRunsJobToCompletion(t *testing.T) {
	m, fileReg := newTestManager(t, nil)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "cube.stl")
	require.NoError(t, os.WriteFile(src, []byte("solid cube"), 0o600))

	file, err := fileReg.AddPath(src)
	require.NoError(t, err)

	info, err := m.Add(ctx, virtualDevice("Bench", "v1"), "")
	require.NoError(t, err)

	job, res, err := m.Print(ctx, info.ID, file.ID)
	require.NoError(t, err)
	require.True(t, res.Success)

	require.Eventually(t, func() bool {
		return job.State() == models.JobStateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	status, err := m.Status(ctx, info.ID)
	require.NoError(t, err)
	assert.NotEqual(t, models.PrinterStateDisconnected, status.State)
}

func TestPrintWithoutFileFailsJob(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	info, err := m.Add(ctx, virtualDevice("Bench", "v1"), "")
	require.NoError(t, err)

	job, res, err := m.Print(ctx, info.ID, "missing")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.ErrNoJobFile, res.Error)
	assert.Equal(t, models.JobStateError, job.State())
	assert.Equal(t, models.ErrNoJobFile, job.Status().Error)
}

func TestRunPublishesEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := events.NewMockPublisher(ctrl)

	log := &eventLog{}
	pub.EXPECT().PublishPrinterEvent(gomock.Any(), gomock.Any()).DoAndReturn(log.add).AnyTimes()

	m, _ := newTestManager(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- m.Run(ctx, &discovery.Static{Devices: []models.DeviceData{virtualDevice("Bench", "v1")}})
	}()

	require.Eventually(t, func() bool { return len(m.Printers()) == 1 }, 2*time.Second, 10*time.Millisecond)

	id := m.Printers()[0].ID

	require.Eventually(t, func() bool {
		return log.has(id, "added") && log.has(id, connection.EventConnecting)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Empty(t, m.Printers())

	_, err := m.Add(context.Background(), virtualDevice("Late", "v9"), "")
	require.ErrorIs(t, err, errShuttingDown)

	cancel()
	require.NoError(t, <-done)
}
