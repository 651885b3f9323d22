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

package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry() (*Registry, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	return NewRegistry(logger.NewTestLogger(), WithClock(clk.now)), clk
}

func TestCreateRequiresPrinter(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.Create(Request{})
	require.ErrorIs(t, err, ErrPrinterRequired)
}

func TestCreateState(t *testing.T) {
	r, _ := newTestRegistry()

	bare, err := r.Create(Request{PrinterID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStateCreated, bare.State())

	withFile, err := r.Create(Request{PrinterID: "p1", PrintableID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStateReady, withFile.State())
	assert.NotEqual(t, bare.ID, withFile.ID)

	assert.Same(t, withFile, r.Find(withFile.ID))
	assert.Nil(t, r.Find("missing"))
}

func TestSetPrintable(t *testing.T) {
	r, _ := newTestRegistry()

	j, err := r.Create(Request{PrinterID: "p1"})
	require.NoError(t, err)

	require.NoError(t, r.SetPrintable(j.ID, "f1"))
	assert.Equal(t, "f1", j.Snapshot().PrintableID)
	assert.Equal(t, models.JobStateReady, j.State())

	require.ErrorIs(t, r.SetPrintable("nope", "f1"), ErrJobNotFound)
}

func TestSetStateIgnoresSameAndInvalid(t *testing.T) {
	r, _ := newTestRegistry()

	j, err := r.Create(Request{PrinterID: "p1", PrintableID: "f1"})
	require.NoError(t, err)

	assert.False(t, j.SetState(models.JobStateReady))
	assert.False(t, j.SetState(models.JobState("bogus")))
	assert.Equal(t, models.JobStateReady, j.State())
}

func TestStartTimeSurvivesPause(t *testing.T) {
	r, clk := newTestRegistry()

	j, err := r.Create(Request{PrinterID: "p1", PrintableID: "f1"})
	require.NoError(t, err)

	clk.advance(time.Minute)
	require.True(t, j.Start())
	started := *j.Snapshot().StartTime

	clk.advance(time.Minute)
	require.True(t, j.Pause())

	clk.advance(time.Minute)
	require.True(t, j.Resume())

	snap := j.Snapshot()
	assert.Equal(t, started, *snap.StartTime)
	assert.Equal(t, clk.t, *snap.StatusTime)

	require.True(t, j.Cancel())
	clk.advance(time.Minute)
	require.True(t, j.Start())
	assert.Equal(t, clk.t, *j.Snapshot().StartTime)
}

func TestSetProgress(t *testing.T) {
	r, _ := newTestRegistry()

	j, err := r.Create(Request{PrinterID: "p1", PrintableID: "f1"})
	require.NoError(t, err)

	assert.False(t, j.SetProgress(10))
	assert.Nil(t, j.Status().Progress)

	j.SetState(models.JobStateLoadingModel)
	assert.True(t, j.SetProgress(5))

	j.Start()
	assert.True(t, j.SetProgress(42))
	require.NotNil(t, j.Status().Progress)
	assert.InDelta(t, 42.0, *j.Status().Progress, 0.001)
}

func TestFailAndDetails(t *testing.T) {
	r, _ := newTestRegistry()

	j, err := r.Create(Request{PrinterID: "p1"})
	require.NoError(t, err)

	j.SetDetails(map[string]json.RawMessage{"layer": json.RawMessage(`3`)})
	j.SetDetails(map[string]json.RawMessage{"eta": json.RawMessage(`"10m"`)})

	require.True(t, j.Fail("nozzle jam"))

	snap := j.Snapshot()
	assert.Equal(t, models.JobStateError, snap.Status.State)
	assert.Equal(t, "nozzle jam", snap.Status.Error)
	assert.Len(t, snap.Details, 2)
	assert.JSONEq(t, `3`, string(snap.Details["layer"]))
}

func TestListAndPrune(t *testing.T) {
	r, clk := newTestRegistry()

	old, err := r.Create(Request{PrinterID: "p1"})
	require.NoError(t, err)

	clk.advance(3 * 24 * time.Hour)

	fresh, err := r.Create(Request{PrinterID: "p1"})
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, old.ID, list[0].ID)

	clk.advance(3 * 24 * time.Hour)

	assert.Equal(t, 1, r.Prune(0))
	assert.Nil(t, r.Find(old.ID))
	assert.NotNil(t, r.Find(fresh.ID))

	assert.Equal(t, 1, r.Prune(time.Hour))
	assert.Empty(t, r.List())
}
