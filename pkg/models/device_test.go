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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceDataKeepsUnknownFields(t *testing.T) {
	raw := []byte(`{"serviceName":"Ember 1","identifier":"10.0.0.5","type":"ember","address":"10.0.0.5","firmware":"2.1","slots":[1,2]}`)

	var d DeviceData
	require.NoError(t, json.Unmarshal(raw, &d))

	assert.Equal(t, "Ember 1", d.ServiceName)
	assert.Equal(t, DeviceTypeEmber, d.Type)
	assert.Len(t, d.Extra, 2)
	assert.JSONEq(t, `"2.1"`, string(d.Extra["firmware"]))

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestDeviceDataKnownFieldsWinOverExtra(t *testing.T) {
	d := DeviceData{
		Identifier: "abc",
		Type:       DeviceTypeVirtual,
		Extra:      map[string]json.RawMessage{"identifier": json.RawMessage(`"shadow"`)},
	}

	out, err := json.Marshal(d)
	require.NoError(t, err)

	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "abc", back["identifier"])
}

func TestDeviceDataValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		device  DeviceData
		wantErr bool
	}{
		{name: "valid", device: DeviceData{Identifier: "a", Type: DeviceTypeUSB}},
		{name: "missing identifier", device: DeviceData{Type: DeviceTypeUSB}, wantErr: true},
		{name: "unknown type", device: DeviceData{Identifier: "a", Type: "laser"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.device.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDevice)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestDeviceDataClone(t *testing.T) {
	d := DeviceData{Identifier: "a", Type: DeviceTypeVirtual, Extra: map[string]json.RawMessage{"x": json.RawMessage(`1`)}}
	c := d.Clone()
	c.Extra["x"][0] = '2'

	assert.Equal(t, "1", string(d.Extra["x"]))
	assert.Equal(t, "virtual:a", c.Key())
}

func TestDeviceDataKeyOnReturnedValue(t *testing.T) {
	device := func() DeviceData {
		return DeviceData{Identifier: "b", Type: DeviceTypeVirtual}
	}

	assert.Equal(t, "virtual:b", device().Key())
	assert.Equal(t, "virtual:b", device().Clone().Key())
}

func TestStatusJobPreservesDriverFields(t *testing.T) {
	var s Status
	require.NoError(t, json.Unmarshal([]byte(`{"state":"printing","job":{"percentComplete":42.5,"layer":12}}`), &s))

	require.NotNil(t, s.Job)
	assert.Equal(t, PrinterStatePrinting, s.State)
	assert.InDelta(t, 42.5, s.Job.Progress(), 0.001)
	assert.JSONEq(t, `12`, string(s.Job.Extra["layer"]))

	s.Job.JobID = "job-1"
	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"printing","job":{"percentComplete":42.5,"layer":12,"job_id":"job-1"}}`, string(out))
}

func TestStatusJobProgressDefaultsToZero(t *testing.T) {
	var j *StatusJob
	assert.InDelta(t, 0.0, j.Progress(), 0)
	assert.InDelta(t, 0.0, (&StatusJob{}).Progress(), 0)
	assert.InDelta(t, 0.0, (&StatusJob{PercentComplete: Percent(0)}).Progress(), 0)
}

func TestParseJobState(t *testing.T) {
	s, ok := ParseJobState(string(PrinterStateLoadingModel))
	assert.True(t, ok)
	assert.Equal(t, JobStateLoadingModel, s)

	s, ok = ParseJobState("PRINTING")
	assert.True(t, ok)
	assert.Equal(t, JobStatePrinting, s)

	_, ok = ParseJobState(string(PrinterStateBusy))
	assert.False(t, ok)
}

func TestCommandNormalize(t *testing.T) {
	assert.Equal(t, CommandPrint, CommandStart.Normalize())
	assert.Equal(t, CommandPause, CommandPause.Normalize())
}

func TestCommandParamsWith(t *testing.T) {
	p := CommandParams{"job_id": "j1"}
	out := p.With(CommandPrint)

	assert.Equal(t, "print", out["command"])
	assert.Equal(t, "j1", out.JobID())
	assert.NotContains(t, p, "command")
}

func TestDurationUnmarshal(t *testing.T) {
	var c struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a":"2s","b":1000000}`), &c))
	assert.Equal(t, 2*time.Second, time.Duration(c.A))
	assert.Equal(t, time.Millisecond, time.Duration(c.B))
	assert.Equal(t, time.Minute, Duration(0).Or(time.Minute))

	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &c))
}

func TestAssetValidate(t *testing.T) {
	a := FileAsset("/tmp/cube.stl")
	require.NoError(t, a.Validate())

	require.ErrorIs(t, (&Asset{Type: AssetTypeURL}).Validate(), ErrInvalidAsset)
	require.ErrorIs(t, (&Asset{Type: "ftp"}).Validate(), ErrInvalidAsset)
}
