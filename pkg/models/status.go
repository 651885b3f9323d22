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

import "encoding/json"

// Status is a point in time snapshot of a printer.
type Status struct {
	State    PrinterState           `json:"state"`
	Sensors  map[string]interface{} `json:"sensors,omitempty"`
	Job      *StatusJob             `json:"job,omitempty"`
	Errors   []string               `json:"errors,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// StatusJob is the job portion of a status report. Drivers may add their
// own fields, which are preserved in Extra.
type StatusJob struct {
	PercentComplete *float64                   `json:"percentComplete,omitempty"`
	State           string                     `json:"state,omitempty"`
	JobID           string                     `json:"job_id,omitempty"`
	Extra           map[string]json.RawMessage `json:"-"`
}

// Progress returns the reported completion, treating a missing value as 0.
func (j *StatusJob) Progress() float64 {
	if j == nil || j.PercentComplete == nil {
		return 0
	}

	return *j.PercentComplete
}

func (j StatusJob) MarshalJSON() ([]byte, error) {
	type plain StatusJob

	base, err := json.Marshal(plain(j))
	if err != nil {
		return nil, err
	}

	return mergeExtra(base, j.Extra)
}

func (j *StatusJob) UnmarshalJSON(b []byte) error {
	type plain StatusJob

	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	extra, err := splitExtra(b, "percentComplete", "state", "job_id")
	if err != nil {
		return err
	}

	*j = StatusJob(p)
	j.Extra = extra

	return nil
}

// Percent is a convenience for building a *float64 progress value.
func Percent(v float64) *float64 {
	return &v
}
