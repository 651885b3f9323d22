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

// Package jobs tracks print jobs and their status transitions.
package jobs

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
)

// Job is a print request. Its status only changes through its methods.
type Job struct {
	ID          string
	PrinterID   string
	TrayID      string
	ProfileID   string
	PrintableID string
	CreatedAt   time.Time

	mu         sync.Mutex
	status     models.JobStatus
	startTime  time.Time
	statusTime time.Time
	details    map[string]json.RawMessage
	now        func() time.Time
	log        logger.Logger
}

// Snapshot is a copy of a job's state safe to hand out.
type Snapshot struct {
	ID          string                     `json:"id"`
	PrinterID   string                     `json:"printer_id"`
	TrayID      string                     `json:"tray_id,omitempty"`
	ProfileID   string                     `json:"profile_id,omitempty"`
	PrintableID string                     `json:"printable_id,omitempty"`
	Status      models.JobStatus           `json:"status"`
	Details     map[string]json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	StartTime   *time.Time                 `json:"start_time,omitempty"`
	StatusTime  *time.Time                 `json:"status_time,omitempty"`
}

func (j *Job) Status() models.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := j.status
	if s.Progress != nil {
		s.Progress = models.Percent(*s.Progress)
	}

	return s
}

// Printable returns the id of the file this job prints.
func (j *Job) Printable() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.PrintableID
}

func (j *Job) State() models.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.status.State
}

// SetState moves the job to state. Unknown states and transitions to the
// current state are ignored. It reports whether the state changed.
func (j *Job) SetState(state models.JobState) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.setStateLocked(state)
}

func (j *Job) setStateLocked(state models.JobState) bool {
	if state == j.status.State || !state.Valid() {
		return false
	}

	old := j.status.State
	j.status.State = state

	now := j.now()

	// a resumed print keeps its original start time
	if state == models.JobStatePrinting && old != models.JobStatePaused {
		j.startTime = now
	}

	j.statusTime = now

	j.log.Debug().
		Str("job_id", j.ID).
		Str("from", string(old)).
		Str("to", string(state)).
		Msg("Job state changed")

	return true
}

func (j *Job) Start() bool  { return j.SetState(models.JobStatePrinting) }
func (j *Job) Cancel() bool { return j.SetState(models.JobStateCanceled) }
func (j *Job) Pause() bool  { return j.SetState(models.JobStatePaused) }
func (j *Job) Resume() bool { return j.SetState(models.JobStatePrinting) }

// Fail marks the job as errored with msg.
func (j *Job) Fail(msg string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.status.Error = msg

	return j.setStateLocked(models.JobStateError)
}

// SetProgress records percent complete. Only loading or printing jobs make
// progress.
func (j *Job) SetProgress(percent float64) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status.State != models.JobStatePrinting && j.status.State != models.JobStateLoadingModel {
		j.log.Warn().
			Str("job_id", j.ID).
			Str("state", string(j.status.State)).
			Msg("Job is not loading or printing, ignoring progress")

		return false
	}

	j.status.Progress = models.Percent(percent)

	return true
}

// SetDetails merges driver supplied job fields into the job.
func (j *Job) SetDetails(details map[string]json.RawMessage) {
	if len(details) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.details == nil {
		j.details = make(map[string]json.RawMessage, len(details))
	}

	for k, v := range details {
		j.details[k] = v
	}
}

func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		ID:          j.ID,
		PrinterID:   j.PrinterID,
		TrayID:      j.TrayID,
		ProfileID:   j.ProfileID,
		PrintableID: j.PrintableID,
		Status:      j.status,
		CreatedAt:   j.CreatedAt,
	}

	if j.status.Progress != nil {
		s.Status.Progress = models.Percent(*j.status.Progress)
	}

	if len(j.details) > 0 {
		s.Details = make(map[string]json.RawMessage, len(j.details))
		for k, v := range j.details {
			s.Details[k] = v
		}
	}

	if !j.startTime.IsZero() {
		t := j.startTime
		s.StartTime = &t
	}

	if !j.statusTime.IsZero() {
		t := j.statusTime
		s.StatusTime = &t
	}

	return s
}
