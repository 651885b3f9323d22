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

import "strings"

// JobState is the lifecycle state of a print job.
type JobState string

const (
	JobStateCreated      JobState = "created"
	JobStateReady        JobState = "ready"
	JobStateSent         JobState = "sent"
	JobStateReceived     JobState = "received"
	JobStateLoadingModel JobState = "loadingmodel"
	JobStateModelLoaded  JobState = "modelloaded"
	JobStatePrinting     JobState = "printing"
	JobStatePaused       JobState = "paused"
	JobStateCanceled     JobState = "canceled"
	JobStateCompleted    JobState = "completed"
	JobStateError        JobState = "error"
)

var jobStates = map[JobState]struct{}{
	JobStateCreated:      {},
	JobStateReady:        {},
	JobStateSent:         {},
	JobStateReceived:     {},
	JobStateLoadingModel: {},
	JobStateModelLoaded:  {},
	JobStatePrinting:     {},
	JobStatePaused:       {},
	JobStateCanceled:     {},
	JobStateCompleted:    {},
	JobStateError:        {},
}

// Valid reports whether s is a member of the job state enum.
func (s JobState) Valid() bool {
	_, ok := jobStates[s]

	return ok
}

// ParseJobState maps a state word, either a job state or a printer state that
// shares its name, to a JobState.
func ParseJobState(word string) (JobState, bool) {
	s := JobState(strings.ToLower(strings.TrimSpace(word)))
	if !s.Valid() {
		return "", false
	}

	return s, true
}

// JobStatus is the externally visible status of a job.
type JobStatus struct {
	State    JobState `json:"state"`
	Progress *float64 `json:"progress,omitempty"`
	Error    string   `json:"error,omitempty"`
}
