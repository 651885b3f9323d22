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

package connection

import (
	"github.com/carverauto/printfleet/pkg/models"
)

// reconcile moves the tracked job according to a printer state and the job
// fields the driver reported alongside it. Cancellation is inferred from the
// printer going idle or away mid-job, so a printer recovering to READY after
// a fault also cancels its job.
func (c *Connection) reconcile(printer models.PrinterState, reported *models.StatusJob) {
	jobID := c.JobID()
	if jobID == "" || c.jobs == nil {
		return
	}

	job := c.jobs.Find(jobID)
	if job == nil {
		c.log.Warn().Str("job_id", jobID).Msg("Tracked job no longer exists")
		c.release(jobID)

		return
	}

	word := string(printer)
	if reported != nil && reported.State != "" {
		word = reported.State
	}

	next, ok := models.ParseJobState(word)
	if !ok || printer == models.PrinterStateReady {
		// an idle printer never implies READY or CANCELED on its own
		next = ""
	}

	current := job.State()
	completed := false

	switch {
	case reported != nil && (current == models.JobStatePrinting ||
		current == models.JobStateCompleted ||
		current == models.JobStateLoadingModel):
		progress := reported.Progress()

		if current != models.JobStateCompleted {
			job.SetProgress(progress)
		}

		job.SetDetails(reported.Extra)

		// a job that reached 100% is completed even when the same status
		// reports an idle printer; the cancel inference below is skipped
		if progress >= 100 && current == models.JobStatePrinting {
			next = models.JobStateCompleted
			completed = true
		}
	case current == models.JobStateReady && next == models.JobStatePrinting:
		job.Start()
	}

	if !completed && (printer == models.PrinterStateDisconnected || printer == models.PrinterStateReady) {
		switch current {
		case models.JobStatePrinting, models.JobStatePaused, models.JobStateLoadingModel:
			next = models.JobStateCanceled
		}
	}

	if next == "" || next == job.State() {
		return
	}

	if !job.SetState(next) {
		return
	}

	c.log.Debug().Str("job_id", jobID).Str("state", string(next)).Msg("Reconciled job")

	if next == models.JobStateCompleted || next == models.JobStateCanceled {
		c.release(jobID)
	}
}

// release stops tracking jobID if it is still the tracked job.
func (c *Connection) release(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jobID == jobID {
		c.jobID = ""
	}
}
