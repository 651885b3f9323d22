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
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/google/uuid"
)

// DefaultRetention is how long jobs are kept before Prune drops them.
const DefaultRetention = 5 * 24 * time.Hour

// Request describes a job to create.
type Request struct {
	PrinterID   string `json:"printer_id"`
	TrayID      string `json:"tray_id,omitempty"`
	ProfileID   string `json:"profile_id,omitempty"`
	PrintableID string `json:"file_id,omitempty"`
}

// Registry owns every job known to the manager.
type Registry struct {
	log logger.Logger
	now func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job
}

type Option func(*Registry)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(log logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		log:  log,
		now:  time.Now,
		jobs: make(map[string]*Job),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create registers a new job. A job created with a printable is READY.
func (r *Registry) Create(req Request) (*Job, error) {
	if req.PrinterID == "" {
		return nil, ErrPrinterRequired
	}

	j := &Job{
		ID:          uuid.NewString(),
		PrinterID:   req.PrinterID,
		TrayID:      req.TrayID,
		ProfileID:   req.ProfileID,
		PrintableID: req.PrintableID,
		CreatedAt:   r.now(),
		status:      models.JobStatus{State: models.JobStateCreated},
		now:         r.now,
		log:         r.log,
	}

	if req.PrintableID != "" {
		j.SetState(models.JobStateReady)
	}

	r.mu.Lock()
	r.jobs[j.ID] = j
	r.mu.Unlock()

	r.log.Info().Str("job_id", j.ID).Str("printer_id", j.PrinterID).Msg("Job created")

	return j, nil
}

// Find returns the job with id, or nil.
func (r *Registry) Find(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.jobs[id]
}

// List returns all jobs, oldest first.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	out := make([]*Job, 0, len(r.jobs))

	for _, j := range r.jobs {
		out = append(out, j)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})

	return out
}

// SetPrintable attaches a printable file to a job and marks it READY.
func (r *Registry) SetPrintable(id, printableID string) error {
	j := r.Find(id)
	if j == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	j.mu.Lock()
	j.PrintableID = printableID
	j.setStateLocked(models.JobStateReady)
	j.mu.Unlock()

	return nil
}

// Prune drops jobs created more than olderThan ago and returns how many.
func (r *Registry) Prune(olderThan time.Duration) int {
	if olderThan <= 0 {
		olderThan = DefaultRetention
	}

	cutoff := r.now().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for id, j := range r.jobs {
		if j.CreatedAt.After(cutoff) {
			continue
		}

		delete(r.jobs, id)
		n++

		r.log.Info().Str("job_id", id).Msg("Pruned job")
	}

	return n
}

// RunPruner prunes on every interval until ctx is done.
func (r *Registry) RunPruner(ctx context.Context, interval, olderThan time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(olderThan); n > 0 {
				r.log.Info().Int("count", n).Dur("older_than", olderThan).Msg("Pruned old jobs")
			}
		}
	}
}
