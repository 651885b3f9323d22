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

//go:generate mockgen -destination=mock_connection.go -package=connection github.com/carverauto/printfleet/pkg/connection JobRegistry,FileRegistry

// Package connection drives one printer through its driver worker.
package connection

import (
	"github.com/carverauto/printfleet/pkg/files"
	"github.com/carverauto/printfleet/pkg/jobs"
)

// JobRegistry looks up jobs by id. Jobs are only mutated through their own
// methods.
type JobRegistry interface {
	Find(id string) *jobs.Job
}

// FileRegistry resolves a job's printable to a file on disk.
type FileRegistry interface {
	Find(id string) (files.File, bool)
}
