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

// Driver error strings shared by every driver body.
const (
	DriverErrUnknown         = "An unknown error occured"
	DriverErrUnknownCommand  = "The command is not recognized"
	DriverErrCommandFailed   = "The command failed to execute"
	DriverErrBadState        = "The printer cannot execute command from existing state"
	DriverErrModelNotLoaded  = "Cannot print if no model has been loaded"
	DriverErrBadAsset        = "An asset was corrupt or of the wrong type"
	DriverErrConnectionError = "There was a problem connecting"
)

const (
	ReasonNotConnected = "Printer is not connected"
	ErrNoJobFile       = "no job file specified"
)

// Result is the outcome of a connection or driver operation.
type Result struct {
	Success  bool         `json:"success"`
	Reason   string       `json:"reason,omitempty"`
	Error    string       `json:"error,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	State    PrinterState `json:"state,omitempty"`
}

// Succeeded builds a successful driver response.
func Succeeded(state PrinterState, warnings ...string) Result {
	return Result{Success: true, State: state, Warnings: warnings}
}

// Failed builds an unsuccessful driver response.
func Failed(state PrinterState, errs ...string) Result {
	return Result{Success: false, State: state, Errors: errs}
}

// DisconnectedResult is returned by every connection operation attempted
// without a live driver.
func DisconnectedResult() Result {
	return Result{Success: false, Reason: ReasonNotConnected}
}
