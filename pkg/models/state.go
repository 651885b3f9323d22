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

// PrinterState is the state word a driver reports for its printer.
type PrinterState string

const (
	PrinterStateError         PrinterState = "error"
	PrinterStateConnecting    PrinterState = "connecting"
	PrinterStateConnected     PrinterState = "connected"
	PrinterStateDisconnecting PrinterState = "disconnecting"
	PrinterStateDisconnected  PrinterState = "disconnected"
	PrinterStateReady         PrinterState = "ready"
	PrinterStatePrinting      PrinterState = "printing"
	PrinterStatePaused        PrinterState = "paused"
	PrinterStateMaintenance   PrinterState = "maintenance"
	PrinterStateBusy          PrinterState = "busy"
	PrinterStateLoadingModel  PrinterState = "loadingmodel"
	PrinterStateModelLoaded   PrinterState = "modelloaded"
)

// Valid reports whether s is one of the known printer states.
func (s PrinterState) Valid() bool {
	switch s {
	case PrinterStateError, PrinterStateConnecting, PrinterStateConnected,
		PrinterStateDisconnecting, PrinterStateDisconnected, PrinterStateReady,
		PrinterStatePrinting, PrinterStatePaused, PrinterStateMaintenance,
		PrinterStateBusy, PrinterStateLoadingModel, PrinterStateModelLoaded:
		return true
	}

	return false
}
