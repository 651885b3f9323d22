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

package fleet

import "errors"

var (
	ErrPrinterNotFound  = errors.New("printer not found")
	ErrDuplicateDevice  = errors.New("printer already exists")
	ErrConnectFailed    = errors.New("could not connect to the device")
	errShuttingDown     = errors.New("fleet is shutting down")
	errJobsNotAvailable = errors.New("job registry not configured")
	errFilesDirRequired = errors.New("files_dir is required")
	errUnknownMode      = errors.New("unknown driver mode")
	errBinaryRequired   = errors.New("driver.binary is required in exec mode")
	errInvalidDevice    = errors.New("invalid static device")
)
