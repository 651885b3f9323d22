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

// splitExtra returns the members of the JSON object b whose keys are not in known.
func splitExtra(b []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}

	for _, k := range known {
		delete(all, k)
	}

	if len(all) == 0 {
		return nil, nil
	}

	return all, nil
}

// mergeExtra folds extra into the JSON object base. Keys already present in
// base win.
func mergeExtra(base []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return base, nil
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage, len(known)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}

	for k, v := range known {
		merged[k] = v
	}

	return json.Marshal(merged)
}
