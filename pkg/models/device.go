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

import (
	"encoding/json"
	"fmt"
)

// DeviceType identifies the discovery family a device belongs to.
type DeviceType string

const (
	DeviceTypeOctoprint DeviceType = "octoprint"
	DeviceTypeEmber     DeviceType = "ember"
	DeviceTypeUSB       DeviceType = "usb"
	DeviceTypeSerial    DeviceType = "serial"
	DeviceTypeConveyor  DeviceType = "conveyor"
	DeviceTypeVirtual   DeviceType = "virtual"
)

// Valid reports whether t is a known device type.
func (t DeviceType) Valid() bool {
	switch t {
	case DeviceTypeOctoprint, DeviceTypeEmber, DeviceTypeUSB,
		DeviceTypeSerial, DeviceTypeConveyor, DeviceTypeVirtual:
		return true
	}

	return false
}

// DeviceData describes a physical or network printer as reported by discovery.
// Fields the manager does not understand are kept in Extra and survive a
// JSON round trip, so drivers receive exactly what discovery produced.
type DeviceData struct {
	ServiceName  string                     `json:"serviceName"`
	Identifier   string                     `json:"identifier"`
	Type         DeviceType                 `json:"type"`
	Address      string                     `json:"address,omitempty"`
	VID          int                        `json:"VID,omitempty"`
	PID          int                        `json:"PID,omitempty"`
	SerialNumber string                     `json:"serialNumber,omitempty"`
	Extra        map[string]json.RawMessage `json:"-"`
}

// Key returns the identity used to deduplicate devices across discovery events.
func (d DeviceData) Key() string {
	return fmt.Sprintf("%s:%s", d.Type, d.Identifier)
}

// Clone returns a deep copy of d.
func (d DeviceData) Clone() DeviceData {
	c := d

	if d.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}

	return c
}

// Validate checks the fields every driver relies on.
func (d *DeviceData) Validate() error {
	if d.Identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidDevice)
	}

	if !d.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDevice, d.Type)
	}

	return nil
}

func (d DeviceData) MarshalJSON() ([]byte, error) {
	type plain DeviceData

	base, err := json.Marshal(plain(d))
	if err != nil {
		return nil, err
	}

	return mergeExtra(base, d.Extra)
}

func (d *DeviceData) UnmarshalJSON(b []byte) error {
	type plain DeviceData

	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	extra, err := splitExtra(b, "serviceName", "identifier", "type", "address", "VID", "PID", "serialNumber")
	if err != nil {
		return err
	}

	*d = DeviceData(p)
	d.Extra = extra

	return nil
}
