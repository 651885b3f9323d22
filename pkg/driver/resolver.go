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

package driver

import (
	"fmt"

	"github.com/carverauto/printfleet/pkg/models"
)

// AnyProduct in a USBRule matches every product of the vendor.
const AnyProduct = -1

// USBRule maps a USB vendor/product pair to a driver locator.
type USBRule struct {
	VID     int    `json:"vid"`
	PID     int    `json:"pid"`
	Locator string `json:"driver"`
}

func (r USBRule) matches(d *models.DeviceData) bool {
	return d.VID == r.VID && (r.PID == AnyProduct || d.PID == r.PID)
}

var typeLocators = map[models.DeviceType]string{
	models.DeviceTypeOctoprint: "octoprint",
	models.DeviceTypeEmber:     "ember",
	models.DeviceTypeVirtual:   "virtual",
	models.DeviceTypeConveyor:  "conveyor",
}

// Resolver picks the driver locator for a device.
type Resolver struct {
	usb []USBRule
}

func NewResolver(usb []USBRule) *Resolver {
	return &Resolver{usb: usb}
}

// Resolve returns the locator for d, or ErrNoDriverAvailable.
func (r *Resolver) Resolve(d *models.DeviceData) (string, error) {
	switch d.Type {
	case models.DeviceTypeUSB, models.DeviceTypeSerial:
		for _, rule := range r.usb {
			if rule.matches(d) && rule.Locator != "" {
				return rule.Locator, nil
			}
		}
	default:
		if l, ok := typeLocators[d.Type]; ok {
			return l, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoDriverAvailable, d.Key())
}
