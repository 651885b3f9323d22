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
	"errors"
	"time"
)

var (
	errStreamNameRequired = errors.New("events stream_name is required")
	errNATSURLRequired    = errors.New("events nats url is required")
)

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// PrinterEventData is the payload of a printer lifecycle event.
type PrinterEventData struct {
	PrinterID  string       `json:"printer_id"`
	Name       string       `json:"name"`
	DeviceType DeviceType   `json:"device_type"`
	Identifier string       `json:"identifier"`
	Event      string       `json:"event"`
	State      PrinterState `json:"state,omitempty"`
	JobID      string       `json:"job_id,omitempty"`
	Progress   *float64     `json:"progress,omitempty"`
	Message    string       `json:"message,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// NATSConfig configures the connection to a NATS server.
type NATSConfig struct {
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	CredsFile string `json:"creds_file,omitempty"`
}

// EventsConfig configures lifecycle event publishing.
type EventsConfig struct {
	Enabled    bool       `json:"enabled"`
	StreamName string     `json:"stream_name"`
	Subjects   []string   `json:"subjects"`
	NATS       NATSConfig `json:"nats"`
}

func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.StreamName == "" {
		return errStreamNameRequired
	}

	if c.NATS.URL == "" {
		return errNATSURLRequired
	}

	if len(c.Subjects) == 0 {
		c.Subjects = []string{"events.printer.>"}
	}

	return nil
}
