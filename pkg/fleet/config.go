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

import (
	"fmt"
	"time"

	"github.com/carverauto/printfleet/pkg/connection"
	"github.com/carverauto/printfleet/pkg/discovery"
	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/driver/virtual"
	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/supervisor"
)

// DriverMode selects how driver workers are hosted.
type DriverMode string

const (
	// DriverModeExec runs every driver as a child process of Binary.
	DriverModeExec DriverMode = "exec"

	// DriverModeInProcess runs drivers on goroutines of the manager.
	DriverModeInProcess DriverMode = "inprocess"
)

const DefaultPruneInterval = time.Hour

// DriverConfig describes where driver workers run.
type DriverConfig struct {
	Mode   DriverMode                   `json:"mode"`
	Binary string                       `json:"binary"`
	Args   []string                     `json:"args"`
	Remote map[models.DeviceType]string `json:"remote,omitempty"`
	USB    []driver.USBRule             `json:"usb"`
}

// JobsConfig controls how long finished jobs are kept.
type JobsConfig struct {
	Retention     models.Duration `json:"retention"`
	PruneInterval models.Duration `json:"prune_interval"`
}

// Config is the printmgr service configuration.
type Config struct {
	Logging    *logger.Config        `json:"logging"`
	OTel       *logger.OTelConfig    `json:"otel"`
	Driver     DriverConfig          `json:"driver"`
	Connection connection.Config     `json:"connection"`
	Devices    []models.DeviceData   `json:"devices"`
	SNMP       *discovery.SNMPConfig `json:"snmp,omitempty"`
	Events     models.EventsConfig   `json:"events"`
	Jobs       JobsConfig            `json:"jobs"`
	FilesDir   string                `json:"files_dir"`
	Virtual    virtual.Config        `json:"virtual"`
}

// Validate fills defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	switch c.Driver.Mode {
	case "":
		c.Driver.Mode = DriverModeInProcess
	case DriverModeInProcess:
	case DriverModeExec:
		if c.Driver.Binary == "" {
			return errBinaryRequired
		}
	default:
		return fmt.Errorf("%w: %s", errUnknownMode, c.Driver.Mode)
	}

	for i := range c.Devices {
		d := &c.Devices[i]
		if !d.Type.Valid() || d.Identifier == "" {
			return fmt.Errorf("%w: #%d (%s %q)", errInvalidDevice, i, d.Type, d.Identifier)
		}
	}

	if c.SNMP != nil {
		if err := c.SNMP.Validate(); err != nil {
			return fmt.Errorf("snmp: %w", err)
		}
	}

	if err := c.Events.Validate(); err != nil {
		return err
	}

	if c.FilesDir == "" {
		return errFilesDirRequired
	}

	return nil
}

// Resolver builds the driver resolver from the USB rule table.
func (c *Config) Resolver() *driver.Resolver {
	return driver.NewResolver(c.Driver.USB)
}

// Launcher builds the launcher for the configured mode. Device types with a
// remote URL are routed to a websocket host instead.
func (c *Config) Launcher(registry driver.Registry, log logger.Logger) supervisor.Launcher {
	var def supervisor.Launcher

	if c.Driver.Mode == DriverModeExec {
		def = &supervisor.ExecLauncher{Binary: c.Driver.Binary, Args: c.Driver.Args, Log: log}
	} else {
		def = &supervisor.InProcessLauncher{Registry: registry, Log: log}
	}

	if len(c.Driver.Remote) == 0 {
		return def
	}

	router := &supervisor.Router{Default: def, ByType: make(map[models.DeviceType]supervisor.Launcher, len(c.Driver.Remote))}
	for t, url := range c.Driver.Remote {
		router.ByType[t] = &supervisor.WebSocketLauncher{URL: url, Log: log}
	}

	return router
}

// Sources returns the discovery sources for the configured devices and SNMP
// sweep.
func (c *Config) Sources(log logger.Logger) ([]discovery.Source, error) {
	var sources []discovery.Source

	if len(c.Devices) > 0 {
		sources = append(sources, &discovery.Static{Devices: c.Devices})
	}

	if c.SNMP != nil {
		s, err := discovery.NewSNMP(*c.SNMP, log)
		if err != nil {
			return nil, err
		}

		sources = append(sources, s)
	}

	return sources, nil
}
