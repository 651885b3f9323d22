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

package virtual

import (
	"os"
	"path/filepath"
	"time"

	"github.com/carverauto/printfleet/pkg/models"
)

// Locator is the driver locator the virtual printer registers under.
const Locator = "virtual"

// Config tunes the simulated timings.
type Config struct {
	WorkDir          string          `json:"work_dir"`
	ConnectDelay     models.Duration `json:"connect_delay"`
	LoadTick         models.Duration `json:"load_tick"`
	LoadTicks        int             `json:"load_ticks"`
	PrintTick        models.Duration `json:"print_tick"`
	PrintTicks       int             `json:"print_ticks"`
	ProgressInterval models.Duration `json:"progress_interval"`
}

// DefaultConfig loads in 1.5s and prints in 8s.
func DefaultConfig() Config {
	return Config{
		WorkDir:          filepath.Join(os.TempDir(), "printfleet-virtual"),
		ConnectDelay:     models.Duration(100 * time.Millisecond),
		LoadTick:         models.Duration(500 * time.Millisecond),
		LoadTicks:        3,
		PrintTick:        models.Duration(800 * time.Millisecond),
		PrintTicks:       10,
		ProgressInterval: models.Duration(time.Second),
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.WorkDir == "" {
		c.WorkDir = def.WorkDir
	}

	if c.ConnectDelay <= 0 {
		c.ConnectDelay = def.ConnectDelay
	}

	if c.LoadTick <= 0 {
		c.LoadTick = def.LoadTick
	}

	if c.LoadTicks <= 0 {
		c.LoadTicks = def.LoadTicks
	}

	if c.PrintTick <= 0 {
		c.PrintTick = def.PrintTick
	}

	if c.PrintTicks <= 0 {
		c.PrintTicks = def.PrintTicks
	}

	if c.ProgressInterval <= 0 {
		c.ProgressInterval = def.ProgressInterval
	}
}
