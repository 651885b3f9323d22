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

// Package virtual implements a simulated printer that walks the standard
// driver state machine on timers. It needs no hardware and backs the
// "virtual" device type.
package virtual

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
)

const eventBuffer = 32

// Custom commands accepted without side effects.
var customCommands = map[string]struct{}{
	"custom command #1": {},
	"custom command #2": {},
	"custom command #3": {},
}

// Printer is the simulated driver body.
type Printer struct {
	cfg     Config
	log     logger.Logger
	device  models.DeviceData
	workDir string

	mu          sync.Mutex
	state       models.PrinterState
	progress    float64
	ticks       int
	modelLoaded bool
	gen         uint64
	delay       *heartbeat
	beat        *heartbeat

	events    chan driver.Event
	done      chan struct{}
	closeOnce sync.Once
}

var _ driver.Driver = (*Printer)(nil)

// NewFactory returns a driver.Factory building virtual printers with cfg.
func NewFactory(cfg Config) driver.Factory {
	return func(_ context.Context, device models.DeviceData, log logger.Logger) (driver.Driver, error) {
		return New(device, log, cfg)
	}
}

// New builds a virtual printer. It reports ready shortly after construction.
func New(device models.DeviceData, log logger.Logger, cfg Config) (*Printer, error) {
	cfg.applyDefaults()

	workDir := filepath.Join(cfg.WorkDir, safeName(device.Identifier))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	p := &Printer{
		cfg:     cfg,
		log:     log,
		device:  device,
		workDir: workDir,
		state:   models.PrinterStateDisconnected,
		events:  make(chan driver.Event, eventBuffer),
		done:    make(chan struct{}),
	}

	p.connected()

	return p, nil
}

func (p *Printer) Events() <-chan driver.Event {
	return p.events
}

func (p *Printer) connected() {
	p.mu.Lock()
	p.state = models.PrinterStateReady
	p.mu.Unlock()

	serial := p.device.SerialNumber
	if serial == "" {
		serial = "VP-" + p.device.Identifier
	}

	// the worker attaches its rpc server after construction, so ready is
	// announced a moment later
	go func() {
		t := time.NewTimer(time.Duration(p.cfg.ConnectDelay))
		defer t.Stop()

		select {
		case <-t.C:
			p.emit(driver.Event{Name: driver.EventReady, Payload: driver.ReadyPayload{SerialNumber: serial}})
		case <-p.done:
		}
	}()
}

func (p *Printer) GetStatus(context.Context) (models.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.statusLocked(), nil
}

func (p *Printer) LoadModel(_ context.Context, asset models.Asset) (models.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != models.PrinterStateReady {
		return models.Failed(p.state, models.DriverErrBadState), nil
	}

	if asset.Type != models.AssetTypeFile || asset.Path == "" {
		return models.Failed(p.state, models.DriverErrBadAsset), nil
	}

	src := asset.Path
	dest := filepath.Join(p.workDir, filepath.Base(src))
	_ = os.Remove(dest)

	p.state = models.PrinterStateLoadingModel
	p.modelLoaded = false
	p.startBeatLocked()

	gen := p.nextActivityLocked()
	ticks := 0

	p.delay = startHeartbeat(time.Duration(p.cfg.LoadTick), func() bool {
		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()

			return false
		}

		ticks++
		if ticks < p.cfg.LoadTicks {
			p.mu.Unlock()

			return true
		}
		p.mu.Unlock()

		err := copyFile(src, dest)
		if err != nil {
			p.log.Warn().Err(err).Str("path", src).Msg("Virtual model load failed")
		}

		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()

			return false
		}

		p.beat.Stop()
		p.modelLoaded = err == nil

		if p.modelLoaded {
			p.state = models.PrinterStateModelLoaded
		} else {
			p.state = models.PrinterStateReady
		}

		status := p.statusLocked()
		p.mu.Unlock()

		p.emit(driver.Event{Name: driver.EventStatus, Payload: status})

		return false
	})

	return models.Succeeded(p.state), nil
}

func (p *Printer) Command(_ context.Context, params models.CommandParams) (models.Result, error) {
	cmd, _ := params["command"].(string)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch models.Command(cmd).Normalize() {
	case models.CommandPrint:
		return p.printLocked(), nil
	case models.CommandCancel:
		return p.cancelLocked(), nil
	case models.CommandPause:
		return p.pauseLocked(), nil
	case models.CommandResume:
		return p.resumeLocked(), nil
	}

	if _, ok := customCommands[cmd]; ok {
		p.log.Debug().Str("command", cmd).Msg("Received custom command")

		return models.Succeeded(p.state), nil
	}

	p.log.Debug().Str("command", cmd).Msg("Received unknown command")

	return models.Failed(p.state, models.DriverErrUnknownCommand), nil
}

func (p *Printer) Cleanup(context.Context) (models.Result, error) {
	p.mu.Lock()
	if p.state != models.PrinterStateDisconnected {
		p.nextActivityLocked()
		p.beat.Stop()
		p.state = models.PrinterStateDisconnected
	}
	p.mu.Unlock()

	p.closeOnce.Do(func() { close(p.done) })

	return models.Succeeded(models.PrinterStateDisconnected), nil
}

func (p *Printer) printLocked() models.Result {
	if p.state != models.PrinterStateModelLoaded {
		return models.Failed(p.state, models.DriverErrBadState)
	}

	if !p.modelLoaded {
		return models.Failed(p.state, models.DriverErrModelNotLoaded)
	}

	p.state = models.PrinterStatePrinting
	p.progress = 0
	p.ticks = 0
	p.startBeatLocked()

	gen := p.nextActivityLocked()
	step := math.Round(100 / float64(p.cfg.PrintTicks))

	p.delay = startHeartbeat(time.Duration(p.cfg.PrintTick), func() bool {
		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()

			return false
		}

		if p.state == models.PrinterStatePrinting {
			p.ticks++
			p.progress = math.Min(p.progress+step, 100)
		}

		if p.ticks < p.cfg.PrintTicks {
			p.mu.Unlock()

			return true
		}

		p.progress = 100
		status := p.statusLocked()

		p.beat.Stop()
		p.state = models.PrinterStateReady
		p.modelLoaded = false
		p.mu.Unlock()

		p.emit(driver.Event{Name: driver.EventStatus, Payload: status})

		return false
	})

	return models.Succeeded(p.state)
}

func (p *Printer) cancelLocked() models.Result {
	switch p.state {
	case models.PrinterStatePrinting, models.PrinterStateLoadingModel, models.PrinterStatePaused:
	default:
		return models.Failed(p.state, models.DriverErrBadState)
	}

	p.nextActivityLocked()
	p.beat.Stop()
	p.state = models.PrinterStateReady
	p.progress = 0
	p.modelLoaded = false

	return models.Succeeded(p.state)
}

func (p *Printer) pauseLocked() models.Result {
	switch p.state {
	case models.PrinterStatePrinting:
		p.beat.Stop()
		p.state = models.PrinterStatePaused
	case models.PrinterStatePaused:
	default:
		return models.Failed(p.state, models.DriverErrBadState)
	}

	return models.Succeeded(p.state)
}

func (p *Printer) resumeLocked() models.Result {
	switch p.state {
	case models.PrinterStatePaused:
		p.startBeatLocked()
		p.state = models.PrinterStatePrinting
	case models.PrinterStatePrinting:
	default:
		return models.Failed(p.state, models.DriverErrBadState)
	}

	return models.Succeeded(p.state)
}

func (p *Printer) statusLocked() models.Status {
	status := models.Status{State: p.state}

	if p.state == models.PrinterStatePrinting || p.state == models.PrinterStatePaused {
		status.Job = &models.StatusJob{PercentComplete: models.Percent(p.progress)}
	}

	return status
}

// nextActivityLocked stops the running load or print timer and returns the
// generation of the next one.
func (p *Printer) nextActivityLocked() uint64 {
	p.delay.Stop()
	p.delay = nil
	p.gen++

	return p.gen
}

// startBeatLocked (re)starts the periodic status report.
func (p *Printer) startBeatLocked() {
	p.beat.Stop()
	p.beat = startHeartbeat(time.Duration(p.cfg.ProgressInterval), func() bool {
		p.mu.Lock()
		status := p.statusLocked()
		p.mu.Unlock()

		if status.State == models.PrinterStateDisconnected || status.State == models.PrinterStateConnecting {
			return false
		}

		p.emit(driver.Event{Name: driver.EventStatus, Payload: status})

		return true
	})
}

func (p *Printer) emit(ev driver.Event) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

func safeName(s string) string {
	if s == "" {
		return "default"
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}

		return r
	}, s)
}
