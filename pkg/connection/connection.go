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

package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/supervisor"
)

// Event names raised to listeners. The lifecycle events carry the printer
// state they are named after.
const (
	EventReady         = driver.EventReady
	EventStatus        = driver.EventStatus
	EventError         = driver.EventError
	EventConnecting    = string(models.PrinterStateConnecting)
	EventDisconnecting = string(models.PrinterStateDisconnecting)
	EventDisconnected  = string(models.PrinterStateDisconnected)
)

// Event is a notification raised by a connection. Payload is a
// models.Status for status events, a driver.ReadyPayload for ready and a
// driver.ErrorPayload for error.
type Event struct {
	Name    string
	Device  models.DeviceData
	Payload interface{}
}

// Listener receives connection events. It runs on the driver's read loop and
// must not block on calls into the same connection.
type Listener func(Event)

// Dependencies are the collaborators of a connection.
type Dependencies struct {
	Resolver supervisor.Resolver
	Launcher supervisor.Launcher
	Jobs     JobRegistry
	Files    FileRegistry
}

// Connection is the state machine for one printer. Operations are safe for
// concurrent use.
type Connection struct {
	cfg   Config
	jobs  JobRegistry
	files FileRegistry
	sup   *supervisor.Supervisor
	log   logger.Logger

	mu          sync.Mutex
	device      models.DeviceData
	fileLoading bool
	fileLoaded  bool
	loadStarted bool
	replayPrint bool
	printParams models.CommandParams
	jobID       string
	waiters     []chan struct{}
	listeners   []Listener
}

func New(device models.DeviceData, deps Dependencies, cfg Config, log logger.Logger) (*Connection, error) {
	if deps.Resolver == nil || deps.Launcher == nil {
		return nil, errLauncherRequired
	}

	c := &Connection{
		cfg:    cfg,
		jobs:   deps.Jobs,
		files:  deps.Files,
		log:    log,
		device: device.Clone(),
	}

	c.sup = supervisor.New(device, deps.Resolver, deps.Launcher, supervisor.Hooks{
		OnNotification:   c.onNotification,
		OnExit:           c.onExit,
		OnTransportError: c.onTransportError,
	}, log)

	return c, nil
}

// Subscribe registers l for every event raised after the call.
func (c *Connection) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, l)
}

// Device returns the device data, including the serial number reported by
// the driver once it is ready.
func (c *Connection) Device() models.DeviceData {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.device.Clone()
}

// JobID returns the job the connection is currently tracking, if any.
func (c *Connection) JobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.jobID
}

func (c *Connection) IsConnected() bool {
	return c.sup.Running()
}

// Connect starts the driver worker and waits for it to become ready. A
// connected printer reports success without starting a second worker.
func (c *Connection) Connect(ctx context.Context) models.Result {
	if c.IsConnected() {
		return models.Result{Success: true}
	}

	deviceType := string(c.device.Type)

	c.emit(EventConnecting, nil)

	ready := c.armReady()
	defer c.disarmReady(ready)

	client, err := c.sup.Start(ctx)
	if err != nil {
		c.log.Error().Err(err).Str("printer", c.device.ServiceName).Msg("Failed to start driver")
		recordConnect(ctx, deviceType, "launch_failed")
		c.cleanup()
		c.emit(EventDisconnected, nil)

		return models.Result{Success: false, Reason: err.Error()}
	}

	tctx, cancel := context.WithTimeout(ctx, c.cfg.connectTimeout())
	defer cancel()

	var status models.Status
	if err := client.Call(tctx, driver.MethodGetStatus, nil, &status); err != nil {
		return c.connectFailed(ctx, err)
	}

	switch status.State {
	case models.PrinterStateConnecting:
	case models.PrinterStateDisconnected:
		c.log.Warn().Str("printer", c.device.ServiceName).Msg("Driver reported disconnected during connect")
		recordConnect(ctx, deviceType, "disconnected")
		c.cleanup()

		return models.Result{Success: false, Reason: fmt.Sprintf("%s is disconnected.", c.device.ServiceName), State: status.State}
	default:
		recordConnect(ctx, deviceType, "success")

		return models.Succeeded(status.State)
	}

	select {
	case <-ready:
		recordConnect(ctx, deviceType, "success")

		return models.Succeeded(models.PrinterStateReady)
	case <-tctx.Done():
		return c.connectFailed(ctx, tctx.Err())
	}
}

func (c *Connection) connectFailed(ctx context.Context, err error) models.Result {
	reason := err.Error()
	outcome := "failed"

	if errors.Is(err, context.DeadlineExceeded) {
		reason = fmt.Sprintf("%s connect command timed out.", c.device.ServiceName)
		outcome = "timeout"
	}

	c.log.Warn().Err(err).Str("printer", c.device.ServiceName).Msg("Connect failed")
	recordConnect(ctx, string(c.device.Type), outcome)
	c.cleanup()

	return models.Result{Success: false, Reason: reason}
}

// Command sends cmd to the driver. A print with no model loaded first loads
// the job's printable and replays the print once the driver reports the
// model loaded.
func (c *Connection) Command(ctx context.Context, cmd models.Command, params models.CommandParams) models.Result {
	client := c.sup.Client()
	if client == nil {
		return models.DisconnectedResult()
	}

	cmd = cmd.Normalize()

	switch cmd {
	case models.CommandPrint:
		// registry lookups stay outside c.mu
		jobID := params.JobID()
		path, found := c.printableFor(jobID)

		c.mu.Lock()
		if !c.fileLoaded && !c.fileLoading {
			if !found {
				c.mu.Unlock()

				return models.Result{Success: false, Error: models.ErrNoJobFile}
			}

			c.printParams = params
			c.replayPrint = true
			c.jobID = jobID
			c.fileLoading = true
			c.mu.Unlock()

			res := c.LoadModel(ctx, models.FileAsset(path))

			c.mu.Lock()
			if !res.Success {
				c.resetLoadLocked()
			} else if c.fileLoading {
				// from here on a READY status means the load gave up
				c.loadStarted = true
			}
			c.mu.Unlock()

			return res
		}

		// the completed load is consumed by this print
		c.fileLoaded = false
		c.mu.Unlock()
	case models.CommandCancel:
		c.mu.Lock()
		c.resetLoadLocked()
		c.fileLoaded = false
		c.mu.Unlock()
	}

	var res models.Result
	if err := client.Call(ctx, driver.MethodCommand, params.With(cmd), &res); err != nil {
		c.log.Warn().Err(err).Str("command", string(cmd)).Msg("Command failed")
		recordCommand(ctx, string(cmd), false)

		return models.Result{Success: false, Error: err.Error()}
	}

	recordCommand(ctx, string(cmd), res.Success)

	if !res.Success {
		c.log.Warn().Str("command", string(cmd)).Strs("errors", res.Errors).Msg("Driver rejected command")

		return res
	}

	c.confirm(ctx, cmd)

	return res
}

func (c *Connection) resetLoadLocked() {
	c.fileLoading = false
	c.loadStarted = false
	c.replayPrint = false
	c.printParams = nil
}

// printableFor returns the file path of the job's printable.
func (c *Connection) printableFor(jobID string) (string, bool) {
	if jobID == "" || c.jobs == nil || c.files == nil {
		return "", false
	}

	job := c.jobs.Find(jobID)
	if job == nil {
		return "", false
	}

	f, ok := c.files.Find(job.Printable())
	if !ok || f.Path == "" {
		return "", false
	}

	return f.Path, true
}

// confirm asks the driver for its state after a successful command and
// reconciles the tracked job with what the command achieved.
func (c *Connection) confirm(ctx context.Context, cmd models.Command) {
	client := c.sup.Client()
	if client == nil {
		return
	}

	var status models.Status
	if err := client.Call(ctx, driver.MethodGetStatus, nil, &status); err != nil {
		c.log.Debug().Err(err).Str("command", string(cmd)).Msg("Command succeeded but status could not be read")

		return
	}

	var inferred models.PrinterState

	switch cmd {
	case models.CommandPrint:
		// some printers need a button press before they start
		if status.State == models.PrinterStatePrinting {
			inferred = models.PrinterStatePrinting
		} else {
			c.log.Warn().Str("state", string(status.State)).Msg("Print accepted but printer is not printing")
		}
	case models.CommandPause:
		if status.State == models.PrinterStatePaused {
			inferred = models.PrinterStatePaused
		} else {
			c.log.Warn().Str("state", string(status.State)).Msg("Pause accepted but printer did not pause")
		}
	case models.CommandCancel:
		inferred = models.PrinterStateReady

		if status.State != models.PrinterStateReady {
			c.log.Debug().Str("state", string(status.State)).Msg("Cancel accepted but printer is not ready yet")
		}
	case models.CommandResume:
		if status.State == models.PrinterStatePrinting {
			inferred = models.PrinterStatePrinting
		} else {
			c.log.Warn().Str("state", string(status.State)).Msg("Resume accepted but printer did not resume")
		}
	}

	if inferred != "" {
		c.reconcile(inferred, status.Job)
	}
}

// GetStatus returns the driver's status, annotated with the tracked job id.
func (c *Connection) GetStatus(ctx context.Context, params models.CommandParams) (models.Status, error) {
	client := c.sup.Client()
	if client == nil {
		return models.Status{}, ErrNotConnected
	}

	jobID := c.JobID()

	var fwd interface{}

	if len(params) > 0 {
		p := make(models.CommandParams, len(params))
		for k, v := range params {
			if k == "job_id" && jobID != "" {
				continue
			}

			p[k] = v
		}

		fwd = p
	}

	var status models.Status
	if err := client.Call(ctx, driver.MethodGetStatus, fwd, &status); err != nil {
		c.log.Warn().Err(err).Msg("Failed to get status")

		return models.Status{}, err
	}

	if jobID != "" {
		if status.Job == nil {
			status.Job = &models.StatusJob{}
		}

		status.Job.JobID = jobID
	}

	return status, nil
}

// LoadModel forwards asset to the driver.
func (c *Connection) LoadModel(ctx context.Context, asset models.Asset) models.Result {
	client := c.sup.Client()
	if client == nil {
		return models.DisconnectedResult()
	}

	var res models.Result
	if err := client.Call(ctx, driver.MethodLoadModel, asset, &res); err != nil {
		c.log.Warn().Err(err).Str("path", asset.Path).Msg("Load model failed")

		return models.Result{Success: false, Error: err.Error()}
	}

	return res
}

// Disconnect asks the driver to clean up and kills it after the grace
// period. It always succeeds once a worker was running.
func (c *Connection) Disconnect(ctx context.Context) models.Result {
	if !c.IsConnected() {
		return models.DisconnectedResult()
	}

	c.emit(EventDisconnecting, nil)

	c.sup.Stop(ctx, c.cfg.disconnectGrace())
	c.cleanup()

	return models.Result{Success: true}
}

// cleanup kills the worker and settles local state. It is safe to call any
// number of times.
func (c *Connection) cleanup() {
	c.sup.Kill()
	c.settle()
}

// settle clears load state and reconciles the tracked job as disconnected.
func (c *Connection) settle() {
	c.mu.Lock()
	c.resetLoadLocked()
	c.fileLoaded = false
	tracked := c.jobID != ""
	c.mu.Unlock()

	if tracked {
		c.reconcile(models.PrinterStateDisconnected, nil)
	}
}

func (c *Connection) onExit(err error) {
	recordExit(context.Background(), string(c.device.Type), err == nil)

	c.log.Info().Err(err).Str("printer", c.device.ServiceName).Msg("Printer disconnected")

	c.settle()
	c.emit(EventDisconnected, nil)
}

func (c *Connection) onTransportError(err error) {
	c.log.Error().Err(err).Str("printer", c.device.ServiceName).Msg("Driver channel error")
	c.emit(EventError, driver.ErrorPayload{Message: err.Error()})
}

func (c *Connection) onNotification(method string, params json.RawMessage) {
	switch method {
	case driver.EventReady:
		c.onReady(params)
	case driver.EventStatus:
		c.onStatus(params)
	case driver.EventError:
		var p driver.ErrorPayload
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p); err != nil {
				p.Message = string(params)
			}
		}

		c.log.Error().Str("printer", c.device.ServiceName).Str("message", p.Message).Msg("Driver reported error")
		c.emit(EventError, p)

		// disconnect waits on the read loop this handler runs on
		go c.Disconnect(context.Background())
	case driver.NotifyInformation:
		var info driver.InformationPayload
		_ = json.Unmarshal(params, &info)

		c.log.Warn().
			Str("printer", c.device.ServiceName).
			Str("message", info.Message).
			Str("error", info.Error).
			Msg("Driver information")
	default:
		c.log.Debug().Str("method", method).Msg("Ignoring driver notification")
	}
}

func (c *Connection) onReady(params json.RawMessage) {
	var p driver.ReadyPayload
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			c.log.Debug().Err(err).Msg("Ignoring malformed ready payload")
		}
	}

	c.mu.Lock()
	if p.SerialNumber != "" {
		c.device.SerialNumber = p.SerialNumber
	}

	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}

	c.log.Info().Str("printer", c.device.ServiceName).Msg("Connection is ready")
	c.emit(EventReady, p)
}

func (c *Connection) onStatus(params json.RawMessage) {
	var status models.Status
	if err := json.Unmarshal(params, &status); err != nil {
		c.log.Warn().Err(err).Msg("Ignoring malformed status notification")

		return
	}

	var (
		replay      bool
		printParams models.CommandParams
	)

	c.mu.Lock()
	switch {
	case status.State == models.PrinterStateModelLoaded && c.fileLoading:
		if c.fileLoaded {
			c.log.Error().Msg("Model loaded twice for one print")
		}

		replay, printParams = c.replayPrint, c.printParams
		c.resetLoadLocked()
		c.fileLoaded = true
	case status.State == models.PrinterStateReady && c.loadStarted:
		c.log.Warn().Str("job_id", c.jobID).Msg("Driver returned to ready without loading the model")
		c.resetLoadLocked()
	}

	tracked := c.jobID != ""
	c.mu.Unlock()

	if tracked {
		c.reconcile(status.State, status.Job)
	}

	if replay {
		// the print round trips through the read loop delivering this status
		go c.Command(context.Background(), models.CommandPrint, printParams)
	}

	c.emit(EventStatus, status)
}

// armReady returns a channel closed by the next ready notification.
func (c *Connection) armReady() chan struct{} {
	ch := make(chan struct{})

	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	return ch
}

func (c *Connection) disarmReady(ch chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)

			return
		}
	}
}

func (c *Connection) emit(name string, payload interface{}) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	device := c.device.Clone()
	c.mu.Unlock()

	ev := Event{Name: name, Device: device, Payload: payload}

	for _, l := range listeners {
		l(ev)
	}
}
