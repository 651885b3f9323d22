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

// Package fleet keeps one connection per discovered printer.
package fleet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/printfleet/pkg/connection"
	"github.com/carverauto/printfleet/pkg/discovery"
	"github.com/carverauto/printfleet/pkg/events"
	"github.com/carverauto/printfleet/pkg/files"
	"github.com/carverauto/printfleet/pkg/jobs"
	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/supervisor"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	eventQueueSize = 256
	publishTimeout = 5 * time.Second
)

// Options wire a Manager to its collaborators.
type Options struct {
	Resolver   supervisor.Resolver
	Launcher   supervisor.Launcher
	Jobs       *jobs.Registry
	Files      *files.Registry
	Publisher  events.Publisher
	Connection connection.Config
}

// Info describes a registered printer.
type Info struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Device    models.DeviceData `json:"device"`
	Connected bool              `json:"connected"`
	JobID     string            `json:"job_id,omitempty"`
}

type printer struct {
	id   string
	name string
	conn *connection.Connection
}

// Manager owns the printers of one print manager process.
type Manager struct {
	opts  Options
	log   logger.Logger
	queue chan *models.PrinterEventData

	mu       sync.RWMutex
	printers map[string]*printer
	byKey    map[string]string
	pending  map[string]struct{}
	closing  bool
}

func NewManager(opts Options, log logger.Logger) *Manager {
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}

	return &Manager{
		opts:     opts,
		log:      log,
		queue:    make(chan *models.PrinterEventData, eventQueueSize),
		printers: make(map[string]*printer),
		byKey:    make(map[string]string),
		pending:  make(map[string]struct{}),
	}
}

// Run consumes device events from every source and publishes printer
// events until ctx is done.
func (m *Manager) Run(ctx context.Context, sources ...discovery.Source) error {
	g, gctx := errgroup.WithContext(ctx)
	devices := make(chan discovery.DeviceEvent)

	for _, src := range sources {
		g.Go(func() error {
			return src.Run(gctx, devices)
		})
	}

	g.Go(func() error {
		m.publishLoop(gctx)

		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-devices:
				m.handle(gctx, ev)
			}
		}
	})

	return g.Wait()
}

func (m *Manager) handle(ctx context.Context, ev discovery.DeviceEvent) {
	switch ev.Kind {
	case discovery.DeviceUp:
		// connecting waits on the driver handshake, keep consuming events
		go func() {
			if _, err := m.Add(ctx, ev.Device, ""); err != nil {
				m.log.Warn().Err(err).Str("device", ev.Device.Key()).Msg("Cannot add printer")
			}
		}()
	case discovery.DeviceDown:
		if err := m.RemoveDevice(ctx, ev.Device); err != nil {
			m.log.Debug().Err(err).Str("device", ev.Device.Key()).Msg("Device down for unknown printer")
		}
	}
}

// Add connects to d and registers it as a printer. name defaults to the
// device's service name and is made unique.
func (m *Manager) Add(ctx context.Context, d models.DeviceData, name string) (Info, error) {
	if err := d.Validate(); err != nil {
		return Info{}, err
	}

	key := d.Key()

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()

		return Info{}, errShuttingDown
	}

	if id, ok := m.byKey[key]; ok {
		m.mu.Unlock()

		return Info{}, fmt.Errorf("%w: %s", ErrDuplicateDevice, id)
	}

	if _, ok := m.pending[key]; ok {
		m.mu.Unlock()

		return Info{}, fmt.Errorf("%w: %s is connecting", ErrDuplicateDevice, key)
	}

	m.pending[key] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, key)
		m.mu.Unlock()
	}()

	plog := logger.NewComponent(m.log, "printer:"+d.ServiceName)

	deps := connection.Dependencies{
		Resolver: m.opts.Resolver,
		Launcher: m.opts.Launcher,
	}

	if m.opts.Jobs != nil {
		deps.Jobs = m.opts.Jobs
	}

	if m.opts.Files != nil {
		deps.Files = m.opts.Files
	}

	conn, err := connection.New(d, deps, m.opts.Connection, plog)
	if err != nil {
		return Info{}, err
	}

	p := &printer{id: uuid.NewString(), conn: conn}
	conn.Subscribe(func(ev connection.Event) { m.enqueue(p, ev) })

	m.log.Info().Str("printer", d.ServiceName).Str("device", key).Msg("Connecting to printer")

	res := conn.Connect(ctx)
	if !res.Success {
		reason := res.Reason
		if reason == "" {
			reason = res.Error
		}

		return Info{}, fmt.Errorf("%w: %s", ErrConnectFailed, reason)
	}

	if name == "" {
		name = d.ServiceName
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		conn.Disconnect(ctx)

		return Info{}, errShuttingDown
	}

	p.name = m.uniqueNameLocked(name)
	m.printers[p.id] = p
	m.byKey[key] = p.id
	m.mu.Unlock()

	m.log.Info().Str("printer_id", p.id).Str("name", p.name).Msg("Added printer")
	m.enqueue(p, connection.Event{Name: "added", Device: conn.Device()})

	return m.info(p), nil
}

// uniqueNameLocked returns name, or "name (n)" for the lowest n not taken.
func (m *Manager) uniqueNameLocked(name string) string {
	taken := make(map[string]struct{}, len(m.printers))
	for _, p := range m.printers {
		taken[p.name] = struct{}{}
	}

	candidate := name
	for i := 2; ; i++ {
		if _, ok := taken[candidate]; !ok {
			return candidate
		}

		candidate = fmt.Sprintf("%s (%d)", name, i)
	}
}

// RemoveDevice disconnects and forgets the printer backed by d.
func (m *Manager) RemoveDevice(ctx context.Context, d models.DeviceData) error {
	m.mu.RLock()
	id, ok := m.byKey[d.Key()]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrPrinterNotFound, d.Key())
	}

	return m.Remove(ctx, id)
}

// Remove disconnects and forgets printer id.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	p, ok := m.printers[id]
	if ok {
		delete(m.printers, id)
		delete(m.byKey, p.conn.Device().Key())
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrPrinterNotFound, id)
	}

	p.conn.Disconnect(ctx)

	m.log.Info().Str("printer_id", id).Str("name", p.name).Msg("Removed printer")
	m.enqueue(p, connection.Event{Name: "removed", Device: p.conn.Device()})

	return nil
}

func (m *Manager) get(id string) (*printer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.printers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, id)
	}

	return p, nil
}

// Connect reconnects a registered printer whose driver went away.
func (m *Manager) Connect(ctx context.Context, id string) (models.Result, error) {
	p, err := m.get(id)
	if err != nil {
		return models.Result{}, err
	}

	return p.conn.Connect(ctx), nil
}

// Command sends cmd to printer id.
func (m *Manager) Command(ctx context.Context, id string, cmd models.Command, params models.CommandParams) (models.Result, error) {
	p, err := m.get(id)
	if err != nil {
		return models.Result{}, err
	}

	return p.conn.Command(ctx, cmd, params), nil
}

// Print creates a job for printableID on printer id and starts it.
func (m *Manager) Print(ctx context.Context, id, printableID string) (*jobs.Job, models.Result, error) {
	if m.opts.Jobs == nil {
		return nil, models.Result{}, errJobsNotAvailable
	}

	p, err := m.get(id)
	if err != nil {
		return nil, models.Result{}, err
	}

	job, err := m.opts.Jobs.Create(jobs.Request{PrinterID: id, PrintableID: printableID})
	if err != nil {
		return nil, models.Result{}, err
	}

	res := p.conn.Command(ctx, models.CommandPrint, models.CommandParams{"job_id": job.ID})
	if !res.Success {
		job.Fail(firstNonEmpty(res.Error, res.Reason, joinErrors(res.Errors)))
	}

	return job, res, nil
}

// Status returns the live status of printer id.
func (m *Manager) Status(ctx context.Context, id string) (models.Status, error) {
	p, err := m.get(id)
	if err != nil {
		return models.Status{}, err
	}

	return p.conn.GetStatus(ctx, nil)
}

// Printers lists the registered printers by name.
func (m *Manager) Printers() []Info {
	m.mu.RLock()
	list := make([]*printer, 0, len(m.printers))

	for _, p := range m.printers {
		list = append(list, p)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(list))
	for _, p := range list {
		out = append(out, m.info(p))
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })

	return out
}

func (m *Manager) info(p *printer) Info {
	m.mu.RLock()
	name := p.name
	m.mu.RUnlock()

	return Info{
		ID:        p.id,
		Name:      name,
		Device:    p.conn.Device(),
		Connected: p.conn.IsConnected(),
		JobID:     p.conn.JobID(),
	}
}

// Shutdown disconnects every printer concurrently. No printer can be added
// afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	list := make([]*printer, 0, len(m.printers))

	for id, p := range m.printers {
		list = append(list, p)
		delete(m.printers, id)
	}

	m.byKey = make(map[string]string)
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	for _, p := range list {
		g.Go(func() error {
			res := p.conn.Disconnect(gctx)
			m.log.Info().Str("printer_id", p.id).Bool("success", res.Success).Msg("Disconnected printer")

			return nil
		})
	}

	return g.Wait()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}

func joinErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}

	out := errs[0]
	for _, e := range errs[1:] {
		out += "; " + e
	}

	return out
}
