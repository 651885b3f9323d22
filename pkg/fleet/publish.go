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
	"context"
	"time"

	"github.com/carverauto/printfleet/pkg/connection"
	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/models"
)

// enqueue turns a connection event into a printer event. It runs on the
// driver's read loop, so it never blocks.
func (m *Manager) enqueue(p *printer, ev connection.Event) {
	m.mu.RLock()
	name := p.name
	m.mu.RUnlock()

	if name == "" {
		name = ev.Device.ServiceName
	}

	data := &models.PrinterEventData{
		PrinterID:  p.id,
		Name:       name,
		DeviceType: ev.Device.Type,
		Identifier: ev.Device.Identifier,
		Event:      ev.Name,
		JobID:      p.conn.JobID(),
		Timestamp:  time.Now(),
	}

	switch payload := ev.Payload.(type) {
	case models.Status:
		data.State = payload.State
		if payload.Job != nil && payload.Job.PercentComplete != nil {
			data.Progress = models.Percent(*payload.Job.PercentComplete)
		}
	case driver.ErrorPayload:
		data.Message = payload.Message
	}

	if data.State == "" {
		if s := models.PrinterState(ev.Name); s.Valid() {
			data.State = s
		}
	}

	select {
	case m.queue <- data:
	default:
		m.log.Warn().Str("printer_id", p.id).Str("event", ev.Name).Msg("Printer event queue full, dropping event")
	}
}

func (m *Manager) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-m.queue:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := m.opts.Publisher.PublishPrinterEvent(pctx, data); err != nil {
				m.log.Warn().Err(err).Str("event", data.Event).Msg("Failed to publish printer event")
			}
			cancel()
		}
	}
}
