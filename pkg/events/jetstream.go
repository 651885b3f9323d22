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

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	eventSource     = "printfleet/printmgr"
	eventTypePrefix = "com.carverauto.printfleet.printer."
)

// JetStreamPublisher publishes CloudEvents to a JetStream stream.
type JetStreamPublisher struct {
	js     jetstream.JetStream
	nc     *nats.Conn
	stream string
	log    logger.Logger
	now    func() time.Time
}

// NewJetStreamPublisher wraps an existing JetStream context. Close does not
// close the underlying connection.
func NewJetStreamPublisher(js jetstream.JetStream, streamName string, log logger.Logger) *JetStreamPublisher {
	return &JetStreamPublisher{
		js:     js,
		stream: streamName,
		log:    log,
		now:    time.Now,
	}
}

// Connect dials NATS, makes sure the stream exists and returns a publisher
// owning the connection.
func Connect(ctx context.Context, cfg *models.EventsConfig, log logger.Logger, extraOpts ...nats.Option) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.NATS.Name != "" {
		opts = append(opts, nats.Name(cfg.NATS.Name))
	}

	if cfg.NATS.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.NATS.CredsFile))
	}

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg.StreamName, cfg.Subjects, log); err != nil {
		nc.Close()

		return nil, err
	}

	p := NewJetStreamPublisher(js, cfg.StreamName, log)
	p.nc = nc

	return p, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name string, subjects []string, log logger.Logger) error {
	if _, err := js.Stream(ctx, name); err == nil {
		return nil
	}

	subjects = ensureSubjectList(append([]string(nil), subjects...), DefaultSubjects)

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
	})
	if err != nil {
		return fmt.Errorf("failed to create or get stream %s: %w", name, err)
	}

	log.Info().Str("stream", name).Strs("subjects", subjects).Msg("Created NATS JetStream stream")

	return nil
}

// PublishPrinterEvent publishes data on events.printer.<event>.
func (p *JetStreamPublisher) PublishPrinterEvent(ctx context.Context, data *models.PrinterEventData) error {
	if data == nil || data.Event == "" {
		return errEventRequired
	}

	if data.Timestamp.IsZero() {
		data.Timestamp = p.now()
	}

	ts := data.Timestamp

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventTypePrefix + token(data.Event),
		DataContentType: "application/json",
		Subject:         subjectFor(data.Event),
		Time:            &ts,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal printer event: %w", err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes)
	if err != nil {
		return fmt.Errorf("%w: %w", errPublish, err)
	}

	p.log.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published printer event")

	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc == nil {
		return nil
	}

	return p.nc.Drain()
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) PublishPrinterEvent(context.Context, *models.PrinterEventData) error { return nil }
func (NopPublisher) Close() error                                                        { return nil }
