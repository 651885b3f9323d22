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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName             = "printfleet.connection"
	metricConnectTotal    = "printfleet_connect_total"
	metricCommandTotal    = "printfleet_command_total"
	metricDriverExitTotal = "printfleet_driver_exit_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	connectCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	commandCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	exitCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	var err error

	connectCounter, err = meter.Int64Counter(
		metricConnectTotal,
		metric.WithDescription("Printer connect attempts by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}

	commandCounter, err = meter.Int64Counter(
		metricCommandTotal,
		metric.WithDescription("Commands dispatched to printer drivers"),
	)
	if err != nil {
		otel.Handle(err)
	}

	exitCounter, err = meter.Int64Counter(
		metricDriverExitTotal,
		metric.WithDescription("Driver worker exits"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func recordConnect(ctx context.Context, deviceType, outcome string) {
	meterOnce.Do(initMeter)
	if connectCounter == nil {
		return
	}

	connectCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("device_type", deviceType),
		attribute.String("outcome", outcome),
	))
}

func recordCommand(ctx context.Context, command string, success bool) {
	meterOnce.Do(initMeter)
	if commandCounter == nil {
		return
	}

	commandCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.Bool("success", success),
	))
}

func recordExit(ctx context.Context, deviceType string, clean bool) {
	meterOnce.Do(initMeter)
	if exitCounter == nil {
		return
	}

	exitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("device_type", deviceType),
		attribute.Bool("clean", clean),
	))
}
