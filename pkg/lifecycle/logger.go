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

// Package lifecycle bootstraps the ambient services a printfleet binary needs
// before it can run: its logger and, optionally, the OTel metrics pipeline.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/printfleet/pkg/logger"
)

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	base, err := logger.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.NewComponent(base, component), nil
}

// InitializeMetrics starts OTLP metric export when configured. A disabled
// exporter is not an error; the returned shutdown func is always safe to call.
func InitializeMetrics(ctx context.Context, service string, otelCfg *logger.OTelConfig, log logger.Logger) (func(context.Context) error, error) {
	_, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName: service,
		OTel:        otelCfg,
	})

	switch {
	case errors.Is(err, logger.ErrOTelMetricsDisabled):
		log.Debug().Msg("OTel metrics export disabled")

		return func(context.Context) error { return nil }, nil
	case err != nil:
		return nil, err
	}

	log.Info().Str("endpoint", otelCfg.Endpoint).Msg("OTel metrics export enabled")

	return logger.ShutdownMetrics, nil
}
