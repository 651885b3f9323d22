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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/printfleet/pkg/config"
	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/driver/virtual"
	"github.com/carverauto/printfleet/pkg/events"
	"github.com/carverauto/printfleet/pkg/files"
	"github.com/carverauto/printfleet/pkg/fleet"
	"github.com/carverauto/printfleet/pkg/jobs"
	"github.com/carverauto/printfleet/pkg/lifecycle"
	"github.com/carverauto/printfleet/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/printfleet/printmgr.json", "Path to print manager config file")
	envFile := flag.String("env", "", "Optional dotenv file loaded before the config")
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}

	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg fleet.Config
	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mgrLogger, err := lifecycle.CreateComponentLogger("printmgr", cfg.Logging)
	if err != nil {
		return err
	}

	shutdownMetrics, err := lifecycle.InitializeMetrics(ctx, "printmgr", cfg.OTel, mgrLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			mgrLogger.Warn().Err(err).Msg("Metrics shutdown failed")
		}
	}()

	fileRegistry, err := files.NewRegistry(cfg.FilesDir, logger.NewComponent(mgrLogger, "files"))
	if err != nil {
		return err
	}

	go func() {
		if err := fileRegistry.Watch(ctx); err != nil {
			mgrLogger.Warn().Err(err).Str("dir", cfg.FilesDir).Msg("Files directory is not watched")
		}
	}()

	jobRegistry := jobs.NewRegistry(logger.NewComponent(mgrLogger, "jobs"))
	go jobRegistry.RunPruner(ctx, cfg.Jobs.PruneInterval.Or(fleet.DefaultPruneInterval), cfg.Jobs.Retention.Or(jobs.DefaultRetention))

	publisher, err := newPublisher(ctx, &cfg, mgrLogger)
	if err != nil {
		return err
	}

	defer func() {
		if err := publisher.Close(); err != nil {
			mgrLogger.Warn().Err(err).Msg("Event publisher close failed")
		}
	}()

	registry := driver.NewRegistry()
	registry.Register(virtual.Locator, virtual.NewFactory(cfg.Virtual))

	mgr := fleet.NewManager(fleet.Options{
		Resolver:   cfg.Resolver(),
		Launcher:   cfg.Launcher(registry, logger.NewComponent(mgrLogger, "supervisor")),
		Jobs:       jobRegistry,
		Files:      fileRegistry,
		Publisher:  publisher,
		Connection: cfg.Connection,
	}, mgrLogger)

	sources, err := cfg.Sources(logger.NewComponent(mgrLogger, "discovery"))
	if err != nil {
		return err
	}

	mgrLogger.Info().Int("sources", len(sources)).Str("driver_mode", string(cfg.Driver.Mode)).Msg("Print manager starting")

	runErr := mgr.Run(ctx, sources...)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		mgrLogger.Error().Err(runErr).Msg("Print manager stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := mgr.Shutdown(shutdownCtx); err != nil {
		mgrLogger.Warn().Err(err).Msg("Printer shutdown incomplete")
	}

	mgrLogger.Info().Msg("Print manager stopped")

	if errors.Is(runErr, context.Canceled) {
		return nil
	}

	return runErr
}

func newPublisher(ctx context.Context, cfg *fleet.Config, log logger.Logger) (events.Publisher, error) {
	if !cfg.Events.Enabled {
		return events.NopPublisher{}, nil
	}

	pub, err := events.Connect(ctx, &cfg.Events, logger.NewComponent(log, "events"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}

	return pub, nil
}
