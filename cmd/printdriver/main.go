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

// Command printdriver hosts printer drivers for printmgr. By default it
// serves a single driver over stdin/stdout: the locator and the JSON encoded
// device are its last two arguments. With -listen it instead accepts
// websocket connections and runs one driver per connection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carverauto/printfleet/pkg/config"
	"github.com/carverauto/printfleet/pkg/driver"
	"github.com/carverauto/printfleet/pkg/driver/virtual"
	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/rpc"
)

const (
	exitGrace         = time.Second
	readHeaderTimeout = 5 * time.Second
)

var errUsage = errors.New("usage: printdriver [flags] <locator> <device-json>")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	listen := flag.String("listen", "", "Serve drivers over websocket on this address instead of stdio")
	levelName := flag.String("log-level", "info", "Log level")
	workDir := flag.String("work-dir", "", "Virtual printer work directory")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(*levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", *levelName, err)
	}

	// stdout carries the protocol, so logs always go to stderr
	drvLogger := logger.NewComponent(logger.NewWithWriter(os.Stderr, level), "printdriver")

	vcfg := virtual.DefaultConfig()
	if *workDir != "" {
		vcfg.WorkDir = *workDir
	}

	registry := driver.NewRegistry()
	registry.Register(virtual.Locator, virtual.NewFactory(vcfg))

	host := driver.NewHost(registry, drvLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listen != "" {
		return serveWebSocket(ctx, host, *listen, drvLogger)
	}

	if flag.NArg() < 2 {
		return errUsage
	}

	locator, device := flag.Arg(flag.NArg()-2), flag.Arg(flag.NArg()-1)

	done := make(chan error, 1)
	go func() {
		done <- host.Serve(ctx, rpc.NewPipe(os.Stdin, os.Stdout), locator, []byte(device))
	}()

	select {
	case err := <-done:
		return ignoreClosed(err)
	case <-ctx.Done():
	}

	// give the driver a moment to clean up after an interrupt
	select {
	case err := <-done:
		return ignoreClosed(err)
	case <-time.After(exitGrace):
		drvLogger.Warn().Msg("Driver did not stop in time")

		return nil
	}
}

func serveWebSocket(ctx context.Context, host *driver.Host, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/driver", host.WebSocketHandler(ctx))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), exitGrace)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Driver host listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, os.ErrClosed) {
		return nil
	}

	return err
}
