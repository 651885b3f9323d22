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

package driver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/carverauto/printfleet/pkg/rpc"
)

// WebSocketHandler serves one driver worker per websocket connection. The
// locator and the JSON encoded device come from the "locator" and "device"
// query parameters. Workers stop when their socket closes or ctx ends.
func (h *Host) WebSocketHandler(ctx context.Context) http.Handler {
	upgrader := websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		locator, device := q.Get("locator"), q.Get("device")
		if locator == "" || device == "" {
			http.Error(w, "locator and device are required", http.StatusBadRequest)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")

			return
		}

		transport := rpc.NewWebSocketTransport(conn)
		defer func() { _ = transport.Close() }()

		h.log.Info().Str("remote", r.RemoteAddr).Str("locator", locator).Msg("Driver worker attached")

		if err := h.Serve(ctx, transport, locator, []byte(device)); err != nil && !errors.Is(err, context.Canceled) {
			h.log.Debug().Err(err).Str("locator", locator).Msg("Driver worker ended")
		}
	})
}
