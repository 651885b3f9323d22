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
	"time"

	"github.com/carverauto/printfleet/pkg/models"
)

const (
	DefaultConnectTimeout  = 2 * time.Second
	DefaultDisconnectGrace = time.Second
)

// Config tunes the connect handshake and disconnect.
type Config struct {
	ConnectTimeout  models.Duration `json:"connect_timeout"`
	DisconnectGrace models.Duration `json:"disconnect_grace"`
}

func (c Config) connectTimeout() time.Duration {
	return c.ConnectTimeout.Or(DefaultConnectTimeout)
}

func (c Config) disconnectGrace() time.Duration {
	return c.DisconnectGrace.Or(DefaultDisconnectGrace)
}
