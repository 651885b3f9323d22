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

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRespectsDebug(t *testing.T) {
	l, err := New(&Config{Level: "warn", Debug: true, Output: "stderr"})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, l.WithComponent("x").GetLevel())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "shouty"})
	require.Error(t, err)
}

func TestNewComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer

	l := NewComponent(NewWithWriter(&buf, zerolog.InfoLevel), "connection")
	l.Info().Str("printer", "p1").Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "connection", line["component"])
	assert.Equal(t, "p1", line["printer"])
	assert.Equal(t, "hello", line["message"])
}

func TestSetDebug(t *testing.T) {
	var buf bytes.Buffer

	l := NewWithWriter(&buf, zerolog.InfoLevel)
	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.SetDebug(true)
	l.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestDefaultConfigPrefersPrefixedEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PRINTFLEET_LOG_LEVEL", "debug")

	assert.Equal(t, "debug", DefaultConfig().Level)
}

func TestInitializeMetricsDisabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{})
	require.ErrorIs(t, err, ErrOTelMetricsDisabled)

	_, err = InitializeMetrics(context.Background(), MetricsConfig{OTel: &OTelConfig{Enabled: true}})
	require.ErrorIs(t, err, ErrOTelMetricsDisabled)

	require.NoError(t, ShutdownMetrics(context.Background()))
}
