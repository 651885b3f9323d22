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

package lifecycle

import (
	"context"
	"testing"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComponentLogger(t *testing.T) {
	l, err := CreateComponentLogger("printmgr", &logger.Config{Level: "info", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = CreateComponentLogger("printmgr", &logger.Config{Level: "nope"})
	require.Error(t, err)
}

func TestInitializeMetricsDisabledIsNotAnError(t *testing.T) {
	shutdown, err := InitializeMetrics(context.Background(), "printmgr", &logger.OTelConfig{}, logger.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
