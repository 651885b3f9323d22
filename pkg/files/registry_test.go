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

package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFindRemove(t *testing.T) {
	dir := t.TempDir()

	r, err := NewRegistry(filepath.Join(dir, "store"), logger.NewTestLogger())
	require.NoError(t, err)

	f, err := r.Add("parts/bracket.stl", strings.NewReader("solid bracket"))
	require.NoError(t, err)

	assert.Equal(t, "bracket.stl", f.Name)
	assert.Equal(t, ".stl", filepath.Ext(f.Path))

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "solid bracket", string(data))

	got, ok := r.Find(f.ID)
	require.True(t, ok)
	assert.Equal(t, f, got)

	require.NoError(t, r.Remove(f.ID))

	_, ok = r.Find(f.ID)
	assert.False(t, ok)

	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))

	require.ErrorIs(t, r.Remove(f.ID), ErrFileNotFound)
}

func TestAddRequiresName(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	_, err = r.Add("", strings.NewReader("x"))
	require.Error(t, err)
}

func TestAddPathKeepsExternalFile(t *testing.T) {
	ext := filepath.Join(t.TempDir(), "cube.gcode")
	require.NoError(t, os.WriteFile(ext, []byte("G28"), 0o600))

	r, err := NewRegistry(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	f, err := r.AddPath(ext)
	require.NoError(t, err)
	assert.Equal(t, "cube.gcode", f.Name)
	assert.Len(t, r.List(), 1)

	require.NoError(t, r.Remove(f.ID))

	_, err = os.Stat(ext)
	require.NoError(t, err)

	_, err = r.AddPath(filepath.Join(t.TempDir(), "missing.stl"))
	require.Error(t, err)
}
