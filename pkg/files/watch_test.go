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
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanAdoptsUnknownFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gear.stl"), []byte("solid gear"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	r, err := NewRegistry(dir, logger.NewTestLogger())
	require.NoError(t, err)

	stored, err := r.Add("cube.stl", strings.NewReader("solid cube"))
	require.NoError(t, err)

	n, err := r.Scan()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, ok := r.FindPath(filepath.Join(dir, "gear.stl"))
	require.True(t, ok)
	assert.Equal(t, "gear.stl", f.Name)

	again, ok := r.FindPath(stored.Path)
	require.True(t, ok)
	assert.Equal(t, stored.ID, again.ID)

	n, err = r.Scan()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, r.List(), 2)
}

func TestWatchTracksDirectory(t *testing.T) {
	dir := t.TempDir()

	r, err := NewRegistry(dir, logger.NewTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- r.Watch(ctx) }()

	path := filepath.Join(dir, "dropped.gcode")
	require.NoError(t, os.WriteFile(path, []byte("G28"), 0o600))

	require.Eventually(t, func() bool {
		_, ok := r.FindPath(path)
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	stored, err := r.Add("uploaded.stl", strings.NewReader("solid"))
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		_, ok := r.FindPath(path)
		return !ok
	}, 2*time.Second, 20*time.Millisecond)

	files := r.List()
	require.Len(t, files, 1)
	assert.Equal(t, stored.ID, files[0].ID)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
