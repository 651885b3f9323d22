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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Scan registers every regular file in the directory that is not yet known.
func (r *Registry) Scan() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", r.dir, err)
	}

	added := 0

	for _, e := range entries {
		if e.IsDir() || hidden(e.Name()) {
			continue
		}

		if r.adopt(filepath.Join(r.dir, e.Name())) {
			added++
		}
	}

	return added, nil
}

// Watch scans the directory, then keeps the registry in step with files
// created in or removed from it until ctx is done.
func (r *Registry) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(r.dir); err != nil {
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}

	if n, err := r.Scan(); err != nil {
		return err
	} else if n > 0 {
		r.log.Info().Int("count", n).Str("dir", r.dir).Msg("Registered existing files")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			r.apply(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			r.log.Warn().Err(err).Str("dir", r.dir).Msg("File watch error")
		}
	}
}

func (r *Registry) apply(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if hidden(filepath.Base(path)) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			r.adopt(path)
		}
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		r.forget(path)
	}
}

// adopt registers path unless some file already claims it.
func (r *Registry) adopt(path string) bool {
	path = filepath.Clean(path)

	r.mu.RLock()
	_, known := r.byPathLocked(path)
	r.mu.RUnlock()

	if known {
		return false
	}

	f, err := r.AddPath(path)
	if err != nil {
		r.log.Debug().Err(err).Str("path", path).Msg("Skipping file")

		return false
	}

	r.log.Info().Str("file_id", f.ID).Str("name", f.Name).Msg("File discovered")

	return true
}

func (r *Registry) forget(path string) {
	r.mu.Lock()
	f, ok := r.byPathLocked(path)
	if ok {
		delete(r.files, f.ID)
	}
	r.mu.Unlock()

	if ok {
		r.log.Info().Str("file_id", f.ID).Str("name", f.Name).Msg("File disappeared")
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
