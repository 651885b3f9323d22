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

// Package files tracks printable files staged on local disk.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/google/uuid"
)

var (
	ErrFileNotFound = errors.New("file not found")
	errNameRequired = errors.New("file name is required")
)

// File is a printable stored under the registry's directory.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type Registry struct {
	dir string
	log logger.Logger

	mu    sync.RWMutex
	files map[string]File
}

// NewRegistry creates dir if needed and returns an empty registry.
func NewRegistry(dir string, log logger.Logger) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}

	return &Registry{
		dir:   dir,
		log:   log,
		files: make(map[string]File),
	}, nil
}

// Add copies src into the registry under a fresh id. The stored file keeps
// the extension of name.
func (r *Registry) Add(name string, src io.Reader) (File, error) {
	if name == "" {
		return File{}, errNameRequired
	}

	id := uuid.NewString()
	path := filepath.Join(r.dir, id+filepath.Ext(name))
	f := File{ID: id, Name: filepath.Base(name), Path: path}

	// registered before the file exists so a directory watch skips it
	r.mu.Lock()
	r.files[id] = f
	r.mu.Unlock()

	if err := writeFile(path, src); err != nil {
		r.mu.Lock()
		delete(r.files, id)
		r.mu.Unlock()

		return File{}, err
	}

	r.log.Info().Str("file_id", id).Str("name", f.Name).Msg("File added")

	return f, nil
}

func writeFile(path string, src io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err = io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(path)

		return fmt.Errorf("write %s: %w", path, err)
	}

	if err = out.Close(); err != nil {
		_ = os.Remove(path)

		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

// AddPath registers an existing file without copying it.
func (r *Registry) AddPath(path string) (File, error) {
	if _, err := os.Stat(path); err != nil {
		return File{}, err
	}

	f := File{ID: uuid.NewString(), Name: filepath.Base(path), Path: path}

	r.mu.Lock()
	r.files[f.ID] = f
	r.mu.Unlock()

	return f, nil
}

// FindPath returns the file registered for path.
func (r *Registry) FindPath(path string) (File, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byPathLocked(filepath.Clean(path))
}

func (r *Registry) byPathLocked(path string) (File, bool) {
	for _, f := range r.files {
		if filepath.Clean(f.Path) == path {
			return f, true
		}
	}

	return File{}, false
}

func (r *Registry) Find(id string) (File, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]

	return f, ok
}

func (r *Registry) List() []File {
	r.mu.RLock()
	out := make([]File, 0, len(r.files))

	for _, f := range r.files {
		out = append(out, f)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })

	return out
}

// Remove forgets the file and deletes it if it lives under the registry dir.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	f, ok := r.files[id]
	delete(r.files, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	if filepath.Dir(f.Path) != filepath.Clean(r.dir) {
		return nil
	}

	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
