// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scenario

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario/defaults"
)

// DefaultDebounce is the quiet period before a burst of file events is
// turned into a reload.
const DefaultDebounce = 200 * time.Millisecond

// Registry holds the scenarios a service can evaluate against.
//
// # Description
//
// Scenarios come from two sources: the bundled defaults and an optional
// directory of YAML files. A directory scenario with the same ID as a
// bundled one replaces it. With Watch running, edits to the directory are
// picked up after a short debounce; files that fail validation during a
// reload, or that declare an ID another file already owns, are logged and
// the previously loaded version stays in place.
//
// # Thread Safety
//
// Safe for concurrent use. Returned scenarios are immutable.
type Registry struct {
	mu       sync.RWMutex
	builtin  map[string]*Scenario
	loaded   map[string]*Scenario
	files    map[string][]string
	dir      string
	debounce time.Duration
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		builtin:  make(map[string]*Scenario),
		loaded:   make(map[string]*Scenario),
		files:    make(map[string][]string),
		debounce: DefaultDebounce,
		logger:   logger,
	}
}

// LoadDefaults registers the bundled scenarios.
func (r *Registry) LoadDefaults() error {
	return fs.WalkDir(defaults.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isScenarioFile(path) {
			return nil
		}
		data, err := defaults.FS.ReadFile(path)
		if err != nil {
			return err
		}
		s, err := Parse(data)
		if err != nil {
			return fmt.Errorf("bundled %s: %w", path, err)
		}
		r.mu.Lock()
		r.builtin[s.ID] = s
		r.mu.Unlock()
		return nil
	})
}

// LoadDir loads every scenario file in dir.
//
// Any invalid file fails the whole load; a service should not start with a
// scenario directory it cannot fully read.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read scenario dir: %w", err)
	}

	loaded := make(map[string]*Scenario)
	files := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() || !isScenarioFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := LoadFile(path)
		if err != nil {
			return err
		}
		if _, dup := loaded[s.ID]; dup {
			return fmt.Errorf("%w: scenario id %q declared twice in %s", ErrInvalidScenario, s.ID, dir)
		}
		loaded[s.ID] = s
		files[path] = []string{s.ID}
	}

	r.mu.Lock()
	r.dir = dir
	r.loaded = loaded
	r.files = files
	r.mu.Unlock()

	r.logger.Info("scenario directory loaded", "dir", dir, "count", len(loaded))
	return nil
}

// Add registers an already validated scenario, replacing any with the same ID.
func (r *Registry) Add(s *Scenario) error {
	if !s.Validated() {
		return fmt.Errorf("%w: scenario %q not validated", ErrInvalidScenario, s.ID)
	}
	r.mu.Lock()
	r.loaded[s.ID] = s
	r.mu.Unlock()
	return nil
}

// Get returns the scenario with the given ID.
func (r *Registry) Get(id string) (*Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.loaded[id]; ok {
		return s, nil
	}
	if s, ok := r.builtin[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
}

// List returns every registered scenario sorted by ID.
func (r *Registry) List() []*Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()
	merged := make(map[string]*Scenario, len(r.builtin)+len(r.loaded))
	for id, s := range r.builtin {
		merged[id] = s
	}
	for id, s := range r.loaded {
		merged[id] = s
	}
	out := make([]*Scenario, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of distinct scenario IDs.
func (r *Registry) Len() int {
	return len(r.List())
}

// Watch reloads scenario files in the loaded directory as they change.
//
// # Description
//
// Blocks until ctx is cancelled. Events are batched over the debounce
// window, then each touched file is reloaded or, if it no longer exists,
// its scenarios are dropped.
//
// # Outputs
//
//   - error: Non-nil if the watcher cannot be created or no directory was loaded.
func (r *Registry) Watch(ctx context.Context) error {
	r.mu.RLock()
	dir := r.dir
	r.mu.RUnlock()
	if dir == "" {
		return fmt.Errorf("watch: no scenario directory loaded")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	r.logger.Info("watching scenario directory", "dir", dir)

	pending := make(map[string]struct{})
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isScenarioFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			pending[event.Name] = struct{}{}
			if timerC == nil {
				timerC = time.After(r.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("scenario watcher error", "error", err)
		case <-timerC:
			timerC = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, p := range paths {
				r.reloadFile(p)
			}
		}
	}
}

// reloadFile applies one file's current contents to the registry.
func (r *Registry) reloadFile(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.mu.Lock()
		for _, id := range r.files[path] {
			delete(r.loaded, id)
		}
		delete(r.files, path)
		r.mu.Unlock()
		r.logger.Info("scenario file removed", "path", path)
		return
	}

	s, err := LoadFile(path)
	if err != nil {
		r.logger.Warn("scenario reload rejected, keeping previous version", "path", path, "error", err)
		return
	}

	r.mu.Lock()
	if owner := r.ownerLocked(s.ID, path); owner != "" {
		r.mu.Unlock()
		r.logger.Warn("scenario reload rejected, id already declared by another file",
			"path", path, "scenario_id", s.ID, "declared_in", owner)
		return
	}
	for _, id := range r.files[path] {
		if id != s.ID {
			delete(r.loaded, id)
		}
	}
	r.loaded[s.ID] = s
	r.files[path] = []string{s.ID}
	r.mu.Unlock()
	r.logger.Info("scenario reloaded", "path", path, "scenario_id", s.ID)
}

// ownerLocked returns the file other than path that declares id, if any.
// Caller holds r.mu.
func (r *Registry) ownerLocked(id, path string) string {
	for p, ids := range r.files {
		if p == path {
			continue
		}
		for _, other := range ids {
			if other == id {
				return p
			}
		}
	}
	return ""
}

func isScenarioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
