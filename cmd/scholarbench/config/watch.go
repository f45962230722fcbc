// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
//
// Description:
//
//	The parent directory is watched rather than the file, because most
//	editors save by writing a temporary file and renaming it over the
//	original, which drops a watch on the file itself. Bursts of events are
//	collapsed into one reload after the debounce window.
//
// Thread Safety: Run must be called once. Close may be called from any
// goroutine.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher starts watching the directory of path.
//
// Inputs:
//   - path: The config file. Its directory must exist.
//   - debounce: Quiet period before a reload. Zero means DefaultDebounce.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, debounce: debounce, watcher: fw}, nil
}

// Run delivers each successfully parsed reload to onChange and every read,
// parse or watch error to onError, until ctx is done. A file that fails
// validation is reported and the previous configuration stays in effect.
func (w *Watcher) Run(ctx context.Context, onChange func(*ScholarConfig), onError func(error)) error {
	defer w.watcher.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(fmt.Errorf("watching config: %w", err))
			}

		case <-fire:
			fire = nil
			cfg, err := w.reload()
			switch {
			case errors.Is(err, os.ErrNotExist):
				// Renamed away mid-save; the following create fires again.
			case err != nil:
				if onError != nil {
					onError(err)
				}
			default:
				onChange(cfg)
			}
		}
	}
}

func (w *Watcher) reload() (*ScholarConfig, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("reloading %s: %w", w.path, err)
	}
	return cfg, nil
}

// Close stops the watcher. Run returns shortly after.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
