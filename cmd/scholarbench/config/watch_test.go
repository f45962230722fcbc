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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs a watcher on a fresh default config file and returns
// the channels it reports on.
func startWatcher(t *testing.T) (string, <-chan *ScholarConfig, <-chan error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scholarbench.yaml")
	require.NoError(t, createDefault(path))

	w, err := NewWatcher(path, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *ScholarConfig, 4)
	errs := make(chan error, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx,
			func(c *ScholarConfig) { changes <- c },
			func(err error) { errs <- err },
		)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return path, changes, errs
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path, changes, _ := startWatcher(t)

	require.NoError(t, os.WriteFile(path, []byte("session:\n  initial_size: 75\n"), 0o644))

	select {
	case cfg := <-changes:
		assert.Equal(t, 75, cfg.Session.InitialSize)
		assert.Equal(t, 10, cfg.Session.PreviewRows, "missing keys keep defaults")
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatcher_ReloadsOnRename(t *testing.T) {
	path, changes, _ := startWatcher(t)

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("session:\n  top_rows: 9\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case cfg := <-changes:
		assert.Equal(t, 9, cfg.Session.TopRows)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after rename")
	}
}

func TestWatcher_ReportsInvalidFile(t *testing.T) {
	path, changes, errs := startWatcher(t)

	require.NoError(t, os.WriteFile(path, []byte("session:\n  initial_size: 0\n"), 0o644))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrInvalidConfig)
	case cfg := <-changes:
		t.Fatalf("invalid file delivered as a change: %+v", cfg.Session)
	case <-time.After(5 * time.Second):
		t.Fatal("no error after invalid write")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path, changes, _ := startWatcher(t)

	other := filepath.Join(filepath.Dir(path), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("hello"), 0o644))

	select {
	case <-changes:
		t.Fatal("reloaded on an unrelated file")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent", "scholarbench.yaml"), 0)
	assert.Error(t, err)
}
