// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.String())
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelDebug.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, LevelInfo.toSlogLevel())
	assert.Equal(t, slog.LevelWarn, LevelWarn.toSlogLevel())
	assert.Equal(t, slog.LevelError, LevelError.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, Level(99).toSlogLevel(), "unknown defaults to info")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"", LevelInfo},
		{"info", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"Error", LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "scholarbench", Writer: &buf})
	defer logger.Close()

	logger.Info("sweep finished", "sizes", 5)

	out := buf.String()
	assert.Contains(t, out, "sweep finished")
	assert.Contains(t, out, "sizes=5")
	assert.Contains(t, out, "service=scholarbench")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Writer: &buf})
	logger.Warn("measurement skipped", "algorithm", "selection")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "selection", entry["algorithm"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Writer: &buf})

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestNew_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Quiet: true, Writer: &buf})
	logger.Error("hidden")
	assert.Empty(t, buf.String())
	assert.NoError(t, logger.Close())
}

func TestNew_WithLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger := New(Config{Quiet: true, LogDir: dir, Service: "bench"})

	logger.Info("written to file", "run_id", "abc")
	path := logger.LogPath()
	require.NoError(t, logger.Close())

	want := filepath.Join(dir, "bench_"+time.Now().Format("2006-01-02")+".log")
	assert.Equal(t, want, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "written to file", entry["msg"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "bench", entry["service"])
}

func TestNew_WithLogDir_DefaultServiceName(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Quiet: true, LogDir: dir})
	defer logger.Close()
	assert.True(t, strings.HasPrefix(filepath.Base(logger.LogPath()), DefaultService+"_"))
}

func TestNew_WithLogDir_Unwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	var buf bytes.Buffer
	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Writer: &buf})
	logger.Info("still logs")

	assert.Empty(t, logger.LogPath(), "falls back to console only")
	assert.Contains(t, buf.String(), "still logs")
}

func TestNew_FileAndConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{LogDir: t.TempDir(), Writer: &buf})
	logger.Info("both")
	path := logger.LogPath()
	require.NoError(t, logger.Close())

	assert.Contains(t, buf.String(), "both")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"both"`)
}

func TestDefault(t *testing.T) {
	logger := Default()
	require.NotNil(t, logger.Slog())
	assert.Equal(t, DefaultService, logger.config.Service)
	assert.Equal(t, LevelInfo, logger.config.Level)
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})
	child := logger.With("run_id", "r-1")

	child.Info("child line")
	logger.Info("parent line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run_id=r-1")
	assert.NotContains(t, lines[1], "run_id")
}

func TestLogger_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})
	logger.Slog().Info("via slog", slog.Int("n", 3))
	assert.Contains(t, buf.String(), "n=3")
}

// =============================================================================
// Exporter Tests
// =============================================================================

func TestLogger_Exporter(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Level: LevelInfo, Service: "svc", Exporter: exporter})

	logger.Debug("filtered")
	logger.Info("exported", "size", 100, slog.String("algorithm", "merge"))
	require.NoError(t, logger.Close())

	entries := exporter.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "exported", entries[0].Message)
	assert.Equal(t, LevelInfo, entries[0].Level)
	assert.Equal(t, "svc", entries[0].Service)
	assert.Equal(t, 100, entries[0].Attrs["size"])
	assert.Equal(t, "merge", entries[0].Attrs["algorithm"])
}

func TestLogger_ExporterFromChild(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exporter})
	logger.With("k", "v").Warn("from child")
	require.NoError(t, logger.Close())
	assert.Len(t, exporter.Entries(), 1)
}

type failingExporter struct {
	NopExporter
	flushErr, closeErr error
}

func (e *failingExporter) Flush(context.Context) error { return e.flushErr }
func (e *failingExporter) Close() error { return e.closeErr }

func TestLogger_Close_JoinsErrors(t *testing.T) {
	flushErr := errors.New("flush failed")
	closeErr := errors.New("close failed")
	logger := New(Config{Quiet: true, Exporter: &failingExporter{flushErr: flushErr, closeErr: closeErr}})

	err := logger.Close()
	assert.ErrorIs(t, err, flushErr)
	assert.ErrorIs(t, err, closeErr)
}

func TestLogger_ConcurrentUse(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exporter})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Info("concurrent", "goroutine", i, "j", j)
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, logger.Close())
	assert.Len(t, exporter.Entries(), 200)
}

func TestBufferedExporter_EntriesReturnsCopy(t *testing.T) {
	exporter := NewBufferedExporter()
	require.NoError(t, exporter.Export(context.Background(), LogEntry{Message: "a"}))

	entries := exporter.Entries()
	entries[0].Message = "changed"
	assert.Equal(t, "a", exporter.Entries()[0].Message)
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".scholarbench/logs"), expandPath("~/.scholarbench/logs"))
	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "~user/logs", expandPath("~user/logs"))
}

func TestArgsToMap(t *testing.T) {
	got := argsToMap([]any{"a", 1, slog.Bool("b", true), "dangling"})
	assert.Equal(t, map[string]any{"a": 1, "b": true}, got)
	assert.Empty(t, argsToMap(nil))
}

func TestMultiHandler(t *testing.T) {
	var debug, warn bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("x", "y")}).WithGroup("g"))

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	logger.Info("info only", "k", 1)

	assert.Contains(t, debug.String(), "x=y")
	assert.Contains(t, debug.String(), "g.k=1")
	assert.Empty(t, warn.String())
}
