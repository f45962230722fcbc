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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".scholarbench", "scholarbench.yaml")

	require.NoError(t, createDefault(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var cfg ScholarConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, CurrentConfigVersion, cfg.Meta.Version)
	assert.Equal(t, 50, cfg.Session.InitialSize)
	assert.Equal(t, 1000, cfg.Dataset.IDOffset)
}

// TestCreateDefault_DirectoryCreation verifies nested directories are created.
func TestCreateDefault_DirectoryCreation(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "deep", "nested", "path", "scholarbench.yaml")

	require.NoError(t, createDefault(configPath))
	assert.DirExists(t, filepath.Dir(configPath))
}

func TestLoad_CreatesOnFirstRun(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scholarbench.yaml")

	cfg, created, err := Load(configPath)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, configPath)
	assert.Equal(t, DefaultConfig(), *cfg, "a freshly written file loads back as the defaults")

	_, created, err = Load(configPath)
	require.NoError(t, err)
	assert.False(t, created, "second load reads the existing file")
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scholarbench.yaml")
	partial := []byte("session:\n  initial_size: 120\nbenchmark:\n  sizes: [10, 20]\n")
	require.NoError(t, os.WriteFile(configPath, partial, 0644))

	cfg, created, err := Load(configPath)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 120, cfg.Session.InitialSize)
	assert.Equal(t, 10, cfg.Session.PreviewRows)
	assert.Equal(t, []int{10, 20}, cfg.Benchmark.Sizes)
	assert.Equal(t, 3000, cfg.Benchmark.SizeCaps["selection"])
	assert.Equal(t, 100.0, cfg.Dataset.Bounds.High)
}

func TestLoad_EnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(PathEnv, configPath)

	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, configPath, p)

	_, created, err := Load("")
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, configPath)
}

func TestLoad_Malformed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scholarbench.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("session: [unclosed"), 0644))

	_, _, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoad_Invalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scholarbench.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("session:\n  initial_size: 0\n"), 0644))

	_, _, err := Load(configPath)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
