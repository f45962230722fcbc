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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidConfig is returned when the file parses but fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoHome is returned when the home directory cannot be resolved.
	ErrNoHome = errors.New("could not find the user's home directory")
)

// PathEnv overrides the configuration file location.
const PathEnv = "SCHOLARBENCH_CONFIG"

// DefaultPath returns ~/.scholarbench/scholarbench.yaml, or the value of
// SCHOLARBENCH_CONFIG when set.
func DefaultPath() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoHome, err)
	}
	return filepath.Join(home, ".scholarbench", "scholarbench.yaml"), nil
}

// Load reads the configuration at path, creating it with defaults first
// when it does not exist.
//
// Description:
//
//	The file is decoded over DefaultConfig, so keys missing from the file
//	keep their defaults. The result is validated before it is returned.
//
// Inputs:
//   - path: File location. Empty means DefaultPath.
//
// Outputs:
//   - *ScholarConfig: The validated configuration.
//   - bool: True when the file was created by this call.
//   - error: Read, parse or validation failure. Validation errors wrap
//     ErrInvalidConfig.
func Load(path string) (*ScholarConfig, bool, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, false, err
		}
		path = p
	}

	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, false, err
		}
		created = true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, created, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, created, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, created, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*ScholarConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
