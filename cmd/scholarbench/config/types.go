// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package config loads the scholarbench configuration file.

The file lives at ~/.scholarbench/scholarbench.yaml and is created with
defaults on first run. Every section is optional in the file: missing
keys keep the value DefaultConfig gives them.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/scholarbench/pkg/logging"
	"github.com/AleutianAI/scholarbench/services/scholar/dataset"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/telemetry"
)

// CurrentConfigVersion is written into new files.
const CurrentConfigVersion = "1"

// ScholarConfig is the whole configuration file.
type ScholarConfig struct {
	// Meta records which version wrote the file.
	Meta ConfigMeta `yaml:"meta"`

	// Session controls the interactive menu.
	Session SessionConfig `yaml:"session"`

	// Dataset controls record generation, including the score bounds.
	Dataset dataset.Config `yaml:"dataset"`

	// Benchmark is the diagnostics sweep.
	Benchmark benchmark.Config `yaml:"benchmark"`

	// Verify controls the property checks run by `scholarbench verify`.
	Verify VerifyConfig `yaml:"verify"`

	// Logging controls the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// UI controls console output.
	UI UIConfig `yaml:"ui"`

	// Telemetry selects trace and metric exporters.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// History controls where finished sweeps are kept.
	History HistoryConfig `yaml:"history"`

	// Server controls `scholarbench serve`.
	Server ServerConfig `yaml:"server"`
}

// ConfigMeta holds bookkeeping about the file itself.
type ConfigMeta struct {
	Version string `yaml:"version"`
}

// SessionConfig controls the interactive menu.
type SessionConfig struct {
	// InitialSize is how many records the session starts with.
	InitialSize int `yaml:"initial_size" validate:"gt=0"`

	// PreviewRows is how many records "view" prints before eliding.
	PreviewRows int `yaml:"preview_rows" validate:"gt=0"`

	// TopRows is how many records are shown after sorting.
	TopRows int `yaml:"top_rows" validate:"gt=0"`
}

// VerifyConfig controls property-based verification.
type VerifyConfig struct {
	// Iterations is the number of random inputs per property.
	Iterations int `yaml:"iterations" validate:"gte=1"`

	// MaxSize bounds the size of each random input.
	MaxSize int `yaml:"max_size" validate:"gt=0"`

	// Seed makes the random inputs reproducible. Zero picks a fresh seed.
	Seed uint64 `yaml:"seed"`

	// Timeout bounds the whole verification. Zero means none.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" validate:"loglevel"`

	// Dir receives a daily JSON log file. Empty disables file logging.
	Dir string `yaml:"dir"`

	// JSON switches console logs to JSON.
	JSON bool `yaml:"json"`
}

// UIConfig controls console output.
type UIConfig struct {
	// Personality is full, standard, minimal or machine. Empty defers to
	// the SCHOLARBENCH_PERSONALITY environment variable.
	Personality string `yaml:"personality" validate:"omitempty,oneof=full standard minimal machine"`

	// WatchConfig reloads the session, dataset, benchmark, verify and ui
	// sections while the interactive menu is open.
	WatchConfig bool `yaml:"watch_config"`
}

// TelemetryConfig selects exporters.
type TelemetryConfig struct {
	// TraceExporter is none, stdout or otlp.
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`

	// MetricExporter is none, stdout or prometheus.
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`

	// OTLPEndpoint is the OTLP/gRPC receiver.
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`

	// OTLPInsecure disables TLS for OTLP.
	OTLPInsecure bool `yaml:"otlp_insecure"`

	// TextfilePath receives Prometheus metrics after each command, in the
	// node-exporter textfile format. Empty disables it.
	TextfilePath string `yaml:"textfile_path"`

	// ListenAddr serves /metrics while a command runs. Empty disables it.
	ListenAddr string `yaml:"listen_addr" validate:"omitempty,hostname_port"`

	// Influx writes every measurement to InfluxDB.
	Influx InfluxConfig `yaml:"influx"`
}

// InfluxConfig is the InfluxDB sink. The token may be left out of the
// file and given in SCHOLARBENCH_INFLUX_TOKEN instead.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
	Token   string `yaml:"token,omitempty"`
}

// InfluxTokenEnv overrides InfluxConfig.Token.
const InfluxTokenEnv = "SCHOLARBENCH_INFLUX_TOKEN"

// HistoryConfig controls the sweep history database.
type HistoryConfig struct {
	// Enabled saves every finished sweep.
	Enabled bool `yaml:"enabled"`

	// Dir is the BadgerDB directory.
	Dir string `yaml:"dir" validate:"required_if=Enabled true"`
}

// ServerConfig controls the HTTP server of `scholarbench serve`.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr" validate:"hostname_port"`

	// ReadTimeout bounds reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ScholarConfig {
	return ScholarConfig{
		Meta: ConfigMeta{Version: CurrentConfigVersion},
		Session: SessionConfig{
			InitialSize: 50,
			PreviewRows: 10,
			TopRows:     5,
		},
		Dataset:   dataset.DefaultConfig(),
		Benchmark: *benchmark.DefaultConfig(),
		Verify: VerifyConfig{
			Iterations: 100,
			MaxSize:    200,
			Timeout:    time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.scholarbench/logs",
		},
		UI: UIConfig{WatchConfig: true},
		Telemetry: TelemetryConfig{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterNone,
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
			Influx: InfluxConfig{
				URL:    "http://localhost:8086",
				Org:    "scholarbench",
				Bucket: "benchmarks",
			},
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "~/.scholarbench/history",
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:9464",
			ReadTimeout: 10 * time.Second,
		},
	}
}

// ProviderConfig maps the telemetry section onto telemetry.Init.
func (c TelemetryConfig) ProviderConfig(version string) telemetry.ProviderConfig {
	pc := telemetry.DefaultProviderConfig()
	pc.ServiceVersion = version
	pc.TraceExporter = c.TraceExporter
	pc.MetricExporter = c.MetricExporter
	pc.OTLPEndpoint = c.OTLPEndpoint
	pc.OTLPInsecure = c.OTLPInsecure
	return pc
}

// SinkConfig maps the influx section onto telemetry.InfluxConfig, with
// the token taken from the environment when set.
func (c InfluxConfig) SinkConfig() *telemetry.InfluxConfig {
	cfg := telemetry.DefaultInfluxConfig()
	cfg.URL = c.URL
	cfg.Org = c.Org
	cfg.Bucket = c.Bucket
	cfg.Token = c.Token
	if token := os.Getenv(InfluxTokenEnv); token != "" {
		cfg.Token = token
	}
	return cfg
}

// LoggerConfig maps the logging section onto logging.Config. An unknown
// level falls back to info; Validate reports it.
func (c LoggingConfig) LoggerConfig() logging.Config {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Dir,
		Service: logging.DefaultService,
		JSON:    c.JSON,
	}
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

var configValidate *validator.Validate

func init() {
	configValidate = validator.New(validator.WithRequiredStructEnabled())
	_ = configValidate.RegisterValidation("loglevel", validateLogLevel)
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := logging.ParseLevel(fl.Field().String())
	return err == nil
}

// Validate runs the struct tags, then the domain checks of the dataset
// and benchmark sections.
func (c *ScholarConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Dataset.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Benchmark.Validate(); err != nil {
		return fmt.Errorf("%w: benchmark: %w", ErrInvalidConfig, err)
	}
	return nil
}
