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
Package config contains unit tests for configuration types.

# Testing Strategy

These tests verify:
  - Default values pass validation
  - Struct tags and domain checks reject bad sections
  - Sections map onto the logging and telemetry configs
*/
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/scholarbench/pkg/logging"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/telemetry"
)

// -----------------------------------------------------------------------------
// Defaults
// -----------------------------------------------------------------------------

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 50, cfg.Session.InitialSize)
	assert.Equal(t, 100, cfg.Verify.Iterations)
	assert.Equal(t, time.Minute, cfg.Verify.Timeout)
	assert.Equal(t, telemetry.ExporterNone, cfg.Telemetry.TraceExporter)
	assert.True(t, cfg.History.Enabled)
	assert.False(t, cfg.Telemetry.Influx.Enabled)
	assert.True(t, cfg.UI.WatchConfig)
}

func TestDefaultConfig_IsACopy(t *testing.T) {
	a := DefaultConfig()
	a.Dataset.Names[0] = "changed"
	a.Benchmark.Sizes[0] = 1

	b := DefaultConfig()
	assert.NotEqual(t, "changed", b.Dataset.Names[0])
	assert.NotEqual(t, 1, b.Benchmark.Sizes[0])
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

func TestScholarConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ScholarConfig)
	}{
		{"zero initial size", func(c *ScholarConfig) { c.Session.InitialSize = 0 }},
		{"zero preview rows", func(c *ScholarConfig) { c.Session.PreviewRows = 0 }},
		{"zero iterations", func(c *ScholarConfig) { c.Verify.Iterations = 0 }},
		{"unknown log level", func(c *ScholarConfig) { c.Logging.Level = "loud" }},
		{"unknown personality", func(c *ScholarConfig) { c.UI.Personality = "chatty" }},
		{"unknown trace exporter", func(c *ScholarConfig) { c.Telemetry.TraceExporter = "zipkin" }},
		{"unknown metric exporter", func(c *ScholarConfig) { c.Telemetry.MetricExporter = "statsd" }},
		{"otlp without endpoint", func(c *ScholarConfig) {
			c.Telemetry.TraceExporter = telemetry.ExporterOTLP
			c.Telemetry.OTLPEndpoint = ""
		}},
		{"bad listen address", func(c *ScholarConfig) { c.Telemetry.ListenAddr = "not an address" }},
		{"empty sizes", func(c *ScholarConfig) { c.Benchmark.Sizes = nil }},
		{"negative size", func(c *ScholarConfig) { c.Benchmark.Sizes = []int{10, -1} }},
		{"zero repeats", func(c *ScholarConfig) { c.Benchmark.Repeats = 0 }},
		{"empty score range", func(c *ScholarConfig) {
			c.Dataset.MinScore = 90
			c.Dataset.MaxScore = 10
		}},
		{"no names", func(c *ScholarConfig) { c.Dataset.Names = nil }},
		{"influx without bucket", func(c *ScholarConfig) {
			c.Telemetry.Influx.Enabled = true
			c.Telemetry.Influx.Bucket = ""
		}},
		{"influx bad url", func(c *ScholarConfig) {
			c.Telemetry.Influx.Enabled = true
			c.Telemetry.Influx.URL = "not a url"
		}},
		{"history without dir", func(c *ScholarConfig) { c.History.Dir = "" }},
		{"bad server address", func(c *ScholarConfig) { c.Server.Addr = "nine" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestScholarConfig_ValidateAccepts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UI.Personality = "machine"
	cfg.Logging.Level = "DEBUG"
	cfg.Telemetry.ListenAddr = "localhost:9464"
	cfg.Telemetry.MetricExporter = telemetry.ExporterPrometheus
	cfg.Telemetry.Influx.Enabled = true
	cfg.History = HistoryConfig{}
	assert.NoError(t, cfg.Validate())
}

// -----------------------------------------------------------------------------
// Mapping
// -----------------------------------------------------------------------------

func TestLoggingConfig_LoggerConfig(t *testing.T) {
	lc := LoggingConfig{Level: "warn", Dir: "/tmp/logs", JSON: true}.LoggerConfig()
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.Equal(t, "/tmp/logs", lc.LogDir)
	assert.True(t, lc.JSON)
	assert.Equal(t, logging.DefaultService, lc.Service)

	fallback := LoggingConfig{Level: "loud"}.LoggerConfig()
	assert.Equal(t, logging.LevelInfo, fallback.Level)
}

func TestTelemetryConfig_ProviderConfig(t *testing.T) {
	tc := TelemetryConfig{
		TraceExporter:  telemetry.ExporterOTLP,
		MetricExporter: telemetry.ExporterStdout,
		OTLPEndpoint:   "collector:4317",
	}
	pc := tc.ProviderConfig("2.0.0")
	assert.Equal(t, "scholarbench", pc.ServiceName)
	assert.Equal(t, "2.0.0", pc.ServiceVersion)
	assert.Equal(t, telemetry.ExporterOTLP, pc.TraceExporter)
	assert.Equal(t, telemetry.ExporterStdout, pc.MetricExporter)
	assert.Equal(t, "collector:4317", pc.OTLPEndpoint)
	assert.False(t, pc.OTLPInsecure)
}

func TestInfluxConfig_SinkConfig(t *testing.T) {
	ic := InfluxConfig{URL: "http://influx:8086", Org: "lab", Bucket: "runs", Token: "file-token"}

	sc := ic.SinkConfig()
	assert.Equal(t, "http://influx:8086", sc.URL)
	assert.Equal(t, "lab", sc.Org)
	assert.Equal(t, "runs", sc.Bucket)
	assert.Equal(t, "file-token", sc.Token)
	assert.Equal(t, telemetry.DefaultInfluxConfig().BatchSize, sc.BatchSize)

	t.Setenv(InfluxTokenEnv, "env-token")
	assert.Equal(t, "env-token", ic.SinkConfig().Token)
}
