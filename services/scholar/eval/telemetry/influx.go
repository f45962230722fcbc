// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Influx measurement names.
const (
	InfluxMeasurementSample = "scholarbench_sample"
	InfluxMeasurementSweep  = "scholarbench_sweep"
	InfluxMeasurementVerify = "scholarbench_verify"
	InfluxMeasurementError  = "scholarbench_error"
)

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	// URL is the InfluxDB server, e.g. "http://localhost:8086". Required.
	URL string

	// Token is the API token.
	Token string

	// Org is the organization. Required.
	Org string

	// Bucket is the destination bucket. Required.
	Bucket string

	// BatchSize is how many points are buffered before a write.
	// Default: 500.
	BatchSize int

	// Timeout bounds each HTTP request. Default: 10s.
	Timeout time.Duration
}

// DefaultInfluxConfig returns a configuration for a local server.
func DefaultInfluxConfig() *InfluxConfig {
	return &InfluxConfig{
		URL:       "http://localhost:8086",
		Org:       "scholarbench",
		Bucket:    "benchmarks",
		BatchSize: 500,
		Timeout:   10 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *InfluxConfig) Validate() error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("url is required"))
	}
	if c.Org == "" {
		errs = append(errs, errors.New("org is required"))
	}
	if c.Bucket == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch size must be >= 0, got %d", c.BatchSize))
	}
	return errors.Join(errs...)
}

// InfluxSink writes telemetry as InfluxDB points.
//
// Description:
//
//	Points are buffered and written with the blocking write API once
//	BatchSize points are pending, on Flush, and on Close. Sweeps are
//	short, so a typical run produces a single write.
//
// Thread Safety: Safe for concurrent use.
type InfluxSink struct {
	client    influxdb2.Client
	writer    api.WriteAPIBlocking
	batchSize int

	mu      sync.Mutex
	pending []*write.Point
	closed  bool
}

// NewInfluxSink connects a sink to the configured server. No request is
// made until the first write.
func NewInfluxSink(config *InfluxConfig) (*InfluxSink, error) {
	if config == nil {
		return nil, errors.New("influx config must not be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid influx configuration: %w", err)
	}
	opts := influxdb2.DefaultOptions()
	if config.Timeout > 0 {
		opts.SetHTTPRequestTimeout(uint(config.Timeout / time.Second))
	}
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)

	batch := config.BatchSize
	if batch == 0 {
		batch = DefaultInfluxConfig().BatchSize
	}
	return &InfluxSink{
		client:    client,
		writer:    client.WriteAPIBlocking(config.Org, config.Bucket),
		batchSize: batch,
	}, nil
}

// add buffers p and writes the batch when it is full.
func (s *InfluxSink) add(ctx context.Context, p *write.Point) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.pending = append(s.pending, p)
	if len(s.pending) < s.batchSize {
		s.mu.Unlock()
		return nil
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	return s.write(ctx, batch)
}

func (s *InfluxSink) write(ctx context.Context, batch []*write.Point) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.writer.WritePoint(ctx, batch...); err != nil {
		return fmt.Errorf("writing %d points to influxdb: %w", len(batch), err)
	}
	return nil
}

// RecordMeasurement implements Sink.
func (s *InfluxSink) RecordMeasurement(ctx context.Context, data *MeasurementData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	fields := map[string]any{
		"size":        data.Size,
		"alloc_bytes": data.AllocBytes,
		"steps":       data.Steps,
		"skipped":     data.Skipped,
	}
	if !data.Skipped {
		fields["elapsed_ns"] = data.Elapsed.Nanoseconds()
	}
	tags := map[string]string{
		"algorithm": orUnknown(data.Algorithm),
		"kind":      orUnknown(data.Kind),
		"size":      strconv.Itoa(data.Size),
	}
	if data.RunID != "" {
		tags["run_id"] = data.RunID
	}
	return s.add(ctx, influxdb2.NewPoint(InfluxMeasurementSample, tags, fields, stamp(data.Timestamp)))
}

// RecordSweep implements Sink.
func (s *InfluxSink) RecordSweep(ctx context.Context, data *SweepData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	return s.add(ctx, influxdb2.NewPoint(InfluxMeasurementSweep,
		map[string]string{"run_id": orUnknown(data.RunID)},
		map[string]any{
			"sizes":        data.Sizes,
			"measurements": data.Measurements,
			"skipped":      data.Skipped,
			"duration_ns":  data.Duration.Nanoseconds(),
		},
		stamp(data.Timestamp),
	))
}

// RecordVerification implements Sink.
func (s *InfluxSink) RecordVerification(ctx context.Context, data *VerificationData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	return s.add(ctx, influxdb2.NewPoint(InfluxMeasurementVerify,
		map[string]string{
			"algorithm": orUnknown(data.Algorithm),
			"kind":      orUnknown(data.Kind),
		},
		map[string]any{
			"passed":      data.Passed,
			"properties":  data.Properties,
			"failed":      data.Failed,
			"iterations":  data.Iterations,
			"duration_ns": data.Duration.Nanoseconds(),
		},
		time.Now(),
	))
}

// RecordError implements Sink.
func (s *InfluxSink) RecordError(ctx context.Context, data *ErrorData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	return s.add(ctx, influxdb2.NewPoint(InfluxMeasurementError,
		map[string]string{
			"component":  orUnknown(data.Component),
			"operation":  orUnknown(data.Operation),
			"error_type": orUnknown(data.ErrorType),
		},
		map[string]any{"message": data.Message},
		stamp(data.Timestamp),
	))
}

// Flush writes every pending point.
func (s *InfluxSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	return s.write(ctx, batch)
}

// Close writes pending points and closes the client. Idempotent.
func (s *InfluxSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	err := s.write(context.Background(), batch)
	s.client.Close()
	return err
}

// stamp defaults a zero timestamp to now.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

var _ Sink = (*InfluxSink)(nil)
