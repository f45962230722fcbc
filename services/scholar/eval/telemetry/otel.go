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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/AleutianAI/scholarbench/services/scholar/eval/telemetry"

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrOTelInitFailed is returned when instrument creation fails.
	ErrOTelInitFailed = errors.New("opentelemetry initialization failed")

	// ErrInvalidOTelConfig is returned when the OTel configuration is invalid.
	ErrInvalidOTelConfig = errors.New("invalid opentelemetry configuration")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// OTelConfig configures the OpenTelemetry sink.
type OTelConfig struct {
	// ServiceName is the service name for telemetry. Required.
	ServiceName string

	// ServiceVersion is the instrumentation version. Optional.
	ServiceVersion string

	// TracerProvider is the tracer provider to use.
	// If nil, uses the global tracer provider.
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If nil, uses the global meter provider.
	MeterProvider metric.MeterProvider

	// TraceEnabled emits one span per recorded event.
	TraceEnabled bool

	// MetricsEnabled records metric instruments.
	MetricsEnabled bool
}

// DefaultOTelConfig returns a configuration with tracing and metrics on.
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    "scholarbench",
		ServiceVersion: "1.0.0",
		TraceEnabled:   true,
		MetricsEnabled: true,
	}
}

// Validate checks that the configuration is valid.
func (c *OTelConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// OpenTelemetry Sink
// -----------------------------------------------------------------------------

// OTelSink exports telemetry through the OpenTelemetry API.
//
// Description:
//
//	The sink does not own its providers. Init installs global providers
//	backed by the configured exporters; the sink picks them up when
//	OTelConfig leaves them nil.
//
// Thread Safety: Safe for concurrent use.
type OTelSink struct {
	config *OTelConfig
	tracer trace.Tracer
	meter  metric.Meter

	measureDuration metric.Float64Histogram
	measureMemory   metric.Int64Histogram
	measureSteps    metric.Int64Histogram
	measureTotal    metric.Int64Counter
	sweepDuration   metric.Float64Histogram
	verifyTotal     metric.Int64Counter
	errorsTotal     metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewOTelSink creates a new OpenTelemetry sink.
//
// Outputs:
//   - *OTelSink: Never nil on success.
//   - error: Non-nil if configuration is invalid or instruments fail.
func NewOTelSink(config *OTelConfig) (*OTelSink, error) {
	if config == nil {
		return nil, ErrInvalidOTelConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidOTelConfig, err)
	}

	cfg := *config

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	sink := &OTelSink{
		config: &cfg,
		tracer: tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(cfg.ServiceVersion)),
		meter:  mp.Meter(instrumentationName, metric.WithInstrumentationVersion(cfg.ServiceVersion)),
	}

	if cfg.MetricsEnabled {
		if err := sink.initializeMetrics(); err != nil {
			return nil, errors.Join(ErrOTelInitFailed, err)
		}
	}

	return sink, nil
}

func (s *OTelSink) initializeMetrics() error {
	var err error

	s.measureDuration, err = s.meter.Float64Histogram(
		"scholarbench.measurement.duration",
		metric.WithDescription("Wall-clock time of one algorithm run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	s.measureMemory, err = s.meter.Int64Histogram(
		"scholarbench.measurement.alloc",
		metric.WithDescription("Bytes allocated during one algorithm run"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	s.measureSteps, err = s.meter.Int64Histogram(
		"scholarbench.search.steps",
		metric.WithDescription("Comparisons performed by one search"),
		metric.WithUnit("{comparison}"),
	)
	if err != nil {
		return err
	}

	s.measureTotal, err = s.meter.Int64Counter(
		"scholarbench.measurements",
		metric.WithDescription("Measurements recorded"),
		metric.WithUnit("{measurement}"),
	)
	if err != nil {
		return err
	}

	s.sweepDuration, err = s.meter.Float64Histogram(
		"scholarbench.sweep.duration",
		metric.WithDescription("Total sweep wall time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	s.verifyTotal, err = s.meter.Int64Counter(
		"scholarbench.verifications",
		metric.WithDescription("Algorithm verifications"),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		return err
	}

	s.errorsTotal, err = s.meter.Int64Counter(
		"scholarbench.errors",
		metric.WithDescription("Total errors"),
		metric.WithUnit("{error}"),
	)
	return err
}

func (s *OTelSink) open() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// RecordMeasurement implements Sink.
func (s *OTelSink) RecordMeasurement(ctx context.Context, data *MeasurementData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	attrs := []attribute.KeyValue{
		attribute.String("algorithm", orUnknown(data.Algorithm)),
		attribute.String("kind", orUnknown(data.Kind)),
		attribute.Int("size", data.Size),
		attribute.Bool("skipped", data.Skipped),
	}

	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "measurement.record",
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(data.Timestamp),
		)
		if data.RunID != "" {
			span.SetAttributes(attribute.String("run_id", data.RunID))
		}
		if !data.Skipped {
			span.SetAttributes(
				attribute.Float64("elapsed_seconds", data.Elapsed.Seconds()),
				attribute.Int64("alloc_bytes", int64(data.AllocBytes)),
				attribute.Int("steps", data.Steps),
			)
		}
		span.End()
	}

	if s.config.MetricsEnabled {
		set := metric.WithAttributes(attrs...)
		s.measureTotal.Add(ctx, 1, set)
		if !data.Skipped {
			s.measureDuration.Record(ctx, data.Elapsed.Seconds(), set)
			if data.AllocBytes > 0 {
				s.measureMemory.Record(ctx, int64(data.AllocBytes), set)
			}
			if data.Steps > 0 {
				s.measureSteps.Record(ctx, int64(data.Steps), set)
			}
		}
	}
	return nil
}

// RecordSweep implements Sink.
func (s *OTelSink) RecordSweep(ctx context.Context, data *SweepData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	attrs := []attribute.KeyValue{
		attribute.String("run_id", data.RunID),
		attribute.Int("sizes", data.Sizes),
		attribute.Int("measurements", data.Measurements),
		attribute.Int("skipped", data.Skipped),
	}

	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "sweep.record", trace.WithAttributes(attrs...))
		span.SetAttributes(attribute.Float64("duration_seconds", data.Duration.Seconds()))
		span.End()
	}
	if s.config.MetricsEnabled {
		s.sweepDuration.Record(ctx, data.Duration.Seconds(), metric.WithAttributes(attribute.Int("sizes", data.Sizes)))
	}
	return nil
}

// RecordVerification implements Sink.
func (s *OTelSink) RecordVerification(ctx context.Context, data *VerificationData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	attrs := []attribute.KeyValue{
		attribute.String("algorithm", orUnknown(data.Algorithm)),
		attribute.String("kind", orUnknown(data.Kind)),
		attribute.Bool("passed", data.Passed),
	}

	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "verification.record", trace.WithAttributes(attrs...))
		span.SetAttributes(
			attribute.Int("properties", data.Properties),
			attribute.Int("failed", data.Failed),
			attribute.Int("iterations", data.Iterations),
		)
		if !data.Passed {
			span.SetStatus(codes.Error, "verification failed")
		}
		span.End()
	}
	if s.config.MetricsEnabled {
		s.verifyTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	return nil
}

// RecordError implements Sink.
func (s *OTelSink) RecordError(ctx context.Context, data *ErrorData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	attrs := []attribute.KeyValue{
		attribute.String("component", orUnknown(data.Component)),
		attribute.String("operation", orUnknown(data.Operation)),
		attribute.String("error_type", orUnknown(data.ErrorType)),
	}

	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "error.record", trace.WithAttributes(attrs...))
		span.SetStatus(codes.Error, data.Message)
		span.End()
	}
	if s.config.MetricsEnabled {
		s.errorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	return nil
}

// Flush is a no-op. Providers are flushed by the shutdown func from Init.
func (s *OTelSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return s.open()
}

// Close marks the sink closed. The providers are left running. Idempotent.
func (s *OTelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify interface compliance at compile time.
var _ Sink = (*OTelSink)(nil)
