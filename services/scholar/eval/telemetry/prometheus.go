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

	"github.com/prometheus/client_golang/prometheus"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidConfig is returned when the Prometheus configuration is invalid.
	ErrInvalidConfig = errors.New("invalid prometheus configuration")

	// ErrRegistrationFailed is returned when metric registration fails.
	ErrRegistrationFailed = errors.New("metric registration failed")

	// ErrNotGatherer is returned by WriteTextfile when the sink's registerer
	// cannot be gathered from.
	ErrNotGatherer = errors.New("registry does not support gathering")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// PrometheusConfig configures the Prometheus sink.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type PrometheusConfig struct {
	// Namespace is the metrics namespace. Required.
	Namespace string

	// Subsystem is the metrics subsystem. Required.
	Subsystem string

	// Registry is the Prometheus registry to use.
	// If nil, a fresh *prometheus.Registry is created so that
	// WriteTextfile works.
	Registry prometheus.Registerer

	// DurationBuckets defines histogram buckets for elapsed times (seconds).
	DurationBuckets []float64

	// MemoryBuckets defines histogram buckets for allocation (bytes).
	MemoryBuckets []float64

	// StepBuckets defines histogram buckets for search step counts.
	StepBuckets []float64
}

// DefaultPrometheusConfig returns a configuration with sensible defaults.
//
// Example:
//
//	config := telemetry.DefaultPrometheusConfig()
//	config.Registry = prometheus.NewRegistry()
//	sink, err := telemetry.NewPrometheusSink(config)
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace: "scholarbench",
		Subsystem: "eval",
		DurationBuckets: []float64{
			0.000001, 0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0,
		},
		MemoryBuckets: []float64{
			1024, 10240, 102400, 1048576, 10485760, 104857600,
		},
		StepBuckets: prometheus.ExponentialBuckets(1, 2, 14),
	}
}

// Validate checks that the configuration is valid.
func (c *PrometheusConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Subsystem == "" {
		return errors.New("subsystem is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Prometheus Sink
// -----------------------------------------------------------------------------

// PrometheusSink exports telemetry as Prometheus metrics.
//
// Description:
//
//	Metrics are registered on creation and unregistered on Close. Since
//	the CLI is short-lived, the usual way to hand the metrics to a scraper
//	is WriteTextfile, which writes the node-exporter textfile format.
//
// Thread Safety: Safe for concurrent use.
type PrometheusSink struct {
	config   *PrometheusConfig
	registry prometheus.Registerer

	measureDuration *prometheus.HistogramVec
	measureMemory   *prometheus.HistogramVec
	measureSteps    *prometheus.HistogramVec
	measureTotal    *prometheus.CounterVec
	lastDuration    *prometheus.GaugeVec

	sweepsTotal   prometheus.Counter
	sweepDuration prometheus.Histogram

	verifyTotal  *prometheus.CounterVec
	verifyFailed *prometheus.GaugeVec

	errorsTotal *prometheus.CounterVec

	mu     sync.RWMutex
	closed bool

	collectors []prometheus.Collector
}

// NewPrometheusSink creates a new Prometheus telemetry sink.
//
// Inputs:
//   - config: Prometheus configuration. Must not be nil.
//
// Outputs:
//   - *PrometheusSink: The created sink. Never nil on success.
//   - error: Non-nil if configuration is invalid or registration fails.
//
// Example:
//
//	sink, err := telemetry.NewPrometheusSink(telemetry.DefaultPrometheusConfig())
//	if err != nil {
//	    return fmt.Errorf("create sink: %w", err)
//	}
//	defer sink.Close()
func NewPrometheusSink(config *PrometheusConfig) (*PrometheusSink, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	cfg := *config
	defaults := DefaultPrometheusConfig()
	if cfg.DurationBuckets == nil {
		cfg.DurationBuckets = defaults.DurationBuckets
	}
	if cfg.MemoryBuckets == nil {
		cfg.MemoryBuckets = defaults.MemoryBuckets
	}
	if cfg.StepBuckets == nil {
		cfg.StepBuckets = defaults.StepBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	sink := &PrometheusSink{
		config:   &cfg,
		registry: registry,
	}

	labels := []string{"algorithm", "kind", "size"}

	sink.measureDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "measurement_duration_seconds",
			Help:      "Wall-clock time of one algorithm run in seconds",
			Buckets:   cfg.DurationBuckets,
		},
		labels,
	)

	sink.measureMemory = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "measurement_alloc_bytes",
			Help:      "Bytes allocated during one algorithm run",
			Buckets:   cfg.MemoryBuckets,
		},
		labels,
	)

	sink.measureSteps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "search_steps",
			Help:      "Comparisons performed by one search",
			Buckets:   cfg.StepBuckets,
		},
		labels,
	)

	sink.measureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "measurements_total",
			Help:      "Measurements recorded, by outcome",
		},
		[]string{"algorithm", "kind", "outcome"},
	)

	sink.lastDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "last_duration_seconds",
			Help:      "Most recent wall-clock time per algorithm and size",
		},
		labels,
	)

	sink.sweepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "sweeps_total",
			Help:      "Completed benchmark sweeps",
		},
	)

	sink.sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Total sweep wall time in seconds",
			Buckets:   cfg.DurationBuckets,
		},
	)

	sink.verifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "verifications_total",
			Help:      "Algorithm verifications, by result",
		},
		[]string{"algorithm", "kind", "passed"},
	)

	sink.verifyFailed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "verification_failed_properties",
			Help:      "Properties that failed in the latest verification",
		},
		[]string{"algorithm", "kind"},
	)

	sink.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "errors_total",
			Help:      "Total errors by type and component",
		},
		[]string{"component", "operation", "error_type"},
	)

	sink.collectors = []prometheus.Collector{
		sink.measureDuration,
		sink.measureMemory,
		sink.measureSteps,
		sink.measureTotal,
		sink.lastDuration,
		sink.sweepsTotal,
		sink.sweepDuration,
		sink.verifyTotal,
		sink.verifyFailed,
		sink.errorsTotal,
	}

	for _, c := range sink.collectors {
		if err := registry.Register(c); err != nil {
			var alreadyErr prometheus.AlreadyRegisteredError
			if !errors.As(err, &alreadyErr) {
				return nil, errors.Join(ErrRegistrationFailed, err)
			}
		}
	}

	return sink, nil
}

// Registry returns the registerer the sink's collectors live in.
func (s *PrometheusSink) Registry() prometheus.Registerer {
	return s.registry
}

func (s *PrometheusSink) open() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// RecordMeasurement records duration, allocation and step metrics.
//
// Skipped samples only increment measurements_total{outcome="skipped"};
// their sentinel duration never reaches a histogram.
func (s *PrometheusSink) RecordMeasurement(ctx context.Context, data *MeasurementData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	algorithm := orUnknown(data.Algorithm)
	kind := orUnknown(data.Kind)
	size := strconv.Itoa(data.Size)

	if data.Skipped {
		s.measureTotal.WithLabelValues(algorithm, kind, "skipped").Inc()
		return nil
	}

	s.measureTotal.WithLabelValues(algorithm, kind, "measured").Inc()
	s.measureDuration.WithLabelValues(algorithm, kind, size).Observe(data.Elapsed.Seconds())
	s.lastDuration.WithLabelValues(algorithm, kind, size).Set(data.Elapsed.Seconds())
	if data.AllocBytes > 0 {
		s.measureMemory.WithLabelValues(algorithm, kind, size).Observe(float64(data.AllocBytes))
	}
	if data.Steps > 0 {
		s.measureSteps.WithLabelValues(algorithm, kind, size).Observe(float64(data.Steps))
	}
	return nil
}

// RecordSweep records sweep count and duration.
func (s *PrometheusSink) RecordSweep(ctx context.Context, data *SweepData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	s.sweepsTotal.Inc()
	s.sweepDuration.Observe(data.Duration.Seconds())
	return nil
}

// RecordVerification records the verification outcome.
func (s *PrometheusSink) RecordVerification(ctx context.Context, data *VerificationData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	algorithm := orUnknown(data.Algorithm)
	kind := orUnknown(data.Kind)
	s.verifyTotal.WithLabelValues(algorithm, kind, strconv.FormatBool(data.Passed)).Inc()
	s.verifyFailed.WithLabelValues(algorithm, kind).Set(float64(data.Failed))
	return nil
}

// RecordError increments the error counter.
func (s *PrometheusSink) RecordError(ctx context.Context, data *ErrorData) error {
	if err := checkArgs(ctx, data == nil); err != nil {
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	s.errorsTotal.WithLabelValues(
		orUnknown(data.Component),
		orUnknown(data.Operation),
		orUnknown(data.ErrorType),
	).Inc()
	return nil
}

// Flush is a no-op: Prometheus metrics are pull-based.
func (s *PrometheusSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return s.open()
}

// WriteTextfile writes every metric in the sink's registry to path in the
// text exposition format, atomically.
//
// Outputs:
//   - error: ErrNotGatherer if the registry is not a prometheus.Gatherer,
//     or the write error.
func (s *PrometheusSink) WriteTextfile(path string) error {
	gatherer, ok := s.registry.(prometheus.Gatherer)
	if !ok {
		return ErrNotGatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}

// Close unregisters all metrics. Idempotent.
func (s *PrometheusSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if reg, ok := s.registry.(*prometheus.Registry); ok {
		for _, c := range s.collectors {
			reg.Unregister(c)
		}
	}
	return nil
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Verify interface compliance at compile time.
var _ Sink = (*PrometheusSink)(nil)
