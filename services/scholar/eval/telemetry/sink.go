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
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNilContext is returned when a nil context is provided.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilData is returned when nil data is provided to a recording method.
	ErrNilData = errors.New("data must not be nil")

	// ErrSinkClosed is returned when attempting to use a closed sink.
	ErrSinkClosed = errors.New("sink has been closed")

	// ErrNoSinks is returned when creating a composite sink with no children.
	ErrNoSinks = errors.New("at least one sink is required")
)

// -----------------------------------------------------------------------------
// Interface
// -----------------------------------------------------------------------------

// Sink receives evaluation telemetry.
//
// Description:
//
//	The benchmark runner reports one MeasurementData per sample and one
//	SweepData per sweep. The verifier reports one VerificationData per
//	algorithm. Implementations decide the export format.
//
// Thread Safety: All implementations must be safe for concurrent use.
//
// Example:
//
//	sink, _ := telemetry.NewPrometheusSink(telemetry.DefaultPrometheusConfig())
//	defer sink.Close()
//	runner := benchmark.NewRunner(benchmark.WithSink(sink))
type Sink interface {
	// RecordMeasurement records one timed run of one algorithm at one size.
	//
	// Outputs:
	//   - error: Non-nil if recording fails or the sink is closed.
	RecordMeasurement(ctx context.Context, data *MeasurementData) error

	// RecordSweep records the summary of a finished sweep.
	RecordSweep(ctx context.Context, data *SweepData) error

	// RecordVerification records the outcome of verifying one algorithm.
	RecordVerification(ctx context.Context, data *VerificationData) error

	// RecordError records an error event.
	RecordError(ctx context.Context, data *ErrorData) error

	// Flush forces export of any buffered data.
	Flush(ctx context.Context) error

	// Close releases resources. After Close, recording methods return
	// ErrSinkClosed. Idempotent.
	Close() error
}

// -----------------------------------------------------------------------------
// Data Types
// -----------------------------------------------------------------------------

// MeasurementData describes one sample.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type MeasurementData struct {
	// RunID identifies the sweep the sample belongs to. Empty for one-off
	// measurements.
	RunID string

	// Algorithm is the algorithm name, e.g. "merge".
	Algorithm string

	// Kind is "sort" or "search".
	Kind string

	// Size is the dataset size.
	Size int

	// Elapsed is the wall-clock duration. Meaningless when Skipped.
	Elapsed time.Duration

	// AllocBytes is the allocation observed during the run. Zero when
	// memory was not tracked.
	AllocBytes uint64

	// Steps is the comparison count for searches. Zero for sorts.
	Steps int

	// Skipped marks a sample that was not run because of a size cap.
	Skipped bool

	// Timestamp is when the sample was taken.
	Timestamp time.Time
}

// SweepData summarizes a sweep.
type SweepData struct {
	// RunID identifies the sweep.
	RunID string

	// Sizes is the number of dataset sizes visited.
	Sizes int

	// Measurements is the number of samples actually run.
	Measurements int

	// Skipped is the number of samples skipped by size caps.
	Skipped int

	// Duration is the total sweep wall time.
	Duration time.Duration

	// Timestamp is when the sweep finished.
	Timestamp time.Time
}

// VerificationData summarizes the correctness check of one algorithm.
type VerificationData struct {
	// Algorithm is the algorithm name.
	Algorithm string

	// Kind is "sort" or "search".
	Kind string

	// Passed is true if every property held.
	Passed bool

	// Properties is the number of properties checked.
	Properties int

	// Failed is the number of properties that did not hold.
	Failed int

	// Iterations is the total number of checks run.
	Iterations int

	// Duration is the verification wall time.
	Duration time.Duration
}

// ErrorData describes an error event.
type ErrorData struct {
	// Component is where the error happened, e.g. "benchmark".
	Component string

	// Operation is what was being done, e.g. "sweep".
	Operation string

	// ErrorType is a short category used as a metric label.
	ErrorType string

	// Message is the error text.
	Message string

	// Timestamp is when the error occurred.
	Timestamp time.Time
}

// -----------------------------------------------------------------------------
// Composite Sink
// -----------------------------------------------------------------------------

// CompositeSink forwards telemetry to several sinks.
//
// Description:
//
//	One child failing does not stop the others from receiving the data.
//	Errors are joined.
//
// Thread Safety: Safe for concurrent use.
type CompositeSink struct {
	sinks  []Sink
	mu     sync.RWMutex
	closed bool
}

// NewCompositeSink creates a composite over the non-nil sinks given.
//
// Outputs:
//   - *CompositeSink: Never nil on success.
//   - error: ErrNoSinks if no non-nil sink was provided.
func NewCompositeSink(sinks ...Sink) (*CompositeSink, error) {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoSinks
	}
	return &CompositeSink{sinks: valid}, nil
}

// forEach runs fn on every child unless the composite is closed.
func (c *CompositeSink) forEach(ctx context.Context, fn func(Sink) error) error {
	if ctx == nil {
		return ErrNilContext
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrSinkClosed
	}
	sinks := c.sinks
	c.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordMeasurement implements Sink.
func (c *CompositeSink) RecordMeasurement(ctx context.Context, data *MeasurementData) error {
	if data == nil {
		return ErrNilData
	}
	return c.forEach(ctx, func(s Sink) error { return s.RecordMeasurement(ctx, data) })
}

// RecordSweep implements Sink.
func (c *CompositeSink) RecordSweep(ctx context.Context, data *SweepData) error {
	if data == nil {
		return ErrNilData
	}
	return c.forEach(ctx, func(s Sink) error { return s.RecordSweep(ctx, data) })
}

// RecordVerification implements Sink.
func (c *CompositeSink) RecordVerification(ctx context.Context, data *VerificationData) error {
	if data == nil {
		return ErrNilData
	}
	return c.forEach(ctx, func(s Sink) error { return s.RecordVerification(ctx, data) })
}

// RecordError implements Sink.
func (c *CompositeSink) RecordError(ctx context.Context, data *ErrorData) error {
	if data == nil {
		return ErrNilData
	}
	return c.forEach(ctx, func(s Sink) error { return s.RecordError(ctx, data) })
}

// Flush implements Sink.
func (c *CompositeSink) Flush(ctx context.Context) error {
	return c.forEach(ctx, func(s Sink) error { return s.Flush(ctx) })
}

// Close closes every child. Idempotent.
func (c *CompositeSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------
// No-Op Sink
// -----------------------------------------------------------------------------

// NoOpSink accepts and discards everything. It is the runner default.
//
// Thread Safety: Safe for concurrent use.
type NoOpSink struct{}

// NewNoOpSink creates a new no-op sink.
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

// RecordMeasurement discards the data.
func (n *NoOpSink) RecordMeasurement(ctx context.Context, data *MeasurementData) error {
	return checkArgs(ctx, data == nil)
}

// RecordSweep discards the data.
func (n *NoOpSink) RecordSweep(ctx context.Context, data *SweepData) error {
	return checkArgs(ctx, data == nil)
}

// RecordVerification discards the data.
func (n *NoOpSink) RecordVerification(ctx context.Context, data *VerificationData) error {
	return checkArgs(ctx, data == nil)
}

// RecordError discards the data.
func (n *NoOpSink) RecordError(ctx context.Context, data *ErrorData) error {
	return checkArgs(ctx, data == nil)
}

// Flush does nothing.
func (n *NoOpSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// Close does nothing.
func (n *NoOpSink) Close() error {
	return nil
}

func checkArgs(ctx context.Context, nilData bool) error {
	if ctx == nil {
		return ErrNilContext
	}
	if nilData {
		return ErrNilData
	}
	return nil
}

// Verify interface compliance at compile time.
var (
	_ Sink = (*CompositeSink)(nil)
	_ Sink = (*NoOpSink)(nil)
)
