// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package correctness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/telemetry"
)

const tracerName = "scholarbench.eval.correctness"

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrVerificationFailed indicates that one or more properties failed.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrNoProperties indicates that the algorithm has no properties to verify.
	ErrNoProperties = errors.New("algorithm has no properties")

	// ErrNoGenerator indicates that a property has no generator.
	ErrNoGenerator = errors.New("property has no generator")
)

// -----------------------------------------------------------------------------
// Verifier Options
// -----------------------------------------------------------------------------

// VerifyOption configures verification behavior.
type VerifyOption func(*verifyConfig)

type verifyConfig struct {
	iterations      int
	timeout         time.Duration
	propertyTimeout time.Duration
	stopOnFailure   bool
	tags            []string
	logger          *slog.Logger
	sink            telemetry.Sink
	inputs          InputSource
}

func defaultConfig() *verifyConfig {
	return &verifyConfig{
		iterations:      100,
		timeout:         5 * time.Minute,
		propertyTimeout: 30 * time.Second,
	}
}

// WithIterations sets the number of random inputs per property.
// Default is 100.
func WithIterations(n int) VerifyOption {
	return func(c *verifyConfig) {
		if n > 0 {
			c.iterations = n
		}
	}
}

// WithTimeout sets the total verification timeout.
// Default is 5 minutes.
func WithTimeout(d time.Duration) VerifyOption {
	return func(c *verifyConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPropertyTimeout sets the timeout per property.
// Default is 30 seconds.
func WithPropertyTimeout(d time.Duration) VerifyOption {
	return func(c *verifyConfig) {
		if d > 0 {
			c.propertyTimeout = d
		}
	}
}

// WithStopOnFailure causes verification to stop at the first failure.
// Default is false (verify all properties).
func WithStopOnFailure(stop bool) VerifyOption {
	return func(c *verifyConfig) {
		c.stopOnFailure = stop
	}
}

// WithTags filters properties to only those with specified tags.
// If empty, all properties are verified.
func WithTags(tags ...string) VerifyOption {
	return func(c *verifyConfig) {
		c.tags = tags
	}
}

// WithLogger sets the logger for verification progress.
func WithLogger(logger *slog.Logger) VerifyOption {
	return func(c *verifyConfig) {
		c.logger = logger
	}
}

// WithSink reports each algorithm's outcome to s.
func WithSink(s telemetry.Sink) VerifyOption {
	return func(c *verifyConfig) {
		c.sink = s
	}
}

// WithInputs sets the random input source. Default: RandomInputs(0, 64).
func WithInputs(src InputSource) VerifyOption {
	return func(c *verifyConfig) {
		c.inputs = src
	}
}

// -----------------------------------------------------------------------------
// Verifier
// -----------------------------------------------------------------------------

// Verifier runs property-based checks against registered algorithms.
//
// Description:
//
//	For each property of an algorithm the verifier draws random record
//	sets, runs the algorithm on them and checks the invariant. The first
//	failing input of a property is kept in the result.
//
// Thread Safety: Safe for concurrent use.
type Verifier struct {
	registry *eval.Registry
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewVerifier creates a new Verifier.
//
// Inputs:
//   - registry: The algorithms to check. Nil means eval.DefaultRegistry.
//
// Outputs:
//   - *Verifier: The new verifier. Never nil.
//
// Example:
//
//	verifier := correctness.NewVerifier(eval.DefaultRegistry)
//	result, err := verifier.Verify(ctx, "merge")
func NewVerifier(registry *eval.Registry) *Verifier {
	if registry == nil {
		registry = eval.DefaultRegistry
	}
	return &Verifier{
		registry: registry,
		logger:   slog.Default(),
	}
}

// SetLogger sets the logger for the verifier.
//
// Thread Safety: Safe for concurrent use.
func (v *Verifier) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logger = logger
}

func (v *Verifier) loggerFor(config *verifyConfig) *slog.Logger {
	if config.logger != nil {
		return config.logger
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.logger
}

// Verify runs all property checks for one algorithm.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - name: The registered name of the algorithm.
//   - opts: Optional configuration options.
//
// Outputs:
//   - *eval.VerifyResult: The verification results.
//   - error: Non-nil if verification could not be performed (not if
//     properties fail).
//
// Example:
//
//	result, err := verifier.Verify(ctx, "selection",
//	    correctness.WithIterations(500),
//	    correctness.WithStopOnFailure(true),
//	)
//	if err != nil {
//	    return err
//	}
//	for _, pr := range result.FailedProperties() {
//	    log.Printf("property %s failed: %v", pr.Name, pr.Error)
//	}
func (v *Verifier) Verify(ctx context.Context, name string, opts ...VerifyOption) (*eval.VerifyResult, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}

	algorithm, ok := v.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", eval.ErrNotFound, name)
	}

	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	logger := v.loggerFor(config)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "correctness.Verifier.Verify",
		trace.WithAttributes(
			attribute.String("verify.algorithm", name),
			attribute.String("verify.kind", algorithm.Kind().String()),
			attribute.Int("verify.iterations", config.iterations),
		),
	)
	defer span.End()

	properties, err := PropertiesFor(algorithm, config.inputs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no properties")
		return nil, fmt.Errorf("%w: %w", ErrNoProperties, err)
	}
	if len(config.tags) > 0 {
		properties = filterByTags(properties, config.tags)
	}
	if len(properties) == 0 {
		span.SetStatus(codes.Error, "no properties")
		return nil, fmt.Errorf("%w: %s (tags %v)", ErrNoProperties, name, config.tags)
	}

	logger.Debug("starting verification",
		slog.String("algorithm", name),
		slog.Int("properties", len(properties)),
		slog.Int("iterations", config.iterations),
	)

	ctx, cancel := context.WithTimeout(ctx, config.timeout)
	defer cancel()

	start := time.Now()
	result := &eval.VerifyResult{
		Algorithm:  name,
		Kind:       algorithm.Kind(),
		Properties: make([]eval.PropertyResult, 0, len(properties)),
		Passed:     true,
	}

	for _, prop := range properties {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			span.RecordError(err)
			span.SetStatus(codes.Error, "verification interrupted")
			return result, err
		}

		pr := verifyProperty(ctx, prop, config)
		result.Properties = append(result.Properties, pr)
		result.Iterations += pr.Iterations

		if !pr.Passed {
			result.Passed = false
			logger.Warn("property failed",
				slog.String("algorithm", name),
				slog.String("property", pr.Name),
				slog.Int("iteration", pr.Iterations),
				slog.String("error", errorString(pr.Error)),
			)
			if config.stopOnFailure {
				break
			}
		}
	}
	result.Duration = time.Since(start)

	failed := len(result.FailedProperties())
	span.SetAttributes(
		attribute.Bool("verify.passed", result.Passed),
		attribute.Int("verify.failed", failed),
		attribute.Int("verify.total_iterations", result.Iterations),
	)
	if result.Passed {
		span.SetStatus(codes.Ok, "all properties held")
	} else {
		span.SetStatus(codes.Error, "property failures")
	}

	if config.sink != nil {
		if err := config.sink.RecordVerification(ctx, &telemetry.VerificationData{
			Algorithm:  name,
			Kind:       algorithm.Kind().String(),
			Passed:     result.Passed,
			Properties: len(result.Properties),
			Failed:     failed,
			Iterations: result.Iterations,
			Duration:   result.Duration,
		}); err != nil {
			logger.Warn("telemetry sink rejected verification", slog.String("error", err.Error()))
		}
	}

	logger.Debug("verification finished",
		slog.String("algorithm", name),
		slog.Bool("passed", result.Passed),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// VerifyAll runs property checks for every registered algorithm, in name
// order.
//
// Outputs:
//   - []*eval.VerifyResult: Results for every algorithm that could be
//     verified.
//   - error: The context error if cancelled; otherwise
//     ErrVerificationFailed when any algorithm failed a property.
//
// Example:
//
//	results, err := verifier.VerifyAll(ctx, correctness.WithIterations(1000))
func (v *Verifier) VerifyAll(ctx context.Context, opts ...VerifyOption) ([]*eval.VerifyResult, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}

	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	logger := v.loggerFor(config)

	names := v.registry.List()
	results := make([]*eval.VerifyResult, 0, len(names))
	var failed []string

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := v.Verify(ctx, name, opts...)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return results, err
			}
			logger.Warn("verification skipped",
				slog.String("algorithm", name),
				slog.String("error", err.Error()),
			)
			continue
		}

		results = append(results, result)
		if !result.Passed {
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		return results, fmt.Errorf("%w: %v", ErrVerificationFailed, failed)
	}
	return results, nil
}

// verifyProperty checks a single property over config.iterations inputs.
func verifyProperty(ctx context.Context, prop eval.Property, config *verifyConfig) eval.PropertyResult {
	start := time.Now()

	result := eval.PropertyResult{
		Name:   prop.Name,
		Passed: true,
	}

	if err := prop.Validate(); err != nil {
		result.Passed = false
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	if !prop.HasGenerator() {
		result.Passed = false
		result.Error = fmt.Errorf("%w: %s", ErrNoGenerator, prop.Name)
		result.Duration = time.Since(start)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, config.propertyTimeout)
	defer cancel()

	for i := 0; i < config.iterations; i++ {
		if err := ctx.Err(); err != nil {
			result.Iterations = i
			result.Passed = false
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}

		input := prop.Generator()
		if err := prop.Check(input, nil); err != nil {
			result.Passed = false
			result.FailingInput = input
			result.Error = err
			result.Iterations = i + 1
			result.Duration = time.Since(start)
			return result
		}
		result.Iterations = i + 1
	}

	result.Duration = time.Since(start)
	return result
}

// filterByTags filters properties to only those with at least one specified tag.
func filterByTags(properties []eval.Property, tags []string) []eval.Property {
	var filtered []eval.Property
	for _, prop := range properties {
		for _, tag := range tags {
			if prop.HasTag(tag) {
				filtered = append(filtered, prop)
				break
			}
		}
	}
	return filtered
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
