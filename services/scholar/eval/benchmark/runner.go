// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package benchmark

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/scholarbench/services/scholar/dataset"
	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/telemetry"
	"github.com/AleutianAI/scholarbench/services/scholar/policy"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

const tracerName = "scholarbench.eval.benchmark"

// Generator produces a fresh dataset of n records.
// *dataset.Generator satisfies it.
type Generator interface {
	Generate(n int) []record.Record
}

// -----------------------------------------------------------------------------
// Runner Options
// -----------------------------------------------------------------------------

// RunOption configures a Runner. Options are applied in order, so later
// options override earlier ones.
type RunOption func(*Runner)

// WithConfig replaces the whole sweep configuration. A nil config is
// ignored.
func WithConfig(cfg *Config) RunOption {
	return func(r *Runner) {
		if cfg != nil {
			c := *cfg
			c.Sizes = slices.Clone(cfg.Sizes)
			r.config = &c
		}
	}
}

// WithSizes sets the dataset sizes visited by the sweep.
//
// Example:
//
//	runner := benchmark.NewRunner(benchmark.WithSizes(100, 1000, 10000))
func WithSizes(sizes ...int) RunOption {
	return func(r *Runner) {
		if len(sizes) > 0 {
			r.config.Sizes = slices.Clone(sizes)
		}
	}
}

// WithSizeCap stops running algorithm at sizes >= limit. A limit <= 0
// removes the cap.
func WithSizeCap(algorithm string, limit int) RunOption {
	return func(r *Runner) {
		caps := make(map[string]int, len(r.config.SizeCaps)+1)
		for k, v := range r.config.SizeCaps {
			caps[k] = v
		}
		if limit <= 0 {
			delete(caps, algorithm)
		} else {
			caps[algorithm] = limit
		}
		r.config.SizeCaps = caps
	}
}

// WithRepeats takes every measurement n times and keeps the median.
// Non-positive values are ignored.
func WithRepeats(n int) RunOption {
	return func(r *Runner) {
		if n > 0 {
			r.config.Repeats = n
		}
	}
}

// WithMemoryCollection toggles the MemoryTracking meter. It has no effect
// when WithMeter is also given.
func WithMemoryCollection(enabled bool) RunOption {
	return func(r *Runner) {
		r.config.CollectMemory = enabled
	}
}

// WithMeter sets an explicit meter, overriding WithMemoryCollection.
func WithMeter(m Meter) RunOption {
	return func(r *Runner) {
		if m != nil {
			r.meter = m
		}
	}
}

// WithGenerator sets the dataset source.
func WithGenerator(g Generator) RunOption {
	return func(r *Runner) {
		if g != nil {
			r.generator = g
		}
	}
}

// WithSorters sets the sorters to sweep. Default: every sorter in
// eval.DefaultRegistry.
func WithSorters(sorters ...sorter.Sorter) RunOption {
	return func(r *Runner) {
		r.sorters = slices.Clone(sorters)
	}
}

// WithSearchers sets the searchers to sweep. Default: every searcher in
// eval.DefaultRegistry.
func WithSearchers(searchers ...searcher.Searcher) RunOption {
	return func(r *Runner) {
		r.searchers = slices.Clone(searchers)
	}
}

// WithSink sets where samples are reported. Default: telemetry.NoOpSink.
func WithSink(s telemetry.Sink) RunOption {
	return func(r *Runner) {
		if s != nil {
			r.sink = s
		}
	}
}

// ProgressFunc is told after each size completes: completed sizes so far,
// the total, and the size just measured.
type ProgressFunc func(completed, total, size int)

// WithProgress registers a callback invoked after each size.
func WithProgress(fn ProgressFunc) RunOption {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithLogger sets the runner's logger. Nil is ignored.
func WithLogger(logger *slog.Logger) RunOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Runner executes benchmark sweeps.
//
// Description:
//
//	A sweep visits each configured size in order. At every size it builds
//	a fresh dataset, times each sorter on it, then times each searcher on
//	a worst-case target (the id of the last record). Searchers that need
//	id order get an id-sorted copy that is built outside the timed window.
//	The dataset is dropped before the next size is generated.
//
// Thread Safety: A Runner may be shared, but Sweep calls do not run in
// parallel with each other in any meaningful sense: timings from
// concurrent sweeps disturb each other.
type Runner struct {
	config    *Config
	meter     Meter
	generator Generator
	sorters   []sorter.Sorter
	searchers []searcher.Searcher
	sink      telemetry.Sink
	progress  ProgressFunc
	logger    *slog.Logger
}

// NewRunner creates a runner with the default sweep.
//
// Example:
//
//	runner := benchmark.NewRunner(
//	    benchmark.WithSizes(100, 500),
//	    benchmark.WithLogger(logger.Slog()),
//	)
//	result, err := runner.Sweep(ctx)
func NewRunner(opts ...RunOption) *Runner {
	r := &Runner{
		config:    DefaultConfig(),
		sorters:   eval.DefaultRegistry.Sorters(),
		searchers: eval.DefaultRegistry.Searchers(),
		sink:      telemetry.NewNoOpSink(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.generator == nil {
		r.generator = dataset.MustNew(dataset.DefaultConfig())
	}
	return r
}

// Config returns a copy of the runner's sweep configuration.
func (r *Runner) Config() Config {
	c := *r.config
	c.Sizes = slices.Clone(r.config.Sizes)
	return c
}

func (r *Runner) activeMeter() Meter {
	if r.meter != nil {
		return r.meter
	}
	if r.config.CollectMemory {
		return MemoryTracking{}
	}
	return WallClock{}
}

// Sweep runs the benchmark across every configured size.
//
// Description:
//
//	Sizes are processed sequentially. An algorithm whose size cap is
//	reached is recorded as a skipped sample rather than run. The context
//	is checked between measurements; a running algorithm is never
//	interrupted.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//
// Outputs:
//   - *SweepResult: The samples. On cancellation, holds the sizes that
//     finished before it.
//   - error: ErrInvalidConfig, ErrNoAlgorithms, or the context error.
//
// Example:
//
//	result, err := runner.Sweep(ctx)
//	if err != nil {
//	    return fmt.Errorf("sweep: %w", err)
//	}
//	for _, row := range result.Rows() {
//	    fmt.Println(row.Size, row.Samples["merge"].Elapsed)
//	}
func (r *Runner) Sweep(ctx context.Context) (*SweepResult, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "benchmark.Runner.Sweep")
	defer span.End()

	if err := r.config.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid config")
		return nil, fmt.Errorf("validating config: %w", errors.Join(ErrInvalidConfig, err))
	}
	if len(r.sorters) == 0 && len(r.searchers) == 0 {
		span.SetStatus(codes.Error, "no algorithms")
		return nil, ErrNoAlgorithms
	}

	sorters := slices.Clone(r.sorters)
	slices.SortFunc(sorters, func(a, b sorter.Sorter) int { return cmp.Compare(a.Name(), b.Name()) })
	searchers := slices.Clone(r.searchers)
	slices.SortFunc(searchers, func(a, b searcher.Searcher) int { return cmp.Compare(a.Name(), b.Name()) })

	order := make([]string, 0, len(sorters)+len(searchers))
	for _, s := range sorters {
		order = append(order, s.Name())
	}
	for _, s := range searchers {
		order = append(order, s.Name())
	}

	started := time.Now()
	result := newSweepResult(uuid.NewString(), started, order)

	span.SetAttributes(
		attribute.String("benchmark.run_id", result.RunID),
		attribute.IntSlice("benchmark.sizes", r.config.Sizes),
		attribute.Int("benchmark.repeats", r.config.Repeats),
		attribute.StringSlice("benchmark.algorithms", order),
	)

	r.logger.Info("benchmark sweep started",
		slog.String("run_id", result.RunID),
		slog.Any("sizes", r.config.Sizes),
		slog.Any("algorithms", order),
		slog.Int("repeats", r.config.Repeats),
	)

	meter := r.activeMeter()
	for _, size := range r.config.Sizes {
		if err := ctx.Err(); err != nil {
			return r.interrupted(ctx, span, result, size, err)
		}
		samples, err := r.runSize(ctx, meter, size, sorters, searchers, result.RunID)
		if err != nil {
			return r.interrupted(ctx, span, result, size, err)
		}
		result.Sizes = append(result.Sizes, size)
		for _, s := range samples {
			result.add(s)
		}
		if r.progress != nil {
			r.progress(len(result.Sizes), len(r.config.Sizes), size)
		}
	}

	result.Duration = time.Since(started)
	measured, skipped := result.Counts()

	if err := r.sink.RecordSweep(ctx, &telemetry.SweepData{
		RunID:        result.RunID,
		Sizes:        len(result.Sizes),
		Measurements: measured,
		Skipped:      skipped,
		Duration:     result.Duration,
		Timestamp:    time.Now(),
	}); err != nil {
		r.logger.Warn("telemetry sink rejected sweep", slog.String("error", err.Error()))
	}

	span.SetAttributes(
		attribute.Int("benchmark.result.measured", measured),
		attribute.Int("benchmark.result.skipped", skipped),
		attribute.Int64("benchmark.result.duration_ns", int64(result.Duration)),
	)
	span.SetStatus(codes.Ok, "sweep completed")

	r.logger.Info("benchmark sweep finished",
		slog.String("run_id", result.RunID),
		slog.Duration("duration", result.Duration),
		slog.Int("measured", measured),
		slog.Int("skipped", skipped),
	)
	return result, nil
}

// interrupted finalizes a sweep that stopped early.
func (r *Runner) interrupted(ctx context.Context, span trace.Span, result *SweepResult, size int, err error) (*SweepResult, error) {
	result.Duration = time.Since(result.StartedAt)
	span.RecordError(err)
	span.SetStatus(codes.Error, "sweep interrupted")
	r.logger.Warn("benchmark sweep interrupted",
		slog.String("run_id", result.RunID),
		slog.Int("size", size),
		slog.Int("completed_sizes", len(result.Sizes)),
		slog.String("error", err.Error()),
	)
	if sinkErr := r.sink.RecordError(context.WithoutCancel(ctx), &telemetry.ErrorData{
		Component: "benchmark",
		Operation: "sweep",
		ErrorType: "interrupted",
		Message:   err.Error(),
		Timestamp: time.Now(),
	}); sinkErr != nil {
		r.logger.Debug("telemetry sink rejected error", slog.String("error", sinkErr.Error()))
	}
	return result, fmt.Errorf("sweep interrupted at size %d: %w", size, err)
}

// runSize benchmarks every algorithm at one dataset size.
func (r *Runner) runSize(ctx context.Context, meter Meter, size int, sorters []sorter.Sorter, searchers []searcher.Searcher, runID string) ([]Sample, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "benchmark.Runner.size",
		trace.WithAttributes(attribute.Int("benchmark.size", size)),
	)
	defer span.End()

	data := r.generator.Generate(size)
	samples := make([]Sample, 0, len(sorters)+len(searchers))

	for _, s := range sorters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var sample Sample
		if !r.config.Applies(s.Name(), size) {
			sample = skippedSample(s.Name(), eval.KindSort, size)
			r.logger.Debug("measurement skipped by size cap",
				slog.String("algorithm", s.Name()),
				slog.Int("size", size),
				slog.Int("cap", r.config.SizeCaps[s.Name()]),
			)
		} else {
			sample = r.repeat(meter, s.Name(), eval.KindSort, size, func(m Meter) (Measurement, searcher.Result) {
				meas, _ := MeasureSort(m, s, data)
				return meas, searcher.Result{}
			})
		}
		r.report(ctx, runID, sample)
		samples = append(samples, sample)
	}

	if len(searchers) > 0 && len(data) > 0 {
		target := data[len(data)-1].ID
		var byID []record.Record
		for _, s := range searchers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !r.config.Applies(s.Name(), size) {
				sample := skippedSample(s.Name(), eval.KindSearch, size)
				r.report(ctx, runID, sample)
				samples = append(samples, sample)
				continue
			}
			input := data
			if s.RequiresSortedByID() {
				if byID == nil {
					byID = policy.SortedByID(data)
				}
				input = byID
			}
			sample := r.repeat(meter, s.Name(), eval.KindSearch, size, func(m Meter) (Measurement, searcher.Result) {
				return MeasureSearch(m, s, input, target)
			})
			if !sample.Found {
				r.logger.Warn("search missed a target known to be present",
					slog.String("algorithm", s.Name()),
					slog.Int("size", size),
					slog.Int("target", target),
				)
			}
			r.report(ctx, runID, sample)
			samples = append(samples, sample)
		}
	}

	r.logger.Debug("benchmark size completed",
		slog.Int("size", size),
		slog.Int("samples", len(samples)),
	)
	return samples, nil
}

// repeat takes Repeats measurements and folds them into one sample.
func (r *Runner) repeat(meter Meter, name string, kind eval.Kind, size int, run func(Meter) (Measurement, searcher.Result)) Sample {
	elapsed := make([]time.Duration, 0, r.config.Repeats)
	sample := Sample{Algorithm: name, Kind: kind, Size: size}
	for i := 0; i < r.config.Repeats; i++ {
		meas, res := run(meter)
		elapsed = append(elapsed, meas.Elapsed)
		sample.AllocBytes = max(sample.AllocBytes, meas.AllocBytes)
		sample.Steps = res.Steps
		sample.Found = res.Found
	}
	sample.Elapsed, _ = Median(elapsed)
	return sample
}

func (r *Runner) report(ctx context.Context, runID string, s Sample) {
	err := r.sink.RecordMeasurement(ctx, &telemetry.MeasurementData{
		RunID:      runID,
		Algorithm:  s.Algorithm,
		Kind:       s.Kind.String(),
		Size:       s.Size,
		Elapsed:    s.Elapsed,
		AllocBytes: s.AllocBytes,
		Steps:      s.Steps,
		Skipped:    s.Skipped,
		Timestamp:  time.Now(),
	})
	if err != nil {
		r.logger.Warn("telemetry sink rejected measurement",
			slog.String("algorithm", s.Algorithm),
			slog.String("error", err.Error()),
		)
	}
}
