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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func sample(algorithm, kind string, size int) *MeasurementData {
	return &MeasurementData{
		RunID:      "run-1",
		Algorithm:  algorithm,
		Kind:       kind,
		Size:       size,
		Elapsed:    3 * time.Millisecond,
		AllocBytes: 4096,
		Timestamp:  time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Prometheus
// -----------------------------------------------------------------------------

func newPromSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := DefaultPrometheusConfig()
	cfg.Registry = reg
	sink, err := NewPrometheusSink(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink, reg
}

func TestNewPrometheusSink_InvalidConfig(t *testing.T) {
	_, err := NewPrometheusSink(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultPrometheusConfig()
	cfg.Namespace = ""
	_, err = NewPrometheusSink(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPrometheusSink_RecordMeasurement(t *testing.T) {
	sink, reg := newPromSink(t)
	ctx := context.Background()

	require.NoError(t, sink.RecordMeasurement(ctx, sample("merge", "sort", 100)))
	require.NoError(t, sink.RecordMeasurement(ctx, sample("merge", "sort", 500)))

	search := sample("binary", "search", 100)
	search.Steps = 7
	require.NoError(t, sink.RecordMeasurement(ctx, search))

	skipped := sample("selection", "sort", 5000)
	skipped.Skipped = true
	skipped.Elapsed = -1
	require.NoError(t, sink.RecordMeasurement(ctx, skipped))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.measureTotal.WithLabelValues("merge", "sort", "measured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.measureTotal.WithLabelValues("selection", "sort", "skipped")))
	assert.InDelta(t, 0.003, testutil.ToFloat64(sink.lastDuration.WithLabelValues("merge", "sort", "500")), 1e-9)

	// The skipped sample must not create a duration series.
	assert.Equal(t, 3, testutil.CollectAndCount(sink.measureDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.measureSteps))

	n, err := testutil.GatherAndCount(reg, "scholarbench_eval_measurement_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPrometheusSink_SweepVerificationError(t *testing.T) {
	sink, _ := newPromSink(t)
	ctx := context.Background()

	require.NoError(t, sink.RecordSweep(ctx, &SweepData{RunID: "r", Sizes: 5, Duration: time.Second}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.sweepsTotal))

	require.NoError(t, sink.RecordVerification(ctx, &VerificationData{Algorithm: "merge", Kind: "sort", Passed: false, Failed: 2}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.verifyTotal.WithLabelValues("merge", "sort", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.verifyFailed.WithLabelValues("merge", "sort")))

	require.NoError(t, sink.RecordError(ctx, &ErrorData{Component: "benchmark"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.errorsTotal.WithLabelValues("benchmark", "unknown", "unknown")))
}

func TestPrometheusSink_ArgumentsAndClose(t *testing.T) {
	sink, _ := newPromSink(t)

	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, sink.RecordMeasurement(nil, sample("m", "sort", 1)), ErrNilContext)
	assert.ErrorIs(t, sink.RecordMeasurement(context.Background(), nil), ErrNilData)
	assert.NoError(t, sink.Flush(context.Background()))

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "close is idempotent")
	assert.ErrorIs(t, sink.RecordSweep(context.Background(), &SweepData{}), ErrSinkClosed)
	assert.ErrorIs(t, sink.Flush(context.Background()), ErrSinkClosed)
}

func TestPrometheusSink_WriteTextfile(t *testing.T) {
	sink, _ := newPromSink(t)
	require.NoError(t, sink.RecordMeasurement(context.Background(), sample("linear", "search", 100)))

	path := filepath.Join(t.TempDir(), "scholarbench.prom")
	require.NoError(t, sink.WriteTextfile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `scholarbench_eval_measurements_total{algorithm="linear",kind="search",outcome="measured"} 1`)
}

// -----------------------------------------------------------------------------
// OpenTelemetry
// -----------------------------------------------------------------------------

func TestOTelSink_RecordsSpansAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	cfg := DefaultOTelConfig()
	cfg.TracerProvider = tp
	cfg.MeterProvider = mp
	sink, err := NewOTelSink(cfg)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.RecordMeasurement(ctx, sample("merge", "sort", 100)))
	require.NoError(t, sink.RecordSweep(ctx, &SweepData{RunID: "r", Sizes: 1}))
	require.NoError(t, sink.RecordVerification(ctx, &VerificationData{Algorithm: "merge", Kind: "sort"}))

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "measurement.record", spans[0].Name())
	assert.Equal(t, "sweep.record", spans[1].Name())
	assert.Equal(t, "verification.record", spans[2].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["scholarbench.measurement.duration"])
	assert.True(t, names["scholarbench.measurements"])
	assert.True(t, names["scholarbench.verifications"])
}

func TestOTelSink_Closed(t *testing.T) {
	sink, err := NewOTelSink(DefaultOTelConfig())
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.RecordError(context.Background(), &ErrorData{}), ErrSinkClosed)

	_, err = NewOTelSink(&OTelConfig{})
	assert.ErrorIs(t, err, ErrInvalidOTelConfig)
}

// -----------------------------------------------------------------------------
// Composite and no-op
// -----------------------------------------------------------------------------

type failingSink struct{ NoOpSink }

func (failingSink) RecordMeasurement(context.Context, *MeasurementData) error {
	return errors.New("boom")
}

func TestCompositeSink(t *testing.T) {
	_, err := NewCompositeSink()
	assert.ErrorIs(t, err, ErrNoSinks)
	_, err = NewCompositeSink(nil, nil)
	assert.ErrorIs(t, err, ErrNoSinks)

	prom, _ := newPromSink(t)
	composite, err := NewCompositeSink(&failingSink{}, prom)
	require.NoError(t, err)

	err = composite.RecordMeasurement(context.Background(), sample("merge", "sort", 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.measureTotal.WithLabelValues("merge", "sort", "measured")),
		"one failing child must not starve the others")

	require.NoError(t, composite.Close())
	assert.ErrorIs(t, composite.Flush(context.Background()), ErrSinkClosed)
	assert.ErrorIs(t, prom.Flush(context.Background()), ErrSinkClosed, "children are closed too")
}

func TestNoOpSink(t *testing.T) {
	n := NewNoOpSink()
	ctx := context.Background()
	assert.NoError(t, n.RecordMeasurement(ctx, &MeasurementData{}))
	assert.ErrorIs(t, n.RecordSweep(ctx, nil), ErrNilData)
	assert.NoError(t, n.Close())
}

// -----------------------------------------------------------------------------
// Providers
// -----------------------------------------------------------------------------

func TestInit_None(t *testing.T) {
	shutdown, err := Init(context.Background(), DefaultProviderConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_StdoutTrace(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultProviderConfig()
	cfg.TraceExporter = ExporterStdout
	cfg.Writer = &buf

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)

	sink, err := NewOTelSink(&OTelConfig{ServiceName: "test", TraceEnabled: true})
	require.NoError(t, err)
	require.NoError(t, sink.RecordSweep(context.Background(), &SweepData{RunID: "abc"}))

	require.NoError(t, shutdown(context.Background()))
	assert.True(t, strings.Contains(buf.String(), "sweep.record"), "span should be exported on shutdown")
}

func TestInit_PrometheusBridge(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultProviderConfig()
	cfg.MetricExporter = ExporterPrometheus
	cfg.Registerer = reg

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	defer shutdown(context.Background())

	sink, err := NewOTelSink(&OTelConfig{ServiceName: "test", MetricsEnabled: true})
	require.NoError(t, err)
	require.NoError(t, sink.RecordMeasurement(context.Background(), sample("merge", "sort", 10)))

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "scholarbench_measurements") {
			found = true
		}
	}
	assert.True(t, found, "bridged otel counter should be gathered from the registry")
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := DefaultProviderConfig()
	cfg.TraceExporter = "zipkin"
	_, err := Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)

	cfg = DefaultProviderConfig()
	cfg.MetricExporter = "statsd"
	_, err = Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}
