// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AleutianAI/scholarbench/cmd/scholarbench/config"
	"github.com/AleutianAI/scholarbench/pkg/logging"
	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/dataset"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/telemetry"
	"github.com/AleutianAI/scholarbench/services/scholar/history"
)

// shutdownTimeout bounds teardown of exporters and the metrics server.
const shutdownTimeout = 5 * time.Second

// ErrHistoryDisabled is returned by history commands when history.enabled
// is false.
var ErrHistoryDisabled = errors.New("sweep history is disabled (history.enabled: false)")

// options are the persistent flags shared by every command.
type options struct {
	configPath     string
	personality    string
	logLevel       string
	traceExporter  string
	metricExporter string
	metricsFile    string
	listenAddr     string
	seed           uint64
	jsonOut        bool
}

// app is the per-invocation runtime: configuration, logger and telemetry.
//
// setup runs once before the command, teardown always runs after it, even
// when the command failed.
type app struct {
	opts    *options
	version string

	cfg        *config.ScholarConfig
	configPath string
	logger     *logging.Logger
	registry   *prometheus.Registry
	prom       *telemetry.PrometheusSink
	sink       telemetry.Sink
	server     *http.Server
	shutdown   func(context.Context) error
	store      *history.Store
	storeMu    sync.Mutex

	// pending holds a configuration reloaded from disk, applied by the
	// menu between actions.
	pending atomic.Pointer[config.ScholarConfig]

	// prompter is replaced in tests.
	prompter ux.Prompter
}

func newApp(version string) *app {
	return &app{
		opts:    &options{},
		version: version,
	}
}

// setup loads configuration and starts logging and telemetry.
func (a *app) setup(ctx context.Context) error {
	path := a.opts.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, created, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.configPath = path
	if err := a.applyOverrides(); err != nil {
		return err
	}

	switch {
	case a.opts.jsonOut:
		ux.SetPersonalityLevel(ux.PersonalityMachine)
	case a.opts.personality != "":
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(a.opts.personality))
	default:
		ux.InitPersonality(cfg.UI.Personality)
	}

	a.logger = logging.New(cfg.Logging.LoggerConfig())
	if created {
		a.logger.Info("created default config", "path", path)
	}
	a.logger.Debug("configuration loaded",
		"path", path,
		"trace_exporter", cfg.Telemetry.TraceExporter,
		"metric_exporter", cfg.Telemetry.MetricExporter,
	)

	return a.startTelemetry(ctx)
}

// applyOverrides folds the persistent flags into the loaded config.
func (a *app) applyOverrides() error {
	t := &a.cfg.Telemetry
	if a.opts.traceExporter != "" {
		t.TraceExporter = a.opts.traceExporter
	}
	if a.opts.metricExporter != "" {
		t.MetricExporter = a.opts.metricExporter
	}
	if a.opts.metricsFile != "" {
		t.TextfilePath = a.opts.metricsFile
	}
	if a.opts.listenAddr != "" {
		t.ListenAddr = a.opts.listenAddr
	}
	if a.opts.logLevel != "" {
		a.cfg.Logging.Level = a.opts.logLevel
	}
	if a.opts.seed != 0 {
		a.cfg.Dataset.Seed = a.opts.seed
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}

func (a *app) startTelemetry(ctx context.Context) error {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector())

	pc := a.cfg.Telemetry.ProviderConfig(a.version)
	pc.Registerer = a.registry
	shutdown, err := telemetry.Init(ctx, pc)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	a.shutdown = shutdown

	promCfg := telemetry.DefaultPrometheusConfig()
	promCfg.Registry = a.registry
	prom, err := telemetry.NewPrometheusSink(promCfg)
	if err != nil {
		return fmt.Errorf("starting prometheus sink: %w", err)
	}
	a.prom = prom

	otelCfg := telemetry.DefaultOTelConfig()
	otelCfg.ServiceVersion = a.version
	otelCfg.TraceEnabled = a.cfg.Telemetry.TraceExporter != telemetry.ExporterNone
	otelCfg.MetricsEnabled = a.cfg.Telemetry.MetricExporter != telemetry.ExporterNone
	otelSink, err := telemetry.NewOTelSink(otelCfg)
	if err != nil {
		return fmt.Errorf("starting otel sink: %w", err)
	}

	sinks := []telemetry.Sink{prom, otelSink}
	if ic := a.cfg.Telemetry.Influx; ic.Enabled {
		influx, err := telemetry.NewInfluxSink(ic.SinkConfig())
		if err != nil {
			return fmt.Errorf("starting influx sink: %w", err)
		}
		sinks = append(sinks, influx)
		a.logger.Debug("influx sink enabled", "url", ic.URL, "bucket", ic.Bucket)
	}

	a.sink, err = telemetry.NewCompositeSink(sinks...)
	if err != nil {
		return err
	}

	if addr := a.cfg.Telemetry.ListenAddr; addr != "" {
		if err := a.serveMetrics(addr); err != nil {
			return err
		}
	}
	return nil
}

// serveMetrics exposes the registry on addr/metrics while the command runs.
func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	a.server = &http.Server{Handler: a.router(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

// teardown flushes telemetry, writes the metrics textfile and closes the
// logger. Safe to call after a partial setup.
func (a *app) teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.sink != nil {
		if err := a.sink.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.prom != nil && a.cfg.Telemetry.TextfilePath != "" {
		path := expandHome(a.cfg.Telemetry.TextfilePath)
		if err := a.prom.WriteTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics textfile: %w", err))
		} else if a.logger != nil {
			a.logger.Debug("metrics written", "path", path)
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing history: %w", err))
		}
		a.store = nil
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// slog returns the command logger, or the default before setup.
func (a *app) slog() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger.Slog()
}

// generator builds a dataset generator from the config.
func (a *app) generator() (*dataset.Generator, error) {
	return dataset.New(a.cfg.Dataset)
}

// runner builds a benchmark runner from the config plus extra options.
func (a *app) runner(gen benchmark.Generator, extra ...benchmark.RunOption) *benchmark.Runner {
	opts := []benchmark.RunOption{
		benchmark.WithConfig(&a.cfg.Benchmark),
		benchmark.WithGenerator(gen),
		benchmark.WithSink(a.sink),
		benchmark.WithLogger(a.slog()),
	}
	return benchmark.NewRunner(append(opts, extra...)...)
}

// history opens the sweep history store on first use.
func (a *app) history() (*history.Store, error) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	if a.store != nil {
		return a.store, nil
	}
	if !a.cfg.History.Enabled {
		return nil, ErrHistoryDisabled
	}
	cfg := history.DefaultConfig(expandHome(a.cfg.History.Dir))
	cfg.Logger = a.slog()
	store, err := history.Open(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// saveSweep records r in the history when it is enabled. Failures are
// logged, never returned: a finished sweep is still worth printing.
func (a *app) saveSweep(r *benchmark.SweepResult) {
	if r == nil || !a.cfg.History.Enabled {
		return
	}
	store, err := a.history()
	if err == nil {
		err = store.Save(r)
	}
	if err != nil {
		a.logger.Warn("sweep not saved to history", "run_id", r.RunID, "error", err)
		return
	}
	a.logger.Debug("sweep saved to history", "run_id", r.RunID)
}

// prompt returns the interactive prompter.
func (a *app) prompt() ux.Prompter {
	if a.prompter == nil {
		a.prompter = ux.NewFormPrompter()
	}
	return a.prompter
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
