// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exports benchmark and verification results.
//
// # Sinks
//
//   - PrometheusSink: client_golang collectors in a private registry,
//     written out with WriteTextfile or served over HTTP
//   - OTelSink: spans and instruments through the OpenTelemetry API
//   - InfluxSink: one InfluxDB point per measurement, written in batches
//   - CompositeSink: fan-out to several sinks
//   - NoOpSink: the default
//
// # Providers
//
// Init installs the global OpenTelemetry providers (stdout or OTLP traces,
// stdout or Prometheus-bridged metrics). The benchmark runner and the
// verifier create their own spans through otel.Tracer, so they show up
// as soon as a trace exporter is installed, with or without an OTelSink.
package telemetry
