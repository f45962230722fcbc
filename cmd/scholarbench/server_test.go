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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
)

func newServerApp(t *testing.T) *app {
	t.Helper()
	a, _ := newTestApp(t)
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scholarbench_test_total",
		Help: "Test counter.",
	}))
	return a
}

func get(t *testing.T, a *app, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	a.router().ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	a := newServerApp(t)
	w := get(t, a, "/healthz")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRouter_Metrics(t *testing.T) {
	a := newServerApp(t)
	w := get(t, a, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scholarbench_test_total 0")
}

func TestRouter_Algorithms(t *testing.T) {
	a := newServerApp(t)
	w := get(t, a, "/v1/algorithms")

	require.Equal(t, http.StatusOK, w.Code)
	var infos []algorithmInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 4)
	assert.Equal(t, "binary", infos[0].Name)
	assert.Equal(t, 30, infos[3].SizeCap, "selection cap comes from the config")
}

func TestRouter_Sweeps(t *testing.T) {
	a := newServerApp(t)

	w := get(t, a, "/v1/sweeps")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	a.saveSweep(&benchmark.SweepResult{
		RunID:     "feedbeef-0001",
		StartedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		Sizes:     []int{10},
		Order:     []string{"merge"},
	})

	w = get(t, a, "/v1/sweeps?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "feedbeef-0001", summaries[0].RunID)

	w = get(t, a, "/v1/sweeps/feed")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"feedbeef-0001"`)

	w = get(t, a, "/v1/sweeps/0000")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "sweep not found")

	w = get(t, a, "/v1/sweeps?limit=many")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_HistoryDisabled(t *testing.T) {
	a := newServerApp(t)
	a.cfg.History.Enabled = false

	w := get(t, a, "/v1/sweeps")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = get(t, a, "/v1/sweeps/abc")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	captureUX(t)
	a := newServerApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, a, "127.0.0.1:0", ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunServe_BadAddress(t *testing.T) {
	captureUX(t)
	a := newServerApp(t)
	err := runServe(context.Background(), a, "256.0.0.1:bad", nil)
	assert.ErrorContains(t, err, "listening on")
}
