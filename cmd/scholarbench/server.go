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
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/history"
)

// serviceName is the otelgin server name on request spans.
const serviceName = "scholarbench"

// defaultListLimit caps GET /v1/sweeps without a limit parameter.
const defaultListLimit = 20

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// router builds the HTTP surface shared by --listen and `serve`:
// Prometheus metrics, health, the algorithm table and the sweep history.
func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(a.requestLogger())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	r.GET("/healthz", a.handleHealth)

	v1 := r.Group("/v1")
	v1.GET("/algorithms", a.handleAlgorithms)
	v1.GET("/sweeps", a.handleListSweeps)
	v1.GET("/sweeps/:id", a.handleGetSweep)
	return r
}

// requestLogger logs each request at debug level through the app logger.
func (a *app) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.slog().Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (a *app) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": a.version})
}

func (a *app) handleAlgorithms(c *gin.Context) {
	c.JSON(http.StatusOK, a.listAlgorithms())
}

func (a *app) handleListSweeps(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = n
	}
	store, err := a.history()
	if err != nil {
		a.abortHistory(c, err)
		return
	}
	summaries, err := store.List(limit)
	if err != nil {
		a.abortHistory(c, err)
		return
	}
	if summaries == nil {
		summaries = []history.Summary{}
	}
	c.JSON(http.StatusOK, summaries)
}

func (a *app) handleGetSweep(c *gin.Context) {
	store, err := a.history()
	if err != nil {
		a.abortHistory(c, err)
		return
	}
	sweep, err := store.Get(c.Param("id"))
	if err != nil {
		a.abortHistory(c, err)
		return
	}
	c.JSON(http.StatusOK, sweep)
}

// abortHistory maps history errors to status codes.
func (a *app) abortHistory(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrHistoryDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, history.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, history.ErrAmbiguous):
		status = http.StatusConflict
	default:
		a.slog().Error("history request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics, algorithms and sweep history over HTTP until interrupted",
		Example: `  scholarbench serve
  scholarbench serve --addr 0.0.0.0:9464
  curl localhost:9464/v1/sweeps?limit=5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return runServe(cmd.Context(), a, addr, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}

// runServe serves the router on addr until ctx is done. ready, when not
// nil, receives the bound address once the listener is open.
func runServe(ctx context.Context, a *app, addr string, ready chan<- string) error {
	if a.cfg.History.Enabled {
		// Fail before listening when the store is locked by another process.
		if _, err := a.history(); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           a.router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
	}

	bound := ln.Addr().String()
	a.logger.Info("serving", "addr", bound, "history", a.cfg.History.Enabled)
	ux.Success(fmt.Sprintf("Serving on http://%s (Ctrl+C to stop)", bound))
	if ready != nil {
		ready <- bound
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
