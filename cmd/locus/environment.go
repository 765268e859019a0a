package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/locuscode/locus/internal/observability"
)

// environment bundles the ambient collaborators every subcommand shares:
// the process logger, the metrics registry, and the tracer's shutdown
// hook. Built once in main and bound into each Cmd's Run via kong.
type environment struct {
	logger   *slog.Logger
	metrics  *observability.Metrics
	exporter *observability.DebugExporter

	shutdownTracer func(context.Context) error
	metricsSrv     *http.Server
}

func newEnvironment(logLevel, logFormat string, serveMetrics bool, metricsAddr string, trace bool) *environment {
	logger := observability.Init(observability.ParseLevel(logLevel), os.Stderr, logFormat)
	metrics := observability.NewMetrics()
	shutdown, exporter := observability.InitTracer(observability.TracingConfig{
		Enabled:     trace,
		ServiceName: "locus",
	})

	env := &environment{
		logger:         logger,
		metrics:        metrics,
		exporter:       exporter,
		shutdownTracer: shutdown,
	}

	if serveMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		env.metricsSrv = srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	return env
}

// shutdown drains the tracer and stops the metrics server, if either was
// started. Safe to call on a zero-effort environment (trace/metrics off).
func (e *environment) shutdown() {
	if e.metricsSrv != nil {
		_ = e.metricsSrv.Close()
	}
	if e.shutdownTracer != nil {
		_ = e.shutdownTracer(context.Background())
	}
}
