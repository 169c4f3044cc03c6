// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package metrics optionally exposes the run's statistics as
// Prometheus gauges over HTTP, gated by the -metrics-addr flag. Not
// part of the core's mandatory surface (spec.md section 6 names only
// report.json), but a natural addition for a long-running campaign,
// grounded on tools/syz-patch-dataset/http.go's net.Listen +
// gorilla/handlers pairing.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0cole/anomie/pkg/analysis"
	"github.com/0cole/anomie/pkg/log"
)

// Server periodically republishes an Analyzer's Stats as Prometheus
// gauges on /metrics.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	sigill, sigabrt, sigfpe, sigsegv, sigpipe, sigterm, timeout, total prometheus.Gauge
	latencyP50, latencyP99                                            prometheus.Gauge
}

// Listen binds addr (e.g. ":9090") and returns a Server that serves
// /metrics once Serve is called. Binding happens eagerly so
// misconfiguration (port in use) surfaces before the fuzz loop starts.
func Listen(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding metrics address %s: %w", addr, err)
	}

	reg := prometheus.NewRegistry()
	s := &Server{listener: listener}
	mk := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "anomie", Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}
	s.sigill = mk("sigill_total", "iterations classified as SIGILL")
	s.sigabrt = mk("sigabrt_total", "iterations classified as SIGABRT")
	s.sigfpe = mk("sigfpe_total", "iterations classified as SIGFPE")
	s.sigsegv = mk("sigsegv_total", "iterations classified as SIGSEGV")
	s.sigpipe = mk("sigpipe_total", "iterations classified as SIGPIPE")
	s.sigterm = mk("sigterm_total", "iterations classified as SIGTERM")
	s.timeout = mk("timeout_total", "iterations classified as TIMEOUT")
	s.total = mk("hits_total", "total iterations that produced a recorded hit")
	s.latencyP50 = mk("target_latency_seconds_p50", "median observed target wall-clock latency")
	s.latencyP99 = mk("target_latency_seconds_p99", "99th percentile observed target wall-clock latency")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{Handler: handlers.LoggingHandler(logWriter{}, mux)}
	return s, nil
}

// Serve blocks, accepting connections until the server's context is
// cancelled via Shutdown. Intended to run in its own goroutine
// alongside the fuzz loop.
func (s *Server) Serve() error {
	log.Logf(1, "metrics server listening on %s", s.listener.Addr())
	err := s.httpServer.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Publish copies st and the analyzer's latency quantiles into the
// registered gauges. Called by the engine after each iteration, or
// periodically, at the caller's discretion.
func (s *Server) Publish(st analysis.Stats, a *analysis.Analyzer) {
	s.sigill.Set(float64(st.Sigill))
	s.sigabrt.Set(float64(st.Sigabrt))
	s.sigfpe.Set(float64(st.Sigfpe))
	s.sigsegv.Set(float64(st.Sigsegv))
	s.sigpipe.Set(float64(st.Sigpipe))
	s.sigterm.Set(float64(st.Sigterm))
	s.timeout.Set(float64(st.Timeout))
	s.total.Set(float64(st.Total))
	if a != nil {
		s.latencyP50.Set(a.LatencyQuantile(0.5))
		s.latencyP99.Set(a.LatencyQuantile(0.99))
	}
}

// logWriter adapts pkg/log.Logf to io.Writer for handlers.LoggingHandler's
// access-log sink.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Logf(2, "%s", string(p))
	return len(p), nil
}
