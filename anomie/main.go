// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Command anomie is a coverage-agnostic mutational fuzzer for Unix
// command-line programs. It wires a format plug-in (string, txt, or
// jpeg/jpg) to the fuzz loop, supervises the target with a wall-clock
// timeout, and persists any abnormal exit under a numbered report
// directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0cole/anomie/pkg/analysis"
	"github.com/0cole/anomie/pkg/config"
	"github.com/0cole/anomie/pkg/engine"
	"github.com/0cole/anomie/pkg/format/blob"
	"github.com/0cole/anomie/pkg/format/jpeg"
	"github.com/0cole/anomie/pkg/format/text"
	"github.com/0cole/anomie/pkg/log"
	"github.com/0cole/anomie/pkg/metrics"
	"github.com/0cole/anomie/pkg/report"
	"github.com/0cole/anomie/pkg/workspace"
)

// metricsPublishEvery bounds how often the engine's iteration hook
// republishes Prometheus gauges; publishing on every single iteration
// would dominate run time for a fast in-memory target.
const metricsPublishEvery = 100

func main() {
	log.VerbosityFromEnv()

	raw, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("%s", err)
	}
	cfg, err := raw.Validate()
	if err != nil {
		log.Fatalf("%s", err)
	}
	log.Logf(1, "seed=%s fuzz_kind=%s", config.FormatSeed(cfg.Seed), cfg.FuzzKind)

	if err := run(cfg); err != nil {
		log.Fatalf("%s", err)
	}
}

func run(cfg *config.Config) error {
	ws, err := workspace.New()
	if err != nil {
		return fmt.Errorf("building workspace: %w", err)
	}
	defer ws.Close()

	reportDir, err := report.Create(cfg.ReportRoot)
	if err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	analyzer := analysis.New(reportDir.Root)

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer, err = metrics.Listen(cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Serve(); err != nil {
				log.Errorf("metrics server: %s", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	// publishMetrics republishes gauges from the iteration's own
	// goroutine, so the /metrics endpoint tracks the live campaign
	// instead of reporting all zeroes until the run ends.
	publishMetrics := func(i int) {
		if metricsServer == nil {
			return
		}
		if i%metricsPublishEvery != 0 {
			return
		}
		metricsServer.Publish(analyzer.Stats(), analyzer)
	}

	// Tag-dispatch fuzz_kind to the matching generic engine
	// instantiation, per spec.md 9's "generic dispatch over plug-ins"
	// design note: no runtime polymorphism, a single type-level choice
	// made once here.
	switch cfg.FuzzKind {
	case config.KindBlob:
		e := engine.New[blob.Model](cfg, blob.Plugin{}, ws, analyzer)
		e.OnIteration(publishMetrics)
		if err := e.Run(); err != nil {
			return err
		}
	case config.KindText:
		e := engine.New[text.Model](cfg, text.Plugin{}, ws, analyzer)
		e.OnIteration(publishMetrics)
		if err := e.Run(); err != nil {
			return err
		}
	case config.KindJpeg:
		e := engine.New[jpeg.Model](cfg, jpeg.Plugin{}, ws, analyzer)
		e.OnIteration(publishMetrics)
		if err := e.Run(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("fuzz kind %q has no registered engine", cfg.FuzzKind)
	}

	if metricsServer != nil {
		metricsServer.Publish(analyzer.Stats(), analyzer)
	}

	sum := report.Summary{
		Config:     cfg.Snapshot(),
		Statistics: analyzer.Stats(),
		Crashes:    analyzer.Crashes(),
	}
	if err := reportDir.Write(sum); err != nil {
		return fmt.Errorf("writing report.json: %w", err)
	}
	report.PrintSummary(os.Stdout, sum)

	if err := report.Rotate(cfg.ReportRoot, cfg.KeepReports, filepath.Base(reportDir.Root)); err != nil {
		log.Errorf("rotating old report directories: %s", err)
	}

	return nil
}
