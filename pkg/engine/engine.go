// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package engine implements the fuzz loop (C5): generic over a format
// plug-in, it synthesizes the seed corpus, then per iteration picks a
// seed, runs a short mutation chain, dispatches the result to the
// target supervisor, and hands the outcome to the crash analyzer.
// Grounded on original_source/src/engine.rs's Engine<F>, generalized
// with an explicit Workspace and an injected Analyzer instead of the
// original's fields directly on Config.
package engine

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/0cole/anomie/pkg/analysis"
	"github.com/0cole/anomie/pkg/config"
	"github.com/0cole/anomie/pkg/format"
	"github.com/0cole/anomie/pkg/log"
	"github.com/0cole/anomie/pkg/target"
	"github.com/0cole/anomie/pkg/workspace"
)

// maxMutationChain is the exclusive upper bound on mutations applied
// per iteration, per spec.md 4.5 step 4.
const maxMutationChain = 5

// Engine drives one run of the fuzz loop for a format plug-in whose
// model type is M.
type Engine[M any] struct {
	cfg       *config.Config
	plugin    format.Plugin[M]
	ws        *workspace.Workspace
	analyzer  *analysis.Analyzer
	onIterate func(i int)
}

// New builds an Engine. cfg.RNG is the loop's exclusively-owned PRNG,
// per spec.md 9's "PRNG threading" design note: nothing else in the
// process may draw from it concurrently.
func New[M any](cfg *config.Config, plugin format.Plugin[M], ws *workspace.Workspace, analyzer *analysis.Analyzer) *Engine[M] {
	return &Engine[M]{cfg: cfg, plugin: plugin, ws: ws, analyzer: analyzer}
}

// OnIteration registers fn to be called synchronously from the loop's
// own goroutine after every iteration is recorded, letting a caller
// (e.g. the metrics server) republish fresh statistics without
// introducing concurrent access to the Analyzer.
func (e *Engine[M]) OnIteration(fn func(i int)) { e.onIterate = fn }

// Run executes the full loop: corpus synthesis, then cfg.MaxIterations
// iterations of seed-pick -> parse -> mutate x k -> generate ->
// dispatch -> analyze. It returns an error only for the fatal
// conditions spec.md section 7 names (corpus synthesis failure, empty
// corpus); per-iteration IO errors are logged and downgraded to a
// synthetic Exited(0), never aborting the run.
func (e *Engine[M]) Run() error {
	log.Logf(1, "beginning fuzzing...")

	if err := e.plugin.GenerateCorpus(e.cfg.RNG, e.ws.Corpus()); err != nil {
		return fmt.Errorf("generating seed corpus: %w", err)
	}

	entries, err := os.ReadDir(e.ws.Corpus())
	if err != nil {
		return fmt.Errorf("reading seed corpus: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("seed corpus is empty after generation")
	}

	for i := 0; i < int(e.cfg.MaxIterations); i++ {
		e.iterate(i, entries)
		if e.onIterate != nil {
			e.onIterate(i)
		}
	}
	return nil
}

func (e *Engine[M]) iterate(i int, entries []os.DirEntry) {
	entry := entries[e.cfg.RNG.Intn(len(entries))]

	seedBytes, err := e.plugin.SeedBytes(e.ws.Corpus(), entry.Name())
	if err != nil {
		log.Logf(0, "iteration %d: reading seed %s: %s", i, entry.Name(), err)
		e.record(i, target.Exited(0, "", ""), analysis.BytesInput(nil, e.ext()), nil, 0)
		return
	}

	model := e.plugin.Parse(seedBytes)

	mutationCount := e.cfg.RNG.Intn(maxMutationChain)
	mutationLog := make([]string, 0, mutationCount)
	for j := 0; j < mutationCount; j++ {
		mutationLog = append(mutationLog, e.plugin.Mutate(e.cfg.RNG, &model))
	}

	mutated := e.plugin.Generate(model)

	start := time.Now()
	result, descriptor := e.dispatch(i, mutated)
	elapsed := time.Since(start)

	e.record(i, result, descriptor, mutationLog, elapsed)
}

// dispatch implements spec.md 4.5 step 6: argv fuzzing for plug-ins
// with no declared extension, file-backed invocation otherwise.
func (e *Engine[M]) dispatch(i int, mutated []byte) (target.Result, analysis.InputDescriptor) {
	if e.plugin.Ext() == "" {
		result := target.RunWithArgvFromBytes(e.cfg.BinPath, e.cfg.TargetArgs, mutated, e.cfg.TimeoutMS)
		return result, analysis.BytesInput(mutated, "bin")
	}

	path := e.ws.MutationPath(i, e.plugin.Ext())
	if err := os.WriteFile(path, mutated, 0o644); err != nil {
		log.Logf(0, "iteration %d: writing mutation file: %s", i, err)
		return target.Exited(0, "", ""), analysis.BytesInput(mutated, e.plugin.Ext())
	}

	args := append(append([]string{}, e.cfg.TargetArgs...), path)
	result := target.RunWithArgs(e.cfg.BinPath, nil, args, e.cfg.TimeoutMS)
	return result, analysis.FileInput(path, e.plugin.Ext())
}

func (e *Engine[M]) record(i int, result target.Result, descriptor analysis.InputDescriptor, mutationLog []string, elapsed time.Duration) {
	if err := e.analyzer.Analyze(i, result, descriptor, mutationLog, elapsed); err != nil {
		log.Logf(0, "iteration %d: recording result: %s", i, err)
	}
}

func (e *Engine[M]) ext() string {
	ext := e.plugin.Ext()
	if ext == "" {
		return "bin"
	}
	return ext
}

// PRNGDraws exposes the engine's configured RNG only for tests that
// need to assert determinism end-to-end; production code never reads
// it back out once New has been called.
func (e *Engine[M]) PRNGDraws() *rand.Rand { return e.cfg.RNG }
