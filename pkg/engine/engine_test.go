// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package engine

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0cole/anomie/pkg/analysis"
	"github.com/0cole/anomie/pkg/config"
	"github.com/0cole/anomie/pkg/format/blob"
	"github.com/0cole/anomie/pkg/format/text"
	"github.com/0cole/anomie/pkg/target"
	"github.com/0cole/anomie/pkg/workspace"
)

func writeTargetScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "target.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func newReportDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, c := range target.PersistedClasses {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, string(c)), 0o755))
	}
	return dir
}

func TestRunAlwaysCrashingTargetPersistsEveryIteration(t *testing.T) {
	bin := writeTargetScript(t, "kill -SEGV $$\n")
	ws, err := workspace.New()
	require.NoError(t, err)
	defer ws.Close()

	cfg := &config.Config{
		BinPath:       bin,
		FuzzKind:      config.KindText,
		MaxIterations: 5,
		TimeoutMS:     1000,
		RNG:           rand.New(rand.NewSource(1)),
	}
	a := analysis.New(newReportDir(t))
	e := New[text.Model](cfg, text.Plugin{}, ws, a)

	require.NoError(t, e.Run())

	assert.EqualValues(t, 5, a.Stats().Total)
	assert.EqualValues(t, 5, a.Stats().Sigsegv)
	assert.Len(t, a.Crashes(), 5)
}

func TestRunCleanTargetRecordsNoCrashes(t *testing.T) {
	bin := writeTargetScript(t, "exit 0\n")
	ws, err := workspace.New()
	require.NoError(t, err)
	defer ws.Close()

	cfg := &config.Config{
		BinPath:       bin,
		FuzzKind:      config.KindText,
		MaxIterations: 5,
		TimeoutMS:     1000,
		RNG:           rand.New(rand.NewSource(1)),
	}
	a := analysis.New(newReportDir(t))
	e := New[text.Model](cfg, text.Plugin{}, ws, a)

	require.NoError(t, e.Run())

	assert.Zero(t, a.Stats().Total)
	assert.Empty(t, a.Crashes())

	// mutation files for non-crashing iterations must have been cleaned up.
	remaining, err := os.ReadDir(ws.Mutations())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRunIsDeterministicGivenSameSeed(t *testing.T) {
	bin := writeTargetScript(t, "head -c1 \"$1\" | od -An -tu1 | grep -q ' 0' && kill -SEGV $$ || exit 0\n")

	run := func() analysis.Stats {
		ws, err := workspace.New()
		require.NoError(t, err)
		defer ws.Close()

		cfg := &config.Config{
			BinPath:       bin,
			FuzzKind:      config.KindText,
			MaxIterations: 20,
			TimeoutMS:     1000,
			RNG:           rand.New(rand.NewSource(42)),
		}
		a := analysis.New(newReportDir(t))
		e := New[text.Model](cfg, text.Plugin{}, ws, a)
		require.NoError(t, e.Run())
		return a.Stats()
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestRunBlobFuzzingUsesArgvDispatch(t *testing.T) {
	bin := writeTargetScript(t, "exit 0\n")
	ws, err := workspace.New()
	require.NoError(t, err)
	defer ws.Close()

	cfg := &config.Config{
		BinPath:       bin,
		FuzzKind:      config.KindBlob,
		MaxIterations: 3,
		TimeoutMS:     1000,
		RNG:           rand.New(rand.NewSource(7)),
	}
	a := analysis.New(newReportDir(t))
	e := New[blob.Model](cfg, blob.Plugin{}, ws, a)

	require.NoError(t, e.Run())

	// Blob fuzzing never writes mutation files; workspace/mutations/
	// stays empty throughout the run.
	remaining, err := os.ReadDir(ws.Mutations())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestOnIterationFiresOncePerIteration(t *testing.T) {
	bin := writeTargetScript(t, "exit 0\n")
	ws, err := workspace.New()
	require.NoError(t, err)
	defer ws.Close()

	cfg := &config.Config{
		BinPath:       bin,
		FuzzKind:      config.KindText,
		MaxIterations: 5,
		TimeoutMS:     1000,
		RNG:           rand.New(rand.NewSource(1)),
	}
	a := analysis.New(newReportDir(t))
	e := New[text.Model](cfg, text.Plugin{}, ws, a)

	var seen []int
	e.OnIteration(func(i int) { seen = append(seen, i) })
	require.NoError(t, e.Run())

	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
}

func TestRunFailsFastOnEmptyCorpus(t *testing.T) {
	ws, err := workspace.New()
	require.NoError(t, err)
	defer ws.Close()

	cfg := &config.Config{
		BinPath:       writeTargetScript(t, "exit 0\n"),
		FuzzKind:      config.KindText,
		MaxIterations: 1,
		TimeoutMS:     1000,
		RNG:           rand.New(rand.NewSource(1)),
	}
	a := analysis.New(newReportDir(t))
	e := New[text.Model](cfg, emptyCorpusPlugin{}, ws, a)

	err = e.Run()
	assert.Error(t, err)
}

// emptyCorpusPlugin wraps text.Plugin but never writes any seed file,
// to exercise Run's empty-corpus fail-fast path.
type emptyCorpusPlugin struct{ text.Plugin }

func (emptyCorpusPlugin) GenerateCorpus(r *rand.Rand, dir string) error { return nil }
