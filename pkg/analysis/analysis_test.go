// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package analysis

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0cole/anomie/pkg/target"
)

func newReportDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, c := range target.PersistedClasses {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, string(c)), 0o755))
	}
	return dir
}

func TestAnalyzeExitedRemovesFileInput(t *testing.T) {
	dir := newReportDir(t)
	a := New(dir)

	tmp := filepath.Join(t.TempDir(), "0.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("hi"), 0o644))

	err := a.Analyze(0, target.Exited(0, "", ""), FileInput(tmp, "txt"), nil, time.Millisecond)
	require.NoError(t, err)

	_, statErr := os.Stat(tmp)
	assert.True(t, os.IsNotExist(statErr))
	assert.Zero(t, a.Stats().Total)
}

func TestAnalyzeSignalPersistsBytesInput(t *testing.T) {
	dir := newReportDir(t)
	a := New(dir)

	err := a.Analyze(5, target.Signaled(syscall.SIGSEGV, "", ""), BytesInput([]byte("crashy"), "bin"), []string{"bitflip"}, time.Millisecond)
	require.NoError(t, err)

	assert.EqualValues(t, 1, a.Stats().Sigsegv)
	assert.EqualValues(t, 1, a.Stats().Total)

	crashes := a.Crashes()
	require.Len(t, crashes, 1)
	data, err := os.ReadFile(crashes[0].FilePath)
	require.NoError(t, err)
	assert.Equal(t, "crashy", string(data))
	assert.Equal(t, []string{"bitflip"}, crashes[0].MutationLog)
	assert.Contains(t, crashes[0].FilePath, "SIGSEGV")
}

func TestAnalyzeTimeoutPersistsUnderTimeoutClass(t *testing.T) {
	dir := newReportDir(t)
	a := New(dir)

	err := a.Analyze(1, target.TimedOut(100), BytesInput([]byte("x"), "bin"), nil, 100*time.Millisecond)
	require.NoError(t, err)

	assert.EqualValues(t, 1, a.Stats().Timeout)
	assert.EqualValues(t, 1, a.Stats().Total)
	assert.Contains(t, a.Crashes()[0].FilePath, "TIMEOUT")
	assert.Empty(t, a.Crashes()[0].Notes, "a timeout carries no captured stdout/stderr to excerpt")
}

func TestAnalyzeSignalRecordsNotesFromCapturedStreams(t *testing.T) {
	dir := newReportDir(t)
	a := New(dir)

	result := target.Signaled(syscall.SIGABRT, "hello from stdout", "assertion failed")
	err := a.Analyze(2, result, BytesInput([]byte("crashy"), "bin"), nil, time.Millisecond)
	require.NoError(t, err)

	notes := a.Crashes()[0].Notes
	assert.Contains(t, notes, "hello from stdout")
	assert.Contains(t, notes, "assertion failed")
}

func TestAnalyzeSpawnErrorDoesNotPersistOrCount(t *testing.T) {
	dir := newReportDir(t)
	a := New(dir)

	err := a.Analyze(2, target.SpawnError("no such file"), BytesInput([]byte("x"), "bin"), nil, 0)
	require.NoError(t, err)

	assert.Zero(t, a.Stats().Total)
	assert.Empty(t, a.Crashes())
}

func TestAnalyzeUnknownSignalBumpsTotalWithoutPersisting(t *testing.T) {
	dir := newReportDir(t)
	a := New(dir)

	err := a.Analyze(3, target.Signaled(syscall.Signal(31), "", ""), BytesInput([]byte("x"), "bin"), nil, 0)
	require.NoError(t, err)

	assert.EqualValues(t, 1, a.Stats().Total)
	assert.Empty(t, a.Crashes())
}

func TestStatsMonotoneAcrossIterations(t *testing.T) {
	dir := newReportDir(t)
	a := New(dir)

	prevTotal := uint64(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Analyze(i, target.Signaled(syscall.SIGABRT, "", ""), BytesInput([]byte("x"), "bin"), nil, 0))
		assert.GreaterOrEqual(t, a.Stats().Total, prevTotal)
		prevTotal = a.Stats().Total
	}
	assert.EqualValues(t, 5, prevTotal)
}

func TestCrashFilenamesDoNotCollide(t *testing.T) {
	dir := newReportDir(t)
	a := New(dir)

	require.NoError(t, a.Analyze(0, target.Signaled(syscall.SIGILL, "", ""), BytesInput([]byte("a"), "bin"), nil, 0))
	require.NoError(t, a.Analyze(1, target.Signaled(syscall.SIGILL, "", ""), BytesInput([]byte("b"), "bin"), nil, 0))

	crashes := a.Crashes()
	require.Len(t, crashes, 2)
	assert.NotEqual(t, crashes[0].FilePath, crashes[1].FilePath)
}
