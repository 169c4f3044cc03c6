// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package analysis implements the crash analyzer (C4): classifying a
// supervisor result, persisting the offending input into its class
// directory, and keeping the run's statistics. Grounded on
// original_source/src/analysis.rs's analyze_result/save_crash and
// generalized to also persist file-backed inputs and TIMEOUT results,
// which the original's analyze_result left commented out.
package analysis

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/VividCortex/gohistogram"

	"github.com/0cole/anomie/pkg/log"
	"github.com/0cole/anomie/pkg/target"
)

// InputDescriptor is the sum type spec.md 4.4 calls
// StructuredInput/FileInput: either an in-memory byte payload (the
// Blob plug-in's filename-as-input case) or a file already written to
// workspace/mutations.
type InputDescriptor struct {
	Bytes []byte
	Path  string
	Ext   string
}

// BytesInput builds an in-memory InputDescriptor.
func BytesInput(b []byte, ext string) InputDescriptor {
	return InputDescriptor{Bytes: b, Ext: ext}
}

// FileInput builds a file-backed InputDescriptor.
func FileInput(path, ext string) InputDescriptor {
	return InputDescriptor{Path: path, Ext: ext}
}

func (d InputDescriptor) isFile() bool { return d.Path != "" }

// Crash is the in-memory accumulator entry spec.md section 3 defines.
type Crash struct {
	FilePath    string   `json:"file"`
	MutationLog []string `json:"mutations"`
	Notes       string   `json:"notes,omitempty"`
}

// Stats holds the eight monotone counters of spec.md section 3: one
// per termination class plus Total.
type Stats struct {
	Sigill  uint64 `json:"sigill"`
	Sigabrt uint64 `json:"sigabrt"`
	Sigfpe  uint64 `json:"sigfpe"`
	Sigsegv uint64 `json:"sigsegv"`
	Sigpipe uint64 `json:"sigpipe"`
	Sigterm uint64 `json:"sigterm"`
	Timeout uint64 `json:"timeout"`
	Total   uint64 `json:"total"`
}

func (s *Stats) bump(c target.Class) {
	switch c {
	case target.ClassSigill:
		s.Sigill++
	case target.ClassSigabrt:
		s.Sigabrt++
	case target.ClassSigfpe:
		s.Sigfpe++
	case target.ClassSigsegv:
		s.Sigsegv++
	case target.ClassSigpipe:
		s.Sigpipe++
	case target.ClassSigterm:
		s.Sigterm++
	case target.ClassTimeout:
		s.Timeout++
	}
	s.Total++
}

// Analyzer dispatches supervisor results per spec.md 4.4 and keeps the
// Stats/Crash bookkeeping for a single run. Not safe for concurrent
// use; the engine drives it from a single goroutine, one iteration at
// a time.
type Analyzer struct {
	reportDir string
	stats     Stats
	crashes   []Crash
	latency   *gohistogram.NumericHistogram
}

// New returns an Analyzer that persists crashes under reportDir, which
// must already contain the seven class subdirectories spec.md section
// 3 names (pkg/report creates them).
func New(reportDir string) *Analyzer {
	return &Analyzer{
		reportDir: reportDir,
		latency:   gohistogram.NewHistogram(20),
	}
}

// Stats returns a copy of the current statistics.
func (a *Analyzer) Stats() Stats { return a.stats }

// Crashes returns the accumulated crash records, most-recent last.
func (a *Analyzer) Crashes() []Crash { return append([]Crash(nil), a.crashes...) }

// LatencyQuantile returns the observed wall-clock-latency value at
// quantile q (0..1). pkg/metrics publishes it as gauges; report.json
// does not include latency.
func (a *Analyzer) LatencyQuantile(q float64) float64 { return a.latency.Quantile(q) }

// Analyze implements spec.md 4.4's four-way dispatch. elapsed is the
// iteration's observed target wall-clock latency, folded into the
// histogram regardless of outcome.
func (a *Analyzer) Analyze(iterationID int, result target.Result, input InputDescriptor, mutationLog []string, elapsed time.Duration) error {
	a.latency.Add(elapsed.Seconds())

	switch result.Kind {
	case target.KindExited:
		if input.isFile() {
			if err := os.Remove(input.Path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing non-crashing input %s: %w", input.Path, err)
			}
		}
		log.Logf(2, "iteration %d exited normally (code=%d)", iterationID, result.ExitCode)
		return nil

	case target.KindSignal:
		class := target.ClassifySignal(result.Signal)
		log.Logf(0, "hit: iteration %d crashed with %v", iterationID, class)
		return a.persist(iterationID, class, input, mutationLog, notesFor(result))

	case target.KindTimeout:
		log.Logf(0, "hit: iteration %d timed out after %dms", iterationID, result.TimeoutMS)
		return a.persist(iterationID, target.ClassTimeout, input, mutationLog, "")

	case target.KindSpawnError:
		log.Logf(0, "iteration %d could not spawn target: %s", iterationID, result.Message)
		return nil

	default:
		return fmt.Errorf("unrecognized termination kind %v", result.Kind)
	}
}

// persist writes the crash input under <report>/<class>/crash-<id>.<ext>
// and records a Crash entry, per spec.md 4.4's Persistence rule. An
// UNKNOWN-classified signal still updates Total but is not written to
// disk, matching pkg/target's PersistedClasses (no UNKNOWN directory
// exists for it to land in).
func (a *Analyzer) persist(iterationID int, class target.Class, input InputDescriptor, mutationLog []string, notes string) error {
	a.stats.bump(class)

	if class == target.ClassUnknown {
		return nil
	}

	ext := input.Ext
	if ext == "" {
		ext = "bin"
	}
	dest := filepath.Join(a.reportDir, string(class), fmt.Sprintf("crash-%d.%s", iterationID, ext))

	if err := writeCrash(dest, input); err != nil {
		return fmt.Errorf("persisting crash %s: %w", dest, err)
	}

	a.crashes = append(a.crashes, Crash{
		FilePath:    dest,
		MutationLog: append([]string(nil), mutationLog...),
		Notes:       notes,
	})
	log.Logf(1, "persisted crash to %s", dest)
	return nil
}

// notesFor bounds the crashing iteration's captured stdout/stderr to a
// head-and-tail excerpt via pkg/log.Truncate, for the crash record's
// notes field. The full streams already live in the child's own debug
// log line; notes is the version short enough to read straight out of
// report.json.
func notesFor(result target.Result) string {
	const headTail = 512
	var b strings.Builder
	if out := strings.TrimSpace(string(log.Truncate([]byte(result.Stdout), headTail, headTail))); out != "" {
		fmt.Fprintf(&b, "stdout: %s", out)
	}
	if errOut := strings.TrimSpace(string(log.Truncate([]byte(result.Stderr), headTail, headTail))); errOut != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "stderr: %s", errOut)
	}
	return b.String()
}

func writeCrash(dest string, input InputDescriptor) error {
	if !input.isFile() {
		return os.WriteFile(dest, input.Bytes, 0o644)
	}
	src, err := os.Open(input.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
