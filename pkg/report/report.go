// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package report manages the persistent, numbered report directory
// spec.md section 3 describes, and writes the end-of-run report.json
// summary. Grounded on original_source/src/utils.rs::create_report_dir,
// generalized to allocate the zero-padded numeric ordinal subdirectory
// the original left to its caller, and to archive stale run
// directories once -keep-reports is exceeded.
package report

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ulikunitz/xz"

	"github.com/0cole/anomie/pkg/analysis"
	"github.com/0cole/anomie/pkg/config"
	"github.com/0cole/anomie/pkg/log"
	"github.com/0cole/anomie/pkg/target"
)

// Dir represents one run's persistent report directory, already
// populated with the seven class subdirectories spec.md section 3
// names.
type Dir struct {
	Root string
}

// Create allocates the next numbered subdirectory under root (creating
// root itself if absent), named with a zero-padded four-digit ordinal
// one greater than the maximum integer-named existing child, per
// spec.md section 3. Missing or non-numeric children are ignored;
// numbering starts at 0001.
func Create(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating report root: %w", err)
	}

	next, err := nextOrdinal(root)
	if err != nil {
		return nil, err
	}

	dirPath := filepath.Join(root, fmt.Sprintf("%04d", next))
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir %s: %w", dirPath, err)
	}
	for _, class := range target.PersistedClasses {
		if err := os.MkdirAll(filepath.Join(dirPath, string(class)), 0o755); err != nil {
			return nil, fmt.Errorf("creating class dir %s: %w", class, err)
		}
	}

	log.Logf(1, "created report dir at %s", dirPath)
	return &Dir{Root: dirPath}, nil
}

func nextOrdinal(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("listing report root: %w", err)
	}
	max := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil || n < 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// Summary is the JSON document written to report.json, per spec.md
// section 6: a configuration snapshot (excluding PRNG state),
// statistics, and the crash list.
type Summary struct {
	Config     config.Snapshot  `json:"config"`
	Statistics analysis.Stats   `json:"statistics"`
	Crashes    []analysis.Crash `json:"crashes"`
}

// Write serializes sum to <dir>/report.json.
func (d *Dir) Write(sum Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report.json: %w", err)
	}
	path := filepath.Join(d.Root, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// PrintSummary writes a human-readable run summary, the way
// original_source/src/utils.rs::print_report does for its terminal
// users.
func PrintSummary(w *os.File, sum Summary) {
	fmt.Fprintf(w, "anomie run complete: %d iterations, %d hits\n",
		sum.Config.MaxIterations, sum.Statistics.Total)
	fmt.Fprintf(w, "  SIGILL=%d SIGABRT=%d SIGFPE=%d SIGSEGV=%d SIGPIPE=%d SIGTERM=%d TIMEOUT=%d\n",
		sum.Statistics.Sigill, sum.Statistics.Sigabrt, sum.Statistics.Sigfpe,
		sum.Statistics.Sigsegv, sum.Statistics.Sigpipe, sum.Statistics.Sigterm,
		sum.Statistics.Timeout)
}

// Rotate compresses the oldest numbered run directories under root
// once more than keep remain, tarring and XZ-compressing each into
// "<NNNN>.tar.xz" next to the surviving directories. The directory
// just created by Create is always exempt (the caller's own dirPath is
// excluded by name). This is disk hygiene for long unattended
// campaigns; spec.md does not require it.
func Rotate(root string, keep int, currentDirName string) error {
	if keep < 0 {
		return nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("listing report root: %w", err)
	}

	var numeric []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == currentDirName {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err == nil {
			numeric = append(numeric, e.Name())
		}
	}
	sort.Strings(numeric)

	if len(numeric) <= keep {
		return nil
	}
	toArchive := numeric[:len(numeric)-keep]
	for _, name := range toArchive {
		if err := archiveDir(root, name); err != nil {
			return fmt.Errorf("archiving %s: %w", name, err)
		}
	}
	return nil
}

func archiveDir(root, name string) error {
	dirPath := filepath.Join(root, name)
	archivePath := filepath.Join(root, name+".tar.xz")

	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	xw, err := xz.NewWriter(out)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(xw)

	err = filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dirPath, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.Join(name, rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := xw.Close(); err != nil {
		return err
	}
	return os.RemoveAll(dirPath)
}
