// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package workspace implements the scoped process-private temporary
// directory spec.md section 3 describes: construction creates the
// corpus/mutations/scratch tree, Close removes it unconditionally.
// Grounded on original_source/src/engine.rs's use of config.temp_dir
// (a tempfile::TempDir) and the teacher's convention of pairing a
// constructor with an explicit release method rather than relying on
// finalizers.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/0cole/anomie/pkg/log"
)

// Workspace is a scoped temporary directory with three fixed
// subdirectories. It must be released with Close on every exit path
// of a run, per spec.md 3's "never referenced after the run ends"
// invariant.
type Workspace struct {
	root string
}

// New creates a fresh process-private directory under os.TempDir and
// populates it with corpus/, mutations/, and scratch/, per spec.md
// 4.5 step 1.
func New() (*Workspace, error) {
	root, err := os.MkdirTemp("", "anomie-workspace-")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	w := &Workspace{root: root}
	for _, sub := range []string{"corpus", "mutations", "scratch"} {
		if err := os.MkdirAll(w.sub(sub), 0o755); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("creating workspace/%s: %w", sub, err)
		}
	}
	log.Logf(1, "workspace created at %s", root)
	return w, nil
}

func (w *Workspace) sub(name string) string { return filepath.Join(w.root, name) }

// Root returns the workspace's top-level directory.
func (w *Workspace) Root() string { return w.root }

// Corpus returns workspace/corpus, where seed-corpus files live.
func (w *Workspace) Corpus() string { return w.sub("corpus") }

// Mutations returns workspace/mutations, where per-iteration mutated
// file-backed inputs are written before being handed to the
// supervisor.
func (w *Workspace) Mutations() string { return w.sub("mutations") }

// Scratch returns workspace/scratch. spec.md section 3 requires the
// directory to exist alongside corpus/ and mutations/; no format
// plug-in currently needs to write intermediate artifacts there (the
// JPEG plug-in's re-encode-then-reparse mutation works entirely
// in-memory), so it stays empty for the run's duration.
func (w *Workspace) Scratch() string { return w.sub("scratch") }

// MutationPath returns the path a file-backed iteration's mutated
// bytes are written to, per spec.md 4.5's
// "workspace/mutations/<i>.<EXT>" naming.
func (w *Workspace) MutationPath(iteration int, ext string) string {
	return filepath.Join(w.Mutations(), fmt.Sprintf("%d.%s", iteration, ext))
}

// Close removes the entire workspace tree. It is safe to call more
// than once.
func (w *Workspace) Close() error {
	if w.root == "" {
		return nil
	}
	log.Logf(1, "removing workspace at %s", w.root)
	err := os.RemoveAll(w.root)
	w.root = ""
	return err
}
