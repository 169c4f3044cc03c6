// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package testutil holds small helpers shared by anomie's package-level
// tests: deterministic-by-default randomness and fixture directory
// construction.
package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// RandSource returns a rand.Source seeded from $ANOMIE_SEED if set,
// otherwise from the current time, logging the seed so a failing test
// run can be reproduced.
func RandSource(t *testing.T) rand.Source {
	seed := time.Now().UnixNano()
	if fixed := os.Getenv("ANOMIE_SEED"); fixed != "" {
		if parsed, err := strconv.ParseInt(fixed, 0, 64); err == nil {
			seed = parsed
		}
	}
	t.Logf("seed=%v", seed)
	return rand.NewSource(seed)
}

// DirectoryLayout creates a layout specified by paths under base. A path
// ending in a separator creates a directory; otherwise it creates an
// empty file (parent directories are created as needed).
func DirectoryLayout(t *testing.T, base string, paths []string) {
	t.Helper()
	for _, path := range paths {
		full := filepath.Join(base, filepath.FromSlash(path))
		dir := filepath.Dir(full)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if path != "" && path[len(path)-1] != filepath.Separator && path[len(path)-1] != '/' {
			if err := os.WriteFile(full, nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
}
