// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides the leveled logging primitives used across anomie.
// It intentionally has no backend of its own: anomie/main.go wires the
// verbosity threshold from the ANOMIE_DEBUG environment variable and
// everything else only calls Logf/Errorf/Fatalf.
package log

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
)

var level atomic.Int32

// SetVerbosity sets the global logging threshold. Logf calls with a
// level greater than this are dropped.
func SetVerbosity(v int) {
	level.Store(int32(v))
}

// VerbosityFromEnv reads ANOMIE_DEBUG and calls SetVerbosity, defaulting
// to 0 (info-and-above only) when unset or unparsable.
func VerbosityFromEnv() {
	v := 0
	if s := os.Getenv("ANOMIE_DEBUG"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			v = parsed
		}
	}
	SetVerbosity(v)
}

// Logf prints a leveled log message. Level 0 is always printed; higher
// levels are progressively more verbose debug output.
func Logf(v int, msg string, args ...interface{}) {
	if int32(v) > level.Load() {
		return
	}
	fmt.Fprintf(os.Stderr, "%s\n", fmt.Sprintf(msg, args...))
}

// Errorf prints an error-level message, always shown regardless of
// verbosity.
func Errorf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", fmt.Sprintf(msg, args...))
}

// Fatalf prints an error-level message and terminates the process.
func Fatalf(msg string, args ...interface{}) {
	Errorf(msg, args...)
	os.Exit(1)
}
