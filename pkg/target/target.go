// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package target implements the process-supervision layer (C3):
// spawning the target with bounded wall-clock, capturing its standard
// streams, and classifying how it terminated. Grounded on
// pkg/rpcserver/local.go's exec.Command / cmd.Start / goroutine-Wait
// idiom and original_source/src/target.rs's run_target, generalized to
// enforce the timeout spec.md 4.3 requires (the Rust original has none).
package target

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/0cole/anomie/pkg/log"
)

// Result is the discriminated termination outcome of spec.md section 3.
// Its Kind is exactly one of the four values below and says which of
// Result's fields are meaningful; callers are expected to switch on Kind.
type Kind int

const (
	KindExited Kind = iota
	KindSignal
	KindTimeout
	KindSpawnError
)

type Result struct {
	Kind Kind

	ExitCode  int
	Signal    syscall.Signal
	TimeoutMS uint64
	Message   string

	Stdout string
	Stderr string
}

func Exited(code int, stdout, stderr string) Result {
	return Result{Kind: KindExited, ExitCode: code, Stdout: stdout, Stderr: stderr}
}

func Signaled(sig syscall.Signal, stdout, stderr string) Result {
	return Result{Kind: KindSignal, Signal: sig, Stdout: stdout, Stderr: stderr}
}

func TimedOut(ms uint64) Result {
	return Result{Kind: KindTimeout, TimeoutMS: ms}
}

func SpawnError(msg string) Result {
	return Result{Kind: KindSpawnError, Message: msg}
}

// RunWithArgs spawns binPath with baseArgs followed by extraArgs and
// waits up to timeoutMS, per spec.md 4.3's run_with_args.
func RunWithArgs(binPath string, baseArgs, extraArgs []string, timeoutMS uint64) Result {
	args := make([]string, 0, len(baseArgs)+len(extraArgs))
	args = append(args, baseArgs...)
	args = append(args, extraArgs...)
	return run(binPath, args, timeoutMS)
}

// RunWithArgvFromBytes splits fuzzBytes on ASCII space into lossy-UTF-8
// strings and runs the target with them appended after baseArgs, per
// spec.md 4.3's run_with_argv_from_bytes (the "argv fuzzer" path).
func RunWithArgvFromBytes(binPath string, baseArgs []string, fuzzBytes []byte, timeoutMS uint64) Result {
	const replacementChar = "�"
	var extra []string
	if len(fuzzBytes) > 0 {
		for _, part := range bytes.Split(fuzzBytes, []byte{0x20}) {
			extra = append(extra, strings.ToValidUTF8(string(part), replacementChar))
		}
	}
	return RunWithArgs(binPath, baseArgs, extra, timeoutMS)
}

// run is the shared child-wait routine described in spec.md 4.3: start
// the child, race its natural completion against the timeout using an
// errgroup the way pkg/rpcserver/local.go races cmd.Wait against a
// shutdown channel, and on timeout kill-then-reap so no zombie survives.
func run(binPath string, args []string, timeoutMS uint64) Result {
	coalesced := strings.Join(args, " ")
	if len(coalesced) > 300 {
		coalesced = coalesced[:300]
	}
	log.Logf(1, "running %s %s", binPath, coalesced)

	cmd := exec.Command(binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return SpawnError(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	var g errgroup.Group
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return cmd.Wait()
	})

	select {
	case <-done:
		err := g.Wait()
		log.Logf(2, "status=%v stdout=%q stderr=%q", err, truncated(stdout.Bytes()), truncated(stderr.Bytes()))
		return classify(err, stdout.String(), stderr.String())
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done        // reap: never leave a zombie behind.
		g.Wait()       // drain the goroutine's return value.
		return TimedOut(timeoutMS)
	}
}

// truncated bounds how much of a captured stream reaches a debug log
// line, keeping a prefix and suffix and collapsing the middle the way
// pkg/log.Truncate does for crash-record notes.
func truncated(b []byte) string {
	const headTail = 2048
	return string(log.Truncate(b, headTail, headTail))
}

// classify turns the error cmd.Wait() returned into a Result, per
// spec.md 4.3: signalled death takes priority over a bare exit code,
// and an unreadable wait status becomes a SpawnError rather than a
// guess.
func classify(waitErr error, stdout, stderr string) Result {
	if waitErr == nil {
		return Exited(0, stdout, stderr)
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return SpawnError(waitErr.Error())
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return SpawnError(waitErr.Error())
	}
	if status.Signaled() {
		return Signaled(status.Signal(), stdout, stderr)
	}
	if status.Exited() {
		return Exited(status.ExitStatus(), stdout, stderr)
	}
	return SpawnError(fmt.Sprintf("unknown termination: %v", waitErr))
}

// Class names the six per-signal termination classes plus TIMEOUT and
// UNKNOWN. All but UNKNOWN are also the report's class directory names
// (see PersistedClasses).
type Class string

const (
	ClassSigill  Class = "SIGILL"
	ClassSigabrt Class = "SIGABRT"
	ClassSigfpe  Class = "SIGFPE"
	ClassSigsegv Class = "SIGSEGV"
	ClassSigpipe Class = "SIGPIPE"
	ClassSigterm Class = "SIGTERM"
	ClassTimeout Class = "TIMEOUT"
	ClassUnknown Class = "UNKNOWN"
)

// PersistedClasses is the fixed set of class directories spec.md
// section 3 says the report directory is pre-populated with. UNKNOWN is
// deliberately excluded, per spec.md 9's open question: the original
// initialization routine never allocates it a directory.
var PersistedClasses = []Class{
	ClassSigill, ClassSigabrt, ClassSigfpe, ClassSigsegv,
	ClassSigpipe, ClassSigterm, ClassTimeout,
}

// ClassifySignal maps a POSIX signal number to its Class using the
// fixed table in spec.md 4.3.
func ClassifySignal(sig syscall.Signal) Class {
	switch sig {
	case unix.SIGILL:
		return ClassSigill
	case unix.SIGABRT:
		return ClassSigabrt
	case unix.SIGFPE:
		return ClassSigfpe
	case unix.SIGSEGV:
		return ClassSigsegv
	case unix.SIGPIPE:
		return ClassSigpipe
	case unix.SIGTERM:
		return ClassSigterm
	default:
		return ClassUnknown
	}
}
