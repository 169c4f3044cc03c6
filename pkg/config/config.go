// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config parses and validates anomie's command-line surface,
// splitting an unvalidated RawConfig (straight from flag.Parse) from the
// immutable Config the rest of the program operates on, mirroring
// original_source/src/config.rs's RawConfig/Config split.
package config

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FuzzKind identifies which format plug-in drives a run.
type FuzzKind string

const (
	KindBlob FuzzKind = "Blob"
	KindText FuzzKind = "Text"
	KindJpeg FuzzKind = "Jpeg"
)

// fuzzTypeAliases maps the CLI's case-insensitive --fuzz-type values to a
// FuzzKind. Names present here without a format plug-in (png, pdf,
// signedint/int, unsignedint/uint) are recognized, but Validate rejects
// them with a "not yet implemented" error, distinct from the "invalid
// fuzz type" error for names missing from this table.
var fuzzTypeAliases = map[string]FuzzKind{
	"string":     KindBlob,
	"txt":        KindText,
	"jpeg":       KindJpeg,
	"jpg":        KindJpeg,
	"png":        FuzzKind("Png"),
	"pdf":        FuzzKind("Pdf"),
	"signedint":  FuzzKind("SignedInt"),
	"int":        FuzzKind("SignedInt"),
	"unsignedint": FuzzKind("UnsignedInt"),
	"uint":       FuzzKind("UnsignedInt"),
}

// Implemented reports whether k has a registered format plug-in.
func (k FuzzKind) Implemented() bool {
	switch k {
	case KindBlob, KindText, KindJpeg:
		return true
	default:
		return false
	}
}

// RawConfig holds the as-parsed, unvalidated command-line flags.
type RawConfig struct {
	BinPath       string
	FuzzType      string
	MaxIterations uint64
	Timeout       uint64
	ReportPath    string
	Seed          uint64
	HasSeed       bool
	TargetArgs    string
	ConfigFile    string
	MetricsAddr   string
	KeepReports   int
}

// fileDefaults is the subset of RawConfig that may be supplied by an
// optional -c/--config YAML file. Flags explicitly set on the command
// line always take precedence.
type fileDefaults struct {
	BinPath       *string `yaml:"bin_path"`
	FuzzType      *string `yaml:"fuzz_type"`
	MaxIterations *uint64 `yaml:"max_iterations"`
	Timeout       *uint64 `yaml:"timeout"`
	ReportPath    *string `yaml:"report_path"`
	Seed          *uint64 `yaml:"seed"`
	TargetArgs    *string `yaml:"target_args"`
	MetricsAddr   *string `yaml:"metrics_addr"`
	KeepReports   *int    `yaml:"keep_reports"`
}

// ParseFlags registers anomie's flags on fs (normally flag.CommandLine)
// and parses args, returning the raw, unvalidated configuration. Each
// flag that spec.md section 6 gives a short name also gets a long name,
// sharing one backing variable, the way many Go CLIs overload
// flag.StringVar twice instead of pulling in a flag-parsing library the
// teacher doesn't use for this purpose.
func ParseFlags(fs *flag.FlagSet, args []string) (*RawConfig, error) {
	raw := &RawConfig{}

	fs.StringVar(&raw.BinPath, "bin-path", "", "path to target binary")
	fs.StringVar(&raw.BinPath, "b", "", "path to target binary (shorthand)")
	fs.StringVar(&raw.FuzzType, "fuzz-type", "string", "one of string, txt, jpeg/jpg, png, pdf, signedint/int, unsignedint/uint")
	fs.Uint64Var(&raw.MaxIterations, "max-iterations", 1000, "number of fuzzing iterations to run")
	fs.Uint64Var(&raw.Timeout, "timeout", 100, "per-invocation timeout in milliseconds")
	fs.StringVar(&raw.ReportPath, "report-path", "./reports", "directory under which to write run reports")
	fs.StringVar(&raw.ReportPath, "r", "./reports", "directory under which to write run reports (shorthand)")
	fs.Uint64Var(&raw.Seed, "seed", 0, "PRNG seed; omit to derive from OS entropy")
	fs.Uint64Var(&raw.Seed, "s", 0, "PRNG seed (shorthand)")
	fs.StringVar(&raw.TargetArgs, "args", "", "space-separated arguments forwarded to the target before the mutated input")
	fs.StringVar(&raw.ConfigFile, "config", "", "optional YAML file of flag defaults")
	fs.StringVar(&raw.ConfigFile, "c", "", "optional YAML file of flag defaults (shorthand)")
	fs.StringVar(&raw.MetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	fs.IntVar(&raw.KeepReports, "keep-reports", 20, "number of prior numbered report directories to keep uncompressed")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	seedSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" || f.Name == "s" {
			seedSet = true
		}
	})
	raw.HasSeed = seedSet

	if raw.ConfigFile != "" {
		if err := applyFileDefaults(fs, raw); err != nil {
			return nil, err
		}
	}

	return raw, nil
}

func applyFileDefaults(fs *flag.FlagSet, raw *RawConfig) error {
	data, err := os.ReadFile(raw.ConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var fd fileDefaults
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if fd.BinPath != nil && !explicit["bin-path"] && !explicit["b"] {
		raw.BinPath = *fd.BinPath
	}
	if fd.FuzzType != nil && !explicit["fuzz-type"] {
		raw.FuzzType = *fd.FuzzType
	}
	if fd.MaxIterations != nil && !explicit["max-iterations"] {
		raw.MaxIterations = *fd.MaxIterations
	}
	if fd.Timeout != nil && !explicit["timeout"] {
		raw.Timeout = *fd.Timeout
	}
	if fd.ReportPath != nil && !explicit["report-path"] && !explicit["r"] {
		raw.ReportPath = *fd.ReportPath
	}
	if fd.Seed != nil && !explicit["seed"] && !explicit["s"] {
		raw.Seed = *fd.Seed
		raw.HasSeed = true
	}
	if fd.TargetArgs != nil && !explicit["args"] {
		raw.TargetArgs = *fd.TargetArgs
	}
	if fd.MetricsAddr != nil && !explicit["metrics-addr"] {
		raw.MetricsAddr = *fd.MetricsAddr
	}
	if fd.KeepReports != nil && !explicit["keep-reports"] {
		raw.KeepReports = *fd.KeepReports
	}
	return nil
}

// Config is the validated, immutable-after-construction record the rest
// of anomie operates on.
type Config struct {
	BinPath       string
	TargetArgs    []string
	FuzzKind      FuzzKind
	MaxIterations uint64
	TimeoutMS     uint64
	ReportRoot    string
	Seed          uint64
	MetricsAddr   string
	KeepReports   int

	RNG *rand.Rand
}

// Validate checks raw and produces a Config, or an error describing the
// first validation failure encountered.
func (raw *RawConfig) Validate() (*Config, error) {
	if raw.BinPath == "" {
		return nil, errors.New("bin-path is required")
	}
	info, err := os.Stat(raw.BinPath)
	if err != nil {
		return nil, fmt.Errorf("invalid binary path: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.New("bin-path does not correspond to a regular file")
	}

	kind, ok := fuzzTypeAliases[strings.ToLower(raw.FuzzType)]
	if !ok {
		return nil, fmt.Errorf("invalid fuzz type %q", raw.FuzzType)
	}
	if !kind.Implemented() {
		return nil, fmt.Errorf("fuzz type %q is not yet implemented", raw.FuzzType)
	}

	if raw.MaxIterations == 0 {
		return nil, errors.New("max-iterations must be positive")
	}
	if raw.Timeout == 0 {
		return nil, errors.New("timeout must be positive")
	}

	seed := raw.Seed
	if !raw.HasSeed {
		seed = uint64(time.Now().UnixNano())
	}

	var targetArgs []string
	if strings.TrimSpace(raw.TargetArgs) != "" {
		targetArgs = strings.Fields(raw.TargetArgs)
	}

	return &Config{
		BinPath:       raw.BinPath,
		TargetArgs:    targetArgs,
		FuzzKind:      kind,
		MaxIterations: raw.MaxIterations,
		TimeoutMS:     raw.Timeout,
		ReportRoot:    raw.ReportPath,
		Seed:          seed,
		MetricsAddr:   raw.MetricsAddr,
		KeepReports:   raw.KeepReports,
		RNG:           rand.New(rand.NewSource(int64(seed))),
	}, nil
}

// Snapshot returns a JSON/YAML-serializable view of the configuration
// that report.json embeds, excluding the live PRNG state per spec.md
// section 3.
type Snapshot struct {
	BinPath       string   `json:"bin_path"`
	TargetArgs    []string `json:"target_args"`
	FuzzKind      FuzzKind `json:"fuzz_kind"`
	MaxIterations uint64   `json:"max_iterations"`
	TimeoutMS     uint64   `json:"timeout_ms"`
	ReportRoot    string   `json:"report_root"`
	Seed          uint64   `json:"seed"`
}

func (c *Config) Snapshot() Snapshot {
	return Snapshot{
		BinPath:       c.BinPath,
		TargetArgs:    c.TargetArgs,
		FuzzKind:      c.FuzzKind,
		MaxIterations: c.MaxIterations,
		TimeoutMS:     c.TimeoutMS,
		ReportRoot:    c.ReportRoot,
		Seed:          c.Seed,
	}
}

// FormatSeed renders a seed the way debug logs do, kept separate so
// call sites don't repeat strconv boilerplate.
func FormatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}
