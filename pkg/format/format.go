// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package format declares the uniform format plug-in contract (parse ->
// model -> mutate -> generate) that every fuzzable input format
// implements, grounded on original_source/src/formats/template.rs's
// FileFormat trait. The engine (pkg/engine) is generic over this
// interface; no runtime polymorphism or inheritance hierarchy is
// introduced, per spec.md section 9's design notes — picking a plug-in
// for a run is a single type-level choice made once at startup.
package format

import "math/rand"

// Plugin is the capability every fuzzable format provides. M is the
// plug-in's own model type, kept as a type parameter rather than `any`
// so parse/mutate/generate stay statically matched to one plug-in.
type Plugin[M any] interface {
	// Ext is the file extension (without a dot) used when a mutated
	// instance is written to disk; empty for argv-style inputs.
	Ext() string

	// Parse never fails destructively: malformed input yields a
	// degraded-but-valid empty model rather than an error.
	Parse(data []byte) M

	// Generate serializes a model back to bytes. Parse(Generate(m))
	// preserves the semantic content of a well-formed m modulo
	// checksum recomputation and normalized fields.
	Generate(m M) []byte

	// Mutate applies exactly one randomly chosen mutation to m in
	// place and returns a human-readable description. Mutating an
	// empty model is a no-op; the description returned then depends on
	// the plug-in (jpeg returns an empty string, blob and text return
	// pkg/mutate's "no-op" note).
	Mutate(r *rand.Rand, m *M) string

	// IsEmpty reports whether m is the degraded empty model Parse
	// produces for unparsable input.
	IsEmpty(m M) bool

	// GenerateCorpus writes a deterministic (given r) initial seed
	// corpus into dir.
	GenerateCorpus(r *rand.Rand, dir string) error

	// SeedBytes extracts the mutation input for the corpus entry named
	// name inside dir. File-backed formats read the entry's contents;
	// the argv-fuzzed blob format instead decodes the seed from the
	// entry's filename, per spec.md 4.5 step 2.
	SeedBytes(dir, name string) ([]byte, error)
}
