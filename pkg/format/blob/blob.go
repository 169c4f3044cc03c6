// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package blob implements the opaque-byte-string format plug-in used for
// argv fuzzing (spec.md 4.2.1), grounded on
// original_source/src/formats/string.rs.
package blob

import (
	"math/rand"
	"os"
	"path/filepath"

	"github.com/0cole/anomie/pkg/mutate"
)

// Model is a mutable byte vector. There is no "empty model" marker
// distinct from a zero-length slice: the blob format never rejects
// input, so every Parse succeeds (possibly with an empty result).
type Model struct {
	Bytes []byte
}

type Plugin struct{}

func (Plugin) Ext() string { return "" }

func (Plugin) Parse(data []byte) Model {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Model{Bytes: cp}
}

func (Plugin) Generate(m Model) []byte {
	return m.Bytes
}

func (Plugin) Mutate(r *rand.Rand, m *Model) string {
	return mutate.Byte(r, m.Bytes)
}

func (Plugin) IsEmpty(m Model) bool {
	return len(m.Bytes) == 0
}

// SeedBytes decodes the seed payload from the corpus entry's filename,
// ignoring its (fixed, content-free) file body, per spec.md 4.5 step 2.
func (Plugin) SeedBytes(dir, name string) ([]byte, error) {
	return FilenameBytes(name), nil
}

// seedCorpus lists the curated byte strings from spec.md 4.2.1.
// Each is written as a file whose *name* is the byte string; the
// fuzz loop reads seed bytes from blob corpus entries by filename, not
// file contents (spec.md 4.5 step 2), so the body only needs to be
// non-empty and is fixed at a single 0x12 byte, matching the spec.
var seedCorpus = [][]byte{
	{},
	{'\n'},
	append([]byte{0}, []byte("seed")...),
	{'\''},
	[]byte("benign benign benign benign benign"),
	{0xFF, 0xFF},
	{0x00, 0x00, 0x00},
	[]byte("A typical ASCII sentence."),
}

func (Plugin) GenerateCorpus(r *rand.Rand, dir string) error {
	for _, seed := range seedCorpus {
		name := sanitizeFilename(seed)
		if err := os.WriteFile(filepath.Join(dir, name), []byte{0x12}, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeFilename encodes seed bytes into a filesystem-safe filename
// while keeping it recoverable: bytes the host filesystem rejects (NUL,
// path separator) are percent-escaped, everything else is emitted
// verbatim so the corpus directory listing itself documents the seed
// strings. FilenameBytes below is the exact inverse.
func sanitizeFilename(seed []byte) string {
	if len(seed) == 0 {
		return "%empty%"
	}
	out := make([]byte, 0, len(seed)*3)
	for _, b := range seed {
		if b == 0x00 || b == filepath.Separator || b == '%' {
			out = append(out, '%', hexDigit(b>>4), hexDigit(b&0xF))
			continue
		}
		out = append(out, b)
	}
	return string(out)
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + (n - 10)
}

// FilenameBytes decodes a corpus entry's filename back into the raw
// seed bytes it encodes, reversing sanitizeFilename. Non-percent-escaped
// filenames (the common case) are returned as-is, matching spec.md
// 9's "filename-as-input" note: platforms whose filesystem APIs reject
// non-UTF-8 names fall back to the lossy representation, which here is
// simply the escaped form already on disk.
func FilenameBytes(name string) []byte {
	if name == "%empty%" {
		return []byte{}
	}
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '%' && i+2 < len(name) {
			hi, okHi := fromHexDigit(name[i+1])
			lo, okLo := fromHexDigit(name[i+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, name[i])
	}
	return out
}

func fromHexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}
