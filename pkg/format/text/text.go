// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package text implements the plain-text-blob format plug-in
// (spec.md 4.2.2), grounded on original_source/src/formats/txt.rs.
package text

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/0cole/anomie/pkg/log"
	"github.com/0cole/anomie/pkg/mutate"
)

// Model is a mutable byte vector, same shape as blob.Model but kept as
// its own type so the two plug-ins can diverge (text gets a debug diff
// on mutation, blob never will since its model is also used as a raw
// argv fragment).
type Model struct {
	Bytes []byte
}

type Plugin struct{}

func (Plugin) Ext() string { return "txt" }

func (Plugin) Parse(data []byte) Model {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Model{Bytes: cp}
}

func (Plugin) Generate(m Model) []byte {
	return m.Bytes
}

func (Plugin) Mutate(r *rand.Rand, m *Model) string {
	before := append([]byte(nil), m.Bytes...)
	desc := mutate.Byte(r, m.Bytes)
	logDiff(before, m.Bytes)
	return desc
}

// logDiff emits a short diff of a text mutation at debug level 2, using
// github.com/sergi/go-diff the way the teacher's pack uses diff
// libraries for human-readable change summaries.
func logDiff(before, after []byte) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(before), string(after), false)
	log.Logf(2, "text mutation diff: %s", dmp.DiffPrettyText(diffs))
}

func (Plugin) IsEmpty(m Model) bool {
	return len(m.Bytes) == 0
}

// SeedBytes reads the corpus entry's file contents, per spec.md 4.5
// step 2's file-backed-format rule.
func (Plugin) SeedBytes(dir, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, name))
}

const (
	seedFileCount  = 20
	seedMaxPayload = 1000 // exclusive upper bound: payload length is 0-999
)

func (Plugin) GenerateCorpus(r *rand.Rand, dir string) error {
	for i := 0; i < seedFileCount; i++ {
		n := r.Intn(seedMaxPayload)
		payload := make([]byte, n)
		r.Read(payload)
		name := fmt.Sprintf("%d.txt", i)
		if err := os.WriteFile(filepath.Join(dir, name), payload, 0o644); err != nil {
			return err
		}
	}
	return nil
}
