// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package jpeg

import (
	"math/rand"
	"os"
	"path/filepath"
)

// Plugin adapts the package-level Parse/Generate/Mutate/GenerateCorpus
// functions to the format.Plugin[Model] contract.
type Plugin struct{}

func (Plugin) Ext() string { return "jpg" }

func (Plugin) Parse(data []byte) Model { return Parse(data) }

func (Plugin) Generate(m Model) []byte { return Generate(m) }

func (Plugin) Mutate(r *rand.Rand, m *Model) string { return Mutate(r, m) }

func (Plugin) IsEmpty(m Model) bool { return isEmpty(m) }

func (Plugin) GenerateCorpus(r *rand.Rand, dir string) error { return GenerateCorpus(r, dir) }

// SeedBytes reads the corpus entry's file contents, per spec.md 4.5
// step 2's file-backed-format rule.
func (Plugin) SeedBytes(dir, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, name))
}
