// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package blob

import (
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCorpusWritesEightSeeds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Plugin{}.GenerateCorpus(rand.New(rand.NewSource(1)), dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(seedCorpus))
}

func TestFilenameBytesRoundTrip(t *testing.T) {
	for _, seed := range seedCorpus {
		name := sanitizeFilename(seed)
		got := FilenameBytes(name)
		assert.Equal(t, seed, got)
	}
}

func TestParseCopiesInput(t *testing.T) {
	src := []byte{1, 2, 3}
	m := Plugin{}.Parse(src)
	src[0] = 99
	assert.Equal(t, byte(1), m.Bytes[0])
}

func TestGenerateRoundTrip(t *testing.T) {
	m := Plugin{}.Parse([]byte("hello"))
	assert.Equal(t, []byte("hello"), Plugin{}.Generate(m))
}

func TestMutateEmptyModelIsNoOp(t *testing.T) {
	m := Plugin{}.Parse(nil)
	desc := Plugin{}.Mutate(rand.New(rand.NewSource(1)), &m)
	assert.Contains(t, desc, "no-op")
	assert.Empty(t, m.Bytes)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Plugin{}.IsEmpty(Plugin{}.Parse(nil)))
	assert.False(t, Plugin{}.IsEmpty(Plugin{}.Parse([]byte{1})))
}

func TestExtIsEmptyForArgvFormat(t *testing.T) {
	assert.Equal(t, "", Plugin{}.Ext())
}

func TestSeedBytesReadsFilenameNotContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Plugin{}.GenerateCorpus(rand.New(rand.NewSource(1)), dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range entries {
		got, err := Plugin{}.SeedBytes(dir, e.Name())
		require.NoError(t, err)
		assert.Equal(t, FilenameBytes(e.Name()), got)
	}
}
