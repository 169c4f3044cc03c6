// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package jpeg

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsBadMagic(t *testing.T) {
	m := Parse([]byte("not a jpeg"))
	assert.True(t, isEmpty(m))
}

func TestParseRejectsShortInput(t *testing.T) {
	m := Parse([]byte{0xFF})
	assert.True(t, isEmpty(m))
}

func TestParseEmptyInput(t *testing.T) {
	m := Parse(nil)
	assert.True(t, isEmpty(m))
}

func TestRoundTripBaselineImage(t *testing.T) {
	img := gradientImage(16, 16)
	raw, err := encode(img, 90)
	require.NoError(t, err)

	m := Parse(raw)
	require.False(t, isEmpty(m))

	regenerated := Generate(m)
	assert.True(t, cmp.Equal(raw, regenerated), "round trip must reproduce the original bytes exactly")

	reparsed := Parse(regenerated)
	assert.True(t, cmp.Equal(m, reparsed))
}

func TestGenerateCorpusProducesExpectedFileCount(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, GenerateCorpus(rand.New(rand.NewSource(42)), dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	// 1 baseline + 100 variants + 6 fixed-dimension fixtures.
	assert.Len(t, entries, 107)

	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		m := Parse(data)
		assert.False(t, isEmpty(m), "seed %s must parse", e.Name())
	}
}

func TestMutateTruncateNeverGrowsSegments(t *testing.T) {
	img := gradientImage(16, 16)
	raw, err := encode(img, 90)
	require.NoError(t, err)
	m := Parse(raw)
	before := len(m.Segments)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		Mutate(r, &m)
		assert.LessOrEqual(t, len(m.Segments), before)
	}
}

func TestMutateEmptyModelIsNoOp(t *testing.T) {
	m := emptyModel()
	desc := Mutate(rand.New(rand.NewSource(1)), &m)
	assert.Empty(t, desc)
}

func TestSwapSegmentsNoOpWithFewerThanTwo(t *testing.T) {
	m := Model{Soi: []byte{0xFF, 0xD8}, Eoi: []byte{0xFF, 0xD9}}
	desc := swapSegments(rand.New(rand.NewSource(1)), &m)
	assert.Contains(t, desc, "no-op")
}

func TestCorruptSOFDimensionsOnlyTouchesSof(t *testing.T) {
	img := gradientImage(16, 16)
	raw, err := encode(img, 90)
	require.NoError(t, err)
	m := Parse(raw)

	var sofBefore []byte
	for _, seg := range m.Segments {
		if seg.Kind == KindSof {
			sofBefore = append([]byte(nil), seg.Bytes...)
		}
	}
	require.NotNil(t, sofBefore)

	r := rand.New(rand.NewSource(3))
	corruptSOFDimensions(r, &m)

	var sofAfter []byte
	for _, seg := range m.Segments {
		if seg.Kind == KindSof {
			sofAfter = seg.Bytes
		}
	}
	assert.Equal(t, sofBefore[:5], sofAfter[:5])
}

func TestPatchDensityRoundTrips(t *testing.T) {
	img := gradientImage(16, 16)
	raw, err := encode(img, 90)
	require.NoError(t, err)

	patched := patchDensity(raw, 144, 144)
	m := Parse(patched)
	found := false
	for _, seg := range m.Segments {
		if seg.Kind == KindApp && len(seg.Bytes) >= 16 && string(seg.Bytes[4:9]) == "JFIF\x00" {
			found = true
			assert.EqualValues(t, 144, int(seg.Bytes[12])<<8|int(seg.Bytes[13]))
		}
	}
	assert.True(t, found, "expected a JFIF APP0 segment")
}

func TestPluginSeedBytesReadsFileContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, GenerateCorpus(rand.New(rand.NewSource(9)), dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	got, err := Plugin{}.SeedBytes(dir, entries[0].Name())
	require.NoError(t, err)
	assert.False(t, isEmpty(Parse(got)))
}

func TestClassifyExhaustive(t *testing.T) {
	cases := map[byte]SegmentKind{
		0xE1: KindApp,
		0xDB: KindDqt,
		0xC0: KindSof,
		0xC2: KindSof,
		0xC4: KindDht,
		0xDA: KindSos,
	}
	for marker, want := range cases {
		got, ok := classify(marker)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := classify(0x01)
	assert.False(t, ok)
}
