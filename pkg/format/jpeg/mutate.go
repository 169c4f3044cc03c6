// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package jpeg

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/0cole/anomie/pkg/mutate"
)

const mutationCount = 10

// Mutate applies exactly one of the ten mutations in spec.md 4.2.3,
// chosen uniformly at random, generalized from the five ad hoc edits in
// original_source/src/mutate.rs::mutate_jpeg.
func Mutate(r *rand.Rand, m *Model) string {
	if isEmpty(*m) {
		return ""
	}
	switch r.Intn(mutationCount) {
	case 0:
		return truncateSegments(r, m)
	case 1:
		return clearEOI(m)
	case 2:
		return corruptSOI(r, m)
	case 3:
		return corruptSOFDimensions(r, m)
	case 4:
		return byteflipNonHeader(r, m)
	case 5:
		return appendToEOI(r, m)
	case 6:
		return overwriteSegmentLength(r, m)
	case 7:
		return swapSegments(r, m)
	case 8:
		return mutateSegmentPayloads(r, m, KindDht)
	default:
		return mutateSegmentPayloads(r, m, KindDqt)
	}
}

func truncateSegments(r *rand.Rand, m *Model) string {
	n := 0
	if len(m.Segments) > 0 {
		n = r.Intn(len(m.Segments) + 1)
	}
	m.Segments = m.Segments[:n]
	return fmt.Sprintf("truncate segments to prefix of length %d", n)
}

func clearEOI(m *Model) string {
	m.Eoi = nil
	return "clear eoi"
}

func corruptSOI(r *rand.Rand, m *Model) string {
	if len(m.Soi) < 2 {
		return "no-op (soi too short)"
	}
	b := byte(r.Intn(256))
	m.Soi[1] = b
	return fmt.Sprintf("corrupt soi[1] = 0x%02x", b)
}

func corruptSOFDimensions(r *rand.Rand, m *Model) string {
	count := 0
	for i := range m.Segments {
		if m.Segments[i].Kind != KindSof {
			continue
		}
		seg := m.Segments[i].Bytes
		if len(seg) < 9 {
			continue
		}
		for j := 5; j < 9; j++ {
			seg[j] = byte(r.Intn(256))
		}
		count++
	}
	return fmt.Sprintf("overwrote width/height of %d sof segment(s)", count)
}

// byteflipNonHeader regenerates the model's bytes, flips a ceiling
// fraction (0.1%-2%) of the non-header positions, then re-parses,
// matching spec.md 4.2.3 mutation #4's "regenerate, byteflip,
// re-parse" sequence.
func byteflipNonHeader(r *rand.Rand, m *Model) string {
	raw := Generate(*m)
	if len(raw) < 2 {
		return "no-op (too short to byteflip)"
	}
	headers := make(map[int]bool)
	for i := 0; i < len(raw)-1; i++ {
		if raw[i] == 0xFF && raw[i+1] != 0x00 {
			headers[i] = true
			headers[i+1] = true
		}
	}
	var candidates []int
	for i := range raw {
		if !headers[i] {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return "no-op (no non-header bytes to byteflip)"
	}
	rate := 0.001 + r.Float64()*(0.02-0.001)
	total := int(math.Ceil(float64(len(candidates)) * rate))
	for i := 0; i < total; i++ {
		idx := candidates[r.Intn(len(candidates))]
		raw[idx] ^= 1 << uint(r.Intn(8))
	}
	*m = Parse(raw)
	return fmt.Sprintf("byteflipped %.3f%% of non-header bytes then reparsed", rate*100)
}

func appendToEOI(r *rand.Rand, m *Model) string {
	n := r.Intn(10000)
	extra := make([]byte, n)
	r.Read(extra)
	m.Eoi = append(m.Eoi, extra...)
	return fmt.Sprintf("appended %d random bytes to eoi", n)
}

func overwriteSegmentLength(r *rand.Rand, m *Model) string {
	if len(m.Segments) == 0 {
		return "no-op (no segments)"
	}
	idx := r.Intn(len(m.Segments))
	seg := m.Segments[idx].Bytes
	if len(seg) < 4 {
		return "no-op (segment too short for a length field)"
	}
	value := uint16(r.Intn(1 << 16))
	binary.BigEndian.PutUint16(seg[2:4], value)
	return fmt.Sprintf("overwrote length field of segment %d to %d", idx, value)
}

func swapSegments(r *rand.Rand, m *Model) string {
	if len(m.Segments) < 2 {
		return "no-op (fewer than two segments)"
	}
	i := r.Intn(len(m.Segments))
	j := r.Intn(len(m.Segments))
	for j == i {
		j = r.Intn(len(m.Segments))
	}
	m.Segments[i], m.Segments[j] = m.Segments[j], m.Segments[i]
	return fmt.Sprintf("swapped segments %d and %d", i, j)
}

// mutateSegmentPayloads applies a C1 byte edit to the payload (bytes
// past the 5-byte marker+length+table-class header) of every segment of
// the given kind, matching spec.md 4.2.3 mutations #8/#9 for Dht/Dqt.
func mutateSegmentPayloads(r *rand.Rand, m *Model, kind SegmentKind) string {
	count := 0
	for i := range m.Segments {
		if m.Segments[i].Kind != kind {
			continue
		}
		seg := m.Segments[i].Bytes
		if len(seg) <= 5 {
			continue
		}
		mutate.Byte(r, seg[5:])
		count++
	}
	return fmt.Sprintf("mutated payload of %d %s segment(s)", count, kind)
}
