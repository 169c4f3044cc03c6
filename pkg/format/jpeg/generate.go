// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package jpeg

// Generate concatenates soi, each segment's raw bytes in order, then
// eoi. Parse(Generate(m)) reproduces m byte-for-byte for any model
// Parse itself produced (spec.md 8's round-trip invariant), since every
// Segment already carries its own marker header and length field
// verbatim.
func Generate(m Model) []byte {
	size := len(m.Soi) + len(m.Eoi)
	for _, seg := range m.Segments {
		size += len(seg.Bytes)
	}
	out := make([]byte, 0, size)
	out = append(out, m.Soi...)
	for _, seg := range m.Segments {
		out = append(out, seg.Bytes...)
	}
	out = append(out, m.Eoi...)
	return out
}
