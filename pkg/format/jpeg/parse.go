// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package jpeg

import "encoding/binary"

// Parse implements the marker-scanning state machine of spec.md 4.2.3.
// It never fails destructively: input that doesn't start with the SOI
// marker yields the degraded empty model rather than an error, and
// input that runs out of bytes mid-segment yields a model holding the
// segments parsed before that point.
func Parse(data []byte) Model {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return emptyModel()
	}

	m := Model{Soi: append([]byte(nil), soiMarker...)}
	pos := 2

	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		marker := data[pos+1]
		if marker == 0xFF {
			// Byte-stuffing: treat the first FF as a lone byte and
			// re-examine starting at the second.
			pos++
			continue
		}
		if marker == 0xD9 {
			break
		}
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}

		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		end := pos + 2 + length
		if end > len(data) {
			break
		}

		kind, ok := classify(marker)
		if !ok {
			pos = end
			continue
		}
		m.Segments = append(m.Segments, Segment{Kind: kind, Bytes: append([]byte(nil), data[pos:end]...)})

		if kind == KindSos {
			dataStart := end
			i := dataStart
			for i+1 < len(data) {
				if data[i] == 0xFF {
					if data[i+1] == 0x00 {
						i += 2
						continue
					}
					if data[i+1] == 0xD9 {
						break
					}
				}
				i++
			}
			m.Segments = append(m.Segments, Segment{Kind: KindDat, Bytes: append([]byte(nil), data[dataStart:i]...)})
			pos = i
			break
		}

		pos = end
	}

	m.Eoi = append([]byte(nil), eoiMarker...)
	return m
}

// classify maps a marker byte to the SegmentKind spec.md 4.2.3
// specifies. SOS is handled by the caller (it triggers entropy-coded
// data collection); classify still reports it so the initial SOS
// segment itself is recorded.
func classify(marker byte) (SegmentKind, bool) {
	switch {
	case marker >= 0xE0 && marker <= 0xEF:
		return KindApp, true
	case marker == 0xDB:
		return KindDqt, true
	case marker == 0xC0 || marker == 0xC2:
		return KindSof, true
	case marker == 0xC4:
		return KindDht, true
	case marker == 0xDA:
		return KindSos, true
	default:
		return 0, false
	}
}
