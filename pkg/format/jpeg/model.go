// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package jpeg implements the structurally-parsed JPEG format plug-in
// (spec.md 4.2.3), grounded on original_source/src/formats/jpeg.rs's
// segment model and original_source/src/mutate.rs's mutate_jpeg for the
// mutation catalogue, generalized from a handful of ad hoc edits into
// the ten-way uniform choice spec.md 4.2.3 specifies.
package jpeg

// SegmentKind tags the six kinds of JPEG segment the parser
// recognizes: five marker segments plus Dat for the entropy-coded data
// that follows SOS.
type SegmentKind int

const (
	KindApp SegmentKind = iota
	KindDqt
	KindSof
	KindDht
	KindSos
	KindDat
)

func (k SegmentKind) String() string {
	switch k {
	case KindApp:
		return "App"
	case KindDqt:
		return "Dqt"
	case KindSof:
		return "Sof"
	case KindDht:
		return "Dht"
	case KindSos:
		return "Sos"
	case KindDat:
		return "Dat"
	default:
		return "Unknown"
	}
}

// Segment is a tagged variant holding the raw bytes of one JPEG marker
// segment, including its FF xx header and length field where
// applicable.
type Segment struct {
	Kind  SegmentKind
	Bytes []byte
}

// Model is the structural representation of a JPEG file: a start-of-
// image marker, an ordered list of segments, and an end-of-image
// marker. An empty Model (see IsEmpty) has a nil Soi and no segments.
type Model struct {
	Soi      []byte
	Segments []Segment
	Eoi      []byte
}

var (
	soiMarker = []byte{0xFF, 0xD8}
	eoiMarker = []byte{0xFF, 0xD9}
)

func emptyModel() Model {
	return Model{}
}

func isEmpty(m Model) bool {
	return len(m.Soi) == 0
}
