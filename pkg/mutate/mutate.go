// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutate implements the small, deterministic byte-level edits
// (C1 in the design) that every format plug-in's mutate operation
// ultimately bottoms out on, grounded on
// original_source/src/mutate.rs's mutate_bytes and generalized to draw
// from a caller-supplied *rand.Rand instead of an ambient thread-local
// source, per spec.md section 9's PRNG-threading requirement.
package mutate

import (
	"fmt"
	"math/rand"
)

// Byte applies exactly one randomly chosen edit to buf in place and
// returns a human-readable description of what it did. An empty buf is
// a documented no-op.
func Byte(r *rand.Rand, buf []byte) string {
	if len(buf) == 0 {
		return "no-op (empty buffer)"
	}
	switch r.Intn(4) {
	case 0:
		return bitmaskXOR(r, buf)
	case 1:
		return bitFlip(r, buf)
	case 2:
		return byteInsertion(r, buf)
	default:
		return byteShiftLeft(buf)
	}
}

func bitmaskXOR(r *rand.Rand, buf []byte) string {
	idx := r.Intn(len(buf))
	mask := byte(r.Intn(256))
	buf[idx] ^= mask
	return fmt.Sprintf("bitmask xor: byte[%d] ^= 0x%02x", idx, mask)
}

func bitFlip(r *rand.Rand, buf []byte) string {
	idx := r.Intn(len(buf))
	bit := r.Intn(8)
	buf[idx] ^= 1 << uint(bit)
	return fmt.Sprintf("bit flip: byte[%d] bit %d", idx, bit)
}

func byteInsertion(r *rand.Rand, buf []byte) string {
	idx := r.Intn(len(buf))
	fresh := byte(r.Intn(256))
	rotateRightOne(buf[idx:])
	buf[idx] = fresh
	return fmt.Sprintf("byte insertion: 0x%02x at [%d]", fresh, idx)
}

func byteShiftLeft(buf []byte) string {
	rotateLeftOne(buf)
	return "byte shift left: rotated buffer left by one"
}

// rotateRightOne rotates buf right by one element in place; the last
// element wraps to the front, discarding whatever was at index 0 before
// the caller overwrites it (matching spec.md 4.1's byte-insertion edit,
// which always writes a fresh value into slot 0 of the sub-slice).
func rotateRightOne(buf []byte) {
	if len(buf) < 2 {
		return
	}
	last := buf[len(buf)-1]
	copy(buf[1:], buf[:len(buf)-1])
	buf[0] = last
}

func rotateLeftOne(buf []byte) {
	if len(buf) < 2 {
		return
	}
	first := buf[0]
	copy(buf, buf[1:])
	buf[len(buf)-1] = first
}
