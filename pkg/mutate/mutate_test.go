// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0cole/anomie/pkg/testutil"
)

func TestByteEmptyBufferIsNoOp(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	desc := Byte(r, nil)
	assert.Contains(t, desc, "no-op")
}

func TestByteNeverChangesLength(t *testing.T) {
	r := rand.New(rand.NewSource(testutil.RandSource(t).Int63()))
	buf := []byte{1, 2, 3, 4, 5}
	for i := 0; i < 100; i++ {
		Byte(r, buf)
		require.Len(t, buf, 5)
	}
}

func TestByteShiftLeftRotates(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	desc := byteShiftLeft(buf)
	assert.Equal(t, []byte{2, 3, 4, 1}, buf)
	assert.NotEmpty(t, desc)
}

func TestByteInsertionDiscardsLast(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	rotateRightOne(buf)
	assert.Equal(t, []byte{4, 1, 2, 3}, buf)
}

func TestByteSingleElementBuffer(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	buf := []byte{9}
	assert.NotPanics(t, func() {
		for i := 0; i < 20; i++ {
			Byte(r, buf)
		}
	})
}

func TestByteDeterministicGivenSeed(t *testing.T) {
	buf1 := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	buf2 := append([]byte(nil), buf1...)
	r1 := rand.New(rand.NewSource(99))
	r2 := rand.New(rand.NewSource(99))
	for i := 0; i < 10; i++ {
		d1 := Byte(r1, buf1)
		d2 := Byte(r2, buf2)
		assert.Equal(t, d1, d2)
	}
	assert.Equal(t, buf1, buf2)
}
