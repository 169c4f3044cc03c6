// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package jpeg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	gojpeg "image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
)

// colorVariant names the nominal pixel-format variation spec.md 4.2.3's
// seed corpus cycles through. The standard library's JPEG encoder
// always emits YCbCr 4:2:0 baseline data internally regardless of the
// source image.Image's color model and has no progressive-scan mode;
// see DESIGN.md for why "BGR" and "progressive" are therefore encoded
// as source-pixel-layout and filename metadata rather than as JPEG
// bitstream features the decoder side could ever distinguish.
type colorVariant int

const (
	variantLuma colorVariant = iota
	variantRGB
	variantBGR
	variantYCbCr
)

func (v colorVariant) label() string {
	switch v {
	case variantLuma:
		return "luma"
	case variantRGB:
		return "rgb"
	case variantBGR:
		return "bgr"
	default:
		return "ycbcr"
	}
}

var fixedDimensions = [][2]int{
	{1, 1}, {2, 2}, {256, 256}, {1024, 768}, {1, 65535}, {65535, 1},
}

// GenerateCorpus synthesizes a 16x16 RGB gradient baseline, 100
// re-encodings of it varying quality/progressive-label/color-
// variant/density, and six fixed-dimension random-pixel images, per
// spec.md 4.2.3.
func GenerateCorpus(r *rand.Rand, dir string) error {
	baseline := gradientImage(16, 16)
	baselineBytes, err := encode(baseline, 90)
	if err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "baseline.jpg"), baselineBytes, 0o644); err != nil {
		return err
	}

	for i := 0; i < 100; i++ {
		quality := i
		progressive := i%2 == 0
		variant := colorVariant(i % 4)
		densityX := uint16(1 + r.Intn(300))
		densityY := uint16(1 + r.Intn(300))

		img := variantImage(variant, 16, 16)
		encoded, err := encode(img, quality)
		if err != nil {
			return fmt.Errorf("encoding variant %d: %w", i, err)
		}
		encoded = patchDensity(encoded, densityX, densityY)

		progLabel := "baseline"
		if progressive {
			progLabel = "progressive"
		}
		name := fmt.Sprintf("variant-%03d-q%02d-%s-%s-d%dx%d.jpg",
			i, quality, progLabel, variant.label(), densityX, densityY)
		if err := os.WriteFile(filepath.Join(dir, name), encoded, 0o644); err != nil {
			return err
		}
	}

	for _, dims := range fixedDimensions {
		w, h := dims[0], dims[1]
		img := randomImage(r, w, h)
		encoded, err := encode(img, 75)
		if err != nil {
			return fmt.Errorf("encoding %dx%d fixture: %w", w, h, err)
		}
		name := fmt.Sprintf("dim-%dx%d.jpg", w, h)
		if err := os.WriteFile(filepath.Join(dir, name), encoded, 0o644); err != nil {
			return err
		}
	}

	return nil
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := gojpeg.Encode(&buf, img, &gojpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

func gradientImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x * 255 / maxInt(w-1, 1)),
				G: uint8(y * 255 / maxInt(h-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func variantImage(v colorVariant, w, h int) image.Image {
	switch v {
	case variantLuma:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 255 / maxInt(w+h-2, 1))})
			}
		}
		return img
	case variantBGR:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				// Swap the R/B channels relative to gradientImage so
				// BGR-labeled variants carry visibly different pixel
				// content, even though the JPEG bitstream itself is
				// always encoded as YCbCr.
				img.Set(x, y, color.NRGBA{
					B: uint8(x * 255 / maxInt(w-1, 1)),
					G: uint8(y * 255 / maxInt(h-1, 1)),
					R: 128,
					A: 255,
				})
			}
		}
		return img
	case variantYCbCr:
		img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				yi := img.YOffset(x, y)
				ci := img.COffset(x, y)
				img.Y[yi] = uint8(x * 255 / maxInt(w-1, 1))
				img.Cb[ci] = uint8(y * 255 / maxInt(h-1, 1))
				img.Cr[ci] = 128
			}
		}
		return img
	default:
		return gradientImage(w, h)
	}
}

func randomImage(r *rand.Rand, w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	pix := img.Pix
	r.Read(pix)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 255
	}
	return img
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// patchDensity rewrites the pixel-density fields of the JFIF APP0
// segment in an encoded JPEG, reusing anomie's own Parse/Segment model
// instead of hand-rolled offset arithmetic over the raw byte slice. The
// standard library encoder writes no APP0 segment, so when none is
// present a minimal JFIF APP0 is inserted ahead of the other segments.
func patchDensity(data []byte, x, y uint16) []byte {
	m := Parse(data)
	if isEmpty(m) {
		return data
	}
	hasJFIF := false
	for _, seg := range m.Segments {
		if seg.Kind == KindApp && len(seg.Bytes) >= 18 && string(seg.Bytes[4:9]) == "JFIF\x00" {
			hasJFIF = true
		}
	}
	if !hasJFIF {
		app0 := []byte{0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0, 0, 0, 0, 0, 0, 0}
		m.Segments = append([]Segment{{Kind: KindApp, Bytes: app0}}, m.Segments...)
	}
	for i := range m.Segments {
		seg := &m.Segments[i]
		if seg.Kind != KindApp || len(seg.Bytes) < 18 {
			continue
		}
		if string(seg.Bytes[4:9]) != "JFIF\x00" {
			continue
		}
		seg.Bytes[11] = 1 // units: dots per inch
		binary.BigEndian.PutUint16(seg.Bytes[12:14], x)
		binary.BigEndian.PutUint16(seg.Bytes[14:16], y)
	}
	return Generate(m)
}
