// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ioimg

import (
	"bytes"
	"image/jpeg"
	"image/png"

	"github.com/deepteams/webp"

	"github.com/divanvisagie/photograph/internal/imaging"
)

// clampJPEGQuality enforces spec.md section 4.5's "JPEG (quality 1-100,
// clamped)", mirroring the clamp-before-encode idiom in the teacher's
// fits.Image.WriteJPG.
func clampJPEGQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// clampPNGCompression enforces spec.md section 4.5's "PNG (compression
// 0-9, adaptive filtering)".
func clampPNGCompression(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// EncodeJPEG serializes img as a JPEG at the given quality (1-100, clamped).
func EncodeJPEG(img *imaging.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: clampJPEGQuality(quality)}
	if err := jpeg.Encode(&buf, img.ToRGBA(), opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodePNG serializes img as a PNG at the given compression level
// (0-9), using adaptive (Paeth-family) filtering via png.Encoder's default
// per-row filter selection.
func EncodePNG(img *imaging.Image, compression int) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: clampPNGCompression(compression)}
	if err := enc.Encode(&buf, img.ToRGBA()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeWebP serializes img as lossless WebP. The baseline only supports
// lossless encoding (see DESIGN.md's Open Question decision); there is no
// quality parameter to clamp.
func EncodeWebP(img *imaging.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img.ToRGBA(), &webp.Options{Lossless: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
