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

// Package imaging defines the shared 8-bit RGBA raster buffer that flows
// through the edit pipeline, the preview scheduler and the batch render
// engine.
package imaging

import (
	"image"
	"image/color"
)

// Image is a 2D raster of 8-bit RGBA pixels with explicit width and height.
// Alpha is preserved but never modified by adjustments (spec.md section 3).
type Image struct {
	Width  int
	Height int
	// Pix holds interleaved R,G,B,A bytes, stride Width*4, matching
	// image.RGBA's layout so both can share conversion helpers.
	Pix []byte
}

// New allocates a zeroed image of the given dimensions.
func New(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// NewFromRGBA adapts a standard library image.RGBA without copying when the
// stride already matches width*4 (the common case for freshly decoded images).
func NewFromRGBA(src *image.RGBA) *Image {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if src.Stride == w*4 && src.Rect.Min.X == 0 && src.Rect.Min.Y == 0 {
		return &Image{Width: w, Height: h, Pix: src.Pix}
	}
	dst := New(w, h)
	for y := 0; y < h; y++ {
		srcOff := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		copy(dst.Pix[y*w*4:(y+1)*w*4], src.Pix[srcOff:srcOff+w*4])
	}
	return dst
}

// ToRGBA returns a standard library image.RGBA view that shares this
// image's pixel storage, for handing off to encoders.
func (img *Image) ToRGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    img.Pix,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	out := &Image{Width: img.Width, Height: img.Height, Pix: make([]byte, len(img.Pix))}
	copy(out.Pix, img.Pix)
	return out
}

// At returns the pixel at (x, y). Out-of-bounds coordinates return opaque
// black, matching the fill convention used by the geometry stages
// (spec.md section 4.1 steps 1-2).
func (img *Image) At(x, y int) (r, g, b, a uint8) {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return 0, 0, 0, 255
	}
	i := (y*img.Width + x) * 4
	return img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
}

// Set writes a pixel at (x, y). Callers must ensure the coordinate is in bounds.
func (img *Image) Set(x, y int, r, g, b, a uint8) {
	i := (y*img.Width + x) * 4
	img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
}

// SameDimensions reports whether two images share width and height.
func SameDimensions(a, b *Image) bool {
	return a.Width == b.Width && a.Height == b.Height
}

// NRGBAModel matches the non-premultiplied semantics the pipeline works in:
// adjustments operate on straight (non-alpha-premultiplied) channel values.
var NRGBAModel = color.NRGBAModel
