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
	"testing"

	"github.com/divanvisagie/photograph/internal/imaging"
)

func testImage() *imaging.Image {
	img := imaging.New(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, uint8(x*50), uint8(y*50), 128, 255)
		}
	}
	return img
}

func TestEncodeJPEGClampsQuality(t *testing.T) {
	img := testImage()
	for _, q := range []int{-5, 0, 50, 100, 1000} {
		b, err := EncodeJPEG(img, q)
		if err != nil {
			t.Fatalf("quality %d: unexpected error: %v", q, err)
		}
		if _, err := jpeg.Decode(bytes.NewReader(b)); err != nil {
			t.Fatalf("quality %d: produced undecodable jpeg: %v", q, err)
		}
	}
}

func TestEncodePNGRoundTrips(t *testing.T) {
	img := testImage()
	b, err := EncodePNG(img, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("produced undecodable png: %v", err)
	}
	if decoded.Bounds().Dx() != 4 || decoded.Bounds().Dy() != 4 {
		t.Fatalf("want 4x4, got %dx%d", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestClampPNGCompressionMapsDocumentedBuckets(t *testing.T) {
	cases := []struct {
		level int
		want  png.CompressionLevel
	}{
		{-5, png.NoCompression},
		{0, png.NoCompression},
		{2, png.BestSpeed},
		{5, png.DefaultCompression},
		{9, png.BestCompression},
		{20, png.BestCompression},
	}
	for _, c := range cases {
		if got := clampPNGCompression(c.level); got != c.want {
			t.Fatalf("level %d: want %v, got %v", c.level, c.want, got)
		}
	}
}
