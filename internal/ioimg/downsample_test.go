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
	"testing"

	"github.com/divanvisagie/photograph/internal/imaging"
)

func TestDownsampleIsIdentityBelowCap(t *testing.T) {
	img := imaging.New(100, 50)
	out := Downsample(img, 200, Final)
	if out != img {
		t.Fatalf("want the same image returned unchanged when already under the cap")
	}
}

func TestDownsampleReducesLongEdgeToCap(t *testing.T) {
	img := imaging.New(6000, 4000)
	out := Downsample(img, 3000, Interactive)
	if out.Width != 3000 || out.Height != 2000 {
		t.Fatalf("want 3000x2000, got %dx%d", out.Width, out.Height)
	}
}

func TestDownsamplePortraitAspect(t *testing.T) {
	img := imaging.New(3000, 6000)
	out := Downsample(img, 2400, Final)
	if out.Width != 1200 || out.Height != 2400 {
		t.Fatalf("want 1200x2400, got %dx%d", out.Width, out.Height)
	}
}

func TestDownsampleZeroCapIsIdentity(t *testing.T) {
	img := imaging.New(10, 10)
	out := Downsample(img, 0, Final)
	if out != img {
		t.Fatalf("want identity for a zero cap")
	}
}

func TestBoxDownsampleAveragesUniformBlocks(t *testing.T) {
	img := imaging.New(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, uint8(x*60), uint8(y*60), 128, 255)
		}
	}
	out := boxDownsample(img, 2, 2)
	r, g, b, a := out.At(0, 0)
	if r != 30 || g != 30 || b != 128 || a != 255 {
		t.Fatalf("want averaged top-left block (30,30,128,255), got (%d,%d,%d,%d)", r, g, b, a)
	}
}
