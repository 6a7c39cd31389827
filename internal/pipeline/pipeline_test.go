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

package pipeline

import (
	"bytes"
	"math"
	"testing"

	"github.com/valyala/fastrand"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
)

// randomImage builds a deterministic pseudo-random RGBA8 image of the given
// size, using fastrand seeded by the caller for reproducible parity tests
// (spec.md section 8's 32x24 synthetic images).
func randomImage(rng *fastrand.RNG, w, h int) *imaging.Image {
	img := imaging.New(w, h)
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255 // opaque alpha
			continue
		}
		img.Pix[i] = byte(rng.Uint32n(256))
	}
	return img
}

func TestIdentityPipelineIsByteIdentical(t *testing.T) {
	rng := &fastrand.RNG{}
	img := randomImage(rng, 32, 24)
	out := Apply(img, edit.Default())
	if !bytes.Equal(img.Pix, out.Pix) {
		t.Fatalf("default edit state must reproduce the source image exactly")
	}
	if out.Width != img.Width || out.Height != img.Height {
		t.Fatalf("identity must preserve dimensions")
	}
}

func TestBelowThresholdIsNoOp(t *testing.T) {
	rng := &fastrand.RNG{}
	img := randomImage(rng, 16, 16)
	s := edit.Default()
	s.Straighten = 0.005 // below the 1e-2 threshold
	s.Sharpness = 0.0005 // below the 1e-3 threshold
	s.Keystone.Vertical = 0.0005
	out := Apply(img, s)
	if !bytes.Equal(img.Pix, out.Pix) {
		t.Fatalf("sub-threshold adjustments must not change output")
	}
}

func TestAlphaPreserved(t *testing.T) {
	rng := &fastrand.RNG{}
	img := imaging.New(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, byte(rng.Uint32n(256)), byte(rng.Uint32n(256)), byte(rng.Uint32n(256)), byte((x+y)*16))
		}
	}
	s := edit.Default()
	s.Exposure = 1.2
	s.Contrast = 0.5
	s.Saturation = 0.4
	out := Apply(img, s)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			_, _, _, wantA := img.At(x, y)
			_, _, _, gotA := out.At(x, y)
			if wantA != gotA {
				t.Fatalf("alpha at (%d,%d): want %d got %d", x, y, wantA, gotA)
			}
		}
	}
}

func TestClampingKeepsChannelsInRange(t *testing.T) {
	rng := &fastrand.RNG{}
	img := randomImage(rng, 20, 20)
	s := edit.Default()
	s.Exposure = 5
	s.Contrast = 1
	s.Highlights = -1
	s.Shadows = 1
	s.Saturation = 1
	out := Apply(img, s)
	// out.Pix is already []byte so channel range is guaranteed by type, but
	// verify no NaN-derived wraparound produced unexpected extremes beyond
	// what clampByte can represent.
	for _, v := range out.Pix {
		if v > 255 {
			t.Fatalf("channel value out of range: %d", v)
		}
	}
}

func TestRotate90ByteExactAtMappedCorner(t *testing.T) {
	rng := &fastrand.RNG{}
	img := randomImage(rng, 12, 8)

	s := edit.Default()
	s.Rotate = 90
	out := Apply(img, s)
	if out.Width != img.Height || out.Height != img.Width {
		t.Fatalf("90 degree rotate must transpose dimensions")
	}
	r, g, b, a := img.At(0, 0)
	r2, g2, b2, a2 := out.At(img.Height-1, 0)
	if r != r2 || g != g2 || b != b2 || a != a2 {
		t.Fatalf("rotate must be byte-exact at the mapped corner")
	}
}

func TestGraduatedFilterWeightBounds(t *testing.T) {
	gf := &edit.GradFilter{Top: 0.1, Bottom: 0.9, Exposure: -0.8}
	want := float32(math.Exp2(float64(gf.Exposure)))
	r, g, b := applyGraduatedFilterRow(1, 1, 1, 0, gf)
	if r != want || g != want || b != want {
		t.Fatalf("rows above top must be full strength: want %v got %v %v %v", want, r, g, b)
	}
	r, g, b = applyGraduatedFilterRow(1, 1, 1, 1, gf)
	if r != 1 || g != 1 || b != 1 {
		t.Fatalf("rows below bottom must be unaffected: got %v %v %v", r, g, b)
	}
}

func TestSelectiveColorOnlyAffectsNearbyHue(t *testing.T) {
	var bands [8]edit.HSLAdjust
	bands[edit.BandBlue] = edit.HSLAdjust{Sat: -0.5}
	// Pure green (hue 120) is far from blue's center (240): should be
	// unaffected by the blue-band saturation cut.
	r, g, b := applySelectiveColor(0, 1, 0, bands)
	if r != 0 || g != 1 || b != 0 {
		t.Fatalf("selective color leaked outside its band: got %v %v %v", r, g, b)
	}
}
