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
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/divanvisagie/photograph/internal/edit"
)

// wrap1 wraps a fractional hue position into [0,1), matching spec.md
// section 4.1's wrap1 helper used for hue rotation.
func wrap1(v float32) float32 {
	v = float32(math.Mod(float64(v), 1.0))
	if v < 0 {
		v++
	}
	return v
}

// toHSL converts an sRGB-range [0,1] pixel to HSL, hue normalized to [0,1).
func toHSL(r, g, b float32) (h, s, l float32) {
	c := colorful.Color{R: float64(r), G: float64(g), B: float64(b)}
	hh, ss, ll := c.Hsl()
	return float32(hh / 360.0), float32(ss), float32(ll)
}

// fromHSL converts HSL (hue in [0,1)) back to sRGB [0,1], clamped.
func fromHSL(h, s, l float32) (r, g, b float32) {
	c := colorful.Hsl(float64(h)*360.0, float64(s), float64(l))
	return clamp01(float32(c.R)), clamp01(float32(c.G)), clamp01(float32(c.B))
}

// applySaturationHue implements spec.md section 4.1 step 9: HSL round trip
// with hue_shift (degrees) rotating H and saturation scaling S.
func applySaturationHue(r, g, b, saturation, hueShiftDeg float32) (float32, float32, float32) {
	if saturation == 0 && hueShiftDeg == 0 {
		return r, g, b
	}
	h, s, l := toHSL(r, g, b)
	h = wrap1(h + hueShiftDeg/360.0)
	s = clamp01(s * (1 + saturation))
	return fromHSL(h, s, l)
}

// circularHueDistDeg returns the circular distance in degrees between two
// hue angles in [0,360).
func circularHueDistDeg(a, b float32) float32 {
	d := a - b
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	if d < 0 {
		d = -d
	}
	return d
}

// applySelectiveColor implements spec.md section 4.1 step 10: for each band
// with a non-zero adjustment, a triangular weight based on circular hue
// distance to the band center nudges hue/saturation/lightness. A pixel that
// no active band reaches is returned unchanged, without an HSL round trip.
func applySelectiveColor(r, g, b float32, bands [8]edit.HSLAdjust) (float32, float32, float32) {
	anyActive := false
	for _, adj := range bands {
		if adj.Hue != 0 || adj.Sat != 0 || adj.Lightness != 0 {
			anyActive = true
			break
		}
	}
	if !anyActive {
		return r, g, b
	}
	h, s, l := toHSL(r, g, b)
	hueDeg := h * 360.0
	touched := false
	for i, adj := range bands {
		if adj.Hue == 0 && adj.Sat == 0 && adj.Lightness == 0 {
			continue
		}
		center := edit.BandCenters[i]
		dist := circularHueDistDeg(hueDeg, center)
		w := 1 - dist/edit.BandHalfWidth
		if w <= 0 {
			continue
		}
		touched = true
		h = wrap1(h + (adj.Hue/360.0)*w)
		s = clamp01(s * (1 + adj.Sat*w))
		l = clamp01(l + adj.Lightness*w)
		hueDeg = h * 360.0
	}
	if !touched {
		return r, g, b
	}
	return fromHSL(h, s, l)
}

// applyGraduatedFilterRow implements spec.md section 4.1 step 11: a vertical
// linear exposure ramp between top and bottom, full strength above top,
// none below bottom.
func applyGraduatedFilterRow(r, g, b float32, yNorm float32, gf *edit.GradFilter) (float32, float32, float32) {
	if gf == nil {
		return r, g, b
	}
	var w float32
	switch {
	case yNorm <= gf.Top:
		w = 1
	case yNorm >= gf.Bottom:
		w = 0
	default:
		w = (gf.Bottom - yNorm) / (gf.Bottom - gf.Top)
	}
	if w == 0 {
		return r, g, b
	}
	gain := pow2(gf.Exposure * w)
	return clamp01(r * gain), clamp01(g * gain), clamp01(b * gain)
}

func pow2(v float32) float32 {
	return float32(math.Exp2(float64(v)))
}
