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

import "math"

// smoothstep is the classic Hermite interpolation used to weight the
// highlights/shadows stage (spec.md section 4.1 step 7).
func smoothstep(edge0, edge1, x float32) float32 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// applyExposureContrast implements spec.md section 4.1 step 6: for each
// channel c in [0,1], c <- clamp((c*2^exposure - 0.5)*(1+contrast) + 0.5, 0, 1).
func applyExposureContrast(r, g, b float32, exposure, contrast float32) (float32, float32, float32) {
	gain := float32(math.Pow(2, float64(exposure)))
	f := func(c float32) float32 {
		return clamp01((c*gain-0.5)*(1+contrast) + 0.5)
	}
	return f(r), f(g), f(b)
}

// applyHighlightsShadows implements the luminance-preserving lift/compress
// of spec.md section 4.1 step 7.
func applyHighlightsShadows(r, g, b, highlights, shadows float32) (float32, float32, float32) {
	l := 0.2126*r + 0.7152*g + 0.0722*b
	lp := l
	if shadows != 0 {
		w := 1 - smoothstep(0, 0.5, lp)
		if shadows > 0 {
			lp += (1 - lp) * shadows * w
		} else {
			lp *= 1 + shadows*w
		}
	}
	if highlights != 0 {
		w := smoothstep(0.5, 1, lp)
		if highlights > 0 {
			lp += (1 - lp) * highlights * w
		} else {
			lp *= 1 + highlights*w
		}
	}
	scale := float32(1)
	if l >= 1e-5 {
		scale = lp / l
	}
	return clamp01(r * scale), clamp01(g * scale), clamp01(b * scale)
}

// applyTemperature implements the warm/cool shift of spec.md section 4.1 step 8.
func applyTemperature(r, g, b, temperature float32) (float32, float32, float32) {
	if temperature > 0 {
		t := temperature
		r = r + (1-r)*t*0.25
		b = b * (1 - t*0.25)
	} else if temperature < 0 {
		c := -temperature
		b = b + (1-b)*c*0.25
		r = r * (1 - c*0.25)
	}
	return clamp01(r), clamp01(g), clamp01(b)
}
