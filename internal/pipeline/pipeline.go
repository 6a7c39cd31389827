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

// Package pipeline implements the canonical CPU reference pipeline: a
// deterministic, pure function apply(image, state) -> image (spec.md
// section 4.1). Every GPU kernel in internal/gpuproc must reproduce this
// pipeline's results within the tolerances spec.md section 4.2/8 define.
package pipeline

import (
	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
)

// Apply runs the full edit pipeline against img for the given state, in the
// fixed stage order spec.md section 4.1 mandates. The input is never
// mutated; a default state returns img itself, unchanged (spec.md section 8,
// "Identity").
func Apply(img *imaging.Image, state edit.State) *imaging.Image {
	s := state.Clamp()

	out := applyStraighten(img, s.Straighten)
	out = applyKeystone(out, s.Keystone.Vertical, s.Keystone.Horizontal)
	out = applyOrthogonalRotate(out, s.NormalizedRotate())
	out = applyFlip(out, s.FlipH, s.FlipV)
	out = applyCrop(out, s.Crop)
	out = applyColorStages(out, s)
	out = applySharpen(out, s.Sharpness)
	return out
}

// AnyColorActive reports whether the color stages (exposure through the
// graduated filter) and/or selective color have any effect for s, the same
// activity check applyColorStages uses. internal/gpuproc calls this to
// decide whether to dispatch its color kernel at all, so both backends
// treat "no-op" identically (spec.md section 8).
func AnyColorActive(s edit.State) (anyColor, anySelective bool) {
	anyColor = s.Exposure != 0 || s.Contrast != 0 || s.Highlights != 0 || s.Shadows != 0 ||
		s.Temperature != 0 || s.Saturation != 0 || s.HueShift != 0 || s.GraduatedFilter != nil
	for _, b := range s.SelectiveColor {
		if b.Hue != 0 || b.Sat != 0 || b.Lightness != 0 {
			anySelective = true
			break
		}
	}
	return anyColor, anySelective
}

// applyColorStages runs stages 6-11 (exposure through graduated filter),
// converting to/from [0,1] float per pixel. These stages never change image
// dimensions. When AnyColorActive reports nothing active (every color field
// exactly zero, no graduated filter) the input is returned unchanged.
func applyColorStages(img *imaging.Image, s edit.State) *imaging.Image {
	anyColor, anySelective := AnyColorActive(s)
	if !anyColor && !anySelective {
		return img
	}

	out := img.Clone()
	w, h := out.Width, out.Height
	denom := float32(1)
	if h > 1 {
		denom = float32(h - 1)
	}
	for y := 0; y < h; y++ {
		yNorm := float32(y) / denom
		row := y * w * 4
		for x := 0; x < w; x++ {
			i := row + x*4
			r := float32(out.Pix[i]) / 255
			g := float32(out.Pix[i+1]) / 255
			b := float32(out.Pix[i+2]) / 255

			r, g, b = applyExposureContrast(r, g, b, s.Exposure, s.Contrast)
			r, g, b = applyHighlightsShadows(r, g, b, s.Highlights, s.Shadows)
			r, g, b = applyTemperature(r, g, b, s.Temperature)
			r, g, b = applySaturationHue(r, g, b, s.Saturation, s.HueShift)
			if anySelective {
				r, g, b = applySelectiveColor(r, g, b, s.SelectiveColor)
			}
			r, g, b = applyGraduatedFilterRow(r, g, b, yNorm, s.GraduatedFilter)

			out.Pix[i] = clampByte(r * 255)
			out.Pix[i+1] = clampByte(g * 255)
			out.Pix[i+2] = clampByte(b * 255)
		}
	}
	return out
}
