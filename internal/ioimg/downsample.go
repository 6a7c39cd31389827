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
	"math"

	"golang.org/x/image/draw"

	"github.com/divanvisagie/photograph/internal/imaging"
)

// Quality selects the downsampling filter spec.md section 4.5 mandates:
// a box filter is "acceptable for interactive" use, Lanczos-3 is required
// "for final".
type Quality int

const (
	Interactive Quality = iota
	Final
)

// lanczos3 is a custom draw.Kernel, the same shape golang.org/x/image/draw
// documents for building a kernel beyond the package's built-ins
// (ApproxBiLinear, CatmullRom): a support radius and a windowed-sinc
// weighting function.
var lanczos3 = draw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		if t < -3 || t > 3 {
			return 0
		}
		piT := math.Pi * t
		return 3 * math.Sin(piT) * math.Sin(piT/3) / (piT * piT)
	},
}

// Downsample reduces img so its longest edge is at most longEdgeCap pixels,
// preserving aspect ratio. Images already at or below the cap are returned
// unchanged (spec.md section 4.5's downsample contract is a reduction, not
// an upscale).
func Downsample(img *imaging.Image, longEdgeCap int, quality Quality) *imaging.Image {
	if longEdgeCap <= 0 {
		return img
	}
	longEdge := img.Width
	if img.Height > longEdge {
		longEdge = img.Height
	}
	if longEdge <= longEdgeCap {
		return img
	}

	scale := float64(longEdgeCap) / float64(longEdge)
	w := int(math.Round(float64(img.Width) * scale))
	h := int(math.Round(float64(img.Height) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	if quality == Interactive {
		return boxDownsample(img, w, h)
	}
	return lanczosDownsample(img, w, h)
}

// boxDownsample averages axis-aligned source blocks into each destination
// pixel, the same block-average shape the teacher's
// fits.NewImageBinNxN uses, generalized from an integer bin factor to an
// arbitrary target size.
func boxDownsample(img *imaging.Image, w, h int) *imaging.Image {
	out := imaging.New(w, h)
	sx := float64(img.Width) / float64(w)
	sy := float64(img.Height) / float64(h)
	for dy := 0; dy < h; dy++ {
		y0 := int(float64(dy) * sy)
		y1 := int(float64(dy+1) * sy)
		if y1 <= y0 {
			y1 = y0 + 1
		}
		if y1 > img.Height {
			y1 = img.Height
		}
		for dx := 0; dx < w; dx++ {
			x0 := int(float64(dx) * sx)
			x1 := int(float64(dx+1) * sx)
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if x1 > img.Width {
				x1 = img.Width
			}

			var rSum, gSum, bSum, aSum, n uint32
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, b, a := img.At(x, y)
					rSum += uint32(r)
					gSum += uint32(g)
					bSum += uint32(b)
					aSum += uint32(a)
					n++
				}
			}
			if n == 0 {
				n = 1
			}
			out.Set(dx, dy, uint8(rSum/n), uint8(gSum/n), uint8(bSum/n), uint8(aSum/n))
		}
	}
	return out
}

// lanczosDownsample uses golang.org/x/image/draw's Scale with the Lanczos-3
// kernel above, matching spec.md section 4.5's "Lanczos-3 for final".
func lanczosDownsample(img *imaging.Image, w, h int) *imaging.Image {
	src := img.ToRGBA()
	out := imaging.New(w, h)
	dst := out.ToRGBA()
	lanczos3.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return out
}
