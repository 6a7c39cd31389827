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

import "github.com/divanvisagie/photograph/internal/imaging"

// gaussianKernel11 is the documented 1D Gaussian kernel for sigma=1.5,
// radius=5 (spec.md section 4.1), used verbatim rather than derived at
// runtime so the CPU and GPU backends use identical weights (spec.md section 9).
var gaussianKernel11 = [11]float32{
	0.0010284, 0.0075988, 0.0360008, 0.1093607, 0.2130055,
	0.2660117,
	0.2130055, 0.1093607, 0.0360008, 0.0075988, 0.0010284,
}

// reflect mirrors an out-of-bounds coordinate back into [0, size-1],
// matching the teacher's internal/usm.go reflect().
func reflect(size, x int) int {
	if x < 0 {
		return -x - 1
	}
	if x >= size {
		return 2*size - x - 1
	}
	return x
}

// convolve1DX convolves a single-channel plane along x with the given kernel.
func convolve1DX(res, data []float32, width, height int, kernel [11]float32) {
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			var sum float32
			for i := -k; i <= k; i++ {
				x1 := reflect(width, x+i)
				sum += data[row+x1] * kernel[i+k]
			}
			res[row+x] = sum
		}
	}
}

// convolve1DY convolves a single-channel plane along y with the given kernel.
func convolve1DY(res, data []float32, width, height int, kernel [11]float32) {
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float32
			for i := -k; i <= k; i++ {
				y1 := reflect(height, y+i)
				sum += data[y1*width+x] * kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

// gaussianBlurPlane applies the separable 11-tap Gaussian blur to one channel
// plane, overwriting tmp and returning the blurred result in a fresh slice.
func gaussianBlurPlane(data []float32, width, height int) []float32 {
	tmp := make([]float32, len(data))
	out := make([]float32, len(data))
	convolve1DX(tmp, data, width, height, gaussianKernel11)
	convolve1DY(out, tmp, width, height, gaussianKernel11)
	return out
}

// applySharpen implements spec.md section 4.1 step 12: unsharp-mask
// sharpening with the fixed sigma=1.5 Gaussian, amount scaling the
// high-frequency residual. Alpha is preserved.
func applySharpen(img *imaging.Image, amount float32) *imaging.Image {
	if amount <= SharpenThreshold {
		return img
	}
	w, h := img.Width, img.Height
	n := w * h
	rPlane := make([]float32, n)
	gPlane := make([]float32, n)
	bPlane := make([]float32, n)
	for i := 0; i < n; i++ {
		rPlane[i] = float32(img.Pix[i*4])
		gPlane[i] = float32(img.Pix[i*4+1])
		bPlane[i] = float32(img.Pix[i*4+2])
	}
	rBlur := gaussianBlurPlane(rPlane, w, h)
	gBlur := gaussianBlurPlane(gPlane, w, h)
	bBlur := gaussianBlurPlane(bPlane, w, h)

	out := imaging.New(w, h)
	copy(out.Pix, img.Pix)
	for i := 0; i < n; i++ {
		r := clampByte(rPlane[i] + amount*(rPlane[i]-rBlur[i]))
		g := clampByte(gPlane[i] + amount*(gPlane[i]-gBlur[i]))
		b := clampByte(bPlane[i] + amount*(bPlane[i]-bBlur[i]))
		out.Pix[i*4] = r
		out.Pix[i*4+1] = g
		out.Pix[i*4+2] = b
		// alpha already copied above
	}
	return out
}
