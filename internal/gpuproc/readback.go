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

package gpuproc

import "github.com/divanvisagie/photograph/internal/imaging"

// stridedRowBytes returns the row stride in bytes a staging buffer copy
// should use: BufImgCopy.Stride is given in pixels (driver/core.go), and
// drivers are free to pad rows beyond width for alignment, so readback must
// never assume rowBytes == width*4.
func stridedRowBytes(stridePixels int) int {
	return stridePixels * 4
}

// packImage copies a driver.Image-shaped RGBA8 staging buffer into a tightly
// packed *imaging.Image, stripping any per-row padding the driver inserted
// for alignment (spec.md section 5, "readback must strip driver row
// padding").
func packImage(staged []byte, strideBytes, width, height int) *imaging.Image {
	img := imaging.New(width, height)
	rowBytes := width * 4
	for y := 0; y < height; y++ {
		src := staged[y*strideBytes : y*strideBytes+rowBytes]
		dst := img.Pix[y*rowBytes : y*rowBytes+rowBytes]
		copy(dst, src)
	}
	return img
}

// unpackImage writes a tightly packed *imaging.Image into a driver-stride
// staging buffer ahead of a CopyBufToImg upload.
func unpackImage(img *imaging.Image, strideBytes int) []byte {
	rowBytes := img.Width * 4
	staged := make([]byte, strideBytes*img.Height)
	for y := 0; y < img.Height; y++ {
		src := img.Pix[y*rowBytes : y*rowBytes+rowBytes]
		dst := staged[y*strideBytes : y*strideBytes+rowBytes]
		copy(dst, src)
	}
	return staged
}
