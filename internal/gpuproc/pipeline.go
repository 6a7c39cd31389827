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

import (
	"errors"
	"fmt"

	"github.com/gviegas/gpu/driver"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
	"github.com/divanvisagie/photograph/internal/pipeline"
)

// ErrSizeExceeded means img exceeds the active driver's reported
// MaxImage2D limit (spec.md section 5, "size-exceeded guard").
var ErrSizeExceeded = errors.New("gpuproc: image exceeds driver's MaxImage2D limit")

// Run applies state to img on the GPU, matching internal/pipeline.Apply's
// signature shape and semantics. Geometry (straighten+keystone) and color
// (exposure through the graduated filter, including selective color) are
// dispatched as fused compute kernels; orthogonal rotate, flip and crop are
// cheap index/extent operations applied the same way on both backends
// (spec.md section 5). Sharpening is a two-pass separable blur kernel
// followed by the unsharp-mask combine, fused into the second pass.
func Run(img *imaging.Image, state edit.State) (*imaging.Image, error) {
	gpu, err := openDevice()
	if err != nil {
		return nil, err
	}
	limits := gpu.Limits()
	if img.Width > limits.MaxImage2D || img.Height > limits.MaxImage2D {
		return nil, ErrSizeExceeded
	}
	ks, err := loadKernels(gpu)
	if err != nil {
		return nil, err
	}
	s := state.Clamp()

	out := img
	if geometryActive(s) {
		out, err = runGeo(gpu, ks, out, s)
		if err != nil {
			return nil, fmt.Errorf("gpuproc: geo dispatch: %w", err)
		}
	}
	out = pipeline.Rotate(out, s.NormalizedRotate())
	out = pipeline.Flip(out, s.FlipH, s.FlipV)
	out = pipeline.Crop(out, s.Crop)

	anyColor, anySelective := pipeline.AnyColorActive(s)
	if anyColor || anySelective {
		out, err = runColor(gpu, ks, out, s, anySelective)
		if err != nil {
			return nil, fmt.Errorf("gpuproc: color dispatch: %w", err)
		}
	}
	if s.Sharpness > pipeline.SharpenThreshold {
		out, err = runSharpen(gpu, ks, out, s.Sharpness)
		if err != nil {
			return nil, fmt.Errorf("gpuproc: sharpen dispatch: %w", err)
		}
	}
	return out, nil
}

func geometryActive(s edit.State) bool {
	return absF(s.Straighten) > pipeline.StraightenThreshold ||
		absF(s.Keystone.Vertical) > pipeline.KeystoneThreshold ||
		absF(s.Keystone.Horizontal) > pipeline.KeystoneThreshold
}

func absF(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func runGeo(gpu driver.GPU, ks *kernelSet, img *imaging.Image, s edit.State) (*imaging.Image, error) {
	src, err := uploadImage(gpu, img)
	if err != nil {
		return nil, err
	}
	defer src.destroy()
	dst, err := newScratchImage(gpu, img.Width, img.Height, driver.RGBA8un)
	if err != nil {
		return nil, err
	}
	defer dst.destroy()

	inv := pipeline.ComposeGeometryInverse(float32(img.Width), float32(img.Height), s.Straighten, s.Keystone.Vertical, s.Keystone.Horizontal)
	uniforms := packGeoUniforms(inv, img.Width, img.Height, img.Width, img.Height)
	if err := runKernel(gpu, ks.geo, []driver.ImageView{src.view, dst.view}, uniforms, img.Width, img.Height); err != nil {
		return nil, err
	}
	return downloadImage(gpu, dst, img.Width, img.Height)
}

func runColor(gpu driver.GPU, ks *kernelSet, img *imaging.Image, s edit.State, anySelective bool) (*imaging.Image, error) {
	src, err := uploadImage(gpu, img)
	if err != nil {
		return nil, err
	}
	defer src.destroy()
	dst, err := newScratchImage(gpu, img.Width, img.Height, driver.RGBA8un)
	if err != nil {
		return nil, err
	}
	defer dst.destroy()

	uniforms := packColorUniforms(img.Width, img.Height, s, anySelective)
	if err := runKernel(gpu, ks.color, []driver.ImageView{src.view, dst.view}, uniforms, img.Width, img.Height); err != nil {
		return nil, err
	}
	return downloadImage(gpu, dst, img.Width, img.Height)
}

func runSharpen(gpu driver.GPU, ks *kernelSet, img *imaging.Image, amount float32) (*imaging.Image, error) {
	src, err := uploadImage(gpu, img)
	if err != nil {
		return nil, err
	}
	defer src.destroy()
	blurX, err := newScratchImage(gpu, img.Width, img.Height, driver.RGBA32f)
	if err != nil {
		return nil, err
	}
	defer blurX.destroy()
	dst, err := newScratchImage(gpu, img.Width, img.Height, driver.RGBA8un)
	if err != nil {
		return nil, err
	}
	defer dst.destroy()

	hUniforms := packBlurUniforms(img.Width, img.Height)
	if err := runKernel(gpu, ks.blurH, []driver.ImageView{src.view, blurX.view}, hUniforms, img.Width, img.Height); err != nil {
		return nil, err
	}
	vUniforms := packBlurVUSMUniforms(img.Width, img.Height, amount)
	if err := runKernel(gpu, ks.blurVUSM, []driver.ImageView{blurX.view, src.view, dst.view}, vUniforms, img.Width, img.Height); err != nil {
		return nil, err
	}
	return downloadImage(gpu, dst, img.Width, img.Height)
}
