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
	"github.com/gviegas/gpu/driver"

	"github.com/divanvisagie/photograph/internal/imaging"
)

// gpuImage bundles a driver.Image together with the storage view every
// kernel in this package binds it through, and the row stride (in pixels)
// its staging buffer uses.
type gpuImage struct {
	img    driver.Image
	view   driver.ImageView
	stride int
}

func (g gpuImage) destroy() {
	g.view.Destroy()
	g.img.Destroy()
}

// uploadImage creates a shader-read/write storage image on gpu and fills it
// from src via a host-visible staging buffer and a copy-only command
// buffer, blocking until the upload completes.
func uploadImage(gpu driver.GPU, src *imaging.Image) (gpuImage, error) {
	dim := driver.Dim3D{Width: src.Width, Height: src.Height, Depth: 1}
	img, err := gpu.NewImage(driver.RGBA8un, dim, 1, 1, 1, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return gpuImage{}, err
	}
	view, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		img.Destroy()
		return gpuImage{}, err
	}

	stride := src.Width
	stagingBytes := unpackImage(src, stridedRowBytes(stride))
	stg, err := gpu.NewBuffer(int64(len(stagingBytes)), true, driver.UShaderRead)
	if err != nil {
		view.Destroy()
		img.Destroy()
		return gpuImage{}, err
	}
	copy(stg.Bytes(), stagingBytes)

	cb, err := gpu.NewCmdBuffer()
	if err != nil {
		stg.Destroy()
		view.Destroy()
		img.Destroy()
		return gpuImage{}, err
	}
	defer cb.Destroy()
	defer stg.Destroy()

	if err := cb.Begin(); err != nil {
		view.Destroy()
		img.Destroy()
		return gpuImage{}, err
	}
	cb.BeginBlit(false)
	cb.CopyBufToImg(&driver.BufImgCopy{
		Buf:    stg,
		Stride: [2]int64{int64(stride), int64(src.Height)},
		Img:    img,
		Layer:  0,
		Level:  0,
		Size:   dim,
	})
	cb.EndBlit()
	if err := cb.End(); err != nil {
		view.Destroy()
		img.Destroy()
		return gpuImage{}, err
	}
	if err := commitAndWait(gpu, cb); err != nil {
		view.Destroy()
		img.Destroy()
		return gpuImage{}, err
	}
	return gpuImage{img: img, view: view, stride: stride}, nil
}

// newScratchImage allocates a GPU image with the given dimensions for an
// intermediate kernel output, without uploading any data.
func newScratchImage(gpu driver.GPU, width, height int, pf driver.PixelFmt) (gpuImage, error) {
	dim := driver.Dim3D{Width: width, Height: height, Depth: 1}
	img, err := gpu.NewImage(pf, dim, 1, 1, 1, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return gpuImage{}, err
	}
	view, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		img.Destroy()
		return gpuImage{}, err
	}
	return gpuImage{img: img, view: view, stride: width}, nil
}

// downloadImage reads g back into a tightly packed *imaging.Image.
func downloadImage(gpu driver.GPU, g gpuImage, width, height int) (*imaging.Image, error) {
	rowBytes := stridedRowBytes(g.stride)
	stg, err := gpu.NewBuffer(int64(rowBytes*height), true, driver.UShaderWrite)
	if err != nil {
		return nil, err
	}
	defer stg.Destroy()

	cb, err := gpu.NewCmdBuffer()
	if err != nil {
		return nil, err
	}
	defer cb.Destroy()

	if err := cb.Begin(); err != nil {
		return nil, err
	}
	cb.BeginBlit(false)
	cb.CopyImgToBuf(&driver.BufImgCopy{
		Buf:    stg,
		Stride: [2]int64{int64(g.stride), int64(height)},
		Img:    g.img,
		Layer:  0,
		Level:  0,
		Size:   driver.Dim3D{Width: width, Height: height, Depth: 1},
	})
	cb.EndBlit()
	if err := cb.End(); err != nil {
		return nil, err
	}
	if err := commitAndWait(gpu, cb); err != nil {
		return nil, err
	}
	return packImage(stg.Bytes(), rowBytes, width, height), nil
}

// commitAndWait submits a single command buffer and blocks until the GPU
// reports completion, the synchronous calling convention every gpuproc
// entry point uses (spec.md section 5 makes no promise of async pipelining
// within a single Run call).
func commitAndWait(gpu driver.GPU, cb driver.CmdBuffer) error {
	ch := make(chan error, 1)
	gpu.Commit([]driver.CmdBuffer{cb}, ch)
	return <-ch
}
