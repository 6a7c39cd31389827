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
	"embed"
	"fmt"
	"sync"

	"github.com/gviegas/gpu/driver"
)

// shaderSources embeds the portable GLSL compute source for every kernel,
// the way the teacher embeds its static web assets (web/static.go). A
// driver-specific build step compiles these to the bytecode format the
// active driver.Driver expects (SPIR-V for Vulkan) before NewShaderCode is
// called; gpuproc itself stays driver-agnostic.
//
//go:embed shaders/geo.comp shaders/color.comp shaders/blur_h.comp shaders/blur_v_usm.comp
var shaderSources embed.FS

// kernel bundles a compute pipeline with the descriptor heap backing its
// (single-heap) descriptor table, since every dispatch must rewrite that
// heap's image/buffer bindings before recording SetDescTableComp.
type kernel struct {
	heap  driver.DescHeap
	table driver.DescTable
	pipe  driver.Pipeline
}

type kernelSet struct {
	geo      kernel
	color    kernel
	blurH    kernel
	blurVUSM kernel
}

var (
	kernelsOnce sync.Once
	kernels     *kernelSet
	kernelsErr  error
)

// loadKernels builds the four compute pipelines once per process, matching
// device.go's one-shot initialization idiom. Each pipeline's descriptor
// table layout matches the bindings declared at the top of its .comp source.
func loadKernels(gpu driver.GPU) (*kernelSet, error) {
	kernelsOnce.Do(func() {
		kernels, kernelsErr = buildKernels(gpu)
	})
	return kernels, kernelsErr
}

func buildKernels(gpu driver.GPU) (*kernelSet, error) {
	geo, err := newComputePipeline(gpu, "shaders/geo.comp", "main", 3)
	if err != nil {
		return nil, fmt.Errorf("gpuproc: geo kernel: %w", err)
	}
	color, err := newComputePipeline(gpu, "shaders/color.comp", "main", 3)
	if err != nil {
		return nil, fmt.Errorf("gpuproc: color kernel: %w", err)
	}
	blurH, err := newComputePipeline(gpu, "shaders/blur_h.comp", "main", 3)
	if err != nil {
		return nil, fmt.Errorf("gpuproc: blur_h kernel: %w", err)
	}
	blurV, err := newComputePipeline(gpu, "shaders/blur_v_usm.comp", "main", 4)
	if err != nil {
		return nil, fmt.Errorf("gpuproc: blur_v_usm kernel: %w", err)
	}
	return &kernelSet{geo: geo, color: color, blurH: blurH, blurVUSM: blurV}, nil
}

// newComputePipeline loads one kernel's source, builds a descriptor table
// with bindingCount descriptors (images plus one trailing uniform buffer),
// and constructs the driver.CompState pipeline for it.
func newComputePipeline(gpu driver.GPU, path, entry string, bindingCount int) (kernel, error) {
	src, err := shaderSources.ReadFile(path)
	if err != nil {
		return kernel{}, err
	}
	code, err := gpu.NewShaderCode(src)
	if err != nil {
		return kernel{}, err
	}
	descs := make([]driver.Descriptor, bindingCount)
	for i := 0; i < bindingCount-1; i++ {
		descs[i] = driver.Descriptor{Type: driver.DImage, Stages: driver.SCompute, Nr: i, Len: 1}
	}
	descs[bindingCount-1] = driver.Descriptor{Type: driver.DConstant, Stages: driver.SCompute, Nr: bindingCount - 1, Len: 1}

	heap, err := gpu.NewDescHeap(descs)
	if err != nil {
		return kernel{}, err
	}
	if err := heap.New(1); err != nil {
		return kernel{}, err
	}
	table, err := gpu.NewDescTable([]driver.DescHeap{heap})
	if err != nil {
		return kernel{}, err
	}
	pipe, err := gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: code, Name: entry},
		Desc: table,
	})
	if err != nil {
		return kernel{}, err
	}
	return kernel{heap: heap, table: table, pipe: pipe}, nil
}

// workgroupCount returns the number of 16x16 workgroups needed along one axis
// of size pixels, rounding up (spec.md section 5's "16x16 groups").
func workgroupCount(size int) int {
	const tile = 16
	return (size + tile - 1) / tile
}
