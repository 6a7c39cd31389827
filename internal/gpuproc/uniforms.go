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
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/divanvisagie/photograph/internal/edit"
)

// The packers below produce std140-layout uniform buffer contents matching
// each kernel's "Uniforms" block declaration. std140 padding is applied
// explicitly (mat3 columns as vec4, ivec2 at 8-byte alignment, array
// elements rounded up to 16 bytes) rather than relying on any reflection
// trick, since getting this wrong silently breaks GPU/CPU parity.

func putFloat32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func putInt32(buf []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(buf[off:], uint32(v))
}

// packGeoUniforms lays out mat3 invHomography (48 bytes, vec4-padded
// columns), then ivec2 srcSize, then ivec2 dstSize: 64 bytes total.
func packGeoUniforms(inv *mat.Dense, srcW, srcH, dstW, dstH int) []byte {
	buf := make([]byte, 64)
	for col := 0; col < 3; col++ {
		base := col * 16
		putFloat32(buf, base+0, float32(inv.At(0, col)))
		putFloat32(buf, base+4, float32(inv.At(1, col)))
		putFloat32(buf, base+8, float32(inv.At(2, col)))
		// buf[base+12:base+16] stays zero, the std140 vec4 pad.
	}
	putInt32(buf, 48, int32(srcW))
	putInt32(buf, 52, int32(srcH))
	putInt32(buf, 56, int32(dstW))
	putInt32(buf, 60, int32(dstH))
	return buf
}

// packBlurUniforms lays out a single ivec2 size field (8 bytes).
func packBlurUniforms(w, h int) []byte {
	buf := make([]byte, 8)
	putInt32(buf, 0, int32(w))
	putInt32(buf, 4, int32(h))
	return buf
}

// packBlurVUSMUniforms lays out ivec2 size then float amount, padded to a
// 16-byte multiple as std140 requires for the trailing block size.
func packBlurVUSMUniforms(w, h int, amount float32) []byte {
	buf := make([]byte, 16)
	putInt32(buf, 0, int32(w))
	putInt32(buf, 4, int32(h))
	putFloat32(buf, 8, amount)
	return buf
}

// colorUniformsSize is ivec2(8) + 10 floats(40) + 2 ints(8), rounded up to 16,
// plus 8 bands of 16 bytes each (array elements pad to vec4).
const colorUniformsSize = 64 + 8*16

// packColorUniforms mirrors shaders/color.comp's Uniforms block field for
// field; anySelective mirrors internal/pipeline.applyColorStages' own
// activity check so the GPU and CPU backends agree on when the selective
// color loop runs at all.
func packColorUniforms(w, h int, s edit.State, anySelective bool) []byte {
	buf := make([]byte, colorUniformsSize)
	putInt32(buf, 0, int32(w))
	putInt32(buf, 4, int32(h))
	putFloat32(buf, 8, s.Exposure)
	putFloat32(buf, 12, s.Contrast)
	putFloat32(buf, 16, s.Highlights)
	putFloat32(buf, 20, s.Shadows)
	putFloat32(buf, 24, s.Temperature)
	putFloat32(buf, 28, s.Saturation)
	putFloat32(buf, 32, s.HueShift)

	gradActive := int32(0)
	var top, bottom, gExp float32
	if s.GraduatedFilter != nil {
		gradActive = 1
		top, bottom, gExp = s.GraduatedFilter.Top, s.GraduatedFilter.Bottom, s.GraduatedFilter.Exposure
	}
	putFloat32(buf, 36, top)
	putFloat32(buf, 40, bottom)
	putFloat32(buf, 44, gExp)
	putInt32(buf, 48, gradActive)
	selActive := int32(0)
	if anySelective {
		selActive = 1
	}
	putInt32(buf, 52, selActive)
	// buf[56:64] is std140 tail padding before the bands array.

	const bandsOff = 64
	for i, b := range s.SelectiveColor {
		base := bandsOff + i*16
		putFloat32(buf, base+0, b.Hue)
		putFloat32(buf, base+4, b.Sat)
		putFloat32(buf, base+8, b.Lightness)
	}
	return buf
}
