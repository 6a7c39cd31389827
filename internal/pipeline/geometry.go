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

	"gonum.org/v1/gonum/mat"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
)

// point2D is a 2D point with floating point coordinates, matching the
// teacher's Point2D shape (internal/coord.go) kept as a private helper here
// since the pipeline has no need for the teacher's broader coordinate zoo.
type point2D struct {
	X, Y float32
}

// bilinearSample samples img at floating point coordinates (x, y), filling
// out-of-bounds reads with opaque black (spec.md section 4.1 steps 1-2).
func bilinearSample(img *imaging.Image, x, y float32) (r, g, b, a float32) {
	x0 := int(math.Floor(float64(x)))
	y0 := int(math.Floor(float64(y)))
	fx := x - float32(x0)
	fy := y - float32(y0)

	r00, g00, b00, a00 := sampleOrBlack(img, x0, y0)
	r10, g10, b10, a10 := sampleOrBlack(img, x0+1, y0)
	r01, g01, b01, a01 := sampleOrBlack(img, x0, y0+1)
	r11, g11, b11, a11 := sampleOrBlack(img, x0+1, y0+1)

	lerp := func(a00, a10, a01, a11 float32) float32 {
		top := a00*(1-fx) + a10*fx
		bot := a01*(1-fx) + a11*fx
		return top*(1-fy) + bot*fy
	}
	return lerp(r00, r10, r01, r11), lerp(g00, g10, g01, g11), lerp(b00, b10, b01, b11), lerp(a00, a10, a01, a11)
}

func sampleOrBlack(img *imaging.Image, x, y int) (r, g, b, a float32) {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return 0, 0, 0, 255
	}
	rr, gg, bb, aa := img.At(x, y)
	return float32(rr), float32(gg), float32(bb), float32(aa)
}

// applyStraighten rotates the image about its center by state.Straighten
// degrees. Output dimensions are unchanged. Samples falling outside the
// source become opaque black (spec.md section 4.1 step 1).
func applyStraighten(img *imaging.Image, angleDeg float32) *imaging.Image {
	if abs32(angleDeg) <= StraightenThreshold {
		return img
	}
	out := imaging.New(img.Width, img.Height)
	H := StraightenInverseMatrix(float32(img.Width), float32(img.Height), angleDeg)

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			sx, sy := applyHomography(H, float32(x), float32(y))
			r, g, b, a := bilinearSample(img, sx, sy)
			out.Set(x, y, clampByte(r), clampByte(g), clampByte(b), clampByte(a))
		}
	}
	return out
}

// StraightenInverseMatrix builds the inverse-direction (destination-to-
// source) affine rotation for a straighten-by-angleDeg-degrees operation
// about the image center, as the 3x3 homogeneous matrix internal/gpuproc's
// fused geometry kernel composes with KeystoneInverseMatrix.
func StraightenInverseMatrix(w, h, angleDeg float32) *mat.Dense {
	theta := -float64(angleDeg) * math.Pi / 180
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	cx, cy := float64(w)/2, float64(h)/2
	return mat.NewDense(3, 3, []float64{
		cosT, -sinT, cx - cosT*cx + sinT*cy,
		sinT, cosT, cy - sinT*cx - cosT*cy,
		0, 0, 1,
	})
}

// keystoneCorners computes the four destination corners for a keystone
// correction, exactly as spec.md section 4.1 step 2 defines them.
func keystoneCorners(w, h, v, hk float32) (tl, tr, br, bl point2D) {
	maxF := func(a, b float32) float32 {
		if a > b {
			return a
		}
		return b
	}
	tl = point2D{maxF(v, 0) * w, maxF(hk, 0) * h}
	tr = point2D{w - maxF(v, 0)*w, maxF(-hk, 0) * h}
	br = point2D{w - maxF(-v, 0)*w, h - maxF(-hk, 0)*h}
	bl = point2D{maxF(-v, 0) * w, h - maxF(hk, 0)*h}
	return
}

// homography3x3 computes the 3x3 projective transform mapping the source
// unit rectangle corners (0,0),(w,0),(w,h),(0,h) onto the given destination
// corners, via the standard 8-unknown DLT linear solve (gonum mat.Solve).
func homography3x3(w, h float32, dst [4]point2D) *mat.Dense {
	src := [4]point2D{{0, 0}, {w, 0}, {w, h}, {0, h}}

	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		sx, sy := float64(src[i].X), float64(src[i].Y)
		dx, dy := float64(dst[i].X), float64(dst[i].Y)
		A.SetRow(2*i, []float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx})
		A.SetRow(2*i+1, []float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy})
		B.SetVec(2*i, dx)
		B.SetVec(2*i+1, dy)
	}

	var x mat.VecDense
	if err := x.SolveVec(A, B); err != nil {
		// Degenerate quad (zero area); fall back to identity so callers
		// never see a panic from a pathological keystone setting.
		return identity3x3()
	}
	h33 := mat.NewDense(3, 3, []float64{
		x.AtVec(0), x.AtVec(1), x.AtVec(2),
		x.AtVec(3), x.AtVec(4), x.AtVec(5),
		x.AtVec(6), x.AtVec(7), 1,
	})
	return h33
}

func identity3x3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// applyHomography maps a point through a 3x3 projective matrix, dividing by
// the homogeneous w component (spec.md section 4.2's "divide by w").
func applyHomography(H *mat.Dense, x, y float32) (float32, float32) {
	px := H.At(0, 0)*float64(x) + H.At(0, 1)*float64(y) + H.At(0, 2)
	py := H.At(1, 0)*float64(x) + H.At(1, 1)*float64(y) + H.At(1, 2)
	pw := H.At(2, 0)*float64(x) + H.At(2, 1)*float64(y) + H.At(2, 2)
	if pw == 0 {
		return 0, 0
	}
	return float32(px / pw), float32(py / pw)
}

func invert3x3(H *mat.Dense) *mat.Dense {
	var inv mat.Dense
	if err := inv.Inverse(H); err != nil {
		return identity3x3()
	}
	return &inv
}

// applyKeystone perspective-warps img per the four destination corners
// spec.md section 4.1 step 2 defines, sampling from the inverse mapping
// with bilinear interpolation, opaque black fill on misses.
func applyKeystone(img *imaging.Image, v, h float32) *imaging.Image {
	if abs32(v) <= KeystoneThreshold && abs32(h) <= KeystoneThreshold {
		return img
	}
	inv := KeystoneInverseMatrix(float32(img.Width), float32(img.Height), v, h)

	out := imaging.New(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			sx, sy := applyHomography(inv, float32(x), float32(y))
			r, g, b, a := bilinearSample(img, sx, sy)
			out.Set(x, y, clampByte(r), clampByte(g), clampByte(b), clampByte(a))
		}
	}
	return out
}

// KeystoneInverseMatrix returns the inverse (destination-to-source)
// homography for a vertical/horizontal keystone correction of a w x h
// image, the same matrix applyKeystone uses internally.
func KeystoneInverseMatrix(w, h, v, hk float32) *mat.Dense {
	tl, tr, br, bl := keystoneCorners(w, h, v, hk)
	H := homography3x3(w, h, [4]point2D{tl, tr, br, bl})
	return invert3x3(H)
}

// ComposeGeometryInverse fuses the straighten and keystone inverse
// homographies into a single destination-to-source matrix, letting
// internal/gpuproc's geo kernel resample both corrections in one dispatch
// instead of two (spec.md section 5). Rotate/flip/crop are not homography
// operations in the GPU kernel's sense (rotate/flip are index permutations
// and crop is a canvas resize) so they are applied separately by both
// backends after this fused resample.
func ComposeGeometryInverse(w, h, straightenDeg, keystoneV, keystoneH float32) *mat.Dense {
	var total mat.Dense
	s := StraightenInverseMatrix(w, h, straightenDeg)
	k := KeystoneInverseMatrix(w, h, keystoneV, keystoneH)
	total.Mul(s, k)
	return &total
}

// Rotate exposes applyOrthogonalRotate for internal/gpuproc, which performs
// the same orthogonal rotation as a CPU-side index permutation after its
// GPU resample, rather than encoding it as a shader pass.
func Rotate(img *imaging.Image, rotate int) *imaging.Image {
	return applyOrthogonalRotate(img, rotate)
}

// Flip exposes applyFlip for internal/gpuproc.
func Flip(img *imaging.Image, flipH, flipV bool) *imaging.Image {
	return applyFlip(img, flipH, flipV)
}

// Crop exposes applyCrop for internal/gpuproc.
func Crop(img *imaging.Image, crop *edit.Rect) *imaging.Image {
	return applyCrop(img, crop)
}

// applyOrthogonalRotate rotates img by rotate degrees, one of {0,90,180,270}.
// Output dimensions transpose for 90/270 (spec.md section 4.1 step 3).
func applyOrthogonalRotate(img *imaging.Image, rotate int) *imaging.Image {
	switch rotate {
	case 90:
		out := imaging.New(img.Height, img.Width)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, a := img.At(x, y)
				out.Set(img.Height-1-y, x, r, g, b, a)
			}
		}
		return out
	case 180:
		out := imaging.New(img.Width, img.Height)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, a := img.At(x, y)
				out.Set(img.Width-1-x, img.Height-1-y, r, g, b, a)
			}
		}
		return out
	case 270:
		out := imaging.New(img.Height, img.Width)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, a := img.At(x, y)
				out.Set(y, img.Width-1-x, r, g, b, a)
			}
		}
		return out
	default:
		return img
	}
}

// applyFlip mirrors horizontally then vertically, per the enabled axes
// (spec.md section 4.1 step 4).
func applyFlip(img *imaging.Image, flipH, flipV bool) *imaging.Image {
	if !flipH && !flipV {
		return img
	}
	out := imaging.New(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			sx, sy := x, y
			if flipH {
				sx = img.Width - 1 - x
			}
			if flipV {
				sy = img.Height - 1 - y
			}
			r, g, b, a := img.At(sx, sy)
			out.Set(x, y, r, g, b, a)
		}
	}
	return out
}

// applyCrop truncates crop.x*W and crop.y*H to integers (floor), and clamps
// the width/height so the crop never exceeds the source (spec.md section
// 4.1 step 5). A zero-area crop is skipped, returning img unchanged.
func applyCrop(img *imaging.Image, crop *edit.Rect) *imaging.Image {
	if crop == nil {
		return img
	}
	w, h := float32(img.Width), float32(img.Height)
	cx := int(math.Floor(float64(crop.X * w)))
	cy := int(math.Floor(float64(crop.Y * h)))
	cw := minI(int(crop.Width*w), img.Width-cx)
	ch := minI(int(crop.Height*h), img.Height-cy)
	if cw <= 0 || ch <= 0 {
		return img
	}
	out := imaging.New(cw, ch)
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			r, g, b, a := img.At(cx+x, cy+y)
			out.Set(x, y, r, g, b, a)
		}
	}
	return out
}

func minI(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
