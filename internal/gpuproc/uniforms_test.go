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
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/divanvisagie/photograph/internal/edit"
)

func TestPackGeoUniformsLayout(t *testing.T) {
	inv := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	buf := packGeoUniforms(inv, 100, 200, 100, 200)
	if len(buf) != 64 {
		t.Fatalf("expected 64-byte std140 block, got %d", len(buf))
	}
	got := math.Float32frombits(uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24)
	if got != 1 {
		t.Fatalf("first matrix element: want 1, got %v", got)
	}
	// Column pad at bytes 12-15 must stay zero per std140's vec4-per-column rule.
	for i := 12; i < 16; i++ {
		if buf[i] != 0 {
			t.Fatalf("expected std140 padding at byte %d to be zero", i)
		}
	}
}

func TestPackColorUniformsSizeIsFixed(t *testing.T) {
	buf := packColorUniforms(64, 64, edit.Default(), false)
	if len(buf) != colorUniformsSize {
		t.Fatalf("want %d bytes, got %d", colorUniformsSize, len(buf))
	}
}

func TestPackBlurVUSMUniformsAmount(t *testing.T) {
	buf := packBlurVUSMUniforms(10, 20, 0.5)
	if len(buf) != 16 {
		t.Fatalf("want 16-byte block, got %d", len(buf))
	}
	got := math.Float32frombits(uint32(buf[8]) | uint32(buf[9])<<8 | uint32(buf[10])<<16 | uint32(buf[11])<<24)
	if got != 0.5 {
		t.Fatalf("amount field: want 0.5, got %v", got)
	}
}

func TestWorkgroupCountRoundsUp(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 16: 1, 17: 2, 32: 2, 33: 3}
	for size, want := range cases {
		if got := workgroupCount(size); got != want {
			t.Fatalf("workgroupCount(%d): want %d, got %d", size, want, got)
		}
	}
}
