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

package backend

import (
	"errors"
	"testing"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
)

func TestSelectCoercesCpuWithoutDebugFlag(t *testing.T) {
	if got := Select(Cpu, false); got != Gpu {
		t.Fatalf("Cpu without debug flag: want Gpu, got %v", got)
	}
}

func TestSelectHonorsCpuWithDebugFlag(t *testing.T) {
	if got := Select(Cpu, true); got != Cpu {
		t.Fatalf("Cpu with debug flag: want Cpu, got %v", got)
	}
}

func TestSelectLeavesAutoAndGpuUnchanged(t *testing.T) {
	if got := Select(Auto, false); got != Auto {
		t.Fatalf("Auto: want Auto, got %v", got)
	}
	if got := Select(Gpu, true); got != Gpu {
		t.Fatalf("Gpu: want Gpu, got %v", got)
	}
}

// In this test environment no driver.Driver has registered itself, so every
// GPU attempt fails identically to a real "no device" host. That lets us
// exercise the fallback policy without a real GPU (spec.md section 8,
// "Backend selector" scenarios).
func TestProcessRequiresDebugFlagToFallBack(t *testing.T) {
	img := imaging.New(4, 4)
	_, err := Process(nil, img, edit.Default(), Auto, false)
	if !errors.Is(err, ErrGPURequiredButUnavailable) {
		t.Fatalf("want ErrGPURequiredButUnavailable, got %v", err)
	}
}

func TestProcessFallsBackToCpuWithDebugFlag(t *testing.T) {
	img := imaging.New(4, 4)
	out, err := Process(nil, img, edit.Default(), Auto, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Width != img.Width || out.Height != img.Height {
		t.Fatalf("cpu fallback must preserve dimensions")
	}
}

func TestProcessCpuRequestedWithDebugFlagNeverTouchesGpu(t *testing.T) {
	img := imaging.New(4, 4)
	out, err := Process(nil, img, edit.Default(), Cpu, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Width != img.Width {
		t.Fatalf("expected a cpu-processed result")
	}
}

func TestStartupCheckFailsWithoutDebugFlagOrDevice(t *testing.T) {
	if err := StartupCheck(Gpu, false); err == nil {
		t.Fatalf("expected startup check to fail with no GPU device and no debug fallback")
	}
}

func TestStartupCheckPassesForCpu(t *testing.T) {
	if err := StartupCheck(Cpu, true); err != nil {
		t.Fatalf("cpu backend startup check should never fail: %v", err)
	}
}
