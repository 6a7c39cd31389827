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

// Package backend chooses between the CPU and GPU edit pipelines and
// implements the one-shot fallback diagnostic policy (spec.md section 4.3).
// Backend selection is a pure function over a tagged variant, matching
// spec.md section 9's "avoid dynamic-dispatch classes" guidance: the CPU
// and GPU pipelines are two free functions sharing one signature shape.
package backend

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/gpuproc"
	"github.com/divanvisagie/photograph/internal/imaging"
	"github.com/divanvisagie/photograph/internal/pipeline"
)

// Backend names the GPU/CPU preference the caller requested.
type Backend int

const (
	Auto Backend = iota
	Cpu
	Gpu
)

func (b Backend) String() string {
	switch b {
	case Cpu:
		return "cpu"
	case Gpu:
		return "gpu"
	default:
		return "auto"
	}
}

// ErrGPURequiredButUnavailable is returned when Gpu (or Auto) was requested,
// the GPU path failed, and debugFallback is false: per policy the caller
// must see an error rather than a silent quality/performance change
// (spec.md section 4.3, "otherwise the operation fails with a runtime error").
var ErrGPURequiredButUnavailable = errors.New("backend: gpu backend unavailable and cpu fallback is disabled")

// Select resolves requested into the backend that will actually attempt to
// run first, applying the Cpu-coercion half of spec.md section 4.3's policy
// table. It does not touch GPU state and never fails; Process performs the
// fallback half once the GPU attempt is known to have failed or succeeded.
func Select(requested Backend, debugFallback bool) Backend {
	if requested == Cpu {
		if debugFallback {
			return Cpu
		}
		return Gpu
	}
	return requested
}

// fallbackOnce implements "the first such fallback emits
// one diagnostic; further fallbacks are silent" (spec.md section 4.3) as a
// process-wide flag, the same shape as internal/gpuproc's device singleton.
var (
	fallbackOnce sync.Once
)

// logFallback reports the first GPU->CPU fallback of the process to w, in
// the teacher's plain fmt.Fprintf logging style.
func logFallback(w io.Writer, cause error) {
	fallbackOnce.Do(func() {
		if w != nil {
			fmt.Fprintf(w, "gpu backend unavailable (%v), falling back to cpu\n", cause)
		}
	})
}

// Process runs the edit pipeline for img/state using the resolved backend
// policy, logging at most one fallback diagnostic to logWriter for the
// lifetime of the process (logWriter may be nil to suppress logging, e.g.
// in tests).
func Process(logWriter io.Writer, img *imaging.Image, state edit.State, requested Backend, debugFallback bool) (*imaging.Image, error) {
	resolved := Select(requested, debugFallback)
	if resolved == Cpu {
		return pipeline.Apply(img, state), nil
	}

	out, err := gpuproc.Run(img, state)
	if err == nil {
		return out, nil
	}
	if !debugFallback {
		return nil, fmt.Errorf("%w: %v", ErrGPURequiredButUnavailable, err)
	}
	logFallback(logWriter, err)
	return pipeline.Apply(img, state), nil
}

// StartupCheck implements spec.md section 4.3's "refuses to start" policy:
// called once from cmd/photograph/main.go before serving any request, it
// returns a non-nil error when the requested backend has no working path at
// all, which main.go turns into an exit code 2.
func StartupCheck(requested Backend, debugFallback bool) error {
	resolved := Select(requested, debugFallback)
	if resolved == Cpu {
		return nil
	}
	if gpuproc.Available() {
		return nil
	}
	if debugFallback {
		return nil
	}
	return fmt.Errorf("backend: requested %s backend has no GPU device and cpu fallback is disabled", resolved)
}
