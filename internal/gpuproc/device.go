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

// Package gpuproc implements the edit pipeline's GPU compute backend on top
// of github.com/gviegas/gpu's driver package. Every kernel here must
// reproduce internal/pipeline's CPU reference within the tolerances spec.md
// sections 4.2 and 8 define; gpuproc never defines its own semantics.
package gpuproc

import (
	"errors"
	"sync"

	"github.com/gviegas/gpu/driver"
)

// device holds the process-wide GPU handle. Like the teacher's package-level
// logger in internal/log.go, this is deliberately a singleton: opening a
// driver is expensive and the application only ever wants one.
var (
	deviceOnce sync.Once
	gpuHandle  driver.GPU
	initErr    error
)

// ErrNoDriver means no registered driver.Driver could open a device. The
// caller (internal/backend) handles it like any other GPU failure, the same
// way for Auto and Gpu: an error, or a CPU fallback when debug fallback is on.
var ErrNoDriver = errors.New("gpuproc: no usable GPU driver")

// openDevice opens the first driver that succeeds, caching the outcome for
// the remainder of the process (spec.md section 5, "device initialization
// happens once"). Re-opening after a failure is not supported; the process
// must restart for a different GPU driver package to be linked in.
func openDevice() (driver.GPU, error) {
	deviceOnce.Do(func() {
		for _, drv := range driver.Drivers() {
			gpu, err := drv.Open()
			if err == nil {
				gpuHandle = gpu
				return
			}
			initErr = err
		}
		if gpuHandle == nil && initErr == nil {
			initErr = ErrNoDriver
		}
	})
	if gpuHandle == nil {
		if initErr == nil {
			initErr = ErrNoDriver
		}
		return nil, initErr
	}
	return gpuHandle, nil
}

// Available reports whether a GPU device could be opened, without forcing
// callers to handle the error themselves. Used by
// internal/backend.StartupCheck.
func Available() bool {
	_, err := openDevice()
	return err == nil
}
