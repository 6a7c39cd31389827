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

// Activity thresholds below which a stage is a no-op, shared between the
// CPU reference pipeline and internal/gpuproc so both backends skip (or
// run) the same stages for the same edit state (spec.md section 8, "Order
// independence below threshold").
const (
	StraightenThreshold = 0.01
	KeystoneThreshold    = 1e-3
	SharpenThreshold     = 1e-3
)
