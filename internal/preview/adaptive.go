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

package preview

import "time"

// OnZoomChange implements spec.md section 4.4 rule 6, "adaptive reload":
// when the viewport zoom demands more source detail than the currently
// published preview carries, schedule a higher-resolution Final job,
// capped by the source image's native long edge, debounced the same
// 300ms as any other edit. It is a no-op if a load or reload is already
// in flight, since only one job may be outstanding at a time.
func (s *Scheduler) OnZoomChange(level float64, now time.Time) {
	if s.inFlight {
		return
	}
	wanted := int(level * float64(DefaultPreviewMax))
	if wanted > s.sourceLongEdge {
		wanted = s.sourceLongEdge
	}
	if wanted <= s.currentCap {
		return
	}
	s.targetCap = wanted
	s.requestedGeneration++
	s.needsProcess = true
	s.lastSliderChange = now
}
