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

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// reserver hands out collision-free output paths for a batch, following
// spec.md section 4.6's naming rule: try stem.ext, then stem-2.ext through
// stem-9999.ext, skipping names already reserved in this batch or present
// on disk, finally falling back to stem-final.ext. It must only be driven
// from the owner thread while jobs are being built, before the worker pool
// starts (spec.md section 5, "mutated only on the owner thread").
type reserver struct {
	outDir   string
	reserved map[string]bool
}

func newReserver(outDir string) *reserver {
	return &reserver{outDir: outDir, reserved: make(map[string]bool)}
}

// reserve returns a path under outDir for sourcePath with the given
// extension (no leading dot), guaranteed distinct from every path already
// handed out by this reserver and from anything already on disk at the
// time of the call.
func (r *reserver) reserve(sourcePath, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	candidate := fmt.Sprintf("%s.%s", stem, ext)
	if r.tryReserve(candidate) {
		return filepath.Join(r.outDir, candidate)
	}
	for n := 2; n <= 9999; n++ {
		candidate = fmt.Sprintf("%s-%d.%s", stem, n, ext)
		if r.tryReserve(candidate) {
			return filepath.Join(r.outDir, candidate)
		}
	}
	candidate = fmt.Sprintf("%s-final.%s", stem, ext)
	r.reserved[candidate] = true
	return filepath.Join(r.outDir, candidate)
}

func (r *reserver) tryReserve(name string) bool {
	if r.reserved[name] {
		return false
	}
	if r.existsOnDisk(name) {
		r.reserved[name] = true // also taken; never hand it out again
		return false
	}
	r.reserved[name] = true
	return true
}

func (r *reserver) existsOnDisk(name string) bool {
	_, err := os.Stat(filepath.Join(r.outDir, name))
	return err == nil
}
