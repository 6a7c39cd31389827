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

package edit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Fingerprint hashes a canonical JSON serialization of the state, for use as
// the edit_fingerprint component of a preview.CacheKey (spec.md section 3).
// encoding/json marshals struct fields in declaration order, which is
// already stable/canonical for a fixed type.
func (s State) Fingerprint() string {
	b, err := json.Marshal(s)
	if err != nil {
		// State contains no types that can fail to marshal; this would be
		// a programming error, not a runtime condition to recover from.
		panic(fmt.Sprintf("edit: state failed to marshal: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// SourceFingerprint hashes path + file size + modification time, matching
// spec.md section 3's definition of source_fingerprint.
func SourceFingerprint(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", path, fi.Size(), fi.ModTime().UnixNano())
	return hex.EncodeToString(h.Sum(nil)[:8]), nil
}
