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
	"encoding/json"
	"os"
	"path/filepath"
)

// SidecarPath returns the sidecar location for an image at the given path:
// <dir>/.edits/<filename>.json (spec.md section 4.7).
func SidecarPath(imagePath string) string {
	dir := filepath.Dir(imagePath)
	name := filepath.Base(imagePath)
	return filepath.Join(dir, ".edits", name+".json")
}

// Load reads the sidecar for imagePath. A missing or unparseable sidecar
// yields the default state rather than an error (spec.md sections 4.7/4.8):
// stage implementations and their callers treat "no edits yet" as normal.
func Load(imagePath string) State {
	b, err := os.ReadFile(SidecarPath(imagePath))
	if err != nil {
		return Default()
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return Default()
	}
	return s
}

// Save writes the sidecar for imagePath, creating the parent .edits
// directory if absent and overwriting atomically via a temp file + rename
// (spec.md section 4.7).
func Save(imagePath string, s State) error {
	path := SidecarPath(imagePath)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-sidecar-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
