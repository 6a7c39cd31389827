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

// Metadata is the opaque EXIF record the engine consumes for display and
// logging. EXIF extraction itself is out of scope (spec.md section 1); this
// type only models the shape of a record handed in by an external reader.
// render.Job/render.ProgressEvent carry it through unexamined so
// cmd/photograph and internal/rest can print or stream it alongside a
// render task's progress.
type Metadata struct {
	CameraMake   string `json:"camera_make"`
	CameraModel  string `json:"camera_model"`
	Lens         string `json:"lens"`
	ISO          int    `json:"iso"`
	ShutterSpeed string `json:"shutter_speed"`
	Aperture     string `json:"aperture"`
	FocalLength  string `json:"focal_length"`
	DateTaken    string `json:"date_taken"`
}
