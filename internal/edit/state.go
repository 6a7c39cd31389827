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

// Package edit describes the typed, serializable edit state applied by the
// pipeline, and its sidecar persistence on disk.
package edit

// HSLAdjust is a per-band hue/saturation/lightness adjustment used both for
// selective color bands and as a building block elsewhere.
type HSLAdjust struct {
	Hue       float32 `json:"hue"`
	Sat       float32 `json:"sat"`
	Lightness float32 `json:"light"`
}

// Keystone holds the vertical and horizontal perspective correction factors.
type Keystone struct {
	Vertical   float32 `json:"vertical"`
	Horizontal float32 `json:"horizontal"`
}

// Rect is a crop rectangle normalized to [0,1] for x, y, width and height.
type Rect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// GradFilter is a vertical linear exposure ramp (graduated neutral-density
// filter emulation).
type GradFilter struct {
	Top      float32 `json:"top"`
	Bottom   float32 `json:"bottom"`
	Exposure float32 `json:"exposure"`
}

// Band names the eight selective color bands in their fixed serialization order.
type Band int

const (
	BandRed Band = iota
	BandOrange
	BandYellow
	BandGreen
	BandCyan
	BandBlue
	BandPurple
	BandPink
	numBands
)

// BandCenters holds the hue center in degrees for each selective color band,
// in BandRed..BandPink order (spec.md section 3).
var BandCenters = [numBands]float32{0, 30, 60, 120, 180, 240, 285, 330}

// BandHalfWidth is the triangular falloff half-width in degrees for every band.
const BandHalfWidth = 30.0

// State is an immutable-by-copy description of every non-destructive
// adjustment applicable to one image. Crop and GraduatedFilter are pointers,
// so plain == compares their addresses; Equal compares what they point to.
type State struct {
	Rotate    int  `json:"rotate"`
	FlipH     bool `json:"flip_h"`
	FlipV     bool `json:"flip_v"`
	Crop      *Rect `json:"crop,omitempty"`
	Straighten float32 `json:"straighten"`
	Keystone  Keystone `json:"keystone"`

	Exposure    float32 `json:"exposure"`
	Contrast    float32 `json:"contrast"`
	Highlights  float32 `json:"highlights"`
	Shadows     float32 `json:"shadows"`
	Temperature float32 `json:"temperature"`
	Saturation  float32 `json:"saturation"`
	HueShift    float32 `json:"hue_shift"`

	SelectiveColor [numBands]HSLAdjust `json:"selective_color"`

	GraduatedFilter *GradFilter `json:"graduated_filter,omitempty"`

	Sharpness float32 `json:"sharpness"`
}

// Default returns the identity edit state: applying it must reproduce the
// source image byte-for-byte (spec.md section 8, "Identity").
func Default() State {
	return State{}
}

// NormalizedRotate returns Rotate reduced to {0, 90, 180, 270} via mod 360,
// as spec.md section 3 requires.
func (s State) NormalizedRotate() int {
	r := s.Rotate % 360
	if r < 0 {
		r += 360
	}
	// Snap to the nearest orthogonal step; callers are expected to only set
	// {0,90,180,270}, but guard against stray values defensively.
	switch {
	case r < 45 || r >= 315:
		return 0
	case r < 135:
		return 90
	case r < 225:
		return 180
	default:
		return 270
	}
}

// Clamp returns a copy of s with every field clamped to its documented
// range (spec.md section 3 table). Stage implementations never throw; the
// boundary between "what the UI might produce" and "what stages consume"
// is here (spec.md section 7).
func (s State) Clamp() State {
	c := s
	c.Straighten = clampF(s.Straighten, -15, 15)
	c.Keystone.Vertical = clampF(s.Keystone.Vertical, -0.5, 0.5)
	c.Keystone.Horizontal = clampF(s.Keystone.Horizontal, -0.5, 0.5)
	c.Exposure = clampF(s.Exposure, -5, 5)
	c.Contrast = clampF(s.Contrast, -1, 1)
	c.Highlights = clampF(s.Highlights, -1, 1)
	c.Shadows = clampF(s.Shadows, -1, 1)
	c.Temperature = clampF(s.Temperature, -1, 1)
	c.Saturation = clampF(s.Saturation, -1, 1)
	c.HueShift = clampF(s.HueShift, -180, 180)
	c.Sharpness = clampF(s.Sharpness, 0, 2)
	for i := range c.SelectiveColor {
		c.SelectiveColor[i].Hue = clampF(s.SelectiveColor[i].Hue, -45, 45)
		c.SelectiveColor[i].Sat = clampF(s.SelectiveColor[i].Sat, -1, 1)
		c.SelectiveColor[i].Lightness = clampF(s.SelectiveColor[i].Lightness, -1, 1)
	}
	if c.Crop != nil {
		cr := *c.Crop
		if cr.Width < 0.01 {
			cr.Width = 0.01
		}
		if cr.Height < 0.01 {
			cr.Height = 0.01
		}
		c.Crop = &cr
	}
	if c.GraduatedFilter != nil {
		gf := *c.GraduatedFilter
		gf.Top = clampF(gf.Top, 0, 1)
		gf.Bottom = clampF(gf.Bottom, 0, 1)
		if gf.Bottom <= gf.Top+1e-4 {
			gf.Bottom = gf.Top + 1e-4
		}
		gf.Exposure = clampF(gf.Exposure, -5, 5)
		c.GraduatedFilter = &gf
	}
	return c
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Equal reports whether two states are structurally identical, honoring the
// pointer-optional crop/graduated-filter fields by value.
func Equal(a, b State) bool {
	if a.Rotate != b.Rotate || a.FlipH != b.FlipH || a.FlipV != b.FlipV ||
		a.Straighten != b.Straighten || a.Keystone != b.Keystone ||
		a.Exposure != b.Exposure || a.Contrast != b.Contrast ||
		a.Highlights != b.Highlights || a.Shadows != b.Shadows ||
		a.Temperature != b.Temperature || a.Saturation != b.Saturation ||
		a.HueShift != b.HueShift || a.SelectiveColor != b.SelectiveColor ||
		a.Sharpness != b.Sharpness {
		return false
	}
	if !equalRectPtr(a.Crop, b.Crop) {
		return false
	}
	if !equalGradPtr(a.GraduatedFilter, b.GraduatedFilter) {
		return false
	}
	return true
}

func equalRectPtr(a, b *Rect) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalGradPtr(a, b *GradFilter) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
