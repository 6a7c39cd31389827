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

// Package ioimg is the image I/O facade (spec.md section 4.5): open a
// source (standard format or RAW), downsample to a long-edge cap, and
// encode to JPEG/PNG/WebP. RAW demosaicing itself is out of scope (spec.md
// section 1); this package only defines and calls the RawDecoder interface
// an external collaborator implements, the same "inject the collaborator,
// never implement it" shape internal/preview and internal/render use for
// internal/backend.
package ioimg

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/divanvisagie/photograph/internal/imaging"
)

// rawExts is the RAW extension set spec.md section 4.5 names.
var rawExts = map[string]bool{
	".raf": true, ".dng": true, ".nef": true, ".cr2": true, ".arw": true,
}

// IsRaw reports whether path's extension is in the RAW set.
func IsRaw(path string) bool {
	return rawExts[strings.ToLower(filepath.Ext(path))]
}

// RawDecoder is the external collaborator spec.md section 1 calls out:
// "RAW decoding internals (provided by an external decoder returning an
// RGBA8 buffer)". This package never implements demosaicing; it only
// calls through this interface when the standard decoders fail on a RAW
// extension.
type RawDecoder interface {
	// Develop fully demosaics path into an 8-bit RGBA image.
	Develop(path string) (*imaging.Image, error)
	// Preview returns an embedded preview or thumbnail payload if the RAW
	// container carries one, or (nil, nil) if it doesn't. Implementations
	// that can't cheaply tell the difference between "no preview" and
	// "error reading one" should just return (nil, nil).
	Preview(path string) (*imaging.Image, error)
}

// ErrDecodeUnsupported is returned by Open when neither the standard
// decoders nor (for RAW extensions) the RawDecoder could produce an image.
var ErrDecodeUnsupported = errors.New("ioimg: unsupported or corrupt image")

// Open decodes path with the standard library/x-image decoders first; on
// failure, if path's extension is a known RAW extension, it hands off to
// dec.Develop (spec.md section 4.5's open contract). dec may be nil, in
// which case RAW files simply fail to decode.
func Open(path string, dec RawDecoder) (*imaging.Image, error) {
	if img, err := openStandard(path); err == nil {
		return img, nil
	} else if !IsRaw(path) {
		return nil, fmt.Errorf("ioimg: open %s: %w", path, err)
	}

	if dec == nil {
		return nil, fmt.Errorf("%w: %s (no raw decoder configured)", ErrDecodeUnsupported, path)
	}
	img, err := dec.Develop(path)
	if err != nil {
		return nil, fmt.Errorf("ioimg: raw develop %s: %w", path, err)
	}
	return img, nil
}

// PreviewSource records which path produced a preview buffer, matching
// original_source/src/thumbnail.rs's PreviewSource::{Embedded,FullDevelop}
// distinction, kept public rather than collapsed away (see DESIGN.md's
// Open Question decision).
type PreviewSource int

const (
	FullDevelop PreviewSource = iota
	Embedded
)

func (s PreviewSource) String() string {
	if s == Embedded {
		return "embedded"
	}
	return "full-develop"
}

// OpenPreview implements spec.md section 4.5's preview-open contract: for
// RAW files, prefer an embedded preview/thumbnail over a full develop;
// every other path (including a RAW file whose decoder has no embedded
// asset) goes through the full Open path.
func OpenPreview(path string, dec RawDecoder) (*imaging.Image, PreviewSource, error) {
	if dec != nil && IsRaw(path) {
		if img, err := dec.Preview(path); err == nil && img != nil {
			return img, Embedded, nil
		}
	}
	img, err := Open(path, dec)
	return img, FullDevelop, err
}

// OpenFinal implements spec.md section 4.5's "final render always uses the
// full develop path": a thin name for Open. The render wiring in
// cmd/photograph and internal/rest calls Open directly.
func OpenFinal(path string, dec RawDecoder) (*imaging.Image, error) {
	return Open(path, dec)
}

// openStandard tries the registered image.Decode codecs (jpeg, png, tiff,
// bmp, webp) in the order Go's image.Decode tries registered formats.
func openStandard(path string) (*imaging.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}

// toRGBA converts any decoded image.Image into our RGBA8 buffer.
func toRGBA(src image.Image) *imaging.Image {
	if rgba, ok := src.(*image.RGBA); ok {
		return imaging.NewFromRGBA(rgba)
	}
	b := src.Bounds()
	out := imaging.New(b.Dx(), b.Dy())
	dst := out.ToRGBA()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x-b.Min.X, y-b.Min.Y, src.At(x, y))
		}
	}
	return out
}
