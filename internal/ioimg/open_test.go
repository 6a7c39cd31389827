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

package ioimg

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/divanvisagie/photograph/internal/imaging"
)

func TestIsRawRecognizesKnownExtensionsCaseInsensitively(t *testing.T) {
	for _, name := range []string{"a.RAF", "b.dng", "c.NEF", "d.cr2", "e.Arw"} {
		if !IsRaw(name) {
			t.Fatalf("want %q recognized as raw", name)
		}
	}
	if IsRaw("f.jpg") {
		t.Fatalf("jpg must not be treated as raw")
	}
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img := imaging.New(3, 2)
	img.Set(0, 0, 255, 0, 0, 255)
	if err := png.Encode(f, img.ToRGBA()); err != nil {
		t.Fatal(err)
	}
}

func TestOpenDecodesStandardFormatWithoutRawDecoder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	writeTestPNG(t, path)

	img, err := Open(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Width != 3 || img.Height != 2 {
		t.Fatalf("want 3x2, got %dx%d", img.Width, img.Height)
	}
	r, _, _, a := img.At(0, 0)
	if r != 255 || a != 255 {
		t.Fatalf("want red opaque pixel at (0,0), got r=%d a=%d", r, a)
	}
}

type fakeRawDecoder struct {
	developed *imaging.Image
	preview   *imaging.Image
}

func (f *fakeRawDecoder) Develop(path string) (*imaging.Image, error) { return f.developed, nil }
func (f *fakeRawDecoder) Preview(path string) (*imaging.Image, error) { return f.preview, nil }

func TestOpenFallsBackToRawDecoderForRawExtension(t *testing.T) {
	dec := &fakeRawDecoder{developed: imaging.New(8, 6)}
	img, err := Open("/nonexistent/shot.dng", dec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Width != 8 || img.Height != 6 {
		t.Fatalf("want the decoder's developed image, got %dx%d", img.Width, img.Height)
	}
}

func TestOpenRawWithoutDecoderFails(t *testing.T) {
	_, err := Open("/nonexistent/shot.dng", nil)
	if err == nil {
		t.Fatalf("want an error when no raw decoder is configured")
	}
}

func TestOpenPreviewPrefersEmbedded(t *testing.T) {
	dec := &fakeRawDecoder{developed: imaging.New(8, 6), preview: imaging.New(2, 2)}
	img, source, err := OpenPreview("/nonexistent/shot.nef", dec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != Embedded {
		t.Fatalf("want Embedded, got %v", source)
	}
	if img.Width != 2 || img.Height != 2 {
		t.Fatalf("want the embedded 2x2 preview, got %dx%d", img.Width, img.Height)
	}
}

func TestOpenPreviewFallsBackToFullDevelopWithoutEmbedded(t *testing.T) {
	dec := &fakeRawDecoder{developed: imaging.New(8, 6)}
	img, source, err := OpenPreview("/nonexistent/shot.cr2", dec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != FullDevelop {
		t.Fatalf("want FullDevelop, got %v", source)
	}
	if img.Width != 8 {
		t.Fatalf("want the full-develop 8px-wide image, got %d", img.Width)
	}
}
