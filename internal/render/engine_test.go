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
	"errors"
	"testing"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
)

func testEngine(failOn string) *Engine {
	open := func(path string) (*imaging.Image, error) {
		if path == failOn {
			return nil, errors.New("boom")
		}
		return imaging.New(4, 4), nil
	}
	apply := func(img *imaging.Image, state edit.State) (*imaging.Image, error) {
		return img, nil
	}
	resize := func(img *imaging.Image, cap int) *imaging.Image {
		return img
	}
	encode := func(img *imaging.Image, format Format, jpgQuality, pngCompression int) ([]byte, error) {
		return []byte{0xff, 0xd8}, nil
	}
	return New(open, apply, resize, encode)
}

func TestSubmitRejectsEmptyOutputDir(t *testing.T) {
	e := testEngine("")
	_, err := e.Submit([]Job{{SourcePath: "a.jpg"}}, "", Options{})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("want ErrInvalidOptions, got %v", err)
	}
}

func TestSubmitRejectsZeroResizeLongEdge(t *testing.T) {
	e := testEngine("")
	dir := t.TempDir()
	_, err := e.Submit([]Job{{SourcePath: "a.jpg"}}, dir, Options{ResizeEnabled: true, ResizeLongEdge: 0})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("want ErrInvalidOptions, got %v", err)
	}
}

func TestSubmitRejectsNoJobs(t *testing.T) {
	e := testEngine("")
	dir := t.TempDir()
	_, err := e.Submit(nil, dir, Options{})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("want ErrInvalidOptions, got %v", err)
	}
}

func TestSubmitEmitsProgressThenOneFinished(t *testing.T) {
	e := testEngine("")
	dir := t.TempDir()
	jobs := []Job{
		{SourcePath: "a.jpg"}, {SourcePath: "b.jpg"}, {SourcePath: "c.jpg"},
	}
	events, err := e.Submit(jobs, dir, Options{Format: JPEG, Preset: Balanced})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var progressCount int
	var finished *FinishedEvent
	for ev := range events {
		if ev.Progress != nil {
			progressCount++
			if ev.Progress.Done != progressCount {
				t.Fatalf("progress Done must increase monotonically, got %d at step %d", ev.Progress.Done, progressCount)
			}
		}
		if ev.Finished != nil {
			finished = ev.Finished
		}
	}

	if progressCount != len(jobs) {
		t.Fatalf("want %d progress events, got %d", len(jobs), progressCount)
	}
	if finished == nil {
		t.Fatalf("expected a FinishedEvent")
	}
	if finished.OK != len(jobs) || finished.Failed != 0 {
		t.Fatalf("want all jobs to succeed, got ok=%d failed=%d", finished.OK, finished.Failed)
	}
	if finished.Total != len(jobs) {
		t.Fatalf("want total=%d, got %d", len(jobs), finished.Total)
	}
}

func TestSubmitCountsFailuresAndKeepsFirstError(t *testing.T) {
	e := testEngine("bad.jpg")
	dir := t.TempDir()
	jobs := []Job{{SourcePath: "good.jpg"}, {SourcePath: "bad.jpg"}}
	events, err := e.Submit(jobs, dir, Options{Format: JPEG})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var finished *FinishedEvent
	for ev := range events {
		if ev.Finished != nil {
			finished = ev.Finished
		}
	}
	if finished.OK != 1 || finished.Failed != 1 {
		t.Fatalf("want ok=1 failed=1, got ok=%d failed=%d", finished.OK, finished.Failed)
	}
	if finished.FirstError == nil {
		t.Fatalf("expected FirstError to be retained")
	}
}

func TestPresetParamsMatchFixedTable(t *testing.T) {
	cases := []struct {
		preset             Preset
		jpgQuality, pngCmp int
	}{
		{Quality, 95, 9},
		{Balanced, 90, 6},
		{Speed, 82, 1},
	}
	for _, c := range cases {
		jq, pc := presetParams(c.preset)
		if jq != c.jpgQuality || pc != c.pngCmp {
			t.Fatalf("preset %v: want (%d,%d), got (%d,%d)", c.preset, c.jpgQuality, c.pngCmp, jq, pc)
		}
	}
}
