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

// Package render implements the batch render engine (spec.md section 4.6):
// a bounded worker pool that opens, applies, resizes and encodes a list of
// render tasks in parallel and streams progress back to the caller. The
// fan-out shape is the teacher's ops.OpParallel.ApplyToFiles
// (internal/ops/operator.go): a semaphore channel bounds concurrency, a
// buffered results channel collects per-task outcomes, and the caller
// drains both without the workers ever blocking on the owner.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pbnjay/memory"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
)

// Format selects the output container.
type Format int

const (
	JPEG Format = iota
	PNG
	WebP
)

func (f Format) extension() string {
	switch f {
	case PNG:
		return "png"
	case WebP:
		return "webp"
	default:
		return "jpg"
	}
}

// Preset is one of the fixed (jpg_quality, png_compression) pairs spec.md
// section 4.6 mandates.
type Preset int

const (
	Quality Preset = iota
	Balanced
	Speed
)

// presetParams looks up the fixed quality/compression pair for a preset.
func presetParams(p Preset) (jpgQuality, pngCompression int) {
	switch p {
	case Balanced:
		return 90, 6
	case Speed:
		return 82, 1
	default:
		return 95, 9
	}
}

// Options controls how every task in a batch is rendered.
type Options struct {
	Format          Format
	Preset          Preset
	ResizeEnabled   bool
	ResizeLongEdge  int
}

// Job is one source+edit-state pair to render (spec.md section 4.6's
// "ordered list of tasks {source_path, edit_state}"). Metadata is an
// optional opaque EXIF record supplied by the caller (edit.Metadata,
// spec.md section 1's non-goal on extraction means the engine never reads
// it itself); when set, it is echoed back on that task's ProgressEvent for
// display/logging.
type Job struct {
	SourcePath string
	EditState  edit.State
	Metadata   *edit.Metadata
}

// ProgressEvent reports one task's completion. Events for a batch arrive in
// completion order, not submission order (spec.md section 5).
type ProgressEvent struct {
	Done, Total int
	OK, Failed  int
	CurrentName string
	Metadata    *edit.Metadata
	Err         error
}

// FinishedEvent is emitted once after every task has completed.
type FinishedEvent struct {
	OK, Failed, Total int
	OutputDir         string
	FirstError        error
}

// Event is either a ProgressEvent or a FinishedEvent; exactly one
// FinishedEvent is sent last, after which the channel is closed.
type Event struct {
	Progress *ProgressEvent
	Finished *FinishedEvent
}

// OpenFunc decodes a source image for rendering; injected so this package
// never imports internal/ioimg directly (the same dependency-injection
// shape internal/preview.ProcessFunc uses).
type OpenFunc func(path string) (*imaging.Image, error)

// ApplyFunc runs the edit pipeline, through whichever backend the caller
// has selected.
type ApplyFunc func(img *imaging.Image, state edit.State) (*imaging.Image, error)

// ResizeFunc reduces img so its longest edge is at most cap pixels.
type ResizeFunc func(img *imaging.Image, longEdgeCap int) *imaging.Image

// EncodeFunc serializes img to the given format/quality pair.
type EncodeFunc func(img *imaging.Image, format Format, jpgQuality, pngCompression int) ([]byte, error)

// ErrInvalidOptions is returned by Submit for spec.md section 4.6/7's
// InvalidOptions error kind.
var ErrInvalidOptions = errors.New("render: invalid options")

// Engine runs batch render jobs with a bounded worker pool sized from the
// host's logical core count, the same role the teacher's OpParallel.MaxThreads
// field plays, generalized here to size itself rather than take an operator
// flag, using github.com/klauspost/cpuid/v2 and github.com/pbnjay/memory the
// way cmd/nightlight/main.go uses them to decide worker counts from host
// resources.
type Engine struct {
	Open   OpenFunc
	Apply  ApplyFunc
	Resize ResizeFunc
	Encode EncodeFunc

	// MaxWorkers overrides the automatically sized worker pool; zero means
	// auto-detect.
	MaxWorkers int
}

// New constructs an Engine from its four collaborators.
func New(open OpenFunc, apply ApplyFunc, resize ResizeFunc, encode EncodeFunc) *Engine {
	return &Engine{Open: open, Apply: apply, Resize: resize, Encode: encode}
}

// workerCount mirrors the memory-aware sizing cmd/nightlight/main.go
// performs for its stacking pool: cap concurrency to both logical cores and
// a conservative per-worker memory budget, never less than one worker.
func (e *Engine) workerCount() int {
	if e.MaxWorkers > 0 {
		return e.MaxWorkers
	}
	n := cpuid.CPU.LogicalCores
	if n <= 0 {
		n = runtime.NumCPU()
	}
	const perWorkerBudgetBytes = 512 * 1024 * 1024
	if total := memory.TotalMemory(); total > 0 {
		if budget := int(total / perWorkerBudgetBytes); budget > 0 && budget < n {
			n = budget
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Submit validates options, reserves an output path per task, and starts
// the worker pool. It returns immediately with a channel of Events; the
// channel is closed after the single FinishedEvent.
func (e *Engine) Submit(jobs []Job, outDir string, opts Options) (<-chan Event, error) {
	if outDir == "" {
		return nil, fmt.Errorf("%w: empty output directory", ErrInvalidOptions)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no jobs submitted", ErrInvalidOptions)
	}
	if opts.ResizeEnabled && opts.ResizeLongEdge <= 0 {
		return nil, fmt.Errorf("%w: resize enabled with long edge 0", ErrInvalidOptions)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	res := newReserver(outDir)
	type reservedJob = struct {
		Job
		outPath string
	}
	reservedJobs := make([]reservedJob, len(jobs))
	for i, j := range jobs {
		reservedJobs[i] = reservedJob{Job: j, outPath: res.reserve(j.SourcePath, opts.Format.extension())}
	}

	events := make(chan Event, len(jobs)+1)
	go e.run(reservedJobs, outDir, opts, events)
	return events, nil
}

type taskResult struct {
	name     string
	metadata *edit.Metadata
	err      error
}

func (e *Engine) run(jobs []struct {
	Job
	outPath string
}, outDir string, opts Options, events chan<- Event) {
	defer close(events)

	total := len(jobs)
	jpgQuality, pngCompression := presetParams(opts.Preset)

	sem := make(chan struct{}, e.workerCount())
	results := make(chan taskResult, total)

	for _, j := range jobs {
		sem <- struct{}{}
		go func(j Job, outPath string) {
			defer func() { <-sem }()
			err := e.renderOne(j, outPath, opts, jpgQuality, pngCompression)
			results <- taskResult{name: filepath.Base(j.SourcePath), metadata: j.Metadata, err: err}
		}(j.Job, j.outPath)
	}

	var ok, failed int
	var firstErr error
	for i := 0; i < total; i++ {
		r := <-results
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
		} else {
			ok++
		}
		events <- Event{Progress: &ProgressEvent{
			Done: i + 1, Total: total, OK: ok, Failed: failed,
			CurrentName: r.name, Metadata: r.metadata, Err: r.err,
		}}
	}

	events <- Event{Finished: &FinishedEvent{OK: ok, Failed: failed, Total: total, OutputDir: outDir, FirstError: firstErr}}
}

// renderOne runs the fixed open -> apply -> optional resize -> encode ->
// write sequence for a single task (spec.md section 4.6).
func (e *Engine) renderOne(j Job, outPath string, opts Options, jpgQuality, pngCompression int) error {
	img, err := e.Open(j.SourcePath)
	if err != nil {
		return fmt.Errorf("render: open %s: %w", j.SourcePath, err)
	}

	out, err := e.Apply(img, j.EditState)
	if err != nil {
		return fmt.Errorf("render: apply %s: %w", j.SourcePath, err)
	}

	if opts.ResizeEnabled {
		longEdge := out.Width
		if out.Height > longEdge {
			longEdge = out.Height
		}
		if longEdge > opts.ResizeLongEdge {
			out = e.Resize(out, opts.ResizeLongEdge)
		}
	}

	buf, err := e.Encode(out, opts.Format, jpgQuality, pngCompression)
	if err != nil {
		return fmt.Errorf("render: encode %s: %w", j.SourcePath, err)
	}

	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return fmt.Errorf("render: write %s: %w", outPath, err)
	}
	return nil
}
