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

// Package preview implements one scheduler per open image: a cooperative
// state machine advanced by Tick, backed by parallel worker goroutines
// whose results are drained non-blockingly rather than awaited (spec.md
// section 9, "coroutine-shaped code"). This mirrors the teacher's
// internal/ops.OpParallel shape (bounded goroutines reporting over a
// channel) narrowed to a single in-flight job per scheduler.
package preview

import (
	"time"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
)

const (
	// DefaultPreviewMax is the initial longest-edge cap for Final previews.
	DefaultPreviewMax = 1920
	// InteractiveCap is the longest-edge cap used for Interactive jobs.
	InteractiveCap = 960
	// Debounce is how long the owner waits after the last edit-state change
	// before submitting a Final job.
	Debounce = 300 * time.Millisecond
	// InteractiveRefresh is the minimum spacing between Interactive jobs.
	InteractiveRefresh = 90 * time.Millisecond
	// CacheCapacity is the LRU preview cache's entry limit.
	CacheCapacity = 24
)

// ProcessFunc runs the edit pipeline (through the backend selector) and
// returns RGBA8 bytes plus the resulting dimensions. Injected rather than
// imported directly so this package never depends on internal/backend or
// internal/ioimg, matching the teacher's dependency-injection style for
// operators that need a logger or a sandbox (internal/rest.MakeSandbox).
type ProcessFunc func(img *imaging.Image, state edit.State) (pix []byte, w, h int, err error)

// DownsampleFunc reduces img so its longest edge is at most cap pixels.
type DownsampleFunc func(img *imaging.Image, longEdgeCap int) *imaging.Image

// ProcessedMsg is what a background worker reports back to the scheduler
// (spec.md section 4.4 step 4).
type ProcessedMsg struct {
	Generation int
	Key        CacheKey
	Pix        []byte
	Width      int
	Height     int
	Err        error
}

// Scheduler owns exactly the state spec.md section 4.4 enumerates for one
// open image. It is not safe for concurrent use: every exported method
// (other than the channel drained internally by Tick) is meant to be called
// from a single owner goroutine, e.g. a UI event loop.
type Scheduler struct {
	process    ProcessFunc
	downsample DownsampleFunc

	sourcePath        string
	sourceFingerprint string
	sourceLongEdge    int
	sourceImage       *imaging.Image

	targetCap      int // cap the next Final job will request
	currentCap     int // cap of currentPreview, once published
	currentPreview CachedPreview
	editState      edit.State

	needsProcess      bool
	needsFinalProcess bool

	lastSliderChange    time.Time
	lastInteractiveProc time.Time

	requestedGeneration int
	inFlightGeneration  int
	inFlight            bool

	cache   *lruCache
	results chan ProcessedMsg
}

// New constructs a Scheduler. process and downsample are the worker's two
// collaborators; results is buffered generously since the scheduler only
// ever has one job in flight at a time but must never block a worker's
// send (spec.md section 5, "owner thread never blocks on workers").
func New(process ProcessFunc, downsample DownsampleFunc) *Scheduler {
	return &Scheduler{
		process:            process,
		downsample:         downsample,
		targetCap:          DefaultPreviewMax,
		inFlightGeneration: -1,
		cache:              newLRUCache(CacheCapacity),
		results:            make(chan ProcessedMsg, 4),
	}
}

// SetImage loads a new source image, discarding any in-flight job's result
// by bumping the generation counter (spec.md section 4.4 step 7, "loading a
// different image also bumps the generation"). now is accepted explicitly
// rather than taken from time.Now() so callers (and tests) control the
// debounce clock.
func (s *Scheduler) SetImage(path, sourceFingerprint string, img *imaging.Image, sourceLongEdge int, now time.Time) {
	s.sourcePath = path
	s.sourceFingerprint = sourceFingerprint
	s.sourceImage = img
	s.sourceLongEdge = sourceLongEdge
	s.targetCap = DefaultPreviewMax
	if s.targetCap > sourceLongEdge {
		s.targetCap = sourceLongEdge
	}
	s.requestedGeneration++
	s.needsProcess = true
	s.needsFinalProcess = false
	s.lastSliderChange = now
}

// MutateEditState applies a new edit state, marking work pending and
// bumping the generation if a job is already in flight so its result is
// discarded on arrival (spec.md section 4.4 step 1).
func (s *Scheduler) MutateEditState(newState edit.State, now time.Time) {
	s.editState = newState
	s.needsProcess = true
	s.lastSliderChange = now
	if s.inFlight {
		s.requestedGeneration++
	}
}

// Tick advances the scheduler's state machine. It must be called
// periodically by the owner (e.g. once per UI frame); it never blocks.
// The returned duration, when non-zero, is a hint for when to call Tick
// again even if no other event occurs (spec.md section 4.4 step 2's "else
// schedule a wakeup at the nearer of the two deadlines").
func (s *Scheduler) Tick(now time.Time) time.Duration {
	s.drainResults()

	if (!s.needsProcess && !s.needsFinalProcess) || s.inFlight {
		return 0
	}

	sinceSlider := now.Sub(s.lastSliderChange)
	if sinceSlider >= Debounce {
		s.submit(now, Final, s.targetCap)
		s.needsProcess = false
		s.needsFinalProcess = false
		return 0
	}

	if s.needsProcess && now.Sub(s.lastInteractiveProc) >= InteractiveRefresh {
		s.submit(now, Interactive, InteractiveCap)
		s.needsFinalProcess = true
		s.lastInteractiveProc = now
		return 0
	}

	remainingDebounce := Debounce - sinceSlider
	remainingRefresh := InteractiveRefresh - now.Sub(s.lastInteractiveProc)
	if remainingRefresh < remainingDebounce {
		return remainingRefresh
	}
	return remainingDebounce
}

func (s *Scheduler) cacheKey(quality Quality, cap int) CacheKey {
	return CacheKey{
		SourceFingerprint: s.sourceFingerprint,
		EditFingerprint:   s.editState.Fingerprint(),
		InputW:            cap,
		InputH:            cap,
		Quality:           quality,
	}
}

// submit looks up the cache before dispatching a worker (spec.md section
// 4.4 step 3): a hit publishes immediately with no goroutine spun up, a
// miss bumps the generation and starts the one allowed in-flight worker.
func (s *Scheduler) submit(now time.Time, quality Quality, cap int) {
	key := s.cacheKey(quality, cap)
	if cached, ok := s.cache.get(key); ok {
		s.currentPreview = cached
		s.currentCap = cap
		return
	}

	s.requestedGeneration++
	gen := s.requestedGeneration
	s.inFlightGeneration = gen
	s.inFlight = true

	img := s.loadSourceForWorker()
	state := s.editState
	downsample := s.downsample
	process := s.process
	go func() {
		work := img
		if quality == Interactive && downsample != nil {
			work = downsample(work, cap)
		}
		pix, w, h, err := process(work, state)
		s.results <- ProcessedMsg{Generation: gen, Key: key, Pix: pix, Width: w, Height: h, Err: err}
	}()
}

func (s *Scheduler) loadSourceForWorker() *imaging.Image {
	return s.sourceImage
}

// drainResults applies every ProcessedMsg currently buffered in s.results
// without blocking. A message whose Generation is stale (superseded by a
// later edit or image load while the worker was running) is discarded
// silently (spec.md section 4.4 step 4, "stale results are dropped").
func (s *Scheduler) drainResults() {
	for {
		select {
		case msg := <-s.results:
			s.applyResult(msg)
		default:
			return
		}
	}
}

func (s *Scheduler) applyResult(msg ProcessedMsg) {
	s.inFlight = false
	if msg.Generation != s.requestedGeneration {
		return
	}
	if msg.Err != nil {
		return
	}
	preview := CachedPreview{Pix: msg.Pix, Width: msg.Width, Height: msg.Height}
	s.cache.put(msg.Key, preview)
	s.currentPreview = preview
	s.currentCap = msg.Key.InputW
	// An interactive result landing while a final job is still pending
	// leaves needsFinalProcess untouched, so Tick's debounce branch still
	// fires the full-resolution job afterward.
}

// Current returns the most recently published preview buffer, or the zero
// value and false if nothing has been rendered yet.
func (s *Scheduler) Current() (CachedPreview, bool) {
	if s.currentPreview.Pix == nil {
		return CachedPreview{}, false
	}
	return s.currentPreview, true
}
