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

package preview

import (
	"testing"
	"time"

	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
)

// countingProcess returns a ProcessFunc that records its call count and
// blocks until release is closed, letting tests control exactly when a
// background job completes relative to Tick calls.
func countingProcess(t *testing.T, release <-chan struct{}) (ProcessFunc, *int) {
	t.Helper()
	calls := 0
	fn := func(img *imaging.Image, state edit.State) ([]byte, int, int, error) {
		calls++
		<-release
		return []byte{1, 2, 3, 4}, img.Width, img.Height, nil
	}
	return fn, &calls
}

func waitForResult(t *testing.T, s *Scheduler, now time.Time) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d := s.Tick(now); !s.inFlight {
			_ = d
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for in-flight job to complete")
}

func TestSchedulerDebouncesBeforeFinalSubmit(t *testing.T) {
	release := make(chan struct{})
	close(release)
	process, calls := countingProcess(t, release)
	s := New(process, nil)

	base := time.Unix(0, 0)
	s.SetImage("a.jpg", "fp", imaging.New(8, 8), 8, base)
	waitForResult(t, s, base)
	initial := *calls

	s.MutateEditState(edit.Default(), base.Add(1*time.Millisecond))

	// Well within the debounce window: no submission yet.
	s.Tick(base.Add(10 * time.Millisecond))
	if *calls != initial {
		t.Fatalf("expected no submission before debounce elapses, got %d calls", *calls-initial)
	}

	// Past the debounce window: Final job fires.
	waitForResult(t, s, base.Add(400*time.Millisecond))
	if *calls != initial+1 {
		t.Fatalf("expected exactly one submission after debounce, got %d", *calls-initial)
	}
}

func TestSchedulerInteractiveRefreshFiresBeforeDebounce(t *testing.T) {
	release := make(chan struct{})
	close(release)
	process, calls := countingProcess(t, release)
	s := New(process, nil)

	base := time.Unix(0, 0)
	s.SetImage("a.jpg", "fp", imaging.New(8, 8), 8, base)
	waitForResult(t, s, base)
	initial := *calls

	st := edit.Default()
	st.Exposure = 0.5
	s.MutateEditState(st, base)
	waitForResult(t, s, base.Add(InteractiveRefresh+time.Millisecond))

	if *calls != initial+1 {
		t.Fatalf("expected interactive job to fire once refresh interval elapses, got %d", *calls-initial)
	}
	if !s.needsFinalProcess {
		t.Fatalf("interactive submission must leave needsFinalProcess set so a final pass still follows")
	}
}

func TestStaleResultIsDiscarded(t *testing.T) {
	s := New(func(img *imaging.Image, state edit.State) ([]byte, int, int, error) {
		return []byte{9}, img.Width, img.Height, nil
	}, nil)

	s.inFlightGeneration = 5
	stale := ProcessedMsg{Generation: 3, Pix: []byte{1}, Width: 1, Height: 1}
	s.applyResult(stale)

	if _, ok := s.Current(); ok {
		t.Fatalf("a stale generation must not publish a preview")
	}
}

func TestCacheHitSkipsWorker(t *testing.T) {
	calls := 0
	process := func(img *imaging.Image, state edit.State) ([]byte, int, int, error) {
		calls++
		return []byte{1, 2, 3, 4}, img.Width, img.Height, nil
	}
	s := New(process, nil)
	base := time.Unix(0, 0)
	s.SetImage("a.jpg", "fp", imaging.New(8, 8), 8, base)
	// Tick past the debounce window on the very first call so the initial
	// render goes straight to Final, not Interactive-then-Final.
	waitForResult(t, s, base.Add(400*time.Millisecond))
	if calls != 1 {
		t.Fatalf("want 1 call after first final render, got %d", calls)
	}

	key := s.cacheKey(Final, s.targetCap)
	if _, ok := s.cache.get(key); !ok {
		t.Fatalf("expected the completed final render to be cached")
	}

	// Re-requesting the identical state should hit the cache and spawn no
	// new worker.
	s.needsProcess = true
	s.lastSliderChange = base.Add(-time.Hour)
	s.Tick(base.Add(time.Hour))
	if calls != 1 {
		t.Fatalf("cache hit must not invoke the worker again, got %d calls", calls)
	}
}

func TestAdaptiveReloadRequestsHigherCap(t *testing.T) {
	s := New(func(img *imaging.Image, state edit.State) ([]byte, int, int, error) {
		return []byte{1}, img.Width, img.Height, nil
	}, nil)

	base := time.Unix(0, 0)
	s.SetImage("a.jpg", "fp", imaging.New(8, 8), 4000, base)
	s.currentCap = DefaultPreviewMax

	s.OnZoomChange(2.0, base.Add(time.Second))

	wantCap := int(2.0 * float64(DefaultPreviewMax))
	if s.targetCap != wantCap {
		t.Fatalf("want target cap %d, got %d", wantCap, s.targetCap)
	}
	if !s.needsProcess {
		t.Fatalf("zoom-in past the current cap must mark work pending")
	}
}

func TestAdaptiveReloadClampsToSourceLongEdge(t *testing.T) {
	s := New(func(img *imaging.Image, state edit.State) ([]byte, int, int, error) {
		return []byte{1}, img.Width, img.Height, nil
	}, nil)

	base := time.Unix(0, 0)
	s.SetImage("a.jpg", "fp", imaging.New(8, 8), 2000, base)
	s.currentCap = 1000

	s.OnZoomChange(5.0, base.Add(time.Second))

	if s.targetCap != 2000 {
		t.Fatalf("target cap must be clamped to the source's native long edge, got %d", s.targetCap)
	}
}

func TestAdaptiveReloadNoOpWhileInFlight(t *testing.T) {
	s := New(func(img *imaging.Image, state edit.State) ([]byte, int, int, error) {
		return []byte{1}, img.Width, img.Height, nil
	}, nil)
	s.inFlight = true
	s.currentCap = DefaultPreviewMax
	s.sourceLongEdge = 4000

	before := s.targetCap
	s.OnZoomChange(3.0, time.Unix(0, 0))
	if s.targetCap != before {
		t.Fatalf("zoom change must be ignored while a job is already in flight")
	}
}
