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

// Package rest keeps the teacher's small gin HTTP surface
// (POST /api/v1/job, GET /api/v1/ping) but fronts the batch render engine
// (internal/render) instead of a FITS stacking job: the route shape and
// chunked-progress-over-HTTP style are the teacher's
// (internal/rest/serve.go originally), the payload is spec.md section 4.6's
// RenderJob list.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/divanvisagie/photograph/internal/backend"
	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
	"github.com/divanvisagie/photograph/internal/ioimg"
	"github.com/divanvisagie/photograph/internal/render"
)

// MakeSandbox secures the current process by creating a chroot environment
// (requires root) and changing the user ID to something without elevated
// rights. Kept verbatim from the teacher: orthogonal infra that still
// applies when serving untrusted render requests over HTTP.
func MakeSandbox(chroot string, setuid int) {
	if len(chroot) > 0 {
		fmt.Printf("Changing filesystem root to %s...\n", chroot)
		if err := syscall.Chroot(chroot); err != nil {
			panic(fmt.Sprintf("error chroot(%s): %s\n", chroot, err.Error()))
		}
		if err := os.Chdir(chroot); err != nil {
			panic(fmt.Sprintf("error chdir(%s): %s\n", chroot, err.Error()))
		}
	}
	if setuid >= 0 {
		fmt.Printf("Setting user id from %d/%d to  %d\n", syscall.Getuid(), syscall.Geteuid(), setuid)
		if err := syscall.Setuid(setuid); err != nil {
			panic(fmt.Sprintf("error setuid(%d): %s\n", setuid, err.Error()))
		}
	}
}

// jobRequest is the JSON body POST /api/v1/job accepts: an ordered list of
// source paths (each developed through its own .edits sidecar, spec.md
// section 4.7) plus the render options from spec.md section 4.6.
type jobRequest struct {
	Sources        []string                 `json:"sources" binding:"required"`
	OutDir         string                   `json:"out_dir" binding:"required"`
	Format         string                   `json:"format"`
	Preset         string                   `json:"preset"`
	Resize         bool                     `json:"resize"`
	ResizeLongEdge int                      `json:"resize_long_edge"`
	// Metadata is an optional per-source EXIF record, keyed by source path,
	// echoed back on that source's streamed ProgressEvent (spec.md section
	// 1's EXIF-extraction non-goal means this server never populates it
	// itself; a caller that already extracted it upstream can pass it
	// through for display in the client's progress UI).
	Metadata map[string]edit.Metadata `json:"metadata"`
}

func parseFormat(s string) render.Format {
	switch s {
	case "png":
		return render.PNG
	case "webp":
		return render.WebP
	default:
		return render.JPEG
	}
}

func parsePreset(s string) render.Preset {
	switch s {
	case "balanced":
		return render.Balanced
	case "speed":
		return render.Speed
	default:
		return render.Quality
	}
}

// Serve wires a render.Engine from the ioimg/backend collaborators and
// exposes it over the teacher's /api/v1 route group, now serving render
// jobs instead of stacking jobs. It listens on 0.0.0.0:port.
func Serve(requested backend.Backend, debugFallback bool, port int64) {
	engine := newEngine(requested, debugFallback)

	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/job", postJob(engine))
			v1.StaticFS("/files", http.Dir("."))
		}
	}
	r.Run(fmt.Sprintf(":%d", port))
}

func newEngine(requested backend.Backend, debugFallback bool) *render.Engine {
	return render.New(
		func(path string) (*imaging.Image, error) { return ioimg.Open(path, nil) },
		func(img *imaging.Image, state edit.State) (*imaging.Image, error) {
			return backend.Process(os.Stdout, img, state, requested, debugFallback)
		},
		func(img *imaging.Image, cap int) *imaging.Image { return ioimg.Downsample(img, cap, ioimg.Final) },
		encodeFor,
	)
}

func encodeFor(img *imaging.Image, format render.Format, jpgQuality, pngCompression int) ([]byte, error) {
	switch format {
	case render.PNG:
		return ioimg.EncodePNG(img, pngCompression)
	case render.WebP:
		return ioimg.EncodeWebP(img)
	default:
		return ioimg.EncodeJPEG(img, jpgQuality)
	}
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

// postJob binds a jobRequest, submits it to engine, and streams
// spec.md section 4.6's Progress/Finished events as newline-delimited JSON
// over a chunked response, the same "write header once, flush per event"
// shape the teacher's postJob used for its promise-materialization log.
func postJob(engine *render.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req jobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		jobs := make([]render.Job, len(req.Sources))
		for i, src := range req.Sources {
			j := render.Job{SourcePath: src, EditState: edit.Load(src)}
			if m, ok := req.Metadata[src]; ok {
				j.Metadata = &m
			}
			jobs[i] = j
		}

		events, err := engine.Submit(jobs, req.OutDir, render.Options{
			Format:         parseFormat(req.Format),
			Preset:         parsePreset(req.Preset),
			ResizeEnabled:  req.Resize,
			ResizeLongEdge: req.ResizeLongEdge,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logWriter := c.Writer
		header := logWriter.Header()
		header.Set("Content-Type", "application/x-ndjson")
		logWriter.WriteHeader(http.StatusOK)

		for ev := range events {
			fmt.Fprintf(logWriter, "%s\n", mustJSON(ev))
			logWriter.Flush()
		}
		debug.FreeOSMemory()
	}
}

// mustJSON marshals v, falling back to an error-shaped object if it
// somehow can't. ProgressEvent.Err and FinishedEvent.FirstError are error
// values; encoding/json encodes them by their exported fields, so the
// error's message is not part of the output.
func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf(`{"marshal_error":%q}`, err.Error()))
	}
	return b
}
