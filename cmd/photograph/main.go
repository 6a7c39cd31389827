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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/divanvisagie/photograph/internal/backend"
	"github.com/divanvisagie/photograph/internal/edit"
	"github.com/divanvisagie/photograph/internal/imaging"
	"github.com/divanvisagie/photograph/internal/ioimg"
	"github.com/divanvisagie/photograph/internal/render"
	"github.com/divanvisagie/photograph/internal/rest"
)

const version = "0.1.0"

var port   = flag.Int64("port", 8080, "port for serving HTTP API")
var chroot = flag.String("chroot", "", "directory to chroot and chdir to when serving HTTP. must be run as root")
var setuid = flag.Int64("setuid", -1, "user id number to setuid to when serving HTTP. must be run as root")
var job    = flag.String("job", "", "JSON render job specification to run, see -help for the schema")

var out     = flag.String("out", "", "output directory for rendered images")
var format  = flag.String("format", "jpg", "output format, one of jpg, png, webp")
var preset  = flag.String("preset", "quality", "speed preset, one of quality, balanced, speed")

var resize        = flag.Bool("resize", false, "resize rendered output to -resizeLongEdge")
var resizeLongEdge = flag.Int64("resizeLongEdge", 0, "long edge in pixels for -resize")

var backendFlag = flag.String("backend", "", "override PHOTOGRAPH_PREVIEW_BACKEND: cpu, auto or gpu")
var debugFallback = flag.Bool("debugAllowCpuFallback", false, "override PHOTOGRAPH_DEBUG_ALLOW_CPU_FALLBACK")

// parseBackendEnv implements spec.md section 6's env var mapping: unknown
// values fall back to Auto rather than erroring, the same permissive
// normalization style cmd/nightlight/main.go uses for its -cfa/-debayer flags.
func parseBackendEnv(v string) backend.Backend {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "cpu":
		return backend.Cpu
	case "gpu":
		return backend.Gpu
	default:
		return backend.Auto
	}
}

// parseDebugFlagEnv implements spec.md section 6's
// PHOTOGRAPH_DEBUG_ALLOW_CPU_FALLBACK values, case-insensitive.
func parseDebugFlagEnv(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// resolveBackendPolicy merges env vars with the CLI overrides above: the
// flags exist for scripting convenience, but the environment variables are
// the contract spec.md section 6 documents.
func resolveBackendPolicy() (backend.Backend, bool) {
	req := parseBackendEnv(os.Getenv("PHOTOGRAPH_PREVIEW_BACKEND"))
	if *backendFlag != "" {
		req = parseBackendEnv(*backendFlag)
	}
	dbg := parseDebugFlagEnv(os.Getenv("PHOTOGRAPH_DEBUG_ALLOW_CPU_FALLBACK"))
	if *debugFallback {
		dbg = true
	}
	return req, dbg
}

func parseFormat(s string) (render.Format, error) {
	switch strings.ToLower(s) {
	case "jpg", "jpeg":
		return render.JPEG, nil
	case "png":
		return render.PNG, nil
	case "webp":
		return render.WebP, nil
	default:
		return 0, fmt.Errorf("unknown -format %q, want jpg, png or webp", s)
	}
}

func parsePreset(s string) (render.Preset, error) {
	switch strings.ToLower(s) {
	case "quality":
		return render.Quality, nil
	case "balanced":
		return render.Balanced, nil
	case "speed":
		return render.Speed, nil
	default:
		return 0, fmt.Errorf("unknown -preset %q, want quality, balanced or speed", s)
	}
}

// jobSpec is the JSON schema accepted by -job: an ordered list of
// source+sidecar pairs plus the render options, mirroring the teacher's
// -job flag for its own stacking pipeline (cmd/nightlight/main.go).
type jobSpec struct {
	Sources        []string                 `json:"sources"`
	Out            string                   `json:"out"`
	Format         string                   `json:"format"`
	Preset         string                   `json:"preset"`
	Resize         bool                     `json:"resize"`
	ResizeLongEdge int                      `json:"resize_long_edge"`
	// Metadata is an optional per-source EXIF record, keyed by source path,
	// supplied by a caller that already extracted it upstream (spec.md
	// section 1's EXIF-extraction non-goal means photograph never populates
	// this itself). When present it is echoed in the render progress line.
	Metadata map[string]edit.Metadata `json:"metadata"`
}

func main() {
	var logWriter io.Writer = os.Stdout
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Photograph Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (render|serve|legal|version) (img0.jpg ... imgn.jpg)

Commands:
  render  Render the given images to -out using each image's .edits sidecar
  serve   Serve the render/preview HTTP API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	reqBackend, debugFlag := resolveBackendPolicy()
	if err := backend.StartupCheck(reqBackend, debugFlag); err != nil {
		fmt.Fprintf(logWriter, "%s\n", err)
		os.Exit(2)
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	switch args[0] {
	case "legal":
		fmt.Fprint(logWriter, legal)
	case "version":
		fmt.Fprintf(logWriter, "photograph version %s\n", version)
	case "serve":
		rest.MakeSandbox(*chroot, int(*setuid))
		rest.Serve(reqBackend, debugFlag, *port)
	case "render":
		if err := runRender(logWriter, args[1:], reqBackend, debugFlag); err != nil {
			fmt.Fprintf(logWriter, "error: %s\n", err)
			os.Exit(1)
		}
	default:
		flag.Usage()
	}
}

// runRender builds a render.Engine from the ioimg/backend collaborators and
// submits either the -job JSON spec or the CLI-flag-driven job built from
// positional source arguments, streaming progress to logWriter the same
// way cmd/nightlight/main.go prints per-stage progress lines.
func runRender(logWriter io.Writer, sources []string, reqBackend backend.Backend, debugFlag bool) error {
	spec, err := buildJobSpec(sources)
	if err != nil {
		return err
	}

	fmtID, err := parseFormat(spec.Format)
	if err != nil {
		return err
	}
	presetID, err := parsePreset(spec.Preset)
	if err != nil {
		return err
	}

	jobs := make([]render.Job, len(spec.Sources))
	for i, src := range spec.Sources {
		j := render.Job{SourcePath: src, EditState: edit.Load(src)}
		if m, ok := spec.Metadata[src]; ok {
			j.Metadata = &m
		}
		jobs[i] = j
	}

	engine := render.New(
		func(path string) (*imaging.Image, error) { return ioimg.Open(path, nil) },
		func(img *imaging.Image, state edit.State) (*imaging.Image, error) {
			return backend.Process(logWriter, img, state, reqBackend, debugFlag)
		},
		func(img *imaging.Image, cap int) *imaging.Image { return ioimg.Downsample(img, cap, ioimg.Final) },
		encodeForFormat,
	)

	events, err := engine.Submit(jobs, spec.Out, render.Options{
		Format:         fmtID,
		Preset:         presetID,
		ResizeEnabled:  spec.Resize,
		ResizeLongEdge: spec.ResizeLongEdge,
	})
	if err != nil {
		return err
	}

	for ev := range events {
		if ev.Progress != nil {
			p := ev.Progress
			fmt.Fprintf(logWriter, "[%d/%d] %s ok=%d failed=%d\n", p.Done, p.Total, p.CurrentName, p.OK, p.Failed)
			if p.Metadata != nil {
				fmt.Fprintf(logWriter, "  %s %s, iso %d, %s @ %s, %s\n",
					p.Metadata.CameraMake, p.Metadata.CameraModel, p.Metadata.ISO,
					p.Metadata.ShutterSpeed, p.Metadata.Aperture, p.Metadata.DateTaken)
			}
		}
		if ev.Finished != nil {
			f := ev.Finished
			fmt.Fprintf(logWriter, "done: ok=%d failed=%d total=%d out=%s\n", f.OK, f.Failed, f.Total, f.OutputDir)
			if f.FirstError != nil {
				return f.FirstError
			}
		}
	}
	return nil
}

// buildJobSpec merges -job's JSON document (if given) with the CLI flags,
// the same "flags are defaults, -job overrides" relationship
// cmd/nightlight/main.go has between its flags and -job.
func buildJobSpec(sources []string) (jobSpec, error) {
	spec := jobSpec{
		Sources:        sources,
		Out:            *out,
		Format:         *format,
		Preset:         *preset,
		Resize:         *resize,
		ResizeLongEdge: int(*resizeLongEdge),
	}
	if *job == "" {
		return spec, nil
	}
	b, err := os.ReadFile(*job)
	if err != nil {
		return spec, fmt.Errorf("reading -job %s: %w", *job, err)
	}
	if err := json.Unmarshal(b, &spec); err != nil {
		return spec, fmt.Errorf("parsing -job %s: %w", *job, err)
	}
	return spec, nil
}

// encodeForFormat dispatches to the ioimg encoder matching format, the same
// three-way switch internal/rest.encodeFor uses for the HTTP job route.
func encodeForFormat(img *imaging.Image, format render.Format, jpgQuality, pngCompression int) ([]byte, error) {
	switch format {
	case render.PNG:
		return ioimg.EncodePNG(img, pngCompression)
	case render.WebP:
		return ioimg.EncodeWebP(img)
	default:
		return ioimg.EncodeJPEG(img, jpgQuality)
	}
}
