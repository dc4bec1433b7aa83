// Package optimizer rewrites single images and fans that work out over a batch.
package optimizer

import (
	"errors"
	"image"
	"runtime"

	"image-optimizer-go/internal/codec"
	"image-optimizer-go/internal/media"
)

// ErrDegenerateResize is returned when the resize plan collapses an edge to zero.
var ErrDegenerateResize = errors.New("resize would produce a zero-sized image")

// Request is the immutable configuration of one run, shared by all workers.
type Request struct {
	// InputRoot is the directory that output paths are made relative to.
	InputRoot string
	// OutputDir selects separate-output mode when set.
	OutputDir string
	// Backup copies each original to <path>.bak before an in-place rewrite.
	Backup bool
	// MaxSize bounds the longer edge in pixels; 0 disables resizing.
	MaxSize uint32
	// Parallel runs files on a worker pool instead of one at a time.
	Parallel bool
	// Workers is the pool size; 0 means one per CPU.
	Workers int

	Codec codec.Options
}

// WorkerCount returns the effective pool size.
func (r Request) WorkerCount() int {
	if !r.Parallel {
		return 1
	}
	if r.Workers > 0 {
		return r.Workers
	}
	return max(runtime.NumCPU(), 1)
}

// Codecs decodes sources and hands out one encoder per format.
type Codecs interface {
	Encoder(format media.Format) (codec.Encoder, error)
	Decode(path string) (image.Image, error)
}
