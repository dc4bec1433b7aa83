// Package codec encodes images into optimized JPEG, PNG and WebP files.
package codec

import (
	"fmt"
	"image"

	"image-optimizer-go/internal/media"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Encoder writes an optimized image of one format to a destination path.
// The destination's parent directory must already exist.
type Encoder interface {
	Format() media.Format
	Encode(src PixelSource, dst string) error
}

// Registry owns one encoder per supported format, all sharing the same options.
type Registry struct {
	fs       afero.Fs
	opts     Options
	encoders map[media.Format]Encoder
}

// NewRegistry builds the encoders for every supported format.
func NewRegistry(fs afero.Fs, opts Options, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		fs:   fs,
		opts: opts,
		encoders: map[media.Format]Encoder{
			media.FormatJPEG: &jpegEncoder{fs: fs, opts: opts, log: log},
			media.FormatPNG:  &pngEncoder{fs: fs, opts: opts, log: log},
			media.FormatWebP: &webpEncoder{fs: fs, opts: opts},
		},
	}
}

// Encoder returns the encoder for format.
func (r *Registry) Encoder(format media.Format) (Encoder, error) {
	enc, ok := r.encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return enc, nil
}

// Decode reads path with the same orientation handling the encoders use.
func (r *Registry) Decode(path string) (image.Image, error) {
	return decode(r.fs, path, !r.opts.KeepMetadata)
}

// Options returns the encoder settings.
func (r *Registry) Options() Options {
	return r.opts
}
