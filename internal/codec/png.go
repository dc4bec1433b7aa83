package codec

import (
	"bytes"
	"fmt"
	"image/png"
	"os/exec"
	"strconv"

	"image-optimizer-go/internal/fileops"
	"image-optimizer-go/internal/media"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type pngEncoder struct {
	fs   afero.Fs
	opts Options
	log  *logrus.Logger
}

func (e *pngEncoder) Format() media.Format { return media.FormatPNG }

// Encode stages a PNG at dst and then optimizes it in place.
func (e *pngEncoder) Encode(src PixelSource, dst string) error {
	level, err := ParsePNGLevel(e.opts.PNGLevel)
	if err != nil {
		return encodeErr(media.FormatPNG, src.Origin, KindCodec, err, "png options")
	}

	if err := e.stage(src, dst); err != nil {
		return err
	}

	if bin, ok := e.externalOptimizer(); ok {
		cmd := exec.Command(bin, oxipngArgs(level, e.opts, dst)...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return encodeErr(media.FormatPNG, src.Origin, KindCodec,
				fmt.Errorf("%v: %s", err, bytes.TrimSpace(out)), "oxipng")
		}
		return nil
	}

	e.log.WithField("file", src.Origin).Debug("oxipng not found, using built-in PNG optimizer")
	return e.optimizeBuiltin(src.Origin, dst, level)
}

// externalOptimizer returns the oxipng binary when it is installed and the
// staged file lives on the real filesystem where it can reach it.
func (e *pngEncoder) externalOptimizer() (string, bool) {
	if !onDisk(e.fs) || e.opts.PNGOptimizerPath == "" {
		return "", false
	}
	bin, err := exec.LookPath(e.opts.PNGOptimizerPath)
	return bin, err == nil
}

func (e *pngEncoder) stage(src PixelSource, dst string) error {
	img, ok := src.Decoded()
	if !ok {
		if err := fileops.CopyFile(e.fs, src.Origin, dst); err != nil {
			return encodeErr(media.FormatPNG, src.Origin, KindIO, err, "stage png")
		}
		return nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return encodeErr(media.FormatPNG, src.Origin, KindCodec, err, "encode png")
	}
	if err := afero.WriteFile(e.fs, dst, buf.Bytes(), 0644); err != nil {
		return encodeErr(media.FormatPNG, src.Origin, KindIO, err, "stage png")
	}
	return nil
}

// optimizeBuiltin re-encodes the staged file at the compression level that
// matches the effort level and keeps the result only if it is smaller.
// The Go encoder writes RGB when every pixel is opaque, which drops an unused
// alpha channel, and it never writes ancillary chunks.
func (e *pngEncoder) optimizeBuiltin(origin, path string, level int) error {
	staged, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return encodeErr(media.FormatPNG, origin, KindIO, err, "read staged png")
	}
	img, err := png.Decode(bytes.NewReader(staged))
	if err != nil {
		return encodeErr(media.FormatPNG, origin, KindDecode, err, "decode staged png")
	}
	if e.opts.Zopfli {
		e.log.WithField("file", origin).Debug("zopfli requires oxipng, using deflate")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(compressionFor(level))); err != nil {
		return encodeErr(media.FormatPNG, origin, KindCodec, err, "re-encode png")
	}
	if buf.Len() >= len(staged) {
		return nil
	}
	if err := afero.WriteFile(e.fs, path, buf.Bytes(), 0644); err != nil {
		return encodeErr(media.FormatPNG, origin, KindIO, errors.WithStack(err), "write optimized png")
	}
	return nil
}

func compressionFor(level int) png.CompressionLevel {
	switch {
	case level <= 1:
		return png.BestSpeed
	case level <= 3:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func oxipngArgs(level int, opts Options, path string) []string {
	args := []string{"-o", strconv.Itoa(level), "--alpha", "--strip", "safe"}
	if opts.Zopfli {
		iterations := opts.ZopfliIterations
		if iterations <= 0 {
			iterations = 15
		}
		args = append(args, "--zopfli", "--zi", strconv.Itoa(iterations))
	}
	return append(args, path)
}
