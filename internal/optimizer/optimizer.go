package optimizer

import (
	"fmt"
	"os"

	"image-optimizer-go/internal/codec"
	"image-optimizer-go/internal/fileops"
	"image-optimizer-go/internal/media"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Status tells how a successfully handled file ended.
type Status int

const (
	// StatusShrunk means the optimized encoding replaced the original.
	StatusShrunk Status = iota
	// StatusNotSmaller means the optimized encoding was discarded.
	StatusNotSmaller
)

func (s Status) String() string {
	if s == StatusShrunk {
		return "shrunk"
	}
	return "not_smaller"
}

// Outcome reports the result of optimizing one file.
type Outcome struct {
	Path          string
	OutputPath    string
	OriginalSize  uint64
	OptimizedSize uint64
	Saved         uint64
	Status        Status
}

// Optimizer rewrites one image at a time. It is safe for concurrent use as
// long as no two calls handle the same path.
type Optimizer struct {
	fs       afero.Fs
	codecs   Codecs
	resolver *fileops.Resolver
	backup   bool
	maxSize  uint32
	log      *logrus.Logger
}

// New returns an Optimizer for req.
func New(fs afero.Fs, codecs Codecs, req Request, log *logrus.Logger) *Optimizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Optimizer{
		fs:       fs,
		codecs:   codecs,
		resolver: fileops.NewResolver(fs, req.InputRoot, req.OutputDir),
		backup:   req.Backup,
		maxSize:  req.MaxSize,
		log:      log,
	}
}

// Optimize encodes file into a freshly claimed staging file and keeps the
// result only when it is strictly smaller than the original. Files reach
// their final path only by rename, carrying the original's permissions. On
// any error the original is left untouched and the staging file is removed.
func (o *Optimizer) Optimize(file media.ImageFile) (Outcome, error) {
	out := Outcome{Path: file.Path}

	info, err := o.fs.Stat(file.Path)
	if err != nil {
		return out, fmt.Errorf("read size: %w", err)
	}
	out.OriginalSize = uint64(info.Size())
	perm := info.Mode().Perm()

	target, err := o.resolver.Resolve(file.Path)
	if err != nil {
		return out, err
	}
	out.OutputPath = target.Final

	if target.InPlace && o.backup {
		if err := fileops.CreateBackup(o.fs, file.Path); err != nil {
			return out, fmt.Errorf("create backup: %w", err)
		}
	}

	src, err := o.source(file)
	if err != nil {
		return out, err
	}

	enc, err := o.codecs.Encoder(file.Format)
	if err != nil {
		return out, err
	}

	staging, err := fileops.ClaimStaging(o.fs, target.Final)
	if err != nil {
		return out, err
	}
	if err := enc.Encode(src, staging); err != nil {
		o.discard(staging)
		return out, err
	}

	staged, err := fileops.FileSize(o.fs, staging)
	if err != nil {
		o.discard(staging)
		return out, fmt.Errorf("read optimized size: %w", err)
	}

	if uint64(staged) < out.OriginalSize {
		if err := o.promote(staging, target.Final, perm); err != nil {
			return out, err
		}
		out.OptimizedSize = uint64(staged)
		out.Saved = out.OriginalSize - out.OptimizedSize
		out.Status = StatusShrunk
		return out, nil
	}

	if target.InPlace {
		o.discard(staging)
	} else {
		if err := fileops.CopyFile(o.fs, file.Path, staging); err != nil {
			o.discard(staging)
			return out, fmt.Errorf("copy original: %w", err)
		}
		if err := o.promote(staging, target.Final, perm); err != nil {
			return out, err
		}
	}
	out.OptimizedSize = out.OriginalSize
	out.Status = StatusNotSmaller
	return out, nil
}

// promote gives staging the original's permissions and renames it onto final.
func (o *Optimizer) promote(staging, final string, perm os.FileMode) error {
	if err := o.fs.Chmod(staging, perm); err != nil {
		o.discard(staging)
		return fmt.Errorf("set permissions on %s: %w", staging, err)
	}
	if err := o.fs.Rename(staging, final); err != nil {
		o.discard(staging)
		return fmt.Errorf("replace %s: %w", final, err)
	}
	return nil
}

// source decodes and resizes the image when it exceeds the size bound.
// Otherwise the encoder reads the original from disk.
func (o *Optimizer) source(file media.ImageFile) (codec.PixelSource, error) {
	if o.maxSize == 0 {
		return codec.FromDisk(file.Path), nil
	}

	img, err := o.codecs.Decode(file.Path)
	if err != nil {
		return codec.PixelSource{}, err
	}
	b := img.Bounds()
	width, height := uint32(b.Dx()), uint32(b.Dy())
	w, h := fileops.PlanResize(width, height, o.maxSize)
	if w == 0 || h == 0 {
		return codec.PixelSource{}, fmt.Errorf("%w: %dx%d to %dx%d", ErrDegenerateResize, width, height, w, h)
	}
	if w == width && h == height {
		return codec.FromImage(file.Path, img), nil
	}

	o.log.WithField("file", file.Path).Debugf("Resizing %dx%d to %dx%d", width, height, w, h)
	return codec.FromImage(file.Path, imaging.Resize(img, int(w), int(h), imaging.Lanczos)), nil
}

func (o *Optimizer) discard(path string) {
	if err := o.fs.Remove(path); err != nil {
		o.log.WithField("file", path).Debugf("Could not remove staging file: %v", err)
	}
}
