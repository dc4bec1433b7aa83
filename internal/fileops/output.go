package fileops

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotUnderRoot is returned when a file cannot be expressed relative to the input root.
var ErrNotUnderRoot = errors.New("file is not under the input root")

// Target describes where the optimizer writes one file.
type Target struct {
	// Final is the path that holds the result once the file is done.
	Final string
	// InPlace is true when Final is the original file itself.
	InPlace bool
}

// Resolver maps input files to their write targets.
type Resolver struct {
	fs        afero.Fs
	inputRoot string
	outputDir string
}

// NewResolver returns a Resolver. An empty outputDir selects in-place mode;
// otherwise the tree below inputRoot is mirrored below outputDir.
func NewResolver(fs afero.Fs, inputRoot, outputDir string) *Resolver {
	return &Resolver{
		fs:        fs,
		inputRoot: inputRoot,
		outputDir: outputDir,
	}
}

// InPlace reports whether the resolver replaces originals.
func (r *Resolver) InPlace() bool {
	return r.outputDir == ""
}

// Resolve returns the target for path. In separate-output mode the parent
// directories of the final path are created.
func (r *Resolver) Resolve(path string) (Target, error) {
	if r.InPlace() {
		return Target{Final: path, InPlace: true}, nil
	}

	rel, err := relativeTo(r.inputRoot, path)
	if err != nil {
		return Target{}, err
	}

	final := filepath.Join(r.outputDir, rel)
	if err := r.fs.MkdirAll(filepath.Dir(final), 0755); err != nil {
		return Target{}, fmt.Errorf("create output directory: %w", err)
	}

	return Target{Final: final}, nil
}

// ClaimStaging creates an empty, uniquely named file next to final and
// returns its path: "photo.jpg" gets "photo.<random>.tmp.jpg". The file is
// created exclusively, so an existing file is never reused or truncated.
// Keeping the real extension last lets external tools recognise it.
func ClaimStaging(fs afero.Fs, final string) (string, error) {
	ext := filepath.Ext(final)
	stem := strings.TrimSuffix(filepath.Base(final), ext)
	f, err := afero.TempFile(fs, filepath.Dir(final), stem+".*.tmp"+ext)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = fs.Remove(name)
		return "", fmt.Errorf("create staging file: %w", err)
	}
	return name, nil
}

func relativeTo(root, path string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotUnderRoot, path)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrNotUnderRoot, path)
	}
	return rel, nil
}
