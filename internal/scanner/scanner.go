package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"image-optimizer-go/internal/media"

	"github.com/spf13/afero"
)

var (
	// ErrNotExist is returned when the scan root does not exist.
	ErrNotExist = errors.New("input file or directory does not exist")
	// ErrUnsupportedFile is returned by Open for files that are not images.
	ErrUnsupportedFile = errors.New("the specified file is not a supported image format")
)

// Scanner discovers supported image files below a root path.
type Scanner struct {
	fs afero.Fs
}

// New returns a Scanner reading from fs.
func New(fs afero.Fs) *Scanner {
	return &Scanner{fs: fs}
}

// Scan returns the supported images at root. A file root yields itself when
// its extension is supported and nothing otherwise. A directory root is
// walked in lexical order; subdirectories are only entered when recursive is
// set. Unreadable entries are skipped. An empty result is not an error.
func (s *Scanner) Scan(root string, recursive bool) ([]media.ImageFile, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		file, err := media.NewImageFile(root)
		if err != nil {
			return nil, nil
		}
		return []media.ImageFile{file}, nil
	}

	var files []media.ImageFile
	err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if file, err := media.NewImageFile(path); err == nil {
			files = append(files, file)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// IsFile reports whether path exists and is not a directory.
func (s *Scanner) IsFile(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Open returns the single image at path.
func (s *Scanner) Open(path string) (media.ImageFile, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return media.ImageFile{}, ErrNotExist
		}
		return media.ImageFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return media.ImageFile{}, fmt.Errorf("%s is a directory", path)
	}
	file, err := media.NewImageFile(path)
	if err != nil {
		return media.ImageFile{}, ErrUnsupportedFile
	}
	return file, nil
}
