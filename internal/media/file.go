package media

import "fmt"

// ImageFile is a discovered image path together with its format tag.
// Values are only ever built through NewImageFile, so Format is always supported.
type ImageFile struct {
	Path   string
	Format Format
}

// NewImageFile returns an ImageFile for path, or an error if its extension
// does not belong to a supported format.
func NewImageFile(path string) (ImageFile, error) {
	format := FormatFromPath(path)
	if !format.IsSupported() {
		return ImageFile{}, fmt.Errorf("unsupported image format: %s", path)
	}
	return ImageFile{Path: path, Format: format}, nil
}

func (f ImageFile) String() string {
	return f.Path
}
