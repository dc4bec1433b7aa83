// Package metadata reads image metadata for inspection and carries EXIF tags
// across re-encodes.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// ErrNoEXIF is returned when a file carries no readable EXIF block.
var ErrNoEXIF = errors.New("no EXIF metadata")

// Summary holds the EXIF fields shown by the inspect command.
type Summary struct {
	Make        string
	Model       string
	Software    string
	Orientation int
	DateTime    *time.Time
	Width       int
	Height      int
}

// EXIFReader decodes EXIF with goexif and caches summaries per file version.
type EXIFReader struct {
	logger *logrus.Logger
	cache  sync.Map
}

// NewEXIFReader returns a new EXIFReader.
func NewEXIFReader(logger *logrus.Logger) *EXIFReader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EXIFReader{logger: logger}
}

// Read returns the EXIF summary of filePath.
func (r *EXIFReader) Read(filePath string) (*Summary, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	key := fmt.Sprintf("%s:%d:%d", filePath, info.Size(), info.ModTime().Unix())
	if v, ok := r.cache.Load(key); ok {
		return v.(*Summary), nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		r.logger.Debugf("No EXIF in %s: %v", filePath, err)
		return nil, fmt.Errorf("%w: %v", ErrNoEXIF, err)
	}

	s := &Summary{
		Make:        stringTag(x, exif.Make),
		Model:       stringTag(x, exif.Model),
		Software:    stringTag(x, exif.Software),
		Orientation: intTag(x, exif.Orientation),
		Width:       intTag(x, exif.PixelXDimension),
		Height:      intTag(x, exif.PixelYDimension),
	}
	if tm, err := x.DateTime(); err == nil {
		s.DateTime = &tm
	} else {
		s.DateTime = parseEXIFDateTime(stringTag(x, exif.DateTimeOriginal))
	}

	r.cache.Store(key, s)
	return s, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return val
}

func intTag(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	val, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return val
}

// parseEXIFDateTime returns nil when dateStr matches none of the known layouts.
func parseEXIFDateTime(dateStr string) *time.Time {
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006:01:02 15:04:05",
		"2006-01-02 15:04:05",
		"2006:01:02",
		"2006-01-02",
		time.RFC3339,
	}
	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return &date
		}
	}
	return nil
}

// OrientationName describes an EXIF orientation value.
func OrientationName(o int) string {
	switch o {
	case 1:
		return "normal"
	case 2:
		return "mirrored horizontal"
	case 3:
		return "rotated 180"
	case 4:
		return "mirrored vertical"
	case 5:
		return "mirrored horizontal, rotated 270"
	case 6:
		return "rotated 90"
	case 7:
		return "mirrored horizontal, rotated 90"
	case 8:
		return "rotated 270"
	default:
		return "unknown"
	}
}
