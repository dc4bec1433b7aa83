package codec

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// JPEG encoder backends.
const (
	JPEGEncoderJpegli   = "jpegli"
	JPEGEncoderStandard = "standard"
)

// MaxPNGLevel is the highest PNG optimization level; "max" selects it.
const MaxPNGLevel = 6

// Options holds the format-specific encoder settings of one run.
type Options struct {
	// Quality is 1-100; Lossless overrides it.
	Quality  int
	Lossless bool

	// PNGLevel is "0".."6" or "max".
	PNGLevel         string
	Zopfli           bool
	ZopfliIterations int
	// PNGOptimizerPath names the external oxipng binary.
	PNGOptimizerPath string

	JPEGEncoder       string
	ChromaSubsampling string
	// KeepMetadata copies EXIF from the original JPEG into the result and
	// disables auto-orientation on decode.
	KeepMetadata bool
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Quality:           85,
		PNGLevel:          "2",
		Zopfli:            true,
		ZopfliIterations:  15,
		PNGOptimizerPath:  "oxipng",
		JPEGEncoder:       JPEGEncoderJpegli,
		ChromaSubsampling: "420",
	}
}

// JPEGQuality returns the effective JPEG quality.
func (o Options) JPEGQuality() int {
	if o.Lossless {
		return 100
	}
	return o.Quality
}

// ParsePNGLevel converts "0".."6" or "max" into a numeric level.
func ParsePNGLevel(level string) (int, error) {
	level = strings.TrimSpace(level)
	if strings.EqualFold(level, "max") {
		return MaxPNGLevel, nil
	}
	n, err := strconv.Atoi(level)
	if err != nil || n < 0 || n > MaxPNGLevel {
		return 0, fmt.Errorf("invalid PNG optimization level: %q (valid values are 0-6 or 'max')", level)
	}
	return n, nil
}

// ParseChromaSubsampling maps "444", "422" or "420" to a subsample ratio.
func ParseChromaSubsampling(s string) (image.YCbCrSubsampleRatio, error) {
	switch s {
	case "444":
		return image.YCbCrSubsampleRatio444, nil
	case "422":
		return image.YCbCrSubsampleRatio422, nil
	case "420", "":
		return image.YCbCrSubsampleRatio420, nil
	default:
		return 0, fmt.Errorf("invalid chroma subsampling: %q (use 444, 422, or 420)", s)
	}
}
