package media

import (
	"path/filepath"
	"strings"
)

// Format identifies one of the image encodings the optimizer can rewrite.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatWebP
)

// SupportedExtensions lists the lowercase extensions, without the dot, that map to a Format.
var SupportedExtensions = []string{"jpg", "jpeg", "png", "webp"}

// FormatFromExtension maps a file extension (with or without the leading dot,
// any case) to its Format. Unknown extensions return FormatUnknown.
func FormatFromExtension(ext string) Format {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "webp":
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// FormatFromPath returns the Format inferred from the extension of path.
func FormatFromPath(path string) Format {
	return FormatFromExtension(filepath.Ext(path))
}

// String returns the string representation of the Format.
func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatWebP:
		return "WebP"
	default:
		return "Unknown"
	}
}

// IsSupported reports whether the optimizer has an encoder for f.
func (f Format) IsSupported() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatWebP:
		return true
	default:
		return false
	}
}
