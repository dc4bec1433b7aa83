package codec

import (
	"fmt"

	"image-optimizer-go/internal/media"

	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned when no encoder exists for a format.
// Discovery never emits such files, so seeing it means a caller bypassed it.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Kind classifies an EncodeError.
type Kind int

const (
	// KindIO covers reading the source and writing the destination.
	KindIO Kind = iota
	// KindDecode means the source image is malformed or corrupt.
	KindDecode
	// KindCodec is a failure inside an encoder or optimizer, including bad parameters.
	KindCodec
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	case KindCodec:
		return "codec"
	default:
		return "unknown"
	}
}

// EncodeError reports a failed encode of one file.
type EncodeError struct {
	Format media.Format
	Path   string
	Kind   Kind
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s %s error for %s: %v", e.Format, e.Kind, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func encodeErr(format media.Format, path string, kind Kind, err error, msg string) error {
	return &EncodeError{
		Format: format,
		Path:   path,
		Kind:   kind,
		Err:    errors.Wrap(err, msg),
	}
}
