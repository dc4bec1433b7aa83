package codec

import (
	"image-optimizer-go/internal/media"

	"github.com/chai2010/webp"
	"github.com/spf13/afero"
)

type webpEncoder struct {
	fs   afero.Fs
	opts Options
}

func (e *webpEncoder) Format() media.Format { return media.FormatWebP }

func (e *webpEncoder) Encode(src PixelSource, dst string) error {
	img, ok := src.Decoded()
	if !ok {
		var err error
		if img, err = decode(e.fs, src.Origin, !e.opts.KeepMetadata); err != nil {
			return err
		}
	}
	rgb := toRGB(img)

	var (
		data []byte
		err  error
	)
	if e.opts.Lossless {
		data, err = webp.EncodeLosslessRGB(rgb)
	} else {
		data, err = webp.EncodeRGB(rgb, float32(e.opts.Quality))
	}
	if err != nil {
		return encodeErr(media.FormatWebP, src.Origin, KindCodec, err, "webp encoder")
	}

	if err := afero.WriteFile(e.fs, dst, data, 0644); err != nil {
		return encodeErr(media.FormatWebP, src.Origin, KindIO, err, "write output")
	}
	return nil
}
