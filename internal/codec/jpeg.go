package codec

import (
	"bytes"

	"image-optimizer-go/internal/media"
	"image-optimizer-go/internal/metadata"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/jpegli"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type jpegEncoder struct {
	fs   afero.Fs
	opts Options
	log  *logrus.Logger
}

func (e *jpegEncoder) Format() media.Format { return media.FormatJPEG }

func (e *jpegEncoder) Encode(src PixelSource, dst string) error {
	img, ok := src.Decoded()
	if !ok {
		var err error
		if img, err = decode(e.fs, src.Origin, !e.opts.KeepMetadata); err != nil {
			return err
		}
	}
	rgb := toRGB(img)

	var buf bytes.Buffer
	switch e.opts.JPEGEncoder {
	case JPEGEncoderStandard:
		if err := imaging.Encode(&buf, rgb, imaging.JPEG, imaging.JPEGQuality(e.opts.JPEGQuality())); err != nil {
			return encodeErr(media.FormatJPEG, src.Origin, KindCodec, err, "standard encoder")
		}
	default:
		ratio, err := ParseChromaSubsampling(e.opts.ChromaSubsampling)
		if err != nil {
			return encodeErr(media.FormatJPEG, src.Origin, KindCodec, err, "jpegli options")
		}
		err = jpegli.Encode(&buf, rgb, &jpegli.EncodingOptions{
			Quality:           e.opts.JPEGQuality(),
			ChromaSubsampling: ratio,
		})
		if err != nil {
			return encodeErr(media.FormatJPEG, src.Origin, KindCodec, err, "jpegli encoder")
		}
	}

	if err := afero.WriteFile(e.fs, dst, buf.Bytes(), 0644); err != nil {
		return encodeErr(media.FormatJPEG, src.Origin, KindIO, err, "write output")
	}

	if e.opts.KeepMetadata && onDisk(e.fs) {
		if !metadata.ExiftoolAvailable() {
			e.log.WithField("file", src.Origin).Warn("exiftool not found, metadata not copied")
		} else if err := metadata.CopyTags(src.Origin, dst); err != nil {
			e.log.WithField("file", src.Origin).Warnf("metadata not copied: %v", err)
		}
	}
	return nil
}
