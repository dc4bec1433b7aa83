package codec

import (
	"image"
	"image/draw"

	"image-optimizer-go/internal/media"

	_ "github.com/chai2010/webp" // registers the webp decoder with image.Decode
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

// decode reads and decodes path from fs, applying EXIF orientation when asked.
func decode(fs afero.Fs, path string, autoOrient bool) (image.Image, error) {
	format := media.FormatFromPath(path)

	f, err := fs.Open(path)
	if err != nil {
		return nil, encodeErr(format, path, KindIO, err, "open source")
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(autoOrient))
	if err != nil {
		return nil, encodeErr(format, path, KindDecode, err, "decode source")
	}
	return img, nil
}

// toRGB drops the alpha channel, keeping the straight colour values, so every
// encoder sees an opaque 3-channel image.
func toRGB(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	rgb := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgb, rgb.Bounds(), img, bounds.Min, draw.Src)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}
	return rgb
}

func onDisk(fs afero.Fs) bool {
	_, ok := fs.(*afero.OsFs)
	return ok
}
