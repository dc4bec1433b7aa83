package codec

import "image"

// PixelSource tells an encoder where its pixels come from: either the file on
// disk, which the encoder decodes itself, or pixels already decoded (and
// possibly resized) upstream. Origin is always the original file path.
type PixelSource struct {
	Origin string
	image  image.Image
}

// FromDisk returns a source that reads and decodes path.
func FromDisk(path string) PixelSource {
	return PixelSource{Origin: path}
}

// FromImage returns a source backed by decoded pixels that originate from path.
func FromImage(path string, img image.Image) PixelSource {
	return PixelSource{Origin: path, image: img}
}

// Decoded returns the in-memory pixels, if any.
func (s PixelSource) Decoded() (image.Image, bool) {
	return s.image, s.image != nil
}
