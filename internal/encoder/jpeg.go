package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
)

// DefaultQuality applies when a caller passes an out-of-range quality.
const DefaultQuality = 90

// JPEGEncoder encodes crops to JPEG with the standard library.
type JPEGEncoder struct{}

func (e *JPEGEncoder) MediaType() string { return "image/jpeg" }
func (e *JPEGEncoder) Extension() string { return ".jpg" }
func (e *JPEGEncoder) Available() bool   { return true }

func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	buf.Grow(128 * 1024)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
