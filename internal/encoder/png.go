package encoder

import (
	"bytes"
	"image"
	"image/png"
)

// PNGEncoder encodes crops to PNG. It is the fallback for sources with
// transparency and for GIF sources.
type PNGEncoder struct{}

func (e *PNGEncoder) MediaType() string { return "image/png" }
func (e *PNGEncoder) Extension() string { return ".png" }
func (e *PNGEncoder) Available() bool   { return true }

func (e *PNGEncoder) Encode(img image.Image, _ int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(256 * 1024)

	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
