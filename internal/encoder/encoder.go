package encoder

import (
	"image"
)

// Encoder writes a cropped derivative back into an uploadable format.
type Encoder interface {
	// MediaType returns the produced media type (e.g. "image/jpeg").
	MediaType() string

	// Encode converts the image to bytes at the given quality (1-100).
	// Lossless encoders ignore quality.
	Encode(img image.Image, quality int) ([]byte, error)

	// Available reports whether the encoder can run on this host.
	// External encoders (cwebp) may not be installed.
	Available() bool

	// Extension returns the file extension including the dot.
	Extension() string
}
