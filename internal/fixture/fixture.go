// Package fixture builds small in-memory images for tests.
package fixture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/Purewee/gerar-admin/internal/media"
)

// Epoch is the modification time given to generated files.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Gradient returns a w×h opaque gradient.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w, 1)),
				G: uint8(y * 255 / max(h, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// PNG encodes a w×h gradient as a pending PNG file.
func PNG(name string, w, h int) media.File {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		panic(err)
	}
	return file(name, "image/png", buf.Bytes())
}

// JPEG encodes a w×h gradient as a pending JPEG file.
func JPEG(name string, w, h int) media.File {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 80}); err != nil {
		panic(err)
	}
	return file(name, "image/jpeg", buf.Bytes())
}

// Corrupt returns a file whose payload claims to be PNG but is not.
func Corrupt(name string) media.File {
	return file(name, "image/png", []byte("\x89PNG\r\n\x1a\nthis is not really a png"))
}

func file(name, mediaType string, data []byte) media.File {
	return media.File{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		ModTime:   Epoch,
		Data:      data,
	}
}
