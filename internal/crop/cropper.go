// Package crop turns non-square selections into square derivatives, one
// interactive crop at a time.
package crop

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"time"

	"github.com/Purewee/gerar-admin/internal/encoder"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Cropper decodes a pending file, cuts the requested area and re-encodes
// the result into an uploadable format.
type Cropper struct {
	Encoders *encoder.Registry
	Quality  int
}

func NewCropper(encoders *encoder.Registry, quality int) *Cropper {
	if encoders == nil {
		encoders = encoder.NewRegistry()
	}
	return &Cropper{Encoders: encoders, Quality: quality}
}

// Crop returns the derivative of f limited to area. An empty area selects
// the largest centred square.
func (c *Cropper) Crop(f media.File, area image.Rectangle) (media.File, error) {
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return media.File{}, fmt.Errorf("decode %s: %w", f.Name, err)
	}

	bounds := img.Bounds()
	var cropped *image.NRGBA
	if area.Empty() {
		side := min(bounds.Dx(), bounds.Dy())
		cropped = imaging.CropCenter(img, side, side)
	} else {
		// area is relative to the image origin.
		rect := area.Add(bounds.Min).Intersect(bounds)
		if rect.Empty() {
			return media.File{}, fmt.Errorf("crop %s: area %v outside %dx%d image",
				f.Name, area, bounds.Dx(), bounds.Dy())
		}
		cropped = imaging.Crop(img, rect)
	}

	enc := c.Encoders.ForMediaType(f.MediaType, !cropped.Opaque())
	if enc == nil {
		return media.File{}, fmt.Errorf("crop %s: no encoder for %s", f.Name, f.MediaType)
	}

	data, err := enc.Encode(cropped, c.Quality)
	if err != nil {
		return media.File{}, fmt.Errorf("encode %s as %s: %w", f.Name, enc.MediaType(), err)
	}

	return media.File{
		Name:      croppedName(f.Name, enc.Extension()),
		MediaType: enc.MediaType(),
		Size:      int64(len(data)),
		ModTime:   time.Now(),
		Data:      data,
	}, nil
}

func croppedName(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + "-cropped" + ext
}
