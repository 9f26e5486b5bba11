// Package classify decides whether an image needs an interactive crop
// before upload.
package classify

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/preview"
	"go.uber.org/zap"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultTolerance is the accepted deviation of width/height from 1.0.
const DefaultTolerance = 0.05

// Classifier measures image payloads. Undecodable input is treated as
// square so a broken preview never blocks an upload.
type Classifier struct {
	Tolerance float64
	Previews  *preview.Registry
}

func New(tolerance float64, previews *preview.Registry) *Classifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if previews == nil {
		previews = preview.NewRegistry()
	}
	return &Classifier{Tolerance: tolerance, Previews: previews}
}

// Square reports whether f is square within tolerance. Files that cannot
// be inspected count as square; a done ctx reports false so the file keeps
// waiting for its crop.
func (c *Classifier) Square(ctx context.Context, f media.File) bool {
	const funcName = "Classifier.Square"
	if ctx.Err() != nil {
		return false
	}

	h, err := c.Previews.Acquire(f)
	if err != nil {
		logger.Debug("preview unavailable, classifying as square",
			zap.String("function", funcName),
			zap.String("file", f.Name),
			zap.Error(err),
		)
		return true
	}
	defer h.Release()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(h.Data))
	if err != nil || cfg.Height == 0 {
		logger.Debug("undecodable image, classifying as square",
			zap.String("function", funcName),
			zap.String("file", f.Name),
			zap.Error(err),
		)
		return true
	}

	ratio := float64(cfg.Width) / float64(cfg.Height)
	return math.Abs(ratio-1) <= c.Tolerance
}

// Partition splits files into indices ready for upload and indices that
// need a crop, both in selection order.
func (c *Classifier) Partition(ctx context.Context, files []media.File) (ready, needsCrop []int) {
	for i, f := range files {
		if c.Square(ctx, f) {
			ready = append(ready, i)
		} else {
			needsCrop = append(needsCrop, i)
		}
	}
	return ready, needsCrop
}
