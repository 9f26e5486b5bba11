package manifest

import (
	"fmt"
	"net/url"

	"github.com/Purewee/gerar-admin/internal/slot"
)

// Validate returns every problem found in m; nil means valid.
func Validate(m *Manifest) []string {
	var errs []string

	if m.Version != SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}

	seen := map[string]int{}
	var cropped int
	var total int64
	for i, img := range m.Images {
		if img.URL == "" {
			errs = append(errs, fmt.Sprintf("image[%d]: empty url", i))
			continue
		}
		if slot.IsTransient(img.URL) {
			errs = append(errs, fmt.Sprintf("image[%d]: transient reference %q", i, img.URL))
			continue
		}
		if u, err := url.Parse(img.URL); err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fmt.Sprintf("image[%d]: not an absolute url: %q", i, img.URL))
		}
		if j, dup := seen[img.URL]; dup {
			errs = append(errs, fmt.Sprintf("image[%d]: duplicate of image[%d] %q", i, j, img.URL))
		}
		seen[img.URL] = i

		if img.Width < 0 || img.Height < 0 {
			errs = append(errs, fmt.Sprintf("image[%d]: invalid dimensions %dx%d", i, img.Width, img.Height))
		}
		if img.Height > 0 && img.AspectRatio <= 0 {
			errs = append(errs, fmt.Sprintf("image[%d]: invalid aspect ratio %.4f", i, img.AspectRatio))
		}
		if img.Cropped {
			cropped++
		}
		total += img.Size
	}

	if m.Stats.TotalImages != len(m.Images) {
		errs = append(errs, fmt.Sprintf("stats.total_images mismatch: %d != %d", m.Stats.TotalImages, len(m.Images)))
	}
	if m.Stats.TotalCropped != cropped {
		errs = append(errs, fmt.Sprintf("stats.total_cropped mismatch: %d != %d", m.Stats.TotalCropped, cropped))
	}
	if m.Stats.TotalBytes != total {
		errs = append(errs, fmt.Sprintf("stats.total_bytes mismatch: %d != %d", m.Stats.TotalBytes, total))
	}

	return errs
}
