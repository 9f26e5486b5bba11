package manifest

// Manifest is the report of one upload session: the finalized image list
// in form order, plus where each URL came from.
type Manifest struct {
	Version     int     `json:"version"`
	GeneratedAt string  `json:"generated_at"`
	Profile     string  `json:"profile"`
	Backend     string  `json:"backend"`
	Images      []Image `json:"images"`
	Stats       Stats   `json:"stats"`
}

// Image describes one persisted URL.
type Image struct {
	URL         string  `json:"url"`
	Source      string  `json:"source,omitempty"` // input path relative to the scanned dir
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	Format      string  `json:"format,omitempty"` // "jpeg", "png", "gif", "webp"
	Size        int64   `json:"size,omitempty"`   // uploaded bytes
	AspectRatio float64 `json:"aspect_ratio,omitempty"`
	Cropped     bool    `json:"cropped"`
	Hash        string  `json:"hash,omitempty"` // xxHash64 of the uploaded bytes
}

// Stats aggregates session metrics.
type Stats struct {
	TotalImages  int   `json:"total_images"`
	TotalCropped int   `json:"total_cropped"`
	TotalBytes   int64 `json:"total_bytes"`
	Skipped      int   `json:"skipped,omitempty"` // files dropped by cancel or failure
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1
