package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/Purewee/gerar-admin/internal/hasher"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/manifest"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/profile"
	"github.com/Purewee/gerar-admin/internal/upload"
	"go.uber.org/zap"
)

// CropMode decides how a headless run answers crop requests.
type CropMode string

const (
	CropCenter CropMode = "center"
	CropSkip   CropMode = "skip"
)

func ParseCropMode(s string) (CropMode, error) {
	switch m := CropMode(strings.ToLower(s)); m {
	case CropCenter, CropSkip:
		return m, nil
	}
	return "", fmt.Errorf("unknown crop mode %q (want center or skip)", s)
}

// RunConfig holds all parameters for a headless upload run.
type RunConfig struct {
	InputDir string
	Profile  profile.Profile
	Backend  string
	Crop     CropMode
	Workers  int
	Initial  []string
}

// Run scans InputDir, pushes every image through a Pipeline as a single
// selection, answers crop requests according to cfg.Crop and returns the
// report of the finalized list. Individual upload failures are reported
// but do not fail the run unless nothing was uploaded.
func Run(ctx context.Context, cfg RunConfig, uploader upload.Uploader, deleter upload.Deleter, opts ...Option) (*manifest.Manifest, error) {
	const funcName = "Run"

	sources, err := ScanImages(cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", cfg.InputDir)
	}
	logger.Info("images found",
		zap.String("function", funcName),
		zap.String("dir", cfg.InputDir),
		zap.Int("count", len(sources)),
	)

	files, err := LoadFiles(ctx, sources, cfg.Workers)
	if err != nil {
		return nil, err
	}

	rec := newRecorder(sources, files)
	opts = append(opts, WithUploadObserver(rec.uploaded), WithCropObserver(rec.cropped))
	p := New(Config{
		Initial:   cfg.Initial,
		Tolerance: cfg.Profile.Tolerance,
		MaxBytes:  cfg.Profile.MaxBytes,
		Quality:   cfg.Profile.Quality,
	}, uploader, deleter, opts...)
	defer p.Close()

	var failures int
	if err := p.OnFilesSelected(ctx, files); err != nil {
		failures++
	}

	for {
		job, ok := p.ActiveCrop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cfg.Crop == CropSkip {
			logger.Info("skipping non-square images",
				zap.String("function", funcName),
				zap.String("file", job.File.Name),
				zap.Int("queued", p.PendingCrops()),
			)
			if err := p.OnCropCancel(); err != nil {
				return nil, err
			}
			break
		}
		if err := p.OnCropComplete(ctx, image.Rectangle{}); err != nil {
			failures++
		}
	}

	if n := p.PendingUploads(); n > 0 {
		logger.Warn("slots still pending at the end of the run",
			zap.String("function", funcName),
			zap.Int("pending", n),
		)
	}

	m := manifest.New(cfg.Profile.Name, cfg.Backend)
	for _, url := range p.Finalize() {
		m.Images = append(m.Images, rec.image(url))
	}
	m.Stats.Skipped = len(files) - rec.count()
	m.ComputeStats()

	if rec.count() == 0 && len(files) > 0 {
		return m, fmt.Errorf("all %d images failed to upload", len(files))
	}
	if failures > 0 {
		logger.Warn("some images were not uploaded",
			zap.String("function", funcName),
			zap.Int("skipped", m.Stats.Skipped),
		)
	}
	return m, nil
}

// recorder collects manifest metadata from pipeline observers.
type recorder struct {
	mu      sync.Mutex
	sources map[string]string // identity key -> relative path
	crops   map[string]bool
	images  map[string]manifest.Image
}

func newRecorder(sources []Source, files []media.File) *recorder {
	r := &recorder{
		sources: make(map[string]string, len(files)),
		crops:   make(map[string]bool),
		images:  make(map[string]manifest.Image),
	}
	for i, f := range files {
		r.sources[f.Identity().Key()] = sources[i].RelPath
	}
	return r
}

func (r *recorder) cropped(src, out media.File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := out.Identity().Key()
	r.sources[key] = r.sources[src.Identity().Key()]
	r.crops[key] = true
}

func (r *recorder) uploaded(f media.File, url string) {
	img := manifest.Image{
		URL:    url,
		Format: strings.TrimPrefix(f.MediaType, "image/"),
		Size:   f.Size,
		Hash:   hasher.ContentHash(f.Data, 0),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data)); err == nil && cfg.Height > 0 {
		img.Width, img.Height = cfg.Width, cfg.Height
		img.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := f.Identity().Key()
	img.Source = r.sources[key]
	img.Cropped = r.crops[key]
	r.images[url] = img
}

func (r *recorder) image(url string) manifest.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.images[url]; ok {
		return img
	}
	return manifest.Image{URL: url}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.images)
}
