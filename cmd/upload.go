package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/Purewee/gerar-admin/internal/config"
	"github.com/Purewee/gerar-admin/internal/manifest"
	"github.com/Purewee/gerar-admin/internal/pipeline"
	"github.com/Purewee/gerar-admin/internal/profile"
	"github.com/Purewee/gerar-admin/internal/storage/objectstore"
	"github.com/Purewee/gerar-admin/internal/storage/restapi"
	"github.com/Purewee/gerar-admin/internal/upload"
	"github.com/spf13/cobra"
)

type uploadFlags struct {
	out     string
	profile string
	crop    string
	backend string
	workers int
	initial []string
}

func newUploadCmd(a *app) *cobra.Command {
	f := &uploadFlags{}

	cmd := &cobra.Command{
		Use:   "upload <input_dir>",
		Short: "Upload a directory of images and write the session manifest",
		Long: `Scans the input directory for images (png, jpg, jpeg, webp, gif) and
selects them all at once, in path order. Square images are uploaded as a
batch; every other image is cropped to a centred square (--crop center) or
left out (--crop skip). The finalized list is written as a manifest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), cmd.OutOrStdout(), a.cfg, f, args[0])
		},
	}

	cmd.Flags().StringVarP(&f.out, "out", "o", "gerar.manifest.json", "manifest output path")
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", fmt.Sprintf("pipeline profile %v (default from config)", profile.Names()))
	cmd.Flags().StringVar(&f.crop, "crop", string(pipeline.CropCenter), "how to resolve non-square images: center or skip")
	cmd.Flags().StringVarP(&f.backend, "backend", "b", "", "upload backend: rest or minio (default from config)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "parallel file readers (0 = NumCPU)")
	cmd.Flags().StringSliceVar(&f.initial, "initial", nil, "URLs already on the product, kept ahead of the new images")
	return cmd
}

// backend is satisfied by both restapi.Client and objectstore.Store.
type backend interface {
	upload.Uploader
	upload.Deleter
}

func runUpload(ctx context.Context, out io.Writer, cfg *config.Config, f *uploadFlags, inputDir string) error {
	start := time.Now()

	absInput, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	mode, err := pipeline.ParseCropMode(f.crop)
	if err != nil {
		return err
	}

	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.profile != "" {
		cfg.Profile = f.profile
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	prof := profile.Get(cfg.Profile)

	b, err := newBackend(ctx, cfg, prof)
	if err != nil {
		return err
	}

	m, err := pipeline.Run(ctx, pipeline.RunConfig{
		InputDir: absInput,
		Profile:  prof,
		Backend:  cfg.Backend,
		Crop:     mode,
		Workers:  cfg.Workers,
		Initial:  f.initial,
	}, b, b, pipeline.WithNotifier(pipeline.LogNotifier{}))
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if err := manifest.WriteJSON(m, f.out); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printUploadReport(out, m, f.out, time.Since(start))
	return nil
}

func newBackend(ctx context.Context, cfg *config.Config, prof profile.Profile) (backend, error) {
	switch cfg.Backend {
	case config.BackendMinio:
		store, err := objectstore.New(objectstore.Config{
			Endpoint:      cfg.Minio.Endpoint,
			AccessKey:     cfg.Minio.AccessKey,
			SecretKey:     cfg.Minio.SecretKey,
			Bucket:        cfg.Minio.Bucket,
			UseSSL:        cfg.Minio.UseSSL,
			Prefix:        cfg.Minio.Prefix,
			PublicBaseURL: cfg.Minio.PublicBaseURL,
			Concurrency:   cfg.Workers,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return restapi.New(cfg.API.BaseURL, cfg.API.Token, restapi.WithMaxBytes(prof.MaxBytes)), nil
	}
}

func printUploadReport(out io.Writer, m *manifest.Manifest, path string, elapsed time.Duration) {
	s := m.Stats
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Images:    %d (%d cropped)\n", s.TotalImages, s.TotalCropped)
	if s.Skipped > 0 {
		fmt.Fprintf(out, "  Skipped:   %d\n", s.Skipped)
	}
	fmt.Fprintf(out, "  Uploaded:  %s\n", formatBytes(s.TotalBytes))
	fmt.Fprintf(out, "  Backend:   %s\n", m.Backend)
	fmt.Fprintf(out, "  Profile:   %s\n", m.Profile)
	fmt.Fprintf(out, "  Time:      %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintln(out)

	// Heaviest uploads.
	images := make([]manifest.Image, 0, len(m.Images))
	for _, img := range m.Images {
		if img.Size > 0 {
			images = append(images, img)
		}
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Size > images[j].Size })
	n := min(len(images), 5)
	if n > 0 {
		fmt.Fprintf(out, "  Top %d heaviest:\n", n)
		for _, img := range images[:n] {
			fmt.Fprintf(out, "    %-40s %8s  %dx%d\n", truncKey(img.Source, 40), formatBytes(img.Size), img.Width, img.Height)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  Manifest:  %s\n\n", path)
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
