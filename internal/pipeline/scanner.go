package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Purewee/gerar-admin/internal/media"
	"golang.org/x/sync/errgroup"
)

// Source represents a discovered image file.
type Source struct {
	// AbsPath is the absolute path to the file on disk.
	AbsPath string
	// RelPath is the path relative to the input directory.
	RelPath string
	// Format is the source format (png, jpeg, webp, gif).
	Format string
	// Size is the file size in bytes.
	Size int64
}

// imageExtensions lists the extensions the upload endpoints accept.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// ScanImages walks the input directory and returns all image sources in
// lexical order.
func ScanImages(inputDir string) ([]Source, error) {
	var sources []Source

	err := filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Skip hidden directories.
			if strings.HasPrefix(info.Name(), ".") && path != inputDir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !imageExtensions[ext] {
			return nil
		}

		relPath, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}

		format := strings.TrimPrefix(ext, ".")
		if format == "jpg" {
			format = "jpeg"
		}

		sources = append(sources, Source{
			AbsPath: path,
			RelPath: filepath.ToSlash(relPath),
			Format:  format,
			Size:    info.Size(),
		})
		return nil
	})

	return sources, err
}

// LoadFiles reads sources in parallel, keeping their order.
func LoadFiles(ctx context.Context, sources []Source, workers int) ([]media.File, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	files := make([]media.File, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := media.FromPath(src.AbsPath)
			if err != nil {
				return fmt.Errorf("load %s: %w", src.RelPath, err)
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
