package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// cwebpTimeout bounds one crop encode.
const cwebpTimeout = 30 * time.Second

// WebPEncoder keeps WebP sources in WebP by running cwebp. Without cwebp
// on PATH the registry drops it and WebP crops fall back to JPEG or PNG.
type WebPEncoder struct {
	once sync.Once
	bin  string
}

func (e *WebPEncoder) MediaType() string { return "image/webp" }
func (e *WebPEncoder) Extension() string { return ".webp" }

func (e *WebPEncoder) Available() bool {
	e.once.Do(func() {
		e.bin, _ = exec.LookPath("cwebp")
	})
	return e.bin != ""
}

func (e *WebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if !e.Available() {
		return nil, fmt.Errorf("cwebp not found in PATH")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	dir, err := os.MkdirTemp("", "gerar-crop-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var src bytes.Buffer
	if err := png.Encode(&src, img); err != nil {
		return nil, fmt.Errorf("encode intermediate png: %w", err)
	}
	in, out := filepath.Join(dir, "in.png"), filepath.Join(dir, "out.webp")
	if err := os.WriteFile(in, src.Bytes(), 0o600); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cwebpTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, e.bin, "-quiet", "-q", strconv.Itoa(quality), in, "-o", out)
	if msg, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("cwebp: %w: %s", err, bytes.TrimSpace(msg))
	}
	return os.ReadFile(out)
}
