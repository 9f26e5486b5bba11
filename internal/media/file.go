// Package media describes candidate image submissions.
package media

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/Purewee/gerar-admin/internal/hasher"
)

// DefaultMaxBytes is the upload size limit enforced before any network call.
const DefaultMaxBytes = 10 << 20

// SupportedTypes lists the media types the upload endpoints accept.
var SupportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// File is a pending image submission. It is discarded after its upload
// resolves or when a cropped derivative replaces it.
type File struct {
	Name      string
	MediaType string
	Size      int64
	ModTime   time.Time
	Data      []byte
}

// Identity is the (name, size, mtime) tuple used for de-duplication.
type Identity struct {
	Name    string
	Size    int64
	ModTime int64 // unix millis
}

func (f File) Identity() Identity {
	return Identity{Name: f.Name, Size: f.Size, ModTime: f.ModTime.UnixMilli()}
}

// Key renders the identity as a stable string.
func (id Identity) Key() string {
	return id.Name + "-" + strconv.FormatInt(id.Size, 10) + "-" + strconv.FormatInt(id.ModTime, 10)
}

// BatchIdentity derives the batch key from the ordered identities of files.
func BatchIdentity(files []File) string {
	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = f.Identity().Key()
	}
	return hasher.Key(parts...)
}

// Validate checks media type and size against the upload constraints.
func (f File) Validate(maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if !SupportedTypes[strings.ToLower(f.MediaType)] {
		return fmt.Errorf("%s: %w", f.Name, errs.ErrInvalidFileType)
	}
	if f.Size > maxBytes {
		return fmt.Errorf("%s: %w (%d > %d bytes)", f.Name, errs.ErrFileTooLarge, f.Size, maxBytes)
	}
	return nil
}

// Extension returns the canonical file extension for the media type.
func Extension(mediaType string) string {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}

// FromPath loads a File from disk, sniffing its media type.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return File{
		Name:      filepath.Base(path),
		MediaType: DetectType(filepath.Base(path), data),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Data:      data,
	}, nil
}

// DetectType sniffs content first and falls back to the file extension.
func DetectType(name string, data []byte) string {
	if len(data) > 0 {
		if t := http.DetectContentType(data); strings.HasPrefix(t, "image/") {
			return t
		}
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}
