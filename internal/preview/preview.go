// Package preview hands out temporary local handles used to measure or
// display an image before it is uploaded. Handles are client-local
// references and must be released on every exit path.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/google/uuid"
)

// Handle is a displayable local preview of a pending file.
type Handle struct {
	URL    string
	Width  int
	Height int
	Data   []byte

	once     sync.Once
	registry *Registry
}

// Release frees the handle. It is safe to call more than once.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.registry.release(h.URL)
		h.Data = nil
	})
}

// Registry tracks live handles.
type Registry struct {
	mu   sync.Mutex
	live map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{live: make(map[string]struct{})}
}

// Acquire creates a handle for f. Width and Height are zero when the
// payload cannot be measured; the handle is still returned.
func (r *Registry) Acquire(f media.File) (*Handle, error) {
	if len(f.Data) == 0 {
		return nil, fmt.Errorf("preview %s: empty payload", f.Name)
	}
	h := &Handle{
		URL:      "blob:local/" + uuid.NewString(),
		Data:     f.Data,
		registry: r,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data)); err == nil {
		h.Width, h.Height = cfg.Width, cfg.Height
	}

	r.mu.Lock()
	r.live[h.URL] = struct{}{}
	r.mu.Unlock()
	return h, nil
}

// Live reports how many handles are still held.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Registry) release(url string) {
	r.mu.Lock()
	delete(r.live, url)
	r.mu.Unlock()
}
