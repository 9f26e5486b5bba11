package encoder

import (
	"fmt"
	"strings"
)

// Registry holds the encoders that are usable on this host.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry checks every encoder and keeps the available ones.
func NewRegistry() *Registry {
	return newRegistry(&WebPEncoder{}, &JPEGEncoder{}, &PNGEncoder{})
}

func newRegistry(all ...Encoder) *Registry {
	r := &Registry{encoders: make(map[string]Encoder)}
	for _, enc := range all {
		if enc.Available() {
			r.encoders[enc.MediaType()] = enc
		}
	}
	return r
}

// Get returns the encoder for a media type, or nil.
func (r *Registry) Get(mediaType string) Encoder {
	mt := strings.ToLower(mediaType)
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	return r.encoders[mt]
}

// ForMediaType picks the encoder for a cropped derivative of a source with
// the given media type. The source format is kept when possible; GIF and
// transparent sources fall back to PNG, everything else to JPEG.
func (r *Registry) ForMediaType(mediaType string, hasAlpha bool) Encoder {
	mt := strings.ToLower(mediaType)
	if mt != "image/gif" {
		if enc := r.Get(mt); enc != nil && !(hasAlpha && mt == "image/jpeg") {
			return enc
		}
	}
	if hasAlpha || mt == "image/gif" {
		if enc := r.Get("image/png"); enc != nil {
			return enc
		}
	}
	return r.Get("image/jpeg")
}

// Available returns usable media types in preference order.
func (r *Registry) Available() []string {
	var result []string
	for _, mt := range []string{"image/webp", "image/jpeg", "image/png"} {
		if _, ok := r.encoders[mt]; ok {
			result = append(result, mt)
		}
	}
	return result
}

func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}
