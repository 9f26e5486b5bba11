package preview

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFile(t *testing.T, w, h int) media.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return media.File{Name: "p.png", MediaType: "image/png", Size: int64(buf.Len()), Data: buf.Bytes()}
}

func TestAcquireRelease(t *testing.T) {
	r := NewRegistry()

	h, err := r.Acquire(pngFile(t, 30, 20))
	require.NoError(t, err)
	assert.Equal(t, 30, h.Width)
	assert.Equal(t, 20, h.Height)
	assert.True(t, slot.IsTransient(h.URL), "preview handles must be client-local")
	assert.Equal(t, 1, r.Live())

	h.Release()
	h.Release()
	assert.Equal(t, 0, r.Live())
	assert.Nil(t, h.Data)
}

func TestAcquireUndecodableStillTracked(t *testing.T) {
	r := NewRegistry()

	h, err := r.Acquire(media.File{Name: "bad.png", Data: []byte("not an image")})
	require.NoError(t, err)
	assert.Zero(t, h.Width)
	assert.Equal(t, 1, r.Live())
	h.Release()
	assert.Equal(t, 0, r.Live())
}

func TestAcquireEmptyPayload(t *testing.T) {
	r := NewRegistry()
	_, err := r.Acquire(media.File{Name: "empty.png"})
	assert.Error(t, err)
	assert.Equal(t, 0, r.Live())
}

func TestReleaseNil(t *testing.T) {
	var h *Handle
	assert.NotPanics(t, h.Release)
}
