package classify

import (
	"context"
	"testing"

	"github.com/Purewee/gerar-admin/internal/fixture"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/preview"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

func TestSquare(t *testing.T) {
	tests := []struct {
		name string
		file media.File
		want bool
	}{
		{name: "ExactSquare", file: fixture.PNG("a.png", 100, 100), want: true},
		{name: "WithinTolerance", file: fixture.PNG("b.png", 104, 100), want: true},
		{name: "EdgeOfTolerance", file: fixture.PNG("c.png", 100, 105), want: true},
		{name: "Wide", file: fixture.JPEG("d.jpg", 160, 90), want: false},
		{name: "Tall", file: fixture.PNG("e.png", 90, 160), want: false},
		{name: "JustOutside", file: fixture.PNG("f.png", 107, 100), want: false},
		{name: "CorruptFailsOpen", file: fixture.Corrupt("g.png"), want: true},
		{name: "EmptyFailsOpen", file: media.File{Name: "h.png"}, want: true},
	}

	previews := preview.NewRegistry()
	c := New(0, previews)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Square(context.Background(), tt.file))
			assert.Equal(t, 0, previews.Live(), "preview must be released")
		})
	}
}

func TestCustomTolerance(t *testing.T) {
	c := New(0.01, nil)
	assert.False(t, c.Square(context.Background(), fixture.PNG("a.png", 104, 100)))
	assert.Equal(t, 0.01, c.Tolerance)
}

func TestCancelledContextKeepsCrop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	previews := preview.NewRegistry()
	c := New(0, previews)
	assert.False(t, c.Square(ctx, fixture.PNG("wide.png", 300, 100)))
	assert.False(t, c.Square(ctx, fixture.Corrupt("bad.png")))
	assert.Equal(t, 0, previews.Live())
}

func TestPartitionKeepsSelectionOrder(t *testing.T) {
	files := []media.File{
		fixture.PNG("wide.png", 160, 90),
		fixture.PNG("sq.png", 50, 50),
		fixture.Corrupt("bad.png"),
		fixture.PNG("tall.png", 90, 160),
	}

	ready, needsCrop := New(0, nil).Partition(context.Background(), files)
	assert.Equal(t, []int{1, 2}, ready)
	assert.Equal(t, []int{0, 3}, needsCrop)
}
