package crop

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/Purewee/gerar-admin/internal/classify"
	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/Purewee/gerar-admin/internal/fixture"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/preview"
	"github.com/Purewee/gerar-admin/internal/slot"
	"github.com/Purewee/gerar-admin/internal/upload"
	mock_upload "github.com/Purewee/gerar-admin/internal/upload/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

type harness struct {
	list     *slot.List
	previews *preview.Registry
	uploader *mock_upload.MockUploader
	coord    *Coordinator
	cropped  []string
}

func newHarness(t *testing.T) *harness {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	h := &harness{
		list:     slot.NewList("https://cdn/seed.png"),
		previews: preview.NewRegistry(),
		uploader: mock_upload.NewMockUploader(ctrl),
	}
	batcher := upload.NewBatcher(h.list, upload.NewSession(), h.uploader)
	h.coord = NewCoordinator(h.list, batcher, classify.New(0, h.previews), NewCropper(nil, 0),
		WithPreviews(h.previews),
		WithCropObserver(func(src, out media.File) {
			h.cropped = append(h.cropped, src.Name+"->"+out.Name)
		}),
	)
	return h
}

// jobs reserves one slot per file at the end of the list.
func (h *harness) jobs(files ...media.File) []Job {
	tokens := h.list.InsertPlaceholders(h.list.Len(), len(files))
	out := make([]Job, len(files))
	for i, f := range files {
		out[i] = Job{File: f, Token: tokens[i]}
	}
	return out
}

func TestCoordinator_CompleteAdvancesQueue(t *testing.T) {
	h := newHarness(t)

	h.uploader.EXPECT().UploadOne(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, f media.File) (string, error) {
			return "https://cdn/" + f.Name, nil
		}).Times(2)

	h.coord.Enqueue(h.jobs(fixture.PNG("b.png", 32, 18), fixture.PNG("c.png", 18, 32))...)

	active, ok := h.coord.Active()
	require.True(t, ok)
	assert.Equal(t, "b.png", active.File.Name)
	require.NotNil(t, active.Preview)
	assert.Equal(t, 32, active.Preview.Width)
	assert.Equal(t, 1, h.coord.Pending())
	assert.Equal(t, AwaitingCrop, h.coord.State())
	assert.Equal(t, 1, h.previews.Live())

	require.NoError(t, h.coord.Complete(context.Background(), image.Rectangle{}))

	active, ok = h.coord.Active()
	require.True(t, ok)
	assert.Equal(t, "c.png", active.File.Name)
	assert.Equal(t, 0, h.coord.Pending())
	assert.Equal(t, 1, h.previews.Live())

	require.NoError(t, h.coord.Complete(context.Background(), image.Rect(0, 0, 18, 18)))

	assert.Equal(t, Idle, h.coord.State())
	assert.Equal(t, 0, h.previews.Live())
	assert.Equal(t, []string{
		"https://cdn/seed.png",
		"https://cdn/b-cropped.png",
		"https://cdn/c-cropped.png",
	}, h.list.Finalize())
	assert.Equal(t, []string{"b.png->b-cropped.png", "c.png->c-cropped.png"}, h.cropped)
}

func TestCoordinator_SquareRunUploadedAsBatch(t *testing.T) {
	h := newHarness(t)

	gomock.InOrder(
		h.uploader.EXPECT().UploadOne(gomock.Any(), gomock.Any()).Return("https://cdn/a-cropped.png", nil),
		h.uploader.EXPECT().UploadMany(gomock.Any(), gomock.Len(2)).
			Return([]string{"https://cdn/s1.png", "https://cdn/s2.png"}, nil),
	)

	h.coord.Enqueue(h.jobs(
		fixture.PNG("a.png", 40, 20),
		fixture.PNG("s1.png", 20, 20),
		fixture.PNG("s2.png", 20, 20),
		fixture.PNG("d.png", 20, 40),
	)...)

	require.NoError(t, h.coord.Complete(context.Background(), image.Rectangle{}))

	active, ok := h.coord.Active()
	require.True(t, ok)
	assert.Equal(t, "d.png", active.File.Name)

	slots := h.list.Slots()
	require.Len(t, slots, 5)
	assert.Equal(t, "https://cdn/a-cropped.png", slots[1].Value)
	assert.Equal(t, "https://cdn/s1.png", slots[2].Value)
	assert.Equal(t, "https://cdn/s2.png", slots[3].Value)
	assert.Equal(t, slot.Placeholder, slots[4].Kind)
}

func TestCoordinator_CompleteWithDoneContextKeepsQueue(t *testing.T) {
	h := newHarness(t)

	// Only the cropped derivative may be uploaded; no UploadMany.
	h.uploader.EXPECT().UploadOne(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, f media.File) (string, error) {
			return "https://cdn/" + f.Name, nil
		}).AnyTimes()

	h.coord.Enqueue(h.jobs(
		fixture.PNG("b.png", 32, 18),
		fixture.PNG("c.png", 18, 32),
		fixture.PNG("s.png", 20, 20),
		fixture.PNG("d.png", 40, 10),
	)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = h.coord.Complete(ctx, image.Rectangle{})

	active, ok := h.coord.Active()
	require.True(t, ok)
	assert.Equal(t, "c.png", active.File.Name)
	assert.Equal(t, 2, h.coord.Pending())
	assert.Equal(t, AwaitingCrop, h.coord.State())

	slots := h.list.Slots()
	require.Len(t, slots, 5)
	for _, s := range slots[2:] {
		assert.Equal(t, slot.Placeholder, s.Kind)
	}
	assert.Equal(t, []string{"b.png->b-cropped.png"}, h.cropped)
}

func TestCoordinator_BusyUntilCompleteReturns(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	list := slot.NewList()
	uploader := mock_upload.NewMockUploader(ctrl)
	batcher := upload.NewBatcher(list, upload.NewSession(), uploader)

	var coord *Coordinator
	var during State
	coord = NewCoordinator(list, batcher, classify.New(0, nil), NewCropper(nil, 0),
		WithCropObserver(func(_, _ media.File) {
			during = coord.State()
		}),
	)
	uploader.EXPECT().UploadOne(gomock.Any(), gomock.Any()).Return("https://cdn/b-cropped.png", nil)

	tokens := list.InsertPlaceholders(0, 1)
	coord.Enqueue(Job{File: fixture.PNG("b.png", 32, 18), Token: tokens[0]})

	require.NoError(t, coord.Complete(context.Background(), image.Rectangle{}))
	assert.Equal(t, AwaitingCrop, during)
	assert.Equal(t, Idle, coord.State())
}

func TestCoordinator_CancelDropsRemaining(t *testing.T) {
	h := newHarness(t)

	h.coord.Enqueue(h.jobs(fixture.PNG("b.png", 32, 18), fixture.PNG("c.png", 18, 32))...)
	require.Equal(t, 3, h.list.Len())

	require.NoError(t, h.coord.Cancel())

	assert.Equal(t, Idle, h.coord.State())
	assert.Equal(t, 0, h.coord.Pending())
	assert.Equal(t, 0, h.previews.Live())
	assert.Equal(t, []string{"https://cdn/seed.png"}, h.list.Finalize())
	assert.Empty(t, h.list.PendingTokens())
}

func TestCoordinator_NoActiveJob(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.coord.Complete(context.Background(), image.Rectangle{}), errs.ErrNoActiveCrop)
	assert.ErrorIs(t, h.coord.Cancel(), errs.ErrNoActiveCrop)
	_, ok := h.coord.Active()
	assert.False(t, ok)
}

func TestCoordinator_FailuresStillAdvance(t *testing.T) {
	t.Run("CropFailure", func(t *testing.T) {
		h := newHarness(t)
		h.coord.Enqueue(h.jobs(fixture.Corrupt("bad.png"), fixture.PNG("c.png", 18, 32))...)

		err := h.coord.Complete(context.Background(), image.Rectangle{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.png")

		active, ok := h.coord.Active()
		require.True(t, ok)
		assert.Equal(t, "c.png", active.File.Name)
		assert.Equal(t, 2, h.list.Len())
	})

	t.Run("UploadFailure", func(t *testing.T) {
		h := newHarness(t)
		h.uploader.EXPECT().UploadOne(gomock.Any(), gomock.Any()).Return("", errors.New("503"))

		h.coord.Enqueue(h.jobs(fixture.PNG("b.png", 32, 18), fixture.PNG("c.png", 18, 32))...)

		err := h.coord.Complete(context.Background(), image.Rectangle{})
		var uerr *upload.UploadError
		require.True(t, errors.As(err, &uerr))

		active, ok := h.coord.Active()
		require.True(t, ok)
		assert.Equal(t, "c.png", active.File.Name)
		assert.Equal(t, 2, h.list.Len())
	})
}
