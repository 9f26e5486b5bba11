package pipeline

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/Purewee/gerar-admin/internal/fixture"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/slot"
	mock_upload "github.com/Purewee/gerar-admin/internal/upload/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

type recordingNotifier struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (n *recordingNotifier) Error(msg string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg+": "+err.Error())
}

func (n *recordingNotifier) Warn(msg string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warns = append(n.warns, msg+": "+err.Error())
}

// echoUpload answers every upload with a CDN URL derived from the file name.
func echoUpload(m *mock_upload.MockUploader) {
	m.EXPECT().UploadOne(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, f media.File) (string, error) {
			return "https://cdn/" + f.Name, nil
		}).AnyTimes()
	m.EXPECT().UploadMany(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, files []media.File) ([]string, error) {
			urls := make([]string, len(files))
			for i, f := range files {
				urls[i] = "https://cdn/" + f.Name
			}
			return urls, nil
		}).AnyTimes()
}

func assertPersistable(t *testing.T, values []string) {
	t.Helper()
	for _, v := range values {
		assert.False(t, slot.IsTransient(v), "transient value %q", v)
		assert.NotEmpty(t, strings.TrimSpace(v))
	}
}

func TestPipeline_SquareAndWideSelection(t *testing.T) {
	tests := []struct {
		name  string
		files []media.File
		want  []string
	}{
		{
			name:  "SquareFirst",
			files: []media.File{fixture.PNG("a.png", 40, 40), fixture.PNG("b.png", 64, 36)},
			want:  []string{"https://cdn/a.png", "https://cdn/b-cropped.png"},
		},
		{
			name:  "WideFirstKeepsSelectionOrder",
			files: []media.File{fixture.PNG("b.png", 64, 36), fixture.PNG("a.png", 40, 40)},
			want:  []string{"https://cdn/b-cropped.png", "https://cdn/a.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			uploader := mock_upload.NewMockUploader(ctrl)
			echoUpload(uploader)

			p := New(Config{}, uploader, nil)
			require.NoError(t, p.OnFilesSelected(context.Background(), tt.files))

			job, ok := p.ActiveCrop()
			require.True(t, ok)
			assert.Equal(t, "b.png", job.File.Name)
			assert.Equal(t, Busy, p.State())

			images := p.Images()
			require.Len(t, images, 2)
			assert.Contains(t, images, "https://cdn/a.png")
			assert.Equal(t, []string{"https://cdn/a.png"}, p.Finalize())

			require.NoError(t, p.OnCropComplete(context.Background(), image.Rectangle{}))

			assert.Equal(t, Idle, p.State())
			final := p.Finalize()
			assert.Equal(t, tt.want, final)
			assertPersistable(t, final)
		})
	}
}

func TestPipeline_BusyRejectsSelection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uploader := mock_upload.NewMockUploader(ctrl)
	p := New(Config{}, uploader, nil)

	require.NoError(t, p.OnFilesSelected(context.Background(), []media.File{fixture.PNG("wide.png", 64, 36)}))
	require.Equal(t, Busy, p.State())

	err := p.OnFilesSelected(context.Background(), []media.File{fixture.PNG("sq.png", 10, 10)})
	assert.ErrorIs(t, err, errs.ErrBusy)
	assert.Len(t, p.Slots(), 1)

	require.NoError(t, p.OnCropCancel())
	assert.Equal(t, Idle, p.State())
	assert.Nil(t, p.Finalize())
	assert.Empty(t, p.Images())
}

func TestPipeline_BusyWhileLastCropIsProcessed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uploader := mock_upload.NewMockUploader(ctrl)
	echoUpload(uploader)

	var p *Pipeline
	var selectErr error
	var pending int
	p = New(Config{}, uploader, nil, WithCropObserver(func(_, _ media.File) {
		pending = p.PendingUploads()
		selectErr = p.OnFilesSelected(context.Background(), []media.File{fixture.PNG("sq.png", 10, 10)})
	}))

	require.NoError(t, p.OnFilesSelected(context.Background(), []media.File{fixture.PNG("wide.png", 64, 36)}))
	require.NoError(t, p.OnCropComplete(context.Background(), image.Rectangle{}))

	assert.ErrorIs(t, selectErr, errs.ErrBusy)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, p.PendingUploads())
	assert.Equal(t, Idle, p.State())
	assert.Equal(t, []string{"https://cdn/wide-cropped.png"}, p.Finalize())
}

func TestPipeline_DoneContextRejectsSelection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := New(Config{}, mock_upload.NewMockUploader(ctrl), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.OnFilesSelected(ctx, []media.File{fixture.PNG("wide.png", 64, 36)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Slots())
	assert.Equal(t, Idle, p.State())
}

func TestPipeline_CancelDropsQueuedCrops(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uploader := mock_upload.NewMockUploader(ctrl)
	echoUpload(uploader)

	p := New(Config{Initial: []string{"https://cdn/orig.png"}}, uploader, nil)
	files := []media.File{
		fixture.PNG("w1.png", 64, 36),
		fixture.PNG("sq.png", 20, 20),
		fixture.PNG("w2.png", 36, 64),
	}
	require.NoError(t, p.OnFilesSelected(context.Background(), files))
	assert.Equal(t, 1, p.PendingCrops())
	assert.Len(t, p.Slots(), 4)

	require.NoError(t, p.OnCropCancel())
	assert.Equal(t, []string{"https://cdn/orig.png", "https://cdn/sq.png"}, p.Finalize())
	assert.ErrorIs(t, p.OnCropCancel(), errs.ErrNoActiveCrop)
}

func TestPipeline_UploadFailureNotifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uploader := mock_upload.NewMockUploader(ctrl)
	uploader.EXPECT().UploadMany(gomock.Any(), gomock.Any()).Return(nil, errors.New("502 bad gateway"))

	n := &recordingNotifier{}
	p := New(Config{}, uploader, nil, WithNotifier(n))

	err := p.OnFilesSelected(context.Background(), []media.File{
		fixture.PNG("a.png", 10, 10),
		fixture.PNG("b.png", 10, 10),
	})
	require.Error(t, err)
	assert.Equal(t, Idle, p.State())
	assert.Nil(t, p.Finalize())
	require.Len(t, n.errors, 1)
	assert.Contains(t, n.errors[0], "502 bad gateway")
}

func TestPipeline_RemoveDeletesOnlySessionUploads(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uploader := mock_upload.NewMockUploader(ctrl)
	echoUpload(uploader)
	deleter := mock_upload.NewMockDeleter(ctrl)
	deleter.EXPECT().DeleteImage(gomock.Any(), "https://cdn/new.png").Return(false, errors.New("timeout"))

	n := &recordingNotifier{}
	p := New(Config{Initial: []string{"https://cdn/orig.png"}}, uploader, deleter, WithNotifier(n))
	require.NoError(t, p.OnFilesSelected(context.Background(), []media.File{fixture.PNG("new.png", 10, 10)}))

	require.NoError(t, p.OnSlotRemoved(context.Background(), 1))
	require.NoError(t, p.OnSlotRemoved(context.Background(), 0))
	assert.Nil(t, p.Finalize())
	require.Len(t, n.warns, 1)
	assert.Contains(t, n.warns[0], "https://cdn/new.png")

	assert.ErrorIs(t, p.OnSlotRemoved(context.Background(), 0), errs.ErrIndexOutOfRange)
}

func TestPipeline_ManualURLs(t *testing.T) {
	p := New(Config{}, nil, nil)

	require.NoError(t, p.OnURLSlotAdded(""))
	require.NoError(t, p.OnURLSlotAdded("https://cdn/typed.png"))
	assert.ErrorIs(t, p.OnURLSlotAdded("blob:http://localhost/1"), errs.ErrTransientReference)
	require.NoError(t, p.OnURLSlotChanged(0, "https://cdn/first.png"))

	assert.Equal(t, []string{"https://cdn/first.png", "https://cdn/typed.png"}, p.Finalize())
}

func TestPipeline_SubscribeAndUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uploader := mock_upload.NewMockUploader(ctrl)
	p := New(Config{Initial: []string{"https://cdn/a.png", "https://cdn/b.png"}}, uploader, nil)

	var seen [][]string
	p.Subscribe(func(values []string) { seen = append(seen, values) })

	// Wide file: its placeholder is rendered with the upload marker.
	require.NoError(t, p.OnFilesSelected(context.Background(), []media.File{fixture.PNG("w.png", 64, 36)}))
	require.Len(t, seen, 1)
	assert.True(t, strings.HasPrefix(seen[0][2], slot.PlaceholderPrefix))

	// Reordering from the form keeps the in-flight slot.
	p.Update([]string{seen[0][2], "https://cdn/b.png", "https://cdn/a.png", "data:image/png;base64,AA"})
	assert.Equal(t, []string{"https://cdn/b.png", "https://cdn/a.png"}, p.Finalize())
	assert.Equal(t, slot.Placeholder, p.Slots()[0].Kind)

	p.Close()
	assert.Equal(t, Idle, p.State())
	assert.Equal(t, []string{"https://cdn/b.png", "https://cdn/a.png"}, p.Finalize())
}
