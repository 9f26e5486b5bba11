// Package pipeline wires the classifier, crop coordinator, upload batcher
// and reconciler behind the hooks a product form calls.
package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/Purewee/gerar-admin/internal/classify"
	"github.com/Purewee/gerar-admin/internal/crop"
	"github.com/Purewee/gerar-admin/internal/encoder"
	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/preview"
	"github.com/Purewee/gerar-admin/internal/reconcile"
	"github.com/Purewee/gerar-admin/internal/slot"
	"github.com/Purewee/gerar-admin/internal/upload"
	"go.uber.org/zap"
)

// Config holds the parameters of one form's image field.
type Config struct {
	// Initial holds the URLs the form was opened with. They are never
	// deleted remotely.
	Initial   []string
	Tolerance float64
	MaxBytes  int64
	Quality   int
}

type State int

const (
	Idle State = iota
	Busy
)

func (s State) String() string {
	if s == Busy {
		return "busy"
	}
	return "idle"
}

// Pipeline is one instance per form. All methods are safe for concurrent
// use.
type Pipeline struct {
	cfg      Config
	list     *slot.List
	session  *upload.Session
	previews *preview.Registry
	notifier Notifier

	classifier *classify.Classifier
	batcher    *upload.Batcher
	coord      *crop.Coordinator
	reconciler *reconcile.Reconciler

	encoders    *encoder.Registry
	uploadHooks []func(media.File, string)
	cropHooks   []func(src, cropped media.File)

	mu        sync.Mutex
	selecting bool
}

type Option func(*Pipeline)

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithEncoders(r *encoder.Registry) Option {
	return func(p *Pipeline) { p.encoders = r }
}

// WithUploadObserver is called with every file placed in the list and
// its URL.
func WithUploadObserver(fn func(media.File, string)) Option {
	return func(p *Pipeline) { p.uploadHooks = append(p.uploadHooks, fn) }
}

// WithCropObserver is called with every source file and its derivative.
func WithCropObserver(fn func(src, cropped media.File)) Option {
	return func(p *Pipeline) { p.cropHooks = append(p.cropHooks, fn) }
}

// New builds a pipeline. deleter may be nil, in which case nothing is ever
// deleted remotely.
func New(cfg Config, uploader upload.Uploader, deleter upload.Deleter, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		list:     slot.NewList(cfg.Initial...),
		session:  upload.NewSession(),
		previews: preview.NewRegistry(),
		notifier: LogNotifier{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.encoders == nil {
		p.encoders = encoder.NewRegistry()
	}

	p.classifier = classify.New(cfg.Tolerance, p.previews)

	batcherOpts := []upload.Option{upload.WithMaxBytes(cfg.MaxBytes)}
	if deleter != nil {
		batcherOpts = append(batcherOpts, upload.WithDeleter(deleter))
	}
	for _, fn := range p.uploadHooks {
		batcherOpts = append(batcherOpts, upload.WithObserver(fn))
	}
	p.batcher = upload.NewBatcher(p.list, p.session, uploader, batcherOpts...)

	cropOpts := []crop.Option{crop.WithPreviews(p.previews)}
	for _, fn := range p.cropHooks {
		cropOpts = append(cropOpts, crop.WithCropObserver(fn))
	}
	p.coord = crop.NewCoordinator(p.list, p.batcher, p.classifier,
		crop.NewCropper(p.encoders, cfg.Quality), cropOpts...)

	p.reconciler = reconcile.New(p.list, p.session, deleter,
		reconcile.WithFailureHandler(func(err error) {
			p.notifier.Warn("Image removed from the form but not from the server", err)
		}),
	)
	return p
}

// State is Busy from the moment files are selected until their upload
// resolves, and while a crop is awaiting the user.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Pipeline) stateLocked() State {
	if p.selecting || p.batcher.State() == upload.Batching || p.coord.State() == crop.AwaitingCrop {
		return Busy
	}
	return Idle
}

// OnFilesSelected classifies files, reserves one slot per file in
// selection order, queues the non-square ones for cropping and uploads the
// rest as one batch. It returns once that batch has resolved; crop jobs
// stay queued until OnCropComplete or OnCropCancel.
func (p *Pipeline) OnFilesSelected(ctx context.Context, files []media.File) error {
	const funcName = "Pipeline.OnFilesSelected"
	if len(files) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.stateLocked() == Busy {
		p.mu.Unlock()
		logger.Debug("selection rejected while busy",
			zap.String("function", funcName),
			zap.Int("files", len(files)),
		)
		return errs.ErrBusy
	}
	p.selecting = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.selecting = false
		p.mu.Unlock()
	}()

	ready, needsCrop := p.classifier.Partition(ctx, files)
	tokens := p.list.InsertPlaceholders(p.list.Len(), len(files))

	jobs := make([]crop.Job, 0, len(needsCrop))
	for _, i := range needsCrop {
		jobs = append(jobs, crop.Job{File: files[i], Token: tokens[i]})
	}
	targets := make([]upload.Target, 0, len(ready))
	for _, i := range ready {
		targets = append(targets, upload.Target{File: files[i], Token: tokens[i]})
	}

	logger.Info("files selected",
		zap.String("function", funcName),
		zap.Int("ready", len(ready)),
		zap.Int("needs_crop", len(needsCrop)),
	)

	p.coord.Enqueue(jobs...)

	if err := p.batcher.SubmitTargets(ctx, targets); err != nil {
		p.notifier.Error("Image upload failed", err)
		return err
	}
	return nil
}

// OnCropComplete crops the active file to area, relative to the image's
// top-left corner. An empty area selects the centred square.
func (p *Pipeline) OnCropComplete(ctx context.Context, area image.Rectangle) error {
	err := p.coord.Complete(ctx, area)
	if err != nil && !errors.Is(err, errs.ErrNoActiveCrop) {
		p.notifier.Error("Cropped image could not be uploaded", err)
	}
	return err
}

// OnCropCancel discards the active crop and every file queued behind it.
func (p *Pipeline) OnCropCancel() error {
	return p.coord.Cancel()
}

func (p *Pipeline) OnSlotRemoved(ctx context.Context, index int) error {
	return p.reconciler.Remove(ctx, index)
}

func (p *Pipeline) OnURLSlotAdded(value string) error {
	return p.reconciler.Append(value)
}

func (p *Pipeline) OnURLSlotChanged(index int, value string) error {
	return p.reconciler.Set(index, value)
}

// Images renders the list for display, placeholders included.
func (p *Pipeline) Images() []string {
	return p.list.Values()
}

func (p *Pipeline) Slots() []slot.Slot {
	return p.list.Slots()
}

// ActiveCrop returns the file waiting for the user's crop, if any.
func (p *Pipeline) ActiveCrop() (crop.Job, bool) {
	return p.coord.Active()
}

// PendingCrops is the number of files queued behind the active crop.
func (p *Pipeline) PendingCrops() int {
	return p.coord.Pending()
}

// PendingUploads is the number of reserved slots still waiting for a URL,
// including those of queued and active crops.
func (p *Pipeline) PendingUploads() int {
	return len(p.list.PendingTokens())
}

// Update replaces the list with values edited directly in the form.
func (p *Pipeline) Update(values []string) {
	p.list.Replace(values)
}

// Subscribe registers fn to receive the rendered list after every change.
func (p *Pipeline) Subscribe(fn func([]string)) {
	p.list.OnChange(func(slots []slot.Slot) {
		values := make([]string, len(slots))
		for i, s := range slots {
			values[i] = s.String()
		}
		fn(values)
	})
}

// Finalize returns the values to submit, or nil to omit the field.
func (p *Pipeline) Finalize() []string {
	return p.reconciler.Finalize()
}

// Close cancels any pending crop and releases its preview.
func (p *Pipeline) Close() {
	if err := p.coord.Cancel(); err != nil && !errors.Is(err, errs.ErrNoActiveCrop) {
		p.notifier.Warn("Closing image pipeline", err)
	}
}
