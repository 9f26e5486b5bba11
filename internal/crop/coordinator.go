package crop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/preview"
	"github.com/Purewee/gerar-admin/internal/slot"
	"github.com/Purewee/gerar-admin/internal/upload"
	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	AwaitingCrop
)

func (s State) String() string {
	if s == AwaitingCrop {
		return "awaiting_crop"
	}
	return "idle"
}

// Job is a file waiting for a crop, bound to the slot reserved for it.
type Job struct {
	File    media.File
	Token   slot.Token
	Preview *preview.Handle
}

// Submitter uploads files into reserved slots.
type Submitter interface {
	SubmitTargets(ctx context.Context, targets []upload.Target) error
}

// SquareChecker re-classifies a queued file when it becomes next.
type SquareChecker interface {
	Square(ctx context.Context, f media.File) bool
}

// Coordinator holds at most one active crop job and a FIFO of waiting ones.
type Coordinator struct {
	list      *slot.List
	submitter Submitter
	checker   SquareChecker
	cropper   *Cropper
	previews  *preview.Registry
	onCropped []func(src, cropped media.File)

	mu     sync.Mutex
	active *Job
	queue  []Job
	// completing counts Complete calls still cropping or uploading.
	completing int
}

type Option func(*Coordinator)

// WithPreviews shares a preview registry with the rest of the pipeline.
func WithPreviews(r *preview.Registry) Option {
	return func(c *Coordinator) { c.previews = r }
}

// WithCropObserver registers fn to be called for every derivative produced.
func WithCropObserver(fn func(src, cropped media.File)) Option {
	return func(c *Coordinator) { c.onCropped = append(c.onCropped, fn) }
}

func NewCoordinator(list *slot.List, submitter Submitter, checker SquareChecker, cropper *Cropper, opts ...Option) *Coordinator {
	c := &Coordinator{
		list:      list,
		submitter: submitter,
		checker:   checker,
		cropper:   cropper,
		previews:  preview.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State is AwaitingCrop while a job waits for the user and until every
// Complete call has finished its crop and upload.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil || c.completing > 0 {
		return AwaitingCrop
	}
	return Idle
}

// Active returns the job the user is currently cropping.
func (c *Coordinator) Active() (Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Job{}, false
	}
	return *c.active, true
}

// Pending is the number of queued jobs behind the active one.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Enqueue appends jobs in order. When idle the first one becomes active.
func (c *Coordinator) Enqueue(jobs ...Job) {
	if len(jobs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, jobs...)
	if c.active == nil {
		c.activateNext()
	}
}

// Complete crops the active file to area and uploads the result into the
// job's slot. The coordinator advances before any upload starts, so a
// failing crop or upload never blocks the rest of the queue. Square files
// reached while advancing are uploaded as one batch.
func (c *Coordinator) Complete(ctx context.Context, area image.Rectangle) error {
	const funcName = "Coordinator.Complete"

	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return errs.ErrNoActiveCrop
	}
	job := *c.active
	c.active = nil
	c.completing++
	job.Preview.Release()
	ready := c.advance(ctx)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.completing--
		c.mu.Unlock()
	}()

	var result error
	cropped, err := c.cropper.Crop(job.File, area)
	if err != nil {
		c.list.Drop(job.Token)
		logger.Warn("crop failed",
			zap.String("function", funcName),
			zap.String("file", job.File.Name),
			zap.Error(err),
		)
		result = fmt.Errorf("crop %s: %w", job.File.Name, err)
	} else {
		for _, fn := range c.onCropped {
			fn(job.File, cropped)
		}
		target := upload.Target{File: cropped, Token: job.Token}
		if err := c.submitter.SubmitTargets(ctx, []upload.Target{target}); err != nil {
			result = err
		}
	}

	if len(ready) > 0 {
		if err := c.submitter.SubmitTargets(ctx, ready); err != nil {
			result = errors.Join(result, err)
		}
	}
	return result
}

// Cancel discards the active job and everything queued behind it and
// drops their reserved slots.
func (c *Coordinator) Cancel() error {
	const funcName = "Coordinator.Cancel"

	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return errs.ErrNoActiveCrop
	}
	tokens := []slot.Token{c.active.Token}
	c.active.Preview.Release()
	for _, j := range c.queue {
		tokens = append(tokens, j.Token)
	}
	c.active = nil
	c.queue = nil
	c.mu.Unlock()

	dropped := c.list.Drop(tokens...)
	logger.Debug("crop cancelled",
		zap.String("function", funcName),
		zap.Int("jobs", len(tokens)),
		zap.Int("slots_dropped", dropped),
	)
	return nil
}

// advance pops queued jobs until one still needs a crop; the squares met
// on the way are returned for upload. Once ctx is done nothing more is
// re-classified and the queue head becomes active as it is. Callers hold
// c.mu.
func (c *Coordinator) advance(ctx context.Context) []upload.Target {
	var ready []upload.Target
	for len(c.queue) > 0 && ctx.Err() == nil {
		next := c.queue[0]
		if !c.checker.Square(ctx, next.File) {
			break
		}
		c.queue = c.queue[1:]
		ready = append(ready, upload.Target{File: next.File, Token: next.Token})
	}
	c.activateNext()
	return ready
}

// activateNext makes the queue head active and acquires its preview.
// Callers hold c.mu.
func (c *Coordinator) activateNext() {
	const funcName = "Coordinator.activateNext"
	if len(c.queue) == 0 {
		return
	}
	job := c.queue[0]
	c.queue = c.queue[1:]

	h, err := c.previews.Acquire(job.File)
	if err != nil {
		logger.Warn("preview unavailable for crop",
			zap.String("function", funcName),
			zap.String("file", job.File.Name),
			zap.Error(err),
		)
	}
	job.Preview = h
	c.active = &job
}
