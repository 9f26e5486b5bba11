package upload

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/Purewee/gerar-admin/internal/slot"
	"go.uber.org/zap"
)

// State of the batcher's single operation slot.
type State int

const (
	Idle State = iota
	Batching
)

func (s State) String() string {
	if s == Batching {
		return "batching"
	}
	return "idle"
}

// Target pairs a file with the placeholder reserved for it.
type Target struct {
	File  media.File
	Token slot.Token
}

type operation struct {
	identity string
	done     chan struct{}
}

// Batcher serializes uploads for one pipeline instance: at most one batch
// talks to the Uploader at a time, and a batch identical to one already
// in flight is dropped.
type Batcher struct {
	list     *slot.List
	session  *Session
	uploader Uploader
	deleter  Deleter
	maxBytes int64

	mu        sync.Mutex
	current   *operation
	inflight  map[string]struct{}
	observers []func(media.File, string)
}

type Option func(*Batcher)

// WithDeleter enables cleanup of uploads whose slot was removed while the
// upload was running.
func WithDeleter(d Deleter) Option {
	return func(b *Batcher) { b.deleter = d }
}

// WithMaxBytes overrides the per-file size limit.
func WithMaxBytes(n int64) Option {
	return func(b *Batcher) { b.maxBytes = n }
}

// WithObserver registers fn to be called for every placed upload.
func WithObserver(fn func(media.File, string)) Option {
	return func(b *Batcher) { b.observers = append(b.observers, fn) }
}

func NewBatcher(list *slot.List, session *Session, uploader Uploader, opts ...Option) *Batcher {
	b := &Batcher{
		list:     list,
		session:  session,
		uploader: uploader,
		maxBytes: media.DefaultMaxBytes,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Batcher) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		return Batching
	}
	return Idle
}

// inFlight reports whether a batch with this identity is running or waiting.
func (b *Batcher) inFlight(identity string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inflight[identity]
	return ok
}

// Submit uploads files into new placeholders inserted at startIndex.
// A resubmission of a batch still in flight returns nil without uploading.
func (b *Batcher) Submit(ctx context.Context, files []media.File, startIndex int) error {
	if len(files) == 0 {
		return nil
	}
	identity := media.BatchIdentity(files)
	if !b.claim(identity) {
		return nil
	}

	tokens := b.list.InsertPlaceholders(startIndex, len(files))
	targets := make([]Target, len(files))
	for i, f := range files {
		targets[i] = Target{File: f, Token: tokens[i]}
	}
	return b.run(ctx, identity, targets)
}

// SubmitTargets uploads files into placeholders the caller reserved.
// Duplicate submissions drop their reserved placeholders and return nil.
func (b *Batcher) SubmitTargets(ctx context.Context, targets []Target) error {
	if len(targets) == 0 {
		return nil
	}
	identity := media.BatchIdentity(fileList(targets))
	if !b.claim(identity) {
		b.list.Drop(tokenList(targets)...)
		return nil
	}
	return b.run(ctx, identity, targets)
}

func (b *Batcher) claim(identity string) bool {
	const funcName = "Batcher.claim"
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inflight[identity]; ok {
		logger.Debug("duplicate batch ignored",
			zap.String("function", funcName),
			zap.String("batch", identity),
		)
		return false
	}
	b.inflight[identity] = struct{}{}
	return true
}

func (b *Batcher) run(ctx context.Context, identity string, targets []Target) error {
	const funcName = "Batcher.run"

	op, err := b.acquire(ctx, identity)
	if err != nil {
		b.list.Drop(tokenList(targets)...)
		b.release(identity, nil)
		return &UploadError{Files: nameList(targets), Err: err}
	}
	defer b.release(identity, op)

	logger.Debug("uploading batch",
		zap.String("function", funcName),
		zap.String("batch", identity),
		zap.Int("files", len(targets)),
	)

	for _, t := range targets {
		if verr := t.File.Validate(b.maxBytes); verr != nil {
			b.list.Drop(tokenList(targets)...)
			return &UploadError{Files: nameList(targets), Err: verr}
		}
	}

	urls, err := b.upload(ctx, targets)
	if err != nil {
		b.list.Drop(tokenList(targets)...)
		logger.Warn("batch upload failed",
			zap.String("function", funcName),
			zap.String("batch", identity),
			zap.Error(err),
		)
		return &UploadError{Files: nameList(targets), Err: err}
	}

	var invalid []string
	for i, t := range targets {
		url := strings.TrimSpace(urls[i])
		rerr := b.list.Resolve(t.Token, url)
		switch {
		case rerr == nil:
			b.session.Track(url)
			for _, fn := range b.observers {
				fn(t.File, url)
			}
		case errors.Is(rerr, errs.ErrTransientReference):
			b.list.Drop(t.Token)
			invalid = append(invalid, t.File.Name)
		case errors.Is(rerr, errs.ErrSlotGone):
			b.discardOrphan(ctx, url)
		default:
			logger.Warn("upload could not be placed",
				zap.String("function", funcName),
				zap.String("file", t.File.Name),
				zap.String("url", url),
				zap.Error(rerr),
			)
			b.list.Drop(t.Token)
			b.discardOrphan(ctx, url)
		}
	}

	if len(invalid) > 0 {
		logger.Warn("upload returned unusable urls",
			zap.String("function", funcName),
			zap.Strings("files", invalid),
		)
		return &UploadError{Files: invalid, Err: errs.ErrInvalidResponse}
	}
	return nil
}

// acquire waits until no other batch is running and takes the slot.
func (b *Batcher) acquire(ctx context.Context, identity string) (*operation, error) {
	b.mu.Lock()
	for b.current != nil {
		done := b.current.done
		b.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		b.mu.Lock()
	}
	op := &operation{identity: identity, done: make(chan struct{})}
	b.current = op
	b.mu.Unlock()
	return op, nil
}

// release frees the identity before waking waiters so an immediate retry
// of the same files is accepted.
func (b *Batcher) release(identity string, op *operation) {
	b.mu.Lock()
	delete(b.inflight, identity)
	if op != nil && b.current == op {
		b.current = nil
		close(op.done)
	}
	b.mu.Unlock()
}

func (b *Batcher) upload(ctx context.Context, targets []Target) ([]string, error) {
	if len(targets) == 1 {
		url, err := b.uploader.UploadOne(ctx, targets[0].File)
		if err != nil {
			return nil, err
		}
		return []string{url}, nil
	}

	urls, err := b.uploader.UploadMany(ctx, fileList(targets))
	if err != nil {
		return nil, err
	}
	if len(urls) != len(targets) {
		return nil, errs.ErrInvalidResponse
	}
	return urls, nil
}

func (b *Batcher) discardOrphan(ctx context.Context, url string) {
	const funcName = "Batcher.discardOrphan"
	logger.Info("discarding unplaced upload",
		zap.String("function", funcName),
		zap.String("url", url),
	)
	if b.deleter == nil {
		return
	}
	ok, err := b.deleter.DeleteImage(ctx, url)
	if err == nil && !ok {
		err = errs.ErrDeleteRefused
	}
	if err != nil {
		logger.Warn("failed to delete orphaned upload",
			zap.String("function", funcName),
			zap.String("url", url),
			zap.Error(err),
		)
	}
}

func fileList(targets []Target) []media.File {
	out := make([]media.File, len(targets))
	for i, t := range targets {
		out[i] = t.File
	}
	return out
}

func tokenList(targets []Target) []slot.Token {
	out := make([]slot.Token, len(targets))
	for i, t := range targets {
		out[i] = t.Token
	}
	return out
}

func nameList(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.File.Name
	}
	return out
}
