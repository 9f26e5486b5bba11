// Package reconcile applies manual edits to the image list and cleans up
// remote copies of images this session uploaded.
package reconcile

import (
	"context"
	"strings"

	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/slot"
	"github.com/Purewee/gerar-admin/internal/upload"
	"go.uber.org/zap"
)

// Reconciler owns the manual-edit operations on a slot list.
type Reconciler struct {
	list      *slot.List
	session   *upload.Session
	deleter   upload.Deleter
	originals map[string]struct{}
	onFailure func(error)
}

type Option func(*Reconciler)

// WithFailureHandler receives remote cleanup failures. They never block
// the local removal.
func WithFailureHandler(fn func(error)) Option {
	return func(r *Reconciler) { r.onFailure = fn }
}

// New snapshots the list's current values as originals: URLs the form
// started with are never deleted remotely.
func New(list *slot.List, session *upload.Session, deleter upload.Deleter, opts ...Option) *Reconciler {
	r := &Reconciler{
		list:      list,
		session:   session,
		deleter:   deleter,
		originals: make(map[string]struct{}),
	}
	for _, s := range list.Slots() {
		if s.Persistable() {
			r.originals[s.Value] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append adds a manually entered URL, or an empty slot when value is blank.
func (r *Reconciler) Append(value string) error {
	return r.list.Append(value)
}

// Set overwrites a slot with a manually entered URL.
func (r *Reconciler) Set(index int, value string) error {
	return r.list.Set(index, value)
}

// Remove deletes the slot at index. When it holds a URL uploaded in this
// session the remote copy is deleted too, best effort. The URL stays
// tracked unless the delete succeeded.
func (r *Reconciler) Remove(ctx context.Context, index int) error {
	const funcName = "Reconciler.Remove"

	removed, err := r.list.RemoveAt(index)
	if err != nil {
		return err
	}

	url := strings.TrimSpace(removed.Value)
	if removed.Kind != slot.Resolved || url == "" || r.isOriginal(url) || !r.session.Tracked(url) {
		return nil
	}
	if r.deleter == nil {
		return nil
	}

	ok, err := r.deleter.DeleteImage(ctx, url)
	if err == nil && !ok {
		err = errs.ErrDeleteRefused
	}
	if err != nil {
		logger.Warn("failed to delete removed image",
			zap.String("function", funcName),
			zap.String("url", url),
			zap.Error(err),
		)
		if r.onFailure != nil {
			r.onFailure(&upload.DeleteError{URL: url, Err: err})
		}
		return nil
	}

	r.session.Forget(url)
	logger.Debug("deleted removed image",
		zap.String("function", funcName),
		zap.String("url", url),
	)
	return nil
}

// Finalize returns the persistable values, or nil when none remain.
func (r *Reconciler) Finalize() []string {
	return r.list.Finalize()
}

func (r *Reconciler) isOriginal(url string) bool {
	_, ok := r.originals[url]
	return ok
}
