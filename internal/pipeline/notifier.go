package pipeline

import (
	"github.com/Purewee/gerar-admin/internal/logger"
	"go.uber.org/zap"
)

// Notifier surfaces user-facing failures. Error is for failures that lost
// an image; Warn for ones that did not block the user.
type Notifier interface {
	Error(msg string, err error)
	Warn(msg string, err error)
}

// LogNotifier writes notifications to the package logger.
type LogNotifier struct{}

func (LogNotifier) Error(msg string, err error) {
	logger.Error(msg, zap.String("function", "Notifier.Error"), zap.Error(err))
}

func (LogNotifier) Warn(msg string, err error) {
	logger.Warn(msg, zap.String("function", "Notifier.Warn"), zap.Error(err))
}
