package errs

import "errors"

var (
	ErrBusy               = errors.New("image pipeline is busy")
	ErrNoActiveCrop       = errors.New("no active crop job")
	ErrTransientReference = errors.New("value is a local or transient reference")
	ErrIndexOutOfRange    = errors.New("slot index out of range")
	ErrSlotGone           = errors.New("placeholder slot no longer present")
	ErrInvalidFileType    = errors.New("invalid file type (allowed: jpeg, png, gif, webp)")
	ErrFileTooLarge       = errors.New("file size exceeds maximum limit")
	ErrInvalidResponse    = errors.New("invalid upload response")
	ErrUnauthorized       = errors.New("session has expired, log in again")
	ErrAuthRequired       = errors.New("authentication required")
	ErrDeleteRefused      = errors.New("server refused to delete image")
)
