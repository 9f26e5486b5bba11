package upload

import (
	"fmt"
	"strings"
)

// UploadError is returned when a batch, or some files of it, could not be
// placed in the image list. The affected slots have been rolled back.
type UploadError struct {
	Files []string
	Err   error
}

func (e *UploadError) Error() string {
	if len(e.Files) == 0 {
		return fmt.Sprintf("upload failed: %v", e.Err)
	}
	return fmt.Sprintf("upload failed for %s: %v", strings.Join(e.Files, ", "), e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// DeleteError describes a failed best-effort remote cleanup.
type DeleteError struct {
	URL string
	Err error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.URL, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}
