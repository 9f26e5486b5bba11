package upload

import (
	"context"

	"github.com/Purewee/gerar-admin/internal/media"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock.go

// Uploader posts image files and returns server-issued URLs.
type Uploader interface {
	UploadOne(ctx context.Context, file media.File) (string, error)
	// UploadMany returns one URL per file, in input order.
	UploadMany(ctx context.Context, files []media.File) ([]string, error)
}

// Deleter removes a previously uploaded image. Implementations report
// "not found" as success.
type Deleter interface {
	DeleteImage(ctx context.Context, url string) (bool, error)
}
