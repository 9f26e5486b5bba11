// Package objectstore uploads images straight to a MinIO/S3 bucket. It is
// an alternative to the admin API for headless runs.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix is prepended to every object name, e.g. "products".
	Prefix string
	// PublicBaseURL overrides the URL objects are served from,
	// e.g. a CDN in front of the bucket.
	PublicBaseURL string
	// Concurrency bounds parallel PutObject calls in UploadMany.
	Concurrency int
}

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Store implements upload.Uploader and upload.Deleter on a bucket.
type Store struct {
	client objectAPI
	cfg    Config
}

func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return newStore(client, cfg), nil
}

func newStore(client objectAPI, cfg Config) *Store {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Store{client: client, cfg: cfg}
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// UploadOne stores f under a fresh object name and returns its public URL.
func (s *Store) UploadOne(ctx context.Context, f media.File) (string, error) {
	const funcName = "Store.UploadOne"

	key := s.objectName(f)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(f.Data), int64(len(f.Data)),
		minio.PutObjectOptions{
			ContentType:  f.MediaType,
			CacheControl: "public, max-age=31536000, immutable",
		})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", f.Name, err)
	}

	logger.Debug("object stored",
		zap.String("function", funcName),
		zap.String("bucket", s.cfg.Bucket),
		zap.String("key", key),
	)
	return s.PublicURL(key), nil
}

// UploadMany uploads files in parallel and returns their URLs in input
// order. When any upload fails the ones that succeeded are removed again.
func (s *Store) UploadMany(ctx context.Context, files []media.File) ([]string, error) {
	const funcName = "Store.UploadMany"

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			u, err := s.UploadOne(gctx, f)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		for _, u := range urls {
			if u == "" {
				continue
			}
			if _, derr := s.DeleteImage(cleanupCtx, u); derr != nil {
				logger.Warn("failed to remove partial upload",
					zap.String("function", funcName),
					zap.String("url", u),
					zap.Error(derr),
				)
			}
		}
		return nil, err
	}
	return urls, nil
}

// DeleteImage removes the object behind imageURL. Missing objects count
// as deleted.
func (s *Store) DeleteImage(ctx context.Context, imageURL string) (bool, error) {
	key, ok := s.KeyFromURL(imageURL)
	if !ok {
		return false, fmt.Errorf("%s is not served from bucket %s", imageURL, s.cfg.Bucket)
	}

	if _, err := s.client.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return true, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return true, nil
}

// PublicURL returns the URL an object is served from.
func (s *Store) PublicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL + "/" + key
	}
	protocol := "http"
	if s.cfg.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.cfg.Endpoint, s.cfg.Bucket, key)
}

// KeyFromURL is the inverse of PublicURL.
func (s *Store) KeyFromURL(imageURL string) (string, bool) {
	base := s.PublicURL("")
	if !strings.HasPrefix(imageURL, base) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(imageURL, base))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func (s *Store) objectName(f media.File) string {
	ext := media.Extension(f.MediaType)
	if ext == "" {
		ext = strings.ToLower(path.Ext(f.Name))
	}
	return path.Join(s.cfg.Prefix, uuid.NewString()+ext)
}
