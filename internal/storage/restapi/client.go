// Package restapi talks to the admin API's upload endpoints.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/Purewee/gerar-admin/internal/logger"
	"github.com/Purewee/gerar-admin/internal/media"
	"go.uber.org/zap"
)

const (
	UploadPath   = "/admin/upload"
	MultiplePath = "/admin/upload/multiple"
	DeletePath   = "/admin/upload/delete"
)

// Client implements upload.Uploader and upload.Deleter against the admin
// REST API with bearer authentication.
type Client struct {
	baseURL    string
	token      string
	maxBytes   int64
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMaxBytes(n int64) Option {
	return func(c *Client) { c.maxBytes = n }
}

// New returns a client for baseURL, e.g. "https://shop.example.com/api".
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		maxBytes: media.DefaultMaxBytes,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadOne posts a single file in the "file" form field.
func (c *Client) UploadOne(ctx context.Context, file media.File) (string, error) {
	const funcName = "Client.UploadOne"
	if err := c.precheck(file); err != nil {
		return "", err
	}

	body, contentType, err := multipartBody("file", file)
	if err != nil {
		return "", err
	}
	data, err := c.post(ctx, UploadPath, contentType, body, "upload")
	if err != nil {
		return "", err
	}

	u, ok := singleURL(data)
	if !ok {
		return "", fmt.Errorf("%w: expected url in response", errs.ErrInvalidResponse)
	}
	u = c.absolute(u)
	logger.Debug("file uploaded",
		zap.String("function", funcName),
		zap.String("file", file.Name),
		zap.String("url", u),
	)
	return u, nil
}

// UploadMany posts every file in the repeated "files" form field. A
// single file goes through UploadOne.
func (c *Client) UploadMany(ctx context.Context, files []media.File) ([]string, error) {
	const funcName = "Client.UploadMany"
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
		u, err := c.UploadOne(ctx, files[0])
		if err != nil {
			return nil, err
		}
		return []string{u}, nil
	}

	for _, f := range files {
		if err := c.precheck(f); err != nil {
			return nil, err
		}
	}

	body, contentType, err := multipartBody("files", files...)
	if err != nil {
		return nil, err
	}
	data, err := c.post(ctx, MultiplePath, contentType, body, "upload")
	if err != nil {
		return nil, err
	}

	urls := multipleURLs(data)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: expected array of urls in response", errs.ErrInvalidResponse)
	}
	for i := range urls {
		urls[i] = c.absolute(urls[i])
	}
	logger.Debug("files uploaded",
		zap.String("function", funcName),
		zap.Int("files", len(files)),
		zap.Int("urls", len(urls)),
	)
	return urls, nil
}

type deleteRequest struct {
	ImageURL string `json:"imageUrl"`
	Path     string `json:"path"`
}

// DeleteImage asks the server to remove imageURL. A 404 counts as
// success; an explicit "success": false returns false.
func (c *Client) DeleteImage(ctx context.Context, imageURL string) (bool, error) {
	if c.token == "" {
		return false, errs.ErrAuthRequired
	}

	payload, err := json.Marshal(deleteRequest{ImageURL: imageURL, Path: imagePath(imageURL)})
	if err != nil {
		return false, fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := c.post(ctx, DeletePath, "application/json", bytes.NewReader(payload), "delete")
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return true, nil
		}
		return false, err
	}

	if obj, ok := data.(map[string]any); ok {
		if success, present := obj["success"]; present {
			b, _ := success.(bool)
			return b, nil
		}
	}
	return true, nil
}

func (c *Client) precheck(f media.File) error {
	if c.token == "" {
		return errs.ErrAuthRequired
	}
	return f.Validate(c.maxBytes)
}

type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.message, e.code)
}

// post sends the request and returns the decoded JSON body.
func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, action string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, errs.ErrUnauthorized
		}
		text := string(raw)
		if len(text) > 200 {
			text = text[:200]
		}
		return nil, fmt.Errorf("failed to parse %s response: status %s: %s", action, resp.Status, text)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(data, action)
		if resp.StatusCode == http.StatusUnauthorized || isTokenExpired(msg) {
			return nil, errs.ErrUnauthorized
		}
		return nil, &statusError{code: resp.StatusCode, message: msg}
	}
	return data, nil
}

// absolute resolves server-relative paths against the API origin, which is
// the base URL without its trailing "/api".
func (c *Client) absolute(u string) string {
	if !strings.HasPrefix(u, "/") {
		return u
	}
	return strings.TrimSuffix(c.baseURL, "/api") + u
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(field string, files ...media.File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
		h.Set("Content-Type", f.MediaType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create form part %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write form part %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// imagePath is the path component of an absolute URL, or the value itself.
func imagePath(imageURL string) string {
	if u, err := url.Parse(imageURL); err == nil && u.IsAbs() {
		return u.Path
	}
	return imageURL
}
