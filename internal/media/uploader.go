package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"roomStylerAi/internal/imagecodec"
)

// ErrUploaderDisabled indicates that exports are not currently enabled.
var ErrUploaderDisabled = errors.New("media uploader disabled")

// UploadInput wraps the payload required for persisting a file.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

// UploadResult captures the canonical object key and its accessible URL.
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// Uploader hides the backing implementation for storing files.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (UploadResult, error)
}

type disabledUploader struct{}

func (disabledUploader) Upload(_ context.Context, _ UploadInput) (UploadResult, error) {
	return UploadResult{}, ErrUploaderDisabled
}

// Disabled returns an uploader that always signals disabled uploads.
func Disabled() Uploader {
	return disabledUploader{}
}

// UploadImage stores an encoded image under basename plus the extension of its type.
func UploadImage(ctx context.Context, u Uploader, image imagecodec.DataURI, basename string) (UploadResult, error) {
	if u == nil {
		return UploadResult{}, ErrUploaderDisabled
	}
	data, mime, err := imagecodec.Decode(image)
	if err != nil {
		return UploadResult{}, fmt.Errorf("media: %w", err)
	}

	name := strings.TrimSpace(basename)
	if name == "" {
		name = "design"
	}

	return u.Upload(ctx, UploadInput{
		Filename:    name + Extension(mime),
		ContentType: mime,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	})
}

// Extension returns the file extension for an image MIME type, ".png" when unknown.
func Extension(mime string) string {
	if m := mimetype.Lookup(mime); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".png"
}
