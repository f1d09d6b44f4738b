package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader keeps exported designs in a directory on disk.
type LocalUploader struct {
	BaseDir string
}

// NewLocalUploader creates baseDir (os.TempDir when empty) and exports into it.
func NewLocalUploader(baseDir string) (*LocalUploader, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create export dir: %w", err)
	}
	return &LocalUploader{BaseDir: baseDir}, nil
}

// Upload writes the design to roomstyler-<style>-<random><ext> and returns
// the absolute path as the key.
func (l *LocalUploader) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	if input.Body == nil {
		return UploadResult{}, fmt.Errorf("media: upload body is required")
	}
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}

	out, err := os.CreateTemp(l.BaseDir, exportPattern(input.Filename))
	if err != nil {
		return UploadResult{}, fmt.Errorf("media: create export file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, input.Body); err != nil {
		os.Remove(out.Name())
		return UploadResult{}, fmt.Errorf("media: write export file: %w", err)
	}

	key, err := filepath.Abs(out.Name())
	if err != nil {
		key = out.Name()
	}
	return UploadResult{Key: key}, nil
}

// exportPattern turns "Mid-Century Modern.png" into "roomstyler-mid-century-modern-*.png".
func exportPattern(filename string) string {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	if len(ext) > 10 {
		ext = ""
	}
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSuffix(base, filepath.Ext(base)))
	slug = strings.Trim(slug, "-")
	if slug == "" || slug == "." {
		return "roomstyler-*" + ext
	}
	return "roomstyler-" + slug + "-*" + ext
}
