// Package imagecodec turns uploaded image files into data URIs and back.
package imagecodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes caps uploads when the caller does not pass a limit.
const DefaultMaxBytes = 7 * 1024 * 1024

// AllowedTypes lists the MIME types accepted from uploads.
var AllowedTypes = []string{"image/png", "image/jpeg", "image/webp"}

// DataURI is an image serialized as "data:<mime>;base64,<payload>".
type DataURI string

// ConversionError reports a file that could not be turned into a DataURI.
type ConversionError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ConversionError) Error() string {
	msg := "imagecodec: convert"
	if e.Filename != "" {
		msg += " " + e.Filename
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ErrEmptyFile is wrapped when the upload carries no bytes.
var ErrEmptyFile = errors.New("empty file")

// Options tune Encode. The zero value applies DefaultMaxBytes and AllowedTypes.
type Options struct {
	MaxBytes     int64
	AllowedTypes []string
}

// Encode reads r fully and returns it as a data URI. The MIME type is sniffed
// from the content; a client supplied Content-Type is never trusted.
func Encode(r io.Reader, filename string, opts Options) (DataURI, error) {
	if r == nil {
		return "", &ConversionError{Filename: filename, Reason: "no file", Err: ErrEmptyFile}
	}
	limit := opts.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", &ConversionError{Filename: filename, Reason: "read file", Err: err}
	}
	if len(data) == 0 {
		return "", &ConversionError{Filename: filename, Reason: "read file", Err: ErrEmptyFile}
	}
	if int64(len(data)) > limit {
		return "", &ConversionError{Filename: filename, Reason: fmt.Sprintf("file exceeds %d bytes", limit)}
	}

	mime := detectMime(data)
	allowed := opts.AllowedTypes
	if len(allowed) == 0 {
		allowed = AllowedTypes
	}
	if !contains(allowed, mime) {
		return "", &ConversionError{Filename: filename, Reason: fmt.Sprintf("unsupported type %s", mime)}
	}

	return FromBytes(data, mime), nil
}

// FromBytes wraps raw image bytes of a known type.
func FromBytes(data []byte, mime string) DataURI {
	return DataURI("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// Decode splits a data URI into its bytes and MIME type.
func Decode(uri DataURI) ([]byte, string, error) {
	raw := strings.TrimSpace(string(uri))
	if !strings.HasPrefix(raw, "data:") {
		return nil, "", fmt.Errorf("imagecodec: not a data URI")
	}
	header, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("imagecodec: invalid data URI")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("imagecodec: data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("imagecodec: decode payload: %w", err)
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	return data, mime, nil
}

// MIME returns the declared type of a data URI, or "" when it is malformed.
func (d DataURI) MIME() string {
	raw := string(d)
	if !strings.HasPrefix(raw, "data:") {
		return ""
	}
	header, _, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return ""
	}
	return strings.TrimSuffix(header, ";base64")
}

// Payload returns the base64 part of the URI without the header.
func (d DataURI) Payload() string {
	_, payload, ok := strings.Cut(string(d), ",")
	if !ok {
		return string(d)
	}
	return payload
}

func detectMime(data []byte) string {
	mime := mimetype.Detect(data).String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
