package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Exported keys are random, so objects never change once written.
const exportCacheControl = "public, max-age=31536000, immutable"

// Config represents the settings required to talk to S3 or an S3-compatible API.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicURL       string
	KeyPrefix       string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes exported designs to a bucket.
type S3Uploader struct {
	client  objectPutter
	bucket  string
	region  string
	baseURL string
	prefix  string
}

// NewUploader returns an S3Uploader when bucket and region are set, a disabled
// uploader otherwise. Static keys are used when both are set; the default AWS
// chain otherwise.
func NewUploader(ctx context.Context, cfg Config) (Uploader, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return Disabled(), nil
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = cfg.ForcePathStyle
		}
	})
	return newS3Uploader(client, cfg), nil
}

func newS3Uploader(client objectPutter, cfg Config) *S3Uploader {
	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	// Path-style S3-compatible stores are readable at endpoint/bucket.
	if endpoint := strings.TrimSuffix(cfg.Endpoint, "/"); publicURL == "" && endpoint != "" && cfg.ForcePathStyle {
		publicURL = endpoint + "/" + cfg.Bucket
	}
	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: publicURL,
		prefix:  strings.Trim(cfg.KeyPrefix, "/"),
	}
}

// Upload stores the export and returns its key and public URL.
func (u *S3Uploader) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	if input.Body == nil {
		return UploadResult{}, errors.New("media: upload body is required")
	}

	key := buildKey(u.prefix, input.Filename)
	put := &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         input.Body,
		CacheControl: aws.String(exportCacheControl),
	}
	if input.ContentType != "" {
		put.ContentType = aws.String(input.ContentType)
	}
	if input.Size > 0 {
		put.ContentLength = aws.Int64(input.Size)
	}
	if _, err := u.client.PutObject(ctx, put); err != nil {
		return UploadResult{}, fmt.Errorf("media: put object %s: %w", key, err)
	}
	return UploadResult{Key: key, URL: objectURL(u.baseURL, u.bucket, u.region, key)}, nil
}

func buildKey(prefix, filename string) string {
	name := "roomstyler-" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func objectURL(baseURL, bucket, region, key string) string {
	if baseURL != "" {
		return baseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
