// Package storage uploads chat attachments to S3-compatible object storage
// and hands back publicly resolvable URLs. The chat core treats this as a
// single operation: store blob, get URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrUpload is wrapped by every upload failure so callers can match the
// whole class with errors.Is.
var ErrUpload = errors.New("storage: upload failed")

// MaxAttachmentBytes caps the size of a single attachment.
const MaxAttachmentBytes = 5 << 20 // 5 MiB

// Uploader stores attachment blobs in an S3 bucket.
type Uploader struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// Config holds the object storage settings.
type Config struct {
	Region  string
	Bucket  string
	BaseURL string // public URL prefix the bucket is served under
}

// NewUploader creates an Uploader using the default AWS credential chain.
func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	return &Uploader{
		client:  s3.NewFromConfig(awsCfg),
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// Upload stores the blob under a generated unique key and returns its public
// URL. suggestedExt is the file extension including the dot (".png"); an
// empty extension is allowed. Failures wrap ErrUpload.
func (u *Uploader) Upload(ctx context.Context, data []byte, suggestedExt string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty attachment", ErrUpload)
	}
	if len(data) > MaxAttachmentBytes {
		return "", fmt.Errorf("%w: attachment exceeds %d bytes", ErrUpload, MaxAttachmentBytes)
	}

	ext := normalizeExt(suggestedExt)
	now := time.Now()
	key := fmt.Sprintf("attachments/%d/%02d/%s%s",
		now.Year(), now.Month(), uuid.New().String(), ext)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType(ext)),
		CacheControl: aws.String("max-age=86400"), // attachments are immutable
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object: %v", ErrUpload, err)
	}

	return u.baseURL + "/" + key, nil
}

// normalizeExt lowercases the extension and ensures a leading dot. Anything
// that doesn't look like a plain extension is dropped.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if len(ext) == 1 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// contentType maps common image extensions to MIME types.
func contentType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
