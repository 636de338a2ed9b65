package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Client wraps the S3 API for object upload and retrieval
type Client struct {
	api      *s3.Client
	uploader *manager.Uploader
	bucket   string
	region   string
}

// NewClient creates an S3 client using the default AWS credential chain
func NewClient(ctx context.Context, bucket, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	api := s3.NewFromConfig(cfg)
	return &Client{
		api:      api,
		uploader: manager.NewUploader(api),
		bucket:   bucket,
		region:   region,
	}, nil
}

// Upload stores an object and returns its public URL
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key), nil
}

// Delete removes an object
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// PresignedURL returns a time-limited download URL for an object
func (c *Client) PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	presigner := s3.NewPresignClient(c.api)
	request, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return request.URL, nil
}

// Uploader is the storage operation ReportImageStore needs
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// ReportImageStore stores citizen report evidence photos
type ReportImageStore struct {
	store Uploader
}

// NewReportImageStore creates an image store over an object store
func NewReportImageStore(store Uploader) *ReportImageStore {
	return &ReportImageStore{store: store}
}

// UploadReportImage decodes a base64 payload and stores it under a
// per-user key, returning the public URL.
func (s *ReportImageStore) UploadReportImage(ctx context.Context, userID uuid.UUID, filename, dataBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(dataBase64)
	if err != nil {
		return "", fmt.Errorf("invalid image payload: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty image payload")
	}

	if filename == "" {
		filename = "evidence.jpg"
	}
	key := fmt.Sprintf("reports/%s/%s_%s", userID, uuid.New().String()[:8], path.Base(filename))

	return s.store.Upload(ctx, key, contentTypeFor(filename), bytes.NewReader(data))
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
