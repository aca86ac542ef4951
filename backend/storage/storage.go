// ABOUTME: MinIO object storage for try-on person photos
// ABOUTME: Uploads normalized images and hands out short-lived presigned GET URLs

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignExpiry is how long the inference API may fetch an uploaded photo.
const PresignExpiry = 15 * time.Minute

var ErrNotConfigured = errors.New("object storage is not configured")

// ObjectAPI is the subset of *minio.Client used here.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// ObjectStore keeps try-on inputs in a single bucket
type ObjectStore struct {
	client ObjectAPI
	bucket string
}

// New connects to a MinIO or S3-compatible endpoint.
func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*ObjectStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", endpoint, err)
	}
	return &ObjectStore{client: client, bucket: bucket}, nil
}

// NewWithClient wraps an existing client, such as a fake in tests.
func NewWithClient(client ObjectAPI, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

func (s *ObjectStore) Configured() bool {
	return s != nil && s.client != nil
}

func (s *ObjectStore) Bucket() string {
	return s.bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	slog.Info("Created storage bucket", "bucket", s.bucket)
	return nil
}

// PutImage stores a JPEG under tryon/<yyyy>/<mm>/<uuid>.jpg and returns the object name.
func (s *ObjectStore) PutImage(ctx context.Context, data []byte, originalName string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	now := time.Now().UTC()
	objectName := fmt.Sprintf("tryon/%d/%02d/%s.jpg", now.Year(), now.Month(), uuid.New().String())

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "image/jpeg",
			UserMetadata: map[string]string{
				"original-filename": originalName,
				"uploaded-at":       now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return objectName, nil
}

// PresignedURL returns a GET URL for objectName valid for PresignExpiry.
func (s *ObjectStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}
	return u.String(), nil
}
