package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader pushes finished report artifacts to S3-compatible object
// storage. It is optional: a nil Uploader skips uploads.
type Uploader struct {
	client *minio.Client
	bucket string
}

// NewUploader connects to the object store and makes sure the bucket
// exists.
func NewUploader(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Uploader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Upload stores one artifact and returns its object key.
func (u *Uploader) Upload(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	if u == nil {
		return "", nil
	}
	_, err := u.client.PutObject(ctx, u.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectKey, err)
	}
	return objectKey, nil
}
