package s3

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/downscaler/internal/model"
)

// objectPutter is the subset of the MinIO client used by Storage.
type objectPutter interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Storage mirrors finished outputs into an S3-compatible bucket using MinIO.
// Objects are stored under a per-run prefix, keyed by output file name.
type Storage struct {
	client     objectPutter
	bucketName string
	prefix     string
	strategy   retry.Strategy
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, prefix string, s retry.Strategy) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return newStorage(client, bucketName, prefix, s), nil
}

func newStorage(c objectPutter, bucketName, prefix string, s retry.Strategy) *Storage {
	return &Storage{client: c, bucketName: bucketName, prefix: prefix, strategy: s}
}

// ObjectName returns the key an output file is mirrored under.
func (s *Storage) ObjectName(filename string) string {
	return path.Join(s.prefix, filepath.Base(filename))
}

// Publish uploads the output of a processed or converted file.
// Results without a written output are ignored.
func (s *Storage) Publish(ctx context.Context, res model.Result) error {
	if res.Outcome != model.OutcomeProcessed && res.Outcome != model.OutcomeConverted {
		return nil
	}

	objectName := s.ObjectName(res.Destination)

	err := retry.Do(func() error {
		_, err := s.client.FPutObject(ctx, s.bucketName, objectName, res.Destination, minio.PutObjectOptions{
			ContentType: contentType(res.Destination),
		})
		return err
	}, s.strategy)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	return nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
