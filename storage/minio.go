package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/config"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore is the object store holding original audio files and HLS
// segment backups. It is read-only from the delivery core's perspective
// except for segment uploads.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and makes sure the bucket exists.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// Fetch opens an object for reading and returns its size.
func (s *MinioStore) Fetch(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("fetching object %s: %w", key, err)
	}

	// GetObject is lazy; Stat forces the first request so missing keys
	// fail here instead of on the first read.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("fetching object %s: %w", key, err)
	}

	return obj, info.Size, nil
}

// FetchRange opens the inclusive byte range [start, end] of an object.
// end < 0 reads to the end of the object. Returns the range length and the
// full object size.
func (s *MinioStore) FetchRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, int64, int64, error) {
	opts := minio.GetObjectOptions{}
	// SetRange(start, 0) means "from start to the end of the object".
	rangeEnd := end
	if rangeEnd < 0 {
		rangeEnd = 0
	}
	if err := opts.SetRange(start, rangeEnd); err != nil {
		return nil, 0, 0, fmt.Errorf("invalid range for %s: %w", key, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("fetching object range %s: %w", key, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, 0, fmt.Errorf("fetching object range %s: %w", key, err)
	}

	total := info.Size
	size := total
	if end >= start {
		if n := end - start + 1; n < size {
			size = n
		}
	} else {
		size -= start
	}
	return obj, size, total, nil
}

// Put uploads an object.
func (s *MinioStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: true,
	})
	if err != nil {
		return fmt.Errorf("uploading object %s: %w", key, err)
	}
	return nil
}

// Remove deletes an object; used when a track is purged.
func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing object %s: %w", key, err)
	}
	return nil
}
