package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tpf-render/config"
)

// S3Store reads source files from, and stores uploaded files in, an S3 compatible bucket.
type S3Store struct {
	Client  *minio.Client
	Bucket  string
	Prefix  string
	Enabled bool
}

// NewS3Store returns a disabled store when no endpoint or bucket is configured.
func NewS3Store(cfg *config.Config) (*S3Store, error) {
	if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
		return &S3Store{Enabled: false}, nil
	}

	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &S3Store{
		Client:  client,
		Bucket:  cfg.S3Bucket,
		Prefix:  strings.Trim(cfg.S3Prefix, "/"),
		Enabled: true,
	}, nil
}

// ObjectKey places key under the configured prefix.
func (s *S3Store) ObjectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.Prefix == "" {
		return key
	}
	return path.Join(s.Prefix, key)
}

func (s *S3Store) ready() error {
	if s == nil || !s.Enabled || s.Client == nil {
		return ErrUnavailable
	}
	return nil
}

// Stat returns the object info of key.
func (s *S3Store) Stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	if err := s.ready(); err != nil {
		return minio.ObjectInfo{}, err
	}
	info, err := s.Client.StatObject(ctx, s.Bucket, s.ObjectKey(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return minio.ObjectInfo{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return minio.ObjectInfo{}, err
	}
	return info, nil
}

// Get reads the whole object stored under key.
func (s *S3Store) Get(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	info, err := s.Stat(ctx, key)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && info.Size > maxBytes {
		return nil, fmt.Errorf("object %s is %d bytes: %w", key, info.Size, ErrTooLarge)
	}

	obj, err := s.Client.GetObject(ctx, s.Bucket, s.ObjectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from s3: %w", err)
	}
	defer func() {
		_ = obj.Close()
	}()

	return io.ReadAll(obj)
}

// Put stores data under key.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.Client.PutObject(ctx, s.Bucket, s.ObjectKey(key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
