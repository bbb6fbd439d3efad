// Package cloud pushes and pulls backup files against an S3-compatible
// object store. The collection layer stays agnostic of the provider:
// it talks to FileStore and treats a nil handle as "no backup yet".
package cloud

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"coinvault/internal/config"
	vaulterrors "coinvault/internal/errors"
)

// FileHandle identifies a stored backup file.
type FileHandle struct {
	Key      string
	Size     int64
	Modified time.Time
}

// FileStore is the minimal remote-file surface the backup flow needs.
type FileStore interface {
	// Find returns the handle for the named file, or nil if it does
	// not exist. A nil handle with a nil error is the "first backup"
	// case, not a failure.
	Find(ctx context.Context, name string) (*FileHandle, error)
	Upload(ctx context.Context, name string, data []byte) (*FileHandle, error)
	Download(ctx context.Context, h *FileHandle) ([]byte, error)
}

// S3Store talks to an S3-compatible bucket (AWS, MinIO, R2).
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds a client from static credentials in cfg. An empty
// Endpoint means stock AWS; anything else is used as the base endpoint
// so MinIO and friends work unchanged.
func NewS3Store(ctx context.Context, cfg config.Cloud) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, vaulterrors.NewCloudUnavailable("configure", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) Find(ctx context.Context, name string) (*FileHandle, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(name),
	})
	if err != nil {
		return nil, vaulterrors.NewCloudUnavailable("find", err)
	}
	for _, obj := range out.Contents {
		if aws.ToString(obj.Key) != name {
			continue
		}
		return &FileHandle{
			Key:      name,
			Size:     aws.ToInt64(obj.Size),
			Modified: aws.ToTime(obj.LastModified),
		}, nil
	}
	return nil, nil
}

func (s *S3Store) Upload(ctx context.Context, name string, data []byte) (*FileHandle, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return nil, vaulterrors.NewCloudUnavailable("upload", err)
	}
	return &FileHandle{Key: name, Size: int64(len(data)), Modified: time.Now()}, nil
}

func (s *S3Store) Download(ctx context.Context, h *FileHandle) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(h.Key),
	})
	if err != nil {
		return nil, vaulterrors.NewCloudUnavailable("download", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, vaulterrors.NewCloudUnavailable("download", err)
	}
	return data, nil
}
