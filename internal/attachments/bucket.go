package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrUploadFailed = errors.New("upload failed")
	ErrDeleteFailed = errors.New("delete failed")
	ErrListFailed   = errors.New("list failed")
)

// Object is a stored blob.
type Object struct {
	Path string
	Size int64
}

// Bucket is the blob storage used for attachments.
type Bucket interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	List(ctx context.Context, prefix string) ([]Object, error)
	Remove(ctx context.Context, path string) error
	PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioBucket stores attachments in an S3-compatible bucket.
type MinioBucket struct {
	client     *minio.Client
	bucketName string
}

func NewMinioBucket(cfg MinioConfig) (*MinioBucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioBucket{client: client, bucketName: cfg.Bucket}, nil
}

func (b *MinioBucket) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return b.client.MakeBucket(ctx, b.bucketName, minio.MakeBucketOptions{})
	}
	return nil
}

func (b *MinioBucket) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucketName, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return nil
}

func (b *MinioBucket) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for info := range b.client.ListObjects(ctx, b.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrListFailed, info.Err)
		}
		objects = append(objects, Object{Path: info.Key, Size: info.Size})
	}
	return objects, nil
}

func (b *MinioBucket) Remove(ctx context.Context, path string) error {
	if err := b.client.RemoveObject(ctx, b.bucketName, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

func (b *MinioBucket) PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, b.bucketName, path, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
