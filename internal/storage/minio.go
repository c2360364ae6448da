package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	// PublicURL is the externally reachable endpoint; defaults to the API endpoint.
	PublicURL string
}

type MinioProvider struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
}

func NewMinioProvider(cfg MinioConfig) (*MinioProvider, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.Endpoint
	}

	return &MinioProvider{client: client, bucket: cfg.Bucket, region: cfg.Region, publicURL: public}, nil
}

// EnsureBucket creates the avatar bucket on first start.
func (p *MinioProvider) EnsureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
}

func (p *MinioProvider) Save(ctx context.Context, up Upload) (string, error) {
	name, err := StoredName(up.Filename)
	if err != nil {
		return "", err
	}

	size := up.Size
	if size <= 0 {
		size = -1
	}
	_, err = p.client.PutObject(ctx, p.bucket, name, up.Body, size, minio.PutObjectOptions{
		ContentType: contentType(up),
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", name, err)
	}
	return name, nil
}

func (p *MinioProvider) Delete(ctx context.Context, name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	return p.client.RemoveObject(ctx, p.bucket, name, minio.RemoveObjectOptions{})
}

func (p *MinioProvider) URL(name string) string {
	return p.publicURL + "/" + p.bucket + "/" + name
}
