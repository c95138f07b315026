// Package media stores user images on an S3-compatible bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/redmonkez12/account-api/internal/config"
)

// objectAPI is the part of the S3 client the store uses
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// UploadResult describes a stored object
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// S3Store uploads and deletes images in one bucket and builds their public URLs.
type S3Store struct {
	client  objectAPI
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3Store builds a client from static credentials. A non-empty endpoint
// points the client at MinIO or another S3-compatible server.
func NewS3Store(ctx context.Context, cfg sc.StorageConfig) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return newS3Store(client, cfg.Bucket, baseURL), nil
}

func newS3Store(client objectAPI, bucket, baseURL string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Upload stores r under a fresh key and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, r io.Reader, filename, contentType string) (*UploadResult, error) {
	key := s.newKey(filename)

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &UploadResult{URL: s.baseURL + "/" + key, Key: key}, nil
}

// Delete removes the object behind url. URLs that do not belong to this
// store report false without error.
func (s *S3Store) Delete(ctx context.Context, url string) (bool, error) {
	key, ok := s.keyFromURL(url)
	if !ok {
		return false, nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, fmt.Errorf("delete object %s: %w", key, err)
	}

	return true, nil
}

func (s *S3Store) newKey(filename string) string {
	d := s.now().UTC()
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("avatars/%04d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *S3Store) keyFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// ErrNotConfigured is returned by a Disabled store.
var ErrNotConfigured = errors.New("image storage is not configured")

// Disabled is used when no bucket is configured. Uploads fail, deletes are no-ops.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, string, string) (*UploadResult, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Delete(context.Context, string) (bool, error) {
	return false, nil
}

// Store is implemented by S3Store and Disabled
type Store interface {
	Upload(ctx context.Context, r io.Reader, filename, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, url string) (bool, error)
}
