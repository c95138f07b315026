package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/redmonkez12/account-api/internal/config"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  []string
	deletes []*s3.DeleteObjectInput
	putErr  error
	delErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.delErr != nil {
		return nil, f.delErr
	}
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_Upload(t *testing.T) {
	fake := &fakeS3{}
	store := newS3Store(fake, "avatars", "http://minio:9000/avatars/")
	store.now = func() time.Time { return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC) }

	res, err := store.Upload(context.Background(), strings.NewReader("png-bytes"), "Me.PNG", "image/png")
	require.NoError(t, err)

	require.Len(t, fake.puts, 1)
	in := fake.puts[0]
	assert.Equal(t, "avatars", aws.ToString(in.Bucket))
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
	assert.True(t, strings.HasPrefix(res.Key, "avatars/2026/03/07/"), res.Key)
	assert.True(t, strings.HasSuffix(res.Key, ".png"), res.Key)
	assert.Equal(t, "http://minio:9000/avatars/"+res.Key, res.URL)
	assert.Equal(t, "png-bytes", fake.bodies[0])
}

func TestS3Store_UploadError(t *testing.T) {
	store := newS3Store(&fakeS3{putErr: errors.New("access denied")}, "avatars", "http://minio:9000/avatars")

	_, err := store.Upload(context.Background(), strings.NewReader("x"), "a.png", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Store_Delete(t *testing.T) {
	fake := &fakeS3{}
	store := newS3Store(fake, "avatars", "http://minio:9000/avatars")

	ok, err := store.Delete(context.Background(), "http://minio:9000/avatars/avatars/2026/03/07/x.png")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, "avatars/2026/03/07/x.png", aws.ToString(fake.deletes[0].Key))

	ok, err = store.Delete(context.Background(), "https://lh3.googleusercontent.com/a/pic")
	require.NoError(t, err)
	assert.False(t, ok, "foreign URLs are left alone")
	assert.Len(t, fake.deletes, 1)

	store.client = &fakeS3{delErr: errors.New("timeout")}
	_, err = store.Delete(context.Background(), "http://minio:9000/avatars/k.png")
	assert.Error(t, err)
}

func TestNewS3Store_UsesConfiguredEndpoint(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &fakeS3{}
	}

	store, err := NewS3Store(context.Background(), sc.StorageConfig{
		Region:   "us-east-1",
		Endpoint: "http://localhost:9000",
		Bucket:   "avatars",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://localhost:9000/avatars", store.baseURL)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("bad profile")
	}

	_, err := NewS3Store(context.Background(), sc.StorageConfig{Bucket: "avatars"})
	assert.Error(t, err)
}
