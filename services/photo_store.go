package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const uploadsPrefix = "uploads"

// PhotoUpload is a profile photo received with a registration.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// PhotoStore saves a photo and returns the reference persisted on the user.
// Delete removes a photo by that reference; a missing photo is not an error.
type PhotoStore interface {
	Save(ctx context.Context, photo PhotoUpload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// photoName builds "<unix millis>-<base name>" with anything unusual replaced by '_'.
func photoName(now time.Time, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	clean = strings.TrimLeft(clean, ".")
	if clean == "" {
		clean = "photo"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), clean)
}

// DiskPhotoStore writes photos under <root>/uploads, where root is the
// directory served to browsers.
type DiskPhotoStore struct {
	root string
	now  func() time.Time
}

func NewDiskPhotoStore(root string) *DiskPhotoStore {
	return &DiskPhotoStore{root: root, now: time.Now}
}

func (s *DiskPhotoStore) Save(_ context.Context, photo PhotoUpload) (string, error) {
	dir := filepath.Join(s.root, uploadsPrefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("photo: creating upload dir: %w", err)
	}

	name := photoName(s.now(), photo.Filename)
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("photo: creating file: %w", err)
	}
	if _, err := io.Copy(f, photo.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("photo: writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("photo: closing file: %w", err)
	}
	return path.Join(uploadsPrefix, name), nil
}

func (s *DiskPhotoStore) Delete(_ context.Context, ref string) error {
	dir, name := path.Split(ref)
	if path.Clean(dir) != uploadsPrefix || name == "" || name == "." || name == ".." {
		return fmt.Errorf("photo: %q is not an upload reference", ref)
	}
	if err := os.Remove(filepath.Join(s.root, uploadsPrefix, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("photo: removing file: %w", err)
	}
	return nil
}

// S3Options configures an S3 or S3-compatible (MinIO) photo bucket.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type objectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3PhotoStore uploads photos to a bucket and returns their public URL.
type S3PhotoStore struct {
	client  objectClient
	bucket  string
	baseURL string
	now     func() time.Time
}

func NewS3PhotoStore(ctx context.Context, opts S3Options) (*S3PhotoStore, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("photo: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3PhotoStore(client, opts), nil
}

func newS3PhotoStore(client objectClient, opts S3Options) *S3PhotoStore {
	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	if opts.Endpoint != "" {
		baseURL = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	return &S3PhotoStore{client: client, bucket: opts.Bucket, baseURL: baseURL, now: time.Now}
}

func (s *S3PhotoStore) Save(ctx context.Context, photo PhotoUpload) (string, error) {
	key := path.Join(uploadsPrefix, photoName(s.now(), photo.Filename))
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   photo.Body,
	}
	if photo.ContentType != "" {
		input.ContentType = aws.String(photo.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("photo: uploading %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3PhotoStore) Delete(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, s.baseURL+"/")
	if !ok || key == "" {
		return fmt.Errorf("photo: %q is not in bucket %s", ref, s.bucket)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("photo: deleting %s: %w", key, err)
	}
	return nil
}
