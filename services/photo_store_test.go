package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1700000000123)

func TestPhotoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"me.png", "1700000000123-me.png"},
		{"../../etc/passwd", "1700000000123-passwd"},
		{`C:\Users\me\photo 1.jpg`, "1700000000123-photo_1.jpg"},
		{".hidden", "1700000000123-hidden"},
		{"", "1700000000123-photo"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, photoName(fixedNow, tc.in), tc.in)
	}
}

func TestDiskPhotoStore_Save(t *testing.T) {
	root := t.TempDir()
	store := NewDiskPhotoStore(root)
	store.now = func() time.Time { return fixedNow }

	ref, err := store.Save(context.Background(), PhotoUpload{Filename: "me.png", Body: strings.NewReader("png-bytes")})
	require.NoError(t, err)
	assert.Equal(t, "uploads/1700000000123-me.png", ref)

	got, err := os.ReadFile(filepath.Join(root, "uploads", "1700000000123-me.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))

	// Same millisecond and name never overwrites an existing upload.
	_, err = store.Save(context.Background(), PhotoUpload{Filename: "me.png", Body: strings.NewReader("other")})
	require.Error(t, err)
}

type fakeObjectClient struct {
	input   *s3.PutObjectInput
	body    string
	deleted []string
	err     error
}

func (f *fakeObjectClient) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectClient) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3PhotoStore_Save(t *testing.T) {
	objects := &fakeObjectClient{}
	store := newS3PhotoStore(objects, S3Options{Bucket: "photos", Region: "eu-west-1", Endpoint: "http://minio:9000/"})
	store.now = func() time.Time { return fixedNow }

	ref, err := store.Save(context.Background(), PhotoUpload{
		Filename:    "me.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "http://minio:9000/photos/uploads/1700000000123-me.png", ref)
	assert.Equal(t, "photos", aws.ToString(objects.input.Bucket))
	assert.Equal(t, "uploads/1700000000123-me.png", aws.ToString(objects.input.Key))
	assert.Equal(t, "image/png", aws.ToString(objects.input.ContentType))
	assert.Equal(t, "png-bytes", objects.body)
}

func TestS3PhotoStore_AWSURLAndError(t *testing.T) {
	objects := &fakeObjectClient{}
	store := newS3PhotoStore(objects, S3Options{Bucket: "photos", Region: "eu-west-1"})
	store.now = func() time.Time { return fixedNow }

	ref, err := store.Save(context.Background(), PhotoUpload{Filename: "me.png", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "https://photos.s3.eu-west-1.amazonaws.com/uploads/1700000000123-me.png", ref)
	assert.Nil(t, objects.input.ContentType)

	objects.err = assert.AnError
	_, err = store.Save(context.Background(), PhotoUpload{Filename: "me.png", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, assert.AnError)
}

func TestDiskPhotoStore_Delete(t *testing.T) {
	root := t.TempDir()
	store := NewDiskPhotoStore(root)
	store.now = func() time.Time { return fixedNow }

	ref, err := store.Save(context.Background(), PhotoUpload{Filename: "me.png", Body: strings.NewReader("png-bytes")})
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), ref))
	_, err = os.Stat(filepath.Join(root, "uploads", "1700000000123-me.png"))
	require.ErrorIs(t, err, os.ErrNotExist)

	// Already gone is fine.
	require.NoError(t, store.Delete(context.Background(), ref))

	for _, ref := range []string{"index.html", "uploads/", "uploads/../index.html", "other/me.png"} {
		assert.Error(t, store.Delete(context.Background(), ref), ref)
	}
}

func TestS3PhotoStore_Delete(t *testing.T) {
	objects := &fakeObjectClient{}
	store := newS3PhotoStore(objects, S3Options{Bucket: "photos", Region: "eu-west-1", Endpoint: "http://minio:9000"})

	require.NoError(t, store.Delete(context.Background(), "http://minio:9000/photos/uploads/1700000000123-me.png"))
	assert.Equal(t, []string{"photos/uploads/1700000000123-me.png"}, objects.deleted)

	require.Error(t, store.Delete(context.Background(), "https://elsewhere.example/uploads/me.png"))
	assert.Len(t, objects.deleted, 1)
}
