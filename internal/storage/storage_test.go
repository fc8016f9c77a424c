package storage_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/requestdesk/internal/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLocal(t *testing.T) {
	s, err := storage.NewLocal(t.TempDir(), "http://files.test/uploads")
	require.NoError(t, err)

	t.Run("Success - Store, read, delete", func(t *testing.T) {
		p, err := s.Store(bytes.NewReader([]byte("hello")), "requests/7", "a.txt", "text/plain")
		require.NoError(t, err)
		assert.Equal(t, "requests/7/a.txt", p)
		assert.Equal(t, "http://files.test/uploads/requests/7/a.txt", s.URL(p))
		assert.True(t, s.Exists(p))

		rc, err := s.Open(p)
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "hello", string(data))

		require.NoError(t, s.Delete(p))
		assert.False(t, s.Exists(p))
		assert.ErrorIs(t, s.Delete(p), storage.ErrNotFound)
	})

	t.Run("Error - Traversal stays inside root", func(t *testing.T) {
		p, err := s.Store(bytes.NewReader([]byte("x")), "../../etc", "passwd", "")
		require.NoError(t, err)
		assert.Equal(t, "etc/passwd", p)
	})

	t.Run("Error - Missing file", func(t *testing.T) {
		_, err := s.Open("nope/missing.png")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestStoreUpload(t *testing.T) {
	s, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	fh := fileHeader(t, "file", "Photo.PNG", pngHeader)

	stored, err := storage.StoreUpload(s, fh, "requests/1")
	require.NoError(t, err)
	assert.Equal(t, "image/png", stored.MimeType)
	assert.Equal(t, "Photo.PNG", stored.Name)
	assert.Equal(t, storage.DiskLocal, stored.Disk)
	assert.Regexp(t, `^requests/1/[0-9a-f-]{36}\.png$`, stored.Path)
	assert.True(t, s.Exists(stored.Path))
}

func TestDatedDir(t *testing.T) {
	at := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "attachments/2025/03", storage.DatedDir("attachments", at))
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (f *fakeS3) PutObject(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, awserr.New("NotFound", "not found", nil)
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data)), ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) DeleteObject(in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}}
	s := storage.NewS3WithClient(client, "bucket", "eu-west-1", "")

	p, err := s.Store(bytes.NewReader([]byte("img")), "requests/3", "x.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "requests/3/x.png", p)
	assert.Equal(t, "https://bucket.s3.eu-west-1.amazonaws.com/requests/3/x.png", s.URL(p))
	assert.Equal(t, p, s.KeyFromURL(s.URL(p)))
	assert.True(t, s.Exists(p))

	rc, err := s.Open(p)
	require.NoError(t, err)
	rc.Close()

	require.NoError(t, s.Delete(p))
	assert.False(t, s.Exists(p))

	_, err = s.Open(p)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cdn := storage.NewS3WithClient(client, "bucket", "eu-west-1", "https://cdn.test/")
	assert.Equal(t, "https://cdn.test/a/b.png", cdn.URL("a/b.png"))
}

func fileHeader(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, _ = part.Write(content)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File[field][0]
}
