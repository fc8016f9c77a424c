package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Kyz7/requestdesk/internal/config"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	DiskLocal = "local"
	DiskS3    = "s3"
)

var ErrNotFound = errors.New("file not found")

// Storage is the file backend used for uploads. Paths are slash separated and relative
// to the backend root.
type Storage interface {
	Store(r io.Reader, dir, filename, contentType string) (string, error)
	URL(p string) string
	Exists(p string) bool
	Delete(p string) error
	Open(p string) (io.ReadCloser, error)
	Disk() string
}

var Default Storage

func Init(cfg *config.Config) error {
	if cfg.UseS3 {
		s, err := NewS3(cfg.S3Bucket, cfg.S3Region, cfg.CloudFrontURL)
		if err != nil {
			return err
		}
		Default = s
		return nil
	}

	s, err := NewLocal(cfg.UploadDir, strings.TrimRight(cfg.PublicBaseURL, "/")+"/uploads")
	if err != nil {
		return err
	}
	Default = s
	return nil
}

func Mode() string {
	if Default == nil {
		return "none"
	}
	return Default.Disk()
}

// StoredFile describes an upload written by StoreUpload.
type StoredFile struct {
	Path     string
	URL      string
	Name     string
	MimeType string
	Size     int64
	Disk     string
}

// StoreUpload writes fh under dir with a fresh uuid name that keeps the original extension.
func StoreUpload(s Storage, fh *multipart.FileHeader, dir string) (*StoredFile, error) {
	mime, err := DetectMIME(fh)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open upload")
	}
	defer src.Close()

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
	stored, err := s.Store(src, dir, name, mime)
	if err != nil {
		return nil, err
	}

	return &StoredFile{
		Path:     stored,
		URL:      s.URL(stored),
		Name:     filepath.Base(fh.Filename),
		MimeType: mime,
		Size:     fh.Size,
		Disk:     s.Disk(),
	}, nil
}

// DetectMIME sniffs the upload content; the client supplied Content-Type is not trusted.
func DetectMIME(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "open upload")
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", errors.Wrap(err, "detect mime type")
	}
	mime, _, _ := strings.Cut(mt.String(), ";")
	return mime, nil
}

// DatedDir returns "<prefix>/YYYY/MM".
func DatedDir(prefix string, t time.Time) string {
	return path.Join(prefix, t.Format("2006"), t.Format("01"))
}

func cleanRelative(p string) (string, error) {
	p = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("empty file path")
	}
	return p, nil
}
