package storage

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

type S3 struct {
	client        s3iface.S3API
	bucket        string
	region        string
	cloudFrontURL string
}

func NewS3(bucket, region, cloudFrontURL string) (*S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create aws session")
	}
	return NewS3WithClient(s3.New(sess), bucket, region, cloudFrontURL), nil
}

func NewS3WithClient(client s3iface.S3API, bucket, region, cloudFrontURL string) *S3 {
	return &S3{
		client:        client,
		bucket:        bucket,
		region:        region,
		cloudFrontURL: strings.TrimRight(cloudFrontURL, "/"),
	}
}

func (s *S3) Disk() string { return DiskS3 }

func (s *S3) Store(r io.Reader, dir, filename, contentType string) (string, error) {
	key, err := cleanRelative(dir + "/" + filename)
	if err != nil {
		return "", err
	}

	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", errors.Wrap(err, "read upload")
		}
		body = bytes.NewReader(data)
	}

	_, err = s.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put object %s", key)
	}
	return key, nil
}

func (s *S3) URL(p string) string {
	key, err := cleanRelative(p)
	if err != nil {
		return ""
	}
	if s.cloudFrontURL != "" {
		return s.cloudFrontURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3) Exists(p string) bool {
	key, err := cleanRelative(p)
	if err != nil {
		return false
	}
	_, err = s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

func (s *S3) Open(p string) (io.ReadCloser, error) {
	key, err := cleanRelative(p)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get object %s", key)
	}
	return out.Body, nil
}

func (s *S3) Delete(p string) error {
	key, err := cleanRelative(p)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "delete object %s", key)
	}
	return nil
}

// KeyFromURL maps a public object URL back to its key; non-matching input is returned unchanged.
func (s *S3) KeyFromURL(u string) string {
	prefixes := []string{
		fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region),
	}
	if s.cloudFrontURL != "" {
		prefixes = append(prefixes, s.cloudFrontURL+"/")
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(u, prefix) {
			return strings.TrimPrefix(u, prefix)
		}
	}
	return u
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
