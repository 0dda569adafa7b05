package export

import (
	"bytes"
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
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// --- DirSink ---

// DirSink writes downloads into a local directory, replacing files of the
// same name atomically.
type DirSink struct {
	Dir string
}

// Save writes r to Dir/name via a temp file and rename.
func (s DirSink) Save(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name != filepath.Base(name) || name == "." || name == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	dst := filepath.Join(s.Dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return dst, nil
}

// --- S3Sink ---

// PutObjectAPI is the slice of the S3 client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads downloads to a bucket under prefix/date/id/name.
type S3Sink struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
	Now    func() time.Time
	NewID  func() string
}

// NewS3Sink loads the default AWS config for region and returns a sink for bucket.
func NewS3Sink(ctx context.Context, region, bucket, prefix string) (*S3Sink, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})
	return &S3Sink{Client: client, Bucket: bucket, Prefix: prefix}, nil
}

// Key returns the object key for name.
func (s *S3Sink) Key(name string) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	newID := uuid.NewString
	if s.NewID != nil {
		newID = s.NewID
	}
	return path.Join(strings.Trim(s.Prefix, "/"), now().UTC().Format("2006-01-02"), newID(), name)
}

// Save uploads r and returns an s3:// location.
func (s *S3Sink) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if s.Bucket == "" {
		return "", errors.New("s3 sink: bucket not set")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.Key(name)
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.Bucket, key, err)
	}
	return "s3://" + s.Bucket + "/" + key, nil
}

// --- MultiSink ---

// MultiSink saves to every sink in order. The first location is returned;
// the first error aborts.
type MultiSink []Sink

// Save buffers r once and replays it into each sink.
func (m MultiSink) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if len(m) == 0 {
		return "", errors.New("multi sink: no sinks")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	var first string
	for i, s := range m {
		loc, err := s.Save(ctx, name, contentType, bytes.NewReader(data))
		if err != nil {
			return "", err
		}
		if i == 0 {
			first = loc
		}
	}
	return first, nil
}
