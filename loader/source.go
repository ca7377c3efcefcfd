package loader

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"
)

// ============================================================================
// SOURCES — Where the table bytes come from
// ============================================================================
// Drivers:
//   file    local path
//   s3      s3://bucket/key via aws-sdk-go-v2 (AWS S3 or MinIO)
//   memory  in-process bytes, mostly for tests
//
// OpenSource picks a driver from a location string.
// ============================================================================

// Source yields the raw bytes of one table.
type Source interface {
	// Name identifies the source in logs, errors and Dataset.Source.
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Format names.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// FormatFor infers the table format from a name's extension.
func FormatFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// ============================================================================
// FILE
// ============================================================================

// FileSource reads a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(s.Path)
}

// ============================================================================
// MEMORY
// ============================================================================

// MemorySource serves a fixed byte slice.
type MemorySource struct {
	Label string
	Data  []byte
}

func (s MemorySource) Name() string {
	if s.Label == "" {
		return "memory"
	}
	return s.Label
}

func (s MemorySource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// ============================================================================
// S3
// ============================================================================

// S3API is the slice of the S3 client the loader needs.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds client construction parameters.
type S3Config struct {
	Region    string
	Endpoint  string // optional; enables a custom endpoint (e.g. MinIO)
	PathStyle bool
}

// NewS3Client builds an S3 client from the default credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// S3Source reads one object.
type S3Source struct {
	Bucket string
	Key    string
	Client S3API
}

func (s S3Source) Name() string { return "s3://" + s.Bucket + "/" + s.Key }

func (s S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Client == nil {
		return nil, errors.New("s3 client not configured")
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get object %s", s.Name())
	}
	return out.Body, nil
}

// ParseS3URI splits "s3://bucket/key" into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", errors.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.Errorf("s3 uri needs bucket and key: %q", uri)
	}
	return bucket, key, nil
}

// OpenSource selects a Source for location. s3:// locations get a client
// built from cfg; everything else is a local path.
func OpenSource(ctx context.Context, location string, cfg S3Config) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("empty source location")
	}
	if !strings.HasPrefix(location, "s3://") {
		return FileSource{Path: location}, nil
	}
	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return S3Source{Bucket: bucket, Key: key, Client: client}, nil
}
