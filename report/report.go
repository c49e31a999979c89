// Package report delivers migration run reports to stdout, a local file or an
// S3 bucket.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/teranos/ngmigrate/am"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/migrate"
)

const (
	s3Scheme    = "s3://"
	contentType = "application/json"
)

// Sink receives a finished report.
type Sink interface {
	Put(ctx context.Context, r *migrate.Report) error
}

// Encode renders a report as indented JSON with a trailing newline.
func Encode(r *migrate.Report) ([]byte, error) {
	if r == nil {
		return nil, errors.NewInvalidRequestError("nil report")
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode report of run %s", r.RunID)
	}
	return append(data, '\n'), nil
}

// Options tune sink construction.
type Options struct {
	Stdout io.Writer
	// Region and Endpoint apply to s3:// destinations only
	Region    string
	Endpoint  string
	PathStyle bool
}

// Open picks a sink for destination: empty or "-" is stdout, s3://bucket/key
// is S3 and anything else is a file path.
func Open(ctx context.Context, destination string, opts Options) (Sink, error) {
	switch {
	case destination == "" || destination == "-":
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		return &WriterSink{W: w}, nil
	case strings.HasPrefix(destination, s3Scheme):
		bucket, key, err := ParseS3(destination)
		if err != nil {
			return nil, err
		}
		return NewS3Sink(ctx, S3Config{
			Region:    opts.Region,
			Bucket:    bucket,
			Key:       key,
			Endpoint:  opts.Endpoint,
			PathStyle: opts.PathStyle,
		})
	default:
		return &FileSink{Path: destination}, nil
	}
}

// Write opens the sink for destination and puts r into it.
func Write(ctx context.Context, destination string, r *migrate.Report, opts Options) error {
	sink, err := Open(ctx, destination, opts)
	if err != nil {
		return err
	}
	return sink.Put(ctx, r)
}

// WriterSink writes reports to an io.Writer.
type WriterSink struct {
	W io.Writer
}

func (s *WriterSink) Put(_ context.Context, r *migrate.Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	if _, err := s.W.Write(data); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	return nil
}

// FileSink writes reports to a local path. A path ending in a separator or
// naming an existing directory gets <runId>.json appended.
type FileSink struct {
	Path string
}

func (s *FileSink) Put(_ context.Context, r *migrate.Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	path := s.Path
	if info, statErr := os.Stat(path); strings.HasSuffix(path, string(os.PathSeparator)) || (statErr == nil && info.IsDir()) {
		path = filepath.Join(path, r.RunID+".json")
	}
	if err := os.MkdirAll(filepath.Dir(path), am.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create report directory for %s", path)
	}
	if err := os.WriteFile(path, data, am.DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write report to %s", path)
	}
	return nil
}

// ParseS3 splits s3://bucket/key. An empty key or one ending in "/" is a
// prefix; the run id names the object.
func ParseS3(destination string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(destination, s3Scheme)
	if !ok {
		return "", "", errors.NewInvalidRequestError("not an s3 destination: %s", destination)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		err := errors.NewInvalidRequestError("s3 destination has no bucket: %s", destination)
		return "", "", errors.WithHint(err, "use s3://bucket/key or s3://bucket/prefix/")
	}
	return bucket, key, nil
}

// S3Config configures an S3Sink.
type S3Config struct {
	Region    string
	Bucket    string
	Key       string
	Endpoint  string
	PathStyle bool
}

// S3Sink uploads reports as JSON objects.
type S3Sink struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Sink builds a client from the default AWS credential chain.
func NewS3Sink(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.NewInvalidRequestError("s3 bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
		for _, fn := range optFns {
			fn(o)
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

// Key is the object key a report is stored under.
func (s *S3Sink) Key(r *migrate.Report) string {
	if s.key == "" || strings.HasSuffix(s.key, "/") {
		return s.key + r.RunID + ".json"
	}
	return s.key
}

func (s *S3Sink) Put(ctx context.Context, r *migrate.Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	key := s.Key(r)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload report to s3://%s/%s", s.bucket, key)
	}
	return nil
}
