// Package s3 exports each reconciliation pass as one NDJSON object in an
// S3-compatible bucket (AWS, MinIO, R2).
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/output"
)

// Config addresses the bucket.
type Config struct {
	Endpoint  string // host[:port], no scheme
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string // defaults to us-east-1
	Secure    bool
	Prefix    string // object key prefix, e.g. "exports/"
}

// Output buffers results and uploads them on Close.
type Output struct {
	client    *minio.Client
	bucket    string
	object    string
	verbosity output.Verbosity

	mu  sync.Mutex
	buf bytes.Buffer
	n   int
}

// New connects to the endpoint. The object key is {Prefix}{name}.ndjson; an
// empty name falls back to a UTC timestamp.
func New(cfg Config, name string, verbosity output.Verbosity) (*Output, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 output: endpoint and bucket are required: %w", model.ErrConfiguration)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 output: %w: %w", model.ErrConfiguration, err)
	}
	if name == "" {
		name = time.Now().UTC().Format("20060102T150405Z")
	}
	return &Output{
		client:    client,
		bucket:    cfg.Bucket,
		object:    cfg.Prefix + name + ".ndjson",
		verbosity: verbosity,
	}, nil
}

// Object returns the key the export is written to.
func (o *Output) Object() string { return o.object }

func (o *Output) Write(_ context.Context, result model.MatchResult) error {
	data, err := json.Marshal(output.Format(result, o.verbosity))
	if err != nil {
		return fmt.Errorf("s3 output: marshal %s: %w", result.IssueID, err)
	}
	o.mu.Lock()
	o.buf.Write(data)
	o.buf.WriteByte('\n')
	o.n++
	o.mu.Unlock()
	return nil
}

// Close uploads the buffered results. Nothing is uploaded for an empty pass.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.n == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return fmt.Errorf("s3 output: check bucket %s: %w", o.bucket, err)
	}
	if !exists {
		if err := o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("s3 output: create bucket %s: %w", o.bucket, err)
		}
	}

	data := o.buf.Bytes()
	if _, err := o.client.PutObject(ctx, o.bucket, o.object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/x-ndjson"}); err != nil {
		return fmt.Errorf("s3 output: put %s/%s: %w", o.bucket, o.object, err)
	}
	o.buf.Reset()
	o.n = 0
	return nil
}
