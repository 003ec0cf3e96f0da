package sync

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultS3Key is the object key used when S3Config.Key is empty.
const DefaultS3Key = "formflow/forms.jsonl"

// S3Config locates the snapshot object.
type S3Config struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string // non-empty enables path-style addressing (MinIO and similar)

	// History also writes each snapshot under <key-without-ext>/<exported_at>.jsonl.
	History bool
}

// putObjectAPI is the subset of *s3.Client the destination uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads form snapshots to an S3-compatible bucket. Each
// object carries the snapshot header as user metadata so a listing shows
// what it holds without downloading it.
type S3Destination struct {
	client  putObjectAPI
	bucket  string
	key     string
	history bool
}

// NewS3Destination loads the default AWS credential chain and returns a
// destination for cfg.
func NewS3Destination(ctx context.Context, cfg S3Config) (*S3Destination, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 destination: bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return newS3Destination(s3.NewFromConfig(awsCfg, s3opts...), cfg), nil
}

func newS3Destination(client putObjectAPI, cfg S3Config) *S3Destination {
	key := cfg.Key
	if key == "" {
		key = DefaultS3Key
	}
	return &S3Destination{client: client, bucket: cfg.Bucket, key: key, history: cfg.History}
}

// Write uploads one snapshot produced by ExportJSONL.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	h, err := readHeader(data)
	if err != nil {
		return fmt.Errorf("s3 write: %w", err)
	}
	meta := snapshotMetadata(h)

	if err := d.put(ctx, d.key, data, meta); err != nil {
		return err
	}
	if d.history {
		if err := d.put(ctx, historyKey(d.key, h), data, meta); err != nil {
			return err
		}
	}
	return nil
}

func (d *S3Destination) put(ctx context.Context, key string, data []byte, meta map[string]string) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return nil
}

func snapshotMetadata(h header) map[string]string {
	meta := map[string]string{
		"snapshot-version": h.Version,
		"exported-at":      h.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		"form-count":       strconv.Itoa(h.FormCount),
	}
	for state, n := range h.States {
		meta["forms-"+state.String()] = strconv.Itoa(n)
	}
	return meta
}

// historyKey maps "formflow/forms.jsonl" to
// "formflow/forms/20260115T100000Z.jsonl".
func historyKey(key string, h header) string {
	base := strings.TrimSuffix(key, ".jsonl")
	return base + "/" + h.Timestamp.UTC().Format("20060102T150405Z") + ".jsonl"
}
