// Package s3 reads build input from and publishes build output to Amazon
// S3-compatible object storage.
package s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sebas5384/now-builders/internal/config"
)

// ErrNotFound is returned by Fetch for a digest without an object.
var ErrNotFound = errors.New("object not found")

// AmazonS3 stores objects below a key prefix of one bucket.
type AmazonS3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 client from the default credential chain: environment
// variables, shared credentials file, ECS or EC2 instance role. A custom URL
// switches to path-style addressing for S3-compatible services.
func New(ctx context.Context, cfg config.AmazonS3) (*AmazonS3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.URL != "" {
			o.BaseEndpoint = aws.String(cfg.URL)
			o.UsePathStyle = true
		}
	})

	return &AmazonS3{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *AmazonS3) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Fetch returns the object stored for digest.
func (s *AmazonS3) Fetch(ctx context.Context, digest string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(digest)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%s: %w", digest, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", digest, err)
	}
	return out.Body, nil
}

// Upload stores body at key, recording its sha256 checksum and the given
// metadata on the object.
func (s *AmazonS3) Upload(ctx context.Context, key string, body io.ReadSeeker, metadata map[string]string) error {
	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return err
	}

	md := map[string]string{"sha256": hex.EncodeToString(h.Sum(nil))}
	for k, v := range metadata {
		if v != "" {
			md[k] = v
		}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key(key)),
		Body:     body,
		Metadata: md,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
