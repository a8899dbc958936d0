package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Makisuo/confect-plus/internal/platform"
)

const shaMetadataKey = "content-sha256"

// S3Config connects an S3-compatible endpoint (AWS, minio, ...).
type S3Config struct {
	// "http://127.0.0.1:9000" for a local minio; empty for AWS proper.
	Endpoint string
	// "us-east-1"
	Region   string
	Bucket   string
	Username string
	Password string
	// URLExpiry bounds presigned URLs; 0 means 15 minutes.
	URLExpiry time.Duration
}

// S3 is the S3-backed object store.
type S3 struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	urlExpiry time.Duration
}

// NewS3 connects to the configured endpoint.
func NewS3(cfg S3Config) *S3 {
	client := s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.Username != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.Username, cfg.Password, "")
		}
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		urlExpiry: expiry,
	}
}

func (b *S3) Store(ctx context.Context, data []byte, contentType string) (platform.FileID, error) {
	id, err := newFileID()
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(string(id)),
		Body:     bytes.NewReader(data),
		Metadata: map[string]string{shaMetadataKey: contentSHA256(data)},
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 store: %w", err)
	}
	return id, nil
}

func (b *S3) Exists(ctx context.Context, id platform.FileID) (bool, error) {
	meta, err := b.Metadata(ctx, id)
	if err != nil {
		return false, err
	}
	return meta != nil, nil
}

func (b *S3) Metadata(ctx context.Context, id platform.FileID) (*platform.FileMetadata, error) {
	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(string(id)),
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("s3 head %s: %w", id, err)
	}

	meta := &platform.FileMetadata{
		ID:          id,
		Size:        aws.ToInt64(head.ContentLength),
		ContentType: aws.ToString(head.ContentType),
		SHA256:      head.Metadata[shaMetadataKey],
	}
	if head.LastModified != nil {
		meta.CreatedAt = *head.LastModified
	}
	return meta, nil
}

func (b *S3) URL(ctx context.Context, id platform.FileID) (string, error) {
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(string(id)),
	}, s3.WithPresignExpires(b.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", id, err)
	}
	return req.URL, nil
}

func (b *S3) Delete(ctx context.Context, id platform.FileID) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(string(id)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", id, err)
	}
	return nil
}

// isNotFound covers both HeadObject's NotFound and GetObject's NoSuchKey.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

var _ Storage = (*S3)(nil)
