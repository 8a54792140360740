package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains S3 archive configuration
type S3Config struct {
	Endpoint        string // Optional: Custom endpoint for MinIO or DigitalOcean Spaces
	Region          string // AWS region or DO region (e.g., "us-east-1" or "sfo3")
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	UsePathStyle    bool   // Use path-style addressing (required for MinIO)
}

// S3Storage handles S3-compatible archive operations
type S3Storage struct {
	client *s3.Client
	bucket string
	config S3Config
}

var _ Store = (*S3Storage)(nil)

// NewS3Storage creates a new S3Storage instance
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("S3 credentials are required")
	}

	// Build AWS config
	var opts []func(*config.LoadOptions) error

	opts = append(opts, config.WithRegion(cfg.Region))
	opts = append(opts, config.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	))

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with custom options
	s3Opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	client := s3.NewFromConfig(awsConfig, s3Opts)

	return &S3Storage{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// SaveResponse archives a raw AI response to S3 under
// responses/YYYY/MM/slug.txt. Returns the S3 key.
func (s *S3Storage) SaveResponse(raw, slug string) (string, error) {
	return s.put([]byte(raw), "responses", slug, ".txt", "text/plain; charset=utf-8")
}

// SaveReport archives an exported report document to S3 under
// reports/YYYY/MM/slug.json. Returns the S3 key.
func (s *S3Storage) SaveReport(data []byte, slug string) (string, error) {
	return s.put(data, "reports", slug, ".json", "application/json")
}

// put uploads data under kind/YYYY/MM/slug+ext. S3 keys always use forward
// slashes.
func (s *S3Storage) put(data []byte, kind, slug, ext, contentType string) (string, error) {
	now := time.Now()
	year := fmt.Sprintf("%04d", now.Year())
	month := fmt.Sprintf("%02d", int(now.Month()))

	key := path.Join(kind, year, month, slug+ext)

	ctx := context.Background()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", kind, err)
	}

	return key, nil
}

// ReadResponse reads an archived AI response from S3
func (s *S3Storage) ReadResponse(key string) (string, error) {
	data, err := s.get(key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadReport reads an archived report document from S3
func (s *S3Storage) ReadReport(key string) ([]byte, error) {
	return s.get(key)
}

func (s *S3Storage) get(key string) ([]byte, error) {
	ctx := context.Background()
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data from S3: %w", err)
	}

	return data, nil
}

// DeleteResponse deletes an archived AI response from S3
func (s *S3Storage) DeleteResponse(key string) error {
	return s.delete(key)
}

// DeleteReport deletes an archived report document from S3
func (s *S3Storage) DeleteReport(key string) error {
	return s.delete(key)
}

func (s *S3Storage) delete(key string) error {
	ctx := context.Background()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}
