package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Store uploads generated artifacts (error workbooks) to an S3
// compatible bucket. Cloudflare R2 is the default target but any
// endpoint honoring the S3 API works.
type R2Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewR2StoreFromEnv builds a store from R2_ENDPOINT, R2_ACCESS_KEY,
// R2_SECRET_KEY, R2_BUCKET and R2_PUBLIC_BASE_URL.
func NewR2StoreFromEnv(ctx context.Context) (*R2Store, error) {
	endpoint := strings.TrimSpace(os.Getenv("R2_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("R2_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("R2_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("R2_BUCKET"))
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("R2 storage not configured (R2_ENDPOINT, R2_ACCESS_KEY, R2_SECRET_KEY, R2_BUCKET required)")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	baseURL := strings.TrimSpace(os.Getenv("R2_PUBLIC_BASE_URL"))
	if baseURL == "" {
		baseURL = strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &R2Store{client: client, bucket: bucket, baseURL: baseURL}, nil
}

// Upload writes the object and returns its public URL.
func (s *R2Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to bucket %s, key %s: %w", s.bucket, key, err)
	}
	return s.baseURL + key, nil
}
