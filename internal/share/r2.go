package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arxaplan/cutout/internal/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrNotConfigured = errors.New("object storage not configured")

// ObjectStore stores shared artifacts and hands out time-limited read links
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// R2Store is an ObjectStore on Cloudflare R2 through the S3 API
type R2Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewR2StoreFromEnv builds an R2 client from R2_ACCOUNT_ID, R2_ACCESS_KEY_ID,
// R2_ACCESS_KEY_SECRET and R2_BUCKET.
func NewR2StoreFromEnv(ctx context.Context) (*R2Store, error) {
	accountID := utils.GetEnv("R2_ACCOUNT_ID", "")
	accessKeyID := utils.GetEnv("R2_ACCESS_KEY_ID", "")
	accessKeySecret := utils.GetEnv("R2_ACCESS_KEY_SECRET", "")
	bucket := utils.GetEnv("R2_BUCKET", "")
	if accountID == "" || accessKeyID == "" || accessKeySecret == "" || bucket == "" {
		return nil, ErrNotConfigured
	}

	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
		}, nil
	})
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(r2Resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &R2Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

func (r *R2Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (r *R2Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign request: %w", err)
	}
	return req.URL, nil
}
