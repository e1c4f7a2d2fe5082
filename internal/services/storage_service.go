// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/javajoker/fifo-inventory/internal/config"
)

var ErrStorageUnavailable = errors.New("report storage is not configured")

// StorageService writes generated reports to S3. Without a bucket it stays
// disabled and every upload returns ErrStorageUnavailable.
type StorageService struct {
	s3Client s3iface.S3API
	bucket   string
	region   string
}

type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Checksum    string `json:"checksum"`
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.S3Bucket == "" {
		return &StorageService{}, nil
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	// Create AWS session
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewStorageServiceWithClient(s3.New(sess), cfg.S3Bucket, cfg.Region), nil
}

func NewStorageServiceWithClient(client s3iface.S3API, bucket, region string) *StorageService {
	return &StorageService{
		s3Client: client,
		bucket:   bucket,
		region:   region,
	}
}

func (s *StorageService) Enabled() bool {
	return s != nil && s.s3Client != nil
}

func (s *StorageService) Upload(ctx context.Context, key string, body []byte, contentType, checksum string) (*UploadResult, error) {
	if !s.Enabled() {
		return nil, ErrStorageUnavailable
	}

	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]*string{
			"sha256": aws.String(checksum),
		},
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:         s.getS3URL(key),
		Key:         key,
		Size:        int64(len(body)),
		ContentType: contentType,
		Checksum:    checksum,
	}, nil
}

func (s *StorageService) getS3URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
