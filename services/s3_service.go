package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/google/uuid"
)

// MediaStore is the blob-storage collaborator: clients upload raw bytes to
// the upload URL directly, the services only persist the storage key and
// resolve it back to a displayable URL.
type MediaStore interface {
	GenerateUploadURL(ctx context.Context, fileName, fileType string) (uploadURL string, storageKey string, err error)
	GenerateReadURL(ctx context.Context, storageKey string) (string, error)
	DeleteObject(ctx context.Context, storageKey string) error
}

// S3Service implements MediaStore on top of S3 presigned URLs
type S3Service struct {
	Client *s3.Client
	Bucket string
}

// InitializeS3Client initializes the S3 client from the ambient AWS config
func InitializeS3Client() *s3.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		panic(err)
	}
	return s3.NewFromConfig(cfg)
}

func NewS3Service(client *s3.Client, bucket string) *S3Service {
	return &S3Service{Client: client, Bucket: bucket}
}

// GenerateUploadURL generates a presigned URL for uploading a media object
// and returns it with the storage key the caller should persist.
func (s *S3Service) GenerateUploadURL(ctx context.Context, fileName, fileType string) (string, string, error) {
	key := "media/" + time.Now().Format("20060102150405") + "-" + uuid.New().String() + "-" + fileName
	params := &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}
	presigner := s3.NewPresignClient(s.Client)
	presignedURL, err := presigner.PresignPutObject(ctx, params, s3.WithPresignExpires(5*time.Minute))
	if err != nil {
		return "", "", fmt.Errorf("failed to presign upload for '%s': %w", key, err)
	}
	return presignedURL.URL, key, nil
}

// GenerateReadURL generates a presigned URL for reading a stored object
func (s *S3Service) GenerateReadURL(ctx context.Context, storageKey string) (string, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(storageKey),
	}
	presigner := s3.NewPresignClient(s.Client)
	presignedURL, err := presigner.PresignGetObject(ctx, params, s3.WithPresignExpires(24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("failed to presign read for '%s': %w", storageKey, err)
	}
	return presignedURL.URL, nil
}

// DeleteObject releases a stored media object
func (s *S3Service) DeleteObject(ctx context.Context, storageKey string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object '%s': %w", storageKey, err)
	}
	return nil
}
