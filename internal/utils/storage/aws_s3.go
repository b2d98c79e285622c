package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"foodgram/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

var (
	AllowImage = []string{"image/jpeg", "image/png", "image/gif"}

	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrEmptyFile          = errors.New("file is empty")
)

type (
	AwsS3 interface {
		UploadFile(ctx context.Context, fileName string, content []byte, folder string, allowTypes ...string) (string, error)
		DeleteFile(ctx context.Context, objectKey string) error
		GetPublicLinkKey(objectKey string) string
		GetObjectKeyFromLink(link string) string
	}

	awsS3 struct {
		client   *s3.Client
		bucket   string
		region   string
		endpoint string
	}
)

func NewAwsS3() AwsS3 {
	region := utils.GetConfig("AWS_S3_REGION")
	endpoint := strings.TrimRight(utils.GetConfig("AWS_S3_ENDPOINT"), "/")

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			utils.GetConfig("AWS_ACCESS_KEY"),
			utils.GetConfig("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to load aws config: %v", err))
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// minio and other S3-compatible stores
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &awsS3{
		client:   client,
		bucket:   utils.GetConfig("AWS_S3_BUCKET"),
		region:   region,
		endpoint: endpoint,
	}
}

// UploadFile stores content under folder/fileName.<ext> and returns the object key.
// The extension comes from the sniffed content type, not from fileName.
func (s *awsS3) UploadFile(ctx context.Context, fileName string, content []byte, folder string, allowTypes ...string) (string, error) {
	contentType, ext, err := DetectType(content, allowTypes...)
	if err != nil {
		return "", err
	}

	objectKey := path.Join(folder, fileName+ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return objectKey, nil
}

func (s *awsS3) DeleteFile(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	return err
}

func (s *awsS3) GetPublicLinkKey(objectKey string) string {
	return s.baseURL() + "/" + objectKey
}

func (s *awsS3) GetObjectKeyFromLink(link string) string {
	prefix := s.baseURL() + "/"
	if !strings.HasPrefix(link, prefix) {
		return ""
	}
	return strings.TrimPrefix(link, prefix)
}

func (s *awsS3) baseURL() string {
	if s.endpoint != "" {
		return s.endpoint + "/" + s.bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.bucket, s.region)
}

// DetectType sniffs content and checks it against allowTypes (any type when empty).
func DetectType(content []byte, allowTypes ...string) (string, string, error) {
	if len(content) == 0 {
		return "", "", ErrEmptyFile
	}
	mtype := mimetype.Detect(content)
	if len(allowTypes) > 0 && !mimetype.EqualsAny(mtype.String(), allowTypes...) {
		return "", "", fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, mtype.String())
	}
	return mtype.String(), mtype.Extension(), nil
}
