package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"recipebook/internal/utils"
)

type (
	AwsS3 interface {
		// UploadBase64Image decodes a "data:image/...;base64," data URI,
		// stores it under folder with a generated name and returns the
		// public object URL.
		UploadBase64Image(ctx context.Context, dataURI string, folder string) (string, error)
	}

	awsS3 struct {
		client *s3.Client
		bucket string
		region string
	}
)

var ErrInvalidImageData = fmt.Errorf("invalid base64 image data")

func NewAwsS3() AwsS3 {
	region := utils.GetConfig("AWS_S3_REGION")
	cfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			utils.GetConfig("AWS_ACCESS_KEY"),
			utils.GetConfig("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to load AWS config: %v", err))
	}

	return &awsS3{
		client: s3.NewFromConfig(cfg),
		bucket: utils.GetConfig("AWS_S3_BUCKET"),
		region: region,
	}
}

func (a *awsS3) UploadBase64Image(ctx context.Context, dataURI string, folder string) (string, error) {
	if !strings.HasPrefix(dataURI, "data:image/") {
		return "", ErrInvalidImageData
	}

	meta, encoded, found := strings.Cut(dataURI, ";base64,")
	if !found {
		return "", ErrInvalidImageData
	}
	ext := strings.TrimPrefix(meta, "data:image/")

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidImageData
	}

	key := fmt.Sprintf("%s/%s.%s", folder, uuid.New().String(), ext)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("image/" + ext),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.region, key), nil
}
