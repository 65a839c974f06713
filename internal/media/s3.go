package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const errCodeNoSuchKey = "NoSuchKey"

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint targets an S3-compatible service (MinIO, LocalStack) with
	// path-style addressing when set.
	Endpoint string
}

// S3Store keeps images in an S3 bucket. References are the keys relative to
// the configured prefix.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store builds a store using the AWS default credential chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) objectKey(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, "..") || strings.HasPrefix(ref, "/") {
		return "", fmt.Errorf("invalid image reference %q", ref)
	}
	return s.prefix + ref, nil
}

func (s *S3Store) Write(ctx context.Context, key string, img image.Image) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}

	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("image/jpeg"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectKey, err)
	}

	return key, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	objectKey, err := s.objectKey(ref)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("delete object %s: %w", objectKey, err)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	objectKey, err := s.objectKey(ref)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", objectKey, err)
	}
	return out.Body, nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == errCodeNoSuchKey
}

var _ Store = (*S3Store)(nil)
