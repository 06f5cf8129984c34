package s3store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dev-tams/s3cleanup/internal/storage/prunable"
)

const (
	DefaultEndpoint = "us-east-1.linodeobjects.com"
	DefaultRegion   = "us-east-1"
)

type Storage struct {
	name   string
	bucket string
	client *s3.Client
}

type Options struct {
	Name      string
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// New builds a client for the configured endpoint and resolves the bucket with
// HeadBucket. Failures map to prunable.ErrAuthentication or
// prunable.ErrBucketNotFound.
func New(ctx context.Context, opt Options) (*Storage, error) {
	if opt.AccessKey == "" || opt.SecretKey == "" {
		return nil, fmt.Errorf("s3: access key and secret key are required: %w", prunable.ErrAuthentication)
	}
	if opt.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is empty: %w", prunable.ErrBucketNotFound)
	}
	if opt.Region == "" {
		opt.Region = DefaultRegion
	}
	if opt.Name == "" {
		opt.Name = opt.Bucket
	}

	creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")

	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(opt.Region),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := endpointURL(opt.Endpoint)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	s := &Storage{
		name:   opt.Name,
		bucket: opt.Bucket,
		client: client,
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(opt.Bucket)}); err != nil {
		return nil, fmt.Errorf("resolve bucket %s at %s: %w", opt.Bucket, endpoint, classify(err, prunable.ErrBucketNotFound))
	}

	return s, nil
}

func (s *Storage) Name() string {
	return s.name
}

func (s *Storage) Bucket() string {
	return s.bucket
}

func (s *Storage) List(ctx context.Context, prefix string) ([]prunable.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var out []prunable.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects in %s: %w", s.bucket, classify(err, prunable.ErrBucketNotFound))
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			out = append(out, prunable.ObjectInfo{
				Key:     aws.ToString(obj.Key),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w: %w", key, prunable.ErrDelete, err)
	}
	return nil
}

func endpointURL(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultEndpoint
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return strings.TrimRight(host, "/")
}

// classify maps service failures onto the sentinel errors. Status codes win
// over error codes because HEAD responses carry no body.
func classify(err error, notFound error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", prunable.ErrAuthentication, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", notFound, err)
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %w", prunable.ErrAuthentication, err)
		case "NoSuchBucket", "NotFound":
			return fmt.Errorf("%w: %w", notFound, err)
		}
	}
	return err
}
