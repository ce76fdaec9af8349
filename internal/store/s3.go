package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Options configures the S3 store client.
type S3Options struct {
	// Endpoint overrides the provider endpoint (MinIO, R2, on-prem)
	Endpoint string

	// Region is passed to the SDK ("auto" works for R2-style stores)
	Region string

	// Bucket holds the annotation workspace
	Bucket string

	// AccessKey/SecretKey are static credentials; leave empty to use
	// the SDK's default credential chain
	AccessKey string
	SecretKey string

	// PathStyle forces path-style addressing
	PathStyle bool
}

// S3 implements Store against any S3-compatible object store.
type S3 struct {
	client *s3.Client
	bucket string
}

var _ Store = (*S3)(nil)

// NewS3 builds an S3 store from the given options.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("store: bucket must be configured")
	}

	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if opts.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: opts.Endpoint}, nil
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
	})

	return &S3{client: client, bucket: opts.Bucket}, nil
}

// Stat returns metadata for a remote path. Directory-like paths exist only
// as key prefixes in S3, so a missing object falls back to a one-item
// prefix listing before the path is declared absent.
func (s *S3) Stat(ctx context.Context, remotePath string) (StatInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(remotePath)),
	})
	if err != nil {
		if !isNotFound(err) {
			return StatInfo{}, fmt.Errorf("stat %s: %w", remotePath, err)
		}
		return s.statPrefix(ctx, remotePath)
	}

	return StatInfo{
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3) statPrefix(ctx context.Context, remotePath string) (StatInfo, error) {
	list, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(objectKey(remotePath) + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return StatInfo{}, fmt.Errorf("stat %s: %w", remotePath, err)
	}
	if len(list.Contents) == 0 {
		return StatInfo{}, fmt.Errorf("stat %s: %w", remotePath, ErrNotFound)
	}
	return StatInfo{}, nil
}

// Save uploads the local file's content to the remote path. When Overwrite
// is unset an existing object is rejected with ErrConflict; plain S3 has
// no conditional PUT at this API version, so existence is checked first.
func (s *S3) Save(ctx context.Context, localPath, remotePath string, opts SaveOptions) error {
	if !opts.Overwrite {
		_, err := s.Stat(ctx, remotePath)
		switch {
		case err == nil:
			return fmt.Errorf("save %s: %w", remotePath, ErrConflict)
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(remotePath)),
		Body:   f,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("save %s: %w", remotePath, err)
	}
	return nil
}

// DownloadString fetches a remote object's content as a string.
func (s *S3) DownloadString(ctx context.Context, remotePath string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(remotePath)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("download %s: %w", remotePath, ErrNotFound)
		}
		return "", fmt.Errorf("download %s: %w", remotePath, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", remotePath, err)
	}
	return string(data), nil
}

// isNotFound reports whether err is a definite does-not-exist answer from
// the store, as opposed to a transient failure.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
