package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
)

// s3ObjectAPI is the subset of *s3.Client the definition source needs.
type s3ObjectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3DefinitionSource loads every *.json object under a prefix, in key order.
type S3DefinitionSource struct {
	client   s3ObjectAPI
	bucket   string
	prefix   string
	validate bool
}

func NewS3DefinitionSource(client s3ObjectAPI, bucket, prefix string, validate bool) *S3DefinitionSource {
	return &S3DefinitionSource{client: client, bucket: bucket, prefix: prefix, validate: validate}
}

// NewS3Client builds an S3 client from configuration. Static credentials and a custom
// endpoint (rustfs, MinIO) are optional.
func NewS3Client(ctx context.Context, cfg resultmap.S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func (s *S3DefinitionSource) Name() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

func (s *S3DefinitionSource) Load(ctx context.Context) ([]*resultmap.DefinitionDocument, error) {
	keys, err := s.listKeys(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]*resultmap.DefinitionDocument, 0, len(keys))
	for _, key := range keys {
		data, err := s.getObject(ctx, key)
		if err != nil {
			return nil, err
		}
		doc, err := ParseDefinitionDocument(s.Name()+key[len(s.prefix):], data, s.validate)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	zap.S().Infow("loaded definition documents", "source", s.Name(), "documents", len(docs))
	return docs, nil
}

func (s *S3DefinitionSource) listKeys(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.classify(err, s.bucket)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(strings.ToLower(key), ".json") {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *S3DefinitionSource) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.classify(err, key)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s: %w", key, err)
	}
	return data, nil
}

func (s *S3DefinitionSource) classify(err error, name string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return resultmap.NewNotFoundError("definition object", name).WithCause(err)
		}
	}
	return fmt.Errorf("s3 request for %s failed: %w", name, err)
}
