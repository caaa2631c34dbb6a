package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/resultmap"
)

const defaultHealthTimeout = 5 * time.Second

// CheckRowSource runs a trivial query through source and drains the result.
// timeout may be 0 to use the default (5s).
func CheckRowSource(ctx context.Context, source resultmap.RowSource, timeout time.Duration) error {
	if source == nil {
		return resultmap.NewInvalidArgumentError("row source is required")
	}
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := source.QueryRows(ctx, "SELECT 1")
	if err != nil {
		return fmt.Errorf("database health query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("database health query failed: %w", err)
	}
	return nil
}

type s3BucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// CheckDefinitionBucket verifies the definitions bucket exists and is reachable with the
// configured credentials.
func CheckDefinitionBucket(ctx context.Context, client s3BucketAPI, bucket string, timeout time.Duration) error {
	if bucket == "" {
		return resultmap.NewInvalidArgumentError("bucket is required")
	}
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return resultmap.NewNotFoundError("definition bucket", bucket).WithCause(err)
		case "Forbidden", "AccessDenied":
			return fmt.Errorf("definition bucket %s reachable but access was denied: %w", bucket, err)
		}
	}
	return fmt.Errorf("definition bucket %s health check failed: %w", bucket, err)
}
