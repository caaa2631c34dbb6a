package e2e_harness

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/resultmap"
	"github.com/lychee-technology/resultmap/internal"
)

// PersonDefinitions declares a Person entity split over a primary and a secondary table,
// an entity mapping, a constructor mapping and queries using both.
const PersonDefinitions = `{
  "entities": [
    {
      "name": "Person",
      "table": "person",
      "secondaryTables": ["person_detail"],
      "attributes": [
        {"name": "id", "type": "int64", "id": true},
        {"name": "name", "type": "string", "nationalized": true},
        {"name": "biography", "column": "bio", "table": "person_detail", "type": "string", "nationalized": true, "lob": true, "nullable": true},
        {"name": "active", "type": "bool"}
      ]
    }
  ],
  "resultSetMappings": [
    {"name": "PersonMapping", "results": [{"kind": "entity", "entity": "Person"}]},
    {
      "name": "PersonCard",
      "results": [
        {
          "kind": "constructor",
          "targetType": "PersonCard",
          "arguments": [
            {"kind": "scalar", "column": "id", "entity": "Person", "attribute": "id"},
            {"kind": "scalar", "column": "name", "entity": "Person", "attribute": "name"}
          ]
        }
      ]
    }
  ],
  "namedQueries": [
    {
      "name": "activePeople",
      "sql": "SELECT p.id, p.name, d.bio, p.active FROM person p LEFT JOIN person_detail d ON d.person_id = p.id WHERE p.active = $1 ORDER BY p.id",
      "resultSetMapping": "PersonMapping",
      "timeoutSeconds": 10
    },
    {
      "name": "personCards",
      "sql": "SELECT id, name FROM person ORDER BY id",
      "resultSetMapping": "PersonCard",
      "querySpaces": ["person"]
    }
  ]
}`

// SeedPostgres creates the person tables and inserts three people, two of them active.
func SeedPostgres(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS person (
  id BIGINT PRIMARY KEY,
  name TEXT NOT NULL,
  active BOOLEAN NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS person_detail (
  person_id BIGINT REFERENCES person(id),
  bio TEXT
);`,
		`INSERT INTO person (id, name, active) VALUES
  (1, 'Zoë', true),
  (2, 'Łukasz', true),
  (3, 'Ana', false);`,
		`INSERT INTO person_detail (person_id, bio) VALUES (1, 'Ünïcödé biography');`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("seed postgres: %w", err)
		}
	}
	return nil
}

// EnsureBucket creates bucket unless it already exists.
func EnsureBucket(ctx context.Context, client *s3.Client, bucket string) error {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			code := apiErr.ErrorCode()
			if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
				return nil
			}
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// UploadDefinitions uploads each document as <prefix>/<name> to the bucket at endpoint.
func UploadDefinitions(ctx context.Context, endpoint, bucket, prefix string, docs map[string]string) error {
	client, err := internal.NewS3Client(ctx, resultmap.S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     S3AccessKey,
		SecretAccessKey: S3SecretKey,
		UsePathStyle:    true,
	})
	if err != nil {
		return err
	}
	if err := EnsureBucket(ctx, client, bucket); err != nil {
		return err
	}

	uploader := manager.NewUploader(client)
	for name, body := range docs {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(path.Join(prefix, name)),
			Body:        bytes.NewReader([]byte(body)),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("s3 upload %s: %w", name, err)
		}
	}
	return nil
}
