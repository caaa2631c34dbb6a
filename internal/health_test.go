package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/resultmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	err    error
	bucket string
}

func (f *fakeBucket) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestCheckRowSource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	source := NewSQLRowSource(db)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))
	assert.NoError(t, CheckRowSource(context.Background(), source, 0))

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection refused"))
	assert.ErrorContains(t, CheckRowSource(context.Background(), source, 0), "connection refused")

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).
		AddRow(int64(1)).
		RowError(0, errors.New("reset by peer")))
	assert.ErrorContains(t, CheckRowSource(context.Background(), source, 0), "reset by peer")

	require.NoError(t, mock.ExpectationsWereMet())
	assert.True(t, resultmap.IsInvalidArgumentError(CheckRowSource(context.Background(), nil, 0)))
}

func TestCheckDefinitionBucket(t *testing.T) {
	ok := &fakeBucket{}
	require.NoError(t, CheckDefinitionBucket(context.Background(), ok, "defs", 0))
	assert.Equal(t, "defs", ok.bucket)

	missing := &fakeBucket{err: &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}}
	err := CheckDefinitionBucket(context.Background(), missing, "defs", 0)
	assert.True(t, resultmap.IsNotFoundError(err))

	denied := &fakeBucket{err: &smithy.GenericAPIError{Code: "Forbidden", Message: "forbidden"}}
	err = CheckDefinitionBucket(context.Background(), denied, "defs", 0)
	assert.ErrorContains(t, err, "access was denied")

	offline := &fakeBucket{err: errors.New("dial tcp: no such host")}
	err = CheckDefinitionBucket(context.Background(), offline, "defs", 0)
	assert.ErrorContains(t, err, "no such host")
	assert.False(t, resultmap.IsNotFoundError(err))

	assert.True(t, resultmap.IsInvalidArgumentError(CheckDefinitionBucket(context.Background(), ok, "", 0)))
}
