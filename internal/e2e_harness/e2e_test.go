//go:build e2e

package e2e_harness

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/resultmap"
	"github.com/lychee-technology/resultmap/factory"
	"github.com/lychee-technology/resultmap/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type personCard struct {
	ID   int64
	Name string
}

func newPersonCard(id int64, name string) personCard {
	return personCard{ID: id, Name: name}
}

func TestE2ENamedQueriesFromS3(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E harness in -short mode")
	}
	ctx := context.Background()
	h := &TestHarness{}

	_, err := h.StartPostgres(ctx)
	require.NoError(t, err, "start postgres")
	defer h.StopPostgres(ctx)

	_, err = h.StartS3(ctx)
	require.NoError(t, err, "start rustfs")
	defer h.StopS3(ctx)

	require.NoError(t, SeedPostgres(ctx, h.PGDB))
	require.NoError(t, UploadDefinitions(ctx, h.S3Endpoint, "definitions", "mappings",
		map[string]string{"person.json": PersonDefinitions}))

	config := resultmap.DefaultConfig()
	config.Definitions.S3 = resultmap.S3Config{
		Bucket:          "definitions",
		Prefix:          "mappings/",
		Endpoint:        h.S3Endpoint,
		AccessKeyID:     S3AccessKey,
		SecretAccessKey: S3SecretKey,
		UsePathStyle:    true,
	}
	sf, err := factory.NewSessionFactoryWithConfig(config,
		factory.WithContext(ctx),
		factory.WithInstantiatorFunc("PersonCard", newPersonCard))
	require.NoError(t, err)
	defer sf.Close()

	t.Run("health checks", func(t *testing.T) {
		require.NoError(t, internal.CheckRowSource(ctx, internal.NewSQLRowSource(h.PGDB), 0))

		client, err := internal.NewS3Client(ctx, config.Definitions.S3)
		require.NoError(t, err)
		require.NoError(t, internal.CheckDefinitionBucket(ctx, client, "definitions", 0))
		assert.True(t, resultmap.IsNotFoundError(internal.CheckDefinitionBucket(ctx, client, "missing-bucket", 0)))
	})

	t.Run("entity mapping over database/sql", func(t *testing.T) {
		result, err := sf.ExecuteNamedQuery(ctx, internal.NewSQLRowSource(h.PGDB), "activePeople", true)
		require.NoError(t, err)

		assert.Equal(t, []string{"person", "person_detail"}, result.QuerySpaces)
		require.Len(t, result.Rows, 2)
		first := result.Rows[0][0].(*resultmap.EntityRecord)
		assert.Equal(t, "Zoë", first.Values["name"])
		assert.Equal(t, "Ünïcödé biography", first.Values["biography"])
		assert.Equal(t, true, first.Values["active"])
		second := result.Rows[1][0].(*resultmap.EntityRecord)
		assert.Equal(t, "Łukasz", second.Values["name"])
		assert.Nil(t, second.Values["biography"])
	})

	t.Run("constructor mapping over pgx", func(t *testing.T) {
		pool, err := pgxpool.New(ctx, h.PGDSN)
		require.NoError(t, err)
		defer pool.Close()

		result, err := sf.ExecuteNamedQuery(ctx, internal.NewPgxRowSource(pool), "personCards")
		require.NoError(t, err)

		require.Len(t, result.Rows, 3)
		assert.Equal(t, personCard{ID: 3, Name: "Ana"}, result.Rows[2][0])
		assert.Equal(t, []string{"person"}, result.QuerySpaces)
	})

	t.Run("nationalized columns use implicit codes on postgres", func(t *testing.T) {
		person, ok := sf.DomainModel().FindEntityDescriptor("Person")
		require.True(t, ok)
		assert.Equal(t, resultmap.JDBCTypeVarchar, person.FindAttributeMapping("name").JdbcMapping.TypeCode)
		assert.Equal(t, resultmap.JDBCTypeClob, person.FindAttributeMapping("biography").JdbcMapping.TypeCode)
	})
}
