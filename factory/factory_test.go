package factory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/lychee-technology/resultmap"
	"github.com/lychee-technology/resultmap/internal"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gadget struct {
	ID    int64  `orm:"id"`
	Label string `orm:"nationalized"`
}

type gadgetLabel struct {
	ID    int64
	Label string
}

func newGadgetLabel(id int64, label string) gadgetLabel {
	return gadgetLabel{ID: id, Label: label}
}

func gadgetDocument(t *testing.T) *resultmap.DefinitionDocument {
	t.Helper()
	doc, err := internal.ParseDefinitionDocument("gadgets", []byte(`{
	  "resultSetMappings": [
	    {"name": "GadgetMapping", "results": [{"kind": "entity", "entity": "gadget"}]},
	    {"name": "GadgetLabel", "results": [{"kind": "constructor", "targetType": "GadgetLabel", "arguments": [
	      {"kind": "scalar", "column": "id", "entity": "gadget", "attribute": "id"},
	      {"kind": "scalar", "column": "label", "entity": "gadget", "attribute": "label"}
	    ]}]}
	  ],
	  "namedQueries": [
	    {"name": "gadgets", "sql": "SELECT id, label FROM gadget", "resultSetMapping": "GadgetMapping"},
	    {"name": "gadgetLabels", "sql": "SELECT id, label FROM gadget", "resultSetMapping": "GadgetLabel", "querySpaces": ["gadget_audit"]}
	  ]
	}`), true)
	require.NoError(t, err)
	return doc
}

func testConfig() *resultmap.Config {
	config := resultmap.DefaultConfig()
	config.Dialect.Name = "sqlserver"
	return config
}

func TestNewSessionFactoryWithConfig_StructEntities(t *testing.T) {
	sf, err := NewSessionFactoryWithConfig(testConfig(),
		WithContext(context.Background()),
		WithEntities(gadget{}),
		WithDefinitions("gadgets", gadgetDocument(t)),
		WithInstantiatorFunc("GadgetLabel", newGadgetLabel))
	require.NoError(t, err)
	defer sf.Close()

	assert.Equal(t, "sqlserver", sf.Dialect().Name())
	assert.Equal(t, []string{"gadget"}, sf.DomainModel().EntityNames())
	assert.Equal(t, []string{"GadgetLabel", "GadgetMapping"}, sf.NamedQueryRepository().ResultSetMappingNames())
	assert.Equal(t, 2, sf.CacheStats().Entries, "boot validation resolves every mapping")

	entity, ok := sf.DomainModel().FindEntityDescriptor("gadget")
	require.True(t, ok)
	assert.Equal(t, resultmap.JDBCTypeNVarchar, entity.FindAttributeMapping("label").JdbcMapping.TypeCode)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	source := internal.NewPgxRowSource(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, label FROM gadget")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "label"}).AddRow(int64(1), "Łódź"))
	result, err := sf.ExecuteNamedQuery(context.Background(), source, "gadgets")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, &gadget{ID: 1, Label: "Łódź"}, result.Rows[0][0])

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, label FROM gadget")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "label"}).AddRow(int64(2), "Kraków"))
	result, err = sf.ExecuteNamedQuery(context.Background(), source, "gadgetLabels")
	require.NoError(t, err)
	assert.Equal(t, []string{"gadget_audit"}, result.QuerySpaces)
	assert.Equal(t, [][]any{{gadgetLabel{ID: 2, Label: "Kraków"}}}, result.Rows)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSessionFactoryWithConfig_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.json"), []byte(`{
	  "entities": [{"name": "Person", "table": "person", "attributes": [
	    {"name": "id", "type": "int64", "id": true},
	    {"name": "name", "type": "string", "nationalized": true}
	  ]}],
	  "resultSetMappings": [{"name": "PersonMapping", "results": [{"kind": "entity", "entity": "Person"}]}],
	  "namedQueries": [{"name": "people", "sql": "SELECT * FROM person", "resultSetMapping": "PersonMapping"}]
	}`), 0o644))

	config := resultmap.DefaultConfig()
	config.Definitions.Directory = dir
	config.Resolution.CacheEnabled = false

	sf, err := NewSessionFactoryWithConfig(config)
	require.NoError(t, err)
	defer sf.Close()

	mapping, err := sf.ResolveResultSetMapping("PersonMapping", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"person"}, mapping.QuerySpaces())
	assert.Equal(t, 0, sf.CacheStats().Entries)

	query, err := sf.NamedQueryRepository().GetQueryMemento("people")
	require.NoError(t, err)
	assert.Equal(t, "PersonMapping", query.ResultSetMapping)
}

func TestNewSessionFactoryWithConfig_BootValidation(t *testing.T) {
	doc := &resultmap.DefinitionDocument{
		Source: "broken",
		ResultSetMappings: []*resultmap.NamedResultSetMappingMemento{
			{Name: "GhostMapping", Results: []resultmap.ResultMemento{&resultmap.EntityResultMemento{Entity: "Ghost"}}},
		},
	}

	_, err := NewSessionFactoryWithConfig(testConfig(), WithDefinitions("broken", doc))
	require.Error(t, err)
	assert.True(t, resultmap.IsUnresolvableMappingError(err))

	config := testConfig()
	config.Resolution.ValidateOnBoot = false
	sf, err := NewSessionFactoryWithConfig(config, WithDefinitions("broken", doc))
	require.NoError(t, err)
	defer sf.Close()

	_, err = sf.ResolveResultSetMapping("GhostMapping", nil)
	assert.True(t, resultmap.IsUnresolvableMappingError(err))
}

func TestNewSessionFactoryWithConfig_Errors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		config := resultmap.DefaultConfig()
		config.Database.MaxConnections = 0
		_, err := NewSessionFactoryWithConfig(config)
		var configErr *resultmap.ConfigError
		require.True(t, errors.As(err, &configErr))
		assert.Equal(t, "database.maxConnections", configErr.Field)
	})

	t.Run("unknown dialect", func(t *testing.T) {
		config := resultmap.DefaultConfig()
		config.Dialect.Name = "db2"
		_, err := NewSessionFactoryWithConfig(config)
		assert.True(t, resultmap.IsNotFoundError(err))
	})

	t.Run("missing directory", func(t *testing.T) {
		config := resultmap.DefaultConfig()
		config.Definitions.Directory = filepath.Join(t.TempDir(), "missing")
		_, err := NewSessionFactoryWithConfig(config)
		assert.True(t, resultmap.IsNotFoundError(err))
		assert.ErrorContains(t, err, "dir:")
	})

	t.Run("query references unknown mapping", func(t *testing.T) {
		doc := &resultmap.DefinitionDocument{
			Source:       "orphans",
			NamedQueries: []*resultmap.NamedQueryMemento{{Name: "orphan", SQL: "SELECT 1", ResultSetMapping: "Nowhere"}},
		}
		_, err := NewSessionFactoryWithConfig(testConfig(), WithDefinitions("orphans", doc))
		assert.True(t, resultmap.IsNotFoundError(err))
		assert.ErrorContains(t, err, "orphan")
	})

	t.Run("conflicting definitions", func(t *testing.T) {
		first := &resultmap.DefinitionDocument{Source: "a", NamedQueries: []*resultmap.NamedQueryMemento{{Name: "q", SQL: "SELECT 1"}}}
		second := &resultmap.DefinitionDocument{Source: "b", NamedQueries: []*resultmap.NamedQueryMemento{{Name: "q", SQL: "SELECT 2"}}}
		_, err := NewSessionFactoryWithConfig(testConfig(), WithDefinitions("both", first, second))
		assert.True(t, resultmap.IsDuplicateNameError(err))
	})

	t.Run("nationalized attribute on duckdb", func(t *testing.T) {
		config := resultmap.DefaultConfig()
		config.Dialect.Name = "duckdb"
		_, err := NewSessionFactoryWithConfig(config, WithEntities(gadget{}))
		assert.True(t, resultmap.IsUnsupportedDialectFeatureError(err))
	})

	t.Run("duplicate instantiator", func(t *testing.T) {
		_, err := NewSessionFactoryWithConfig(testConfig(),
			WithInstantiatorFunc("GadgetLabel", newGadgetLabel),
			WithInstantiatorFunc("GadgetLabel", newGadgetLabel))
		assert.True(t, resultmap.IsDuplicateNameError(err))
	})

	t.Run("bad entity struct", func(t *testing.T) {
		_, err := NewSessionFactoryWithConfig(testConfig(), WithEntities(42))
		assert.True(t, resultmap.IsInvalidArgumentError(err))
	})
}

func TestWithFallbackInstantiator(t *testing.T) {
	doc := &resultmap.DefinitionDocument{
		Source: "tuples",
		ResultSetMappings: []*resultmap.NamedResultSetMappingMemento{{
			Name: "Tuple",
			Results: []resultmap.ResultMemento{&resultmap.ConstructorResultMemento{
				TargetType: "Anything",
				Arguments:  []resultmap.ResultMemento{&resultmap.ScalarResultMemento{Column: "a"}, &resultmap.ScalarResultMemento{Column: "b"}},
			}},
		}},
	}

	_, err := NewSessionFactoryWithConfig(testConfig(), WithDefinitions("tuples", doc))
	require.True(t, resultmap.IsUnresolvableMappingError(err))

	sf, err := NewSessionFactoryWithConfig(testConfig(),
		WithDefinitions("tuples", doc),
		WithFallbackInstantiator(func(targetType string) (resultmap.Instantiator, bool) {
			return resultmap.Instantiator{Arity: resultmap.VariadicArity, New: func(args []any) (any, error) {
				return append([]any{targetType}, args...), nil
			}}, true
		}))
	require.NoError(t, err)
	defer sf.Close()

	mapping, err := sf.ResolveResultSetMapping("Tuple", nil)
	require.NoError(t, err)
	tuple, err := mapping.BuildRow(resultmap.RowValues{Index: resultmap.NewColumnIndex([]string{"a", "b"}), Values: []any{1, "x"}})
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"Anything", 1, "x"}}, tuple)
}
