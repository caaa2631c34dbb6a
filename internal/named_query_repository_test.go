package internal

import (
	"fmt"
	"sync"
	"testing"

	"github.com/lychee-technology/resultmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityMapping(name, entity string) *resultmap.NamedResultSetMappingMemento {
	return &resultmap.NamedResultSetMappingMemento{
		Name:    name,
		Results: []resultmap.ResultMemento{&resultmap.EntityResultMemento{Entity: entity}},
	}
}

func TestNamedQueryRepository_RoundTrip(t *testing.T) {
	repo := NewNamedQueryRepository()
	memento := entityMapping("PersonMapping", "Person")

	require.NoError(t, repo.RegisterResultSetMappingMemento(memento))

	got, err := repo.GetResultSetMappingMemento("PersonMapping")
	require.NoError(t, err)
	assert.Equal(t, memento, got)
	again, err := repo.GetResultSetMappingMemento("PersonMapping")
	require.NoError(t, err)
	assert.Same(t, got, again)

	query := &resultmap.NamedQueryMemento{Name: "allPeople", SQL: "SELECT * FROM person", ResultSetMapping: "PersonMapping"}
	require.NoError(t, repo.RegisterQueryMemento(query))
	gotQuery, err := repo.GetQueryMemento("allPeople")
	require.NoError(t, err)
	assert.Equal(t, query, gotQuery)

	assert.Equal(t, []string{"PersonMapping"}, repo.ResultSetMappingNames())
	assert.Equal(t, []string{"allPeople"}, repo.QueryNames())
}

func TestNamedQueryRepository_NotFound(t *testing.T) {
	repo := NewNamedQueryRepository()

	_, err := repo.GetResultSetMappingMemento("missing")
	require.Error(t, err)
	assert.True(t, resultmap.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "missing")

	_, err = repo.GetQueryMemento("missing")
	assert.True(t, resultmap.IsNotFoundError(err))
}

func TestNamedQueryRepository_Reregistration(t *testing.T) {
	repo := NewNamedQueryRepository()
	require.NoError(t, repo.RegisterResultSetMappingMemento(entityMapping("PersonMapping", "Person")))
	first, err := repo.GetResultSetMappingMemento("PersonMapping")
	require.NoError(t, err)

	// An equivalent definition is accepted and the first instance stays registered.
	require.NoError(t, repo.RegisterResultSetMappingMemento(entityMapping("PersonMapping", "Person")))
	got, err := repo.GetResultSetMappingMemento("PersonMapping")
	require.NoError(t, err)
	assert.Same(t, first, got)

	err = repo.RegisterResultSetMappingMemento(entityMapping("PersonMapping", "Address"))
	require.Error(t, err)
	assert.True(t, resultmap.IsDuplicateNameError(err))

	query := &resultmap.NamedQueryMemento{Name: "q", SQL: "SELECT 1"}
	require.NoError(t, repo.RegisterQueryMemento(query))
	require.NoError(t, repo.RegisterQueryMemento(&resultmap.NamedQueryMemento{Name: "q", SQL: "SELECT 1"}))
	err = repo.RegisterQueryMemento(&resultmap.NamedQueryMemento{Name: "q", SQL: "SELECT 2"})
	assert.True(t, resultmap.IsDuplicateNameError(err))
}

func TestNamedQueryRepository_RegistrationCopiesMementos(t *testing.T) {
	repo := NewNamedQueryRepository()
	code := resultmap.JDBCTypeNVarchar
	memento := &resultmap.NamedResultSetMappingMemento{
		Name: "Card",
		Results: []resultmap.ResultMemento{
			&resultmap.EntityResultMemento{Entity: "Person", ColumnAliases: map[string]string{"name": "full_name"}},
			&resultmap.ConstructorResultMemento{TargetType: "Card", Arguments: []resultmap.ResultMemento{
				&resultmap.ScalarResultMemento{Column: "label", JDBCType: &code},
			}},
		},
	}
	require.NoError(t, repo.RegisterResultSetMappingMemento(memento))

	memento.Results[0].(*resultmap.EntityResultMemento).ColumnAliases["name"] = "nickname"
	memento.Results[1].(*resultmap.ConstructorResultMemento).Arguments[0].(*resultmap.ScalarResultMemento).Column = "other"
	code = resultmap.JDBCTypeVarchar
	memento.Results = append(memento.Results, &resultmap.EntityResultMemento{Entity: "Address"})

	stored, err := repo.GetResultSetMappingMemento("Card")
	require.NoError(t, err)
	require.Len(t, stored.Results, 2)
	assert.Equal(t, "full_name", stored.Results[0].(*resultmap.EntityResultMemento).ColumnAliases["name"])
	scalar := stored.Results[1].(*resultmap.ConstructorResultMemento).Arguments[0].(*resultmap.ScalarResultMemento)
	assert.Equal(t, "label", scalar.Column)
	assert.Equal(t, resultmap.JDBCTypeNVarchar, *scalar.JDBCType)
	assert.False(t, stored.Equivalent(memento))

	query := &resultmap.NamedQueryMemento{Name: "cards", SQL: "SELECT 1", QuerySpaces: []string{"card"}}
	require.NoError(t, repo.RegisterQueryMemento(query))
	query.QuerySpaces[0] = "person"
	query.SQL = "SELECT 2"
	storedQuery, err := repo.GetQueryMemento("cards")
	require.NoError(t, err)
	assert.Equal(t, []string{"card"}, storedQuery.QuerySpaces)
	assert.Equal(t, "SELECT 1", storedQuery.SQL)
}

func TestNamedQueryRepository_InvalidArguments(t *testing.T) {
	repo := NewNamedQueryRepository()

	assert.True(t, resultmap.IsInvalidArgumentError(repo.RegisterResultSetMappingMemento(nil)))
	assert.True(t, resultmap.IsInvalidArgumentError(repo.RegisterResultSetMappingMemento(entityMapping(" ", "Person"))))
	assert.True(t, resultmap.IsInvalidArgumentError(repo.RegisterResultSetMappingMemento(
		&resultmap.NamedResultSetMappingMemento{Name: "x", Results: []resultmap.ResultMemento{nil}})))

	assert.True(t, resultmap.IsInvalidArgumentError(repo.RegisterQueryMemento(&resultmap.NamedQueryMemento{Name: "q"})))
	assert.True(t, resultmap.IsInvalidArgumentError(repo.RegisterQueryMemento(
		&resultmap.NamedQueryMemento{Name: "q", SQL: "SELECT 1", TimeoutSeconds: -1})))
}

func TestNamedQueryRepository_Close(t *testing.T) {
	repo := NewNamedQueryRepository()
	require.NoError(t, repo.RegisterResultSetMappingMemento(entityMapping("PersonMapping", "Person")))

	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	_, err := repo.GetResultSetMappingMemento("PersonMapping")
	assert.True(t, resultmap.IsRepositoryClosedError(err))
	_, err = repo.GetQueryMemento("q")
	assert.True(t, resultmap.IsRepositoryClosedError(err))
	assert.True(t, resultmap.IsRepositoryClosedError(repo.RegisterResultSetMappingMemento(entityMapping("Other", "Person"))))
	assert.Empty(t, repo.ResultSetMappingNames())
}

func TestNamedQueryRepository_ConcurrentAccess(t *testing.T) {
	repo := NewNamedQueryRepository()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.RegisterResultSetMappingMemento(entityMapping(fmt.Sprintf("m%02d", i), "Person")))
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.GetResultSetMappingMemento(fmt.Sprintf("m%02d", i))
			_ = repo.ResultSetMappingNames()
		}(i)
	}
	wg.Wait()

	names := repo.ResultSetMappingNames()
	require.Len(t, names, 20)
	assert.Equal(t, "m00", names[0])
	assert.Equal(t, "m19", names[19])
}
