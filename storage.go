package resultmap

import (
	"context"
)

// Rows is the cursor row reading consumes. *sql.Rows satisfies it; pgx rows are adapted.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// RowSource executes SQL and returns a cursor over the result.
type RowSource interface {
	QueryRows(ctx context.Context, sql string, args ...any) (Rows, error)
}

// DefinitionDocument is one unit of mapping definitions, usually one JSON file or object.
type DefinitionDocument struct {
	Source            string                          `json:"-"`
	Entities          []EntityDeclaration             `json:"entities,omitempty"`
	ResultSetMappings []*NamedResultSetMappingMemento `json:"resultSetMappings,omitempty"`
	NamedQueries      []*NamedQueryMemento            `json:"namedQueries,omitempty"`
}

// DefinitionSource loads definition documents at boot.
type DefinitionSource interface {
	Name() string
	Load(ctx context.Context) ([]*DefinitionDocument, error)
}
