package resultmap

import (
	"context"

	"github.com/google/uuid"
)

// DomainModel is the immutable entity metamodel built at boot.
type DomainModel interface {
	// Version changes every time a model is built; cached resolutions are keyed by it.
	Version() uuid.UUID
	Dialect() Dialect
	FindEntityDescriptor(name string) (*EntityDescriptor, bool)
	EntityNames() []string
}

// ResolutionContext is what the resolver consults while resolving a memento.
type ResolutionContext interface {
	DomainModel() DomainModel
	Instantiators() *InstantiatorRegistry
}

// NamedQueryRepository is the name-keyed store of result-set mapping and query mementos
// owned by one session factory. Lookups are safe for concurrent use.
type NamedQueryRepository interface {
	RegisterResultSetMappingMemento(memento *NamedResultSetMappingMemento) error
	GetResultSetMappingMemento(name string) (*NamedResultSetMappingMemento, error)
	RegisterQueryMemento(memento *NamedQueryMemento) error
	GetQueryMemento(name string) (*NamedQueryMemento, error)
	ResultSetMappingNames() []string
	QueryNames() []string
	Close() error
}

// CacheStats reports resolution cache activity.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// QueryResult is the outcome of executing a named query.
type QueryResult struct {
	Query       string   `json:"query"`
	Mapping     string   `json:"mapping"`
	QuerySpaces []string `json:"querySpaces"`
	Rows        [][]any  `json:"rows"`
}

// SessionFactory ties a domain model, its named mementos and the resolution cache together.
type SessionFactory interface {
	ResolutionContext
	Dialect() Dialect
	NamedQueryRepository() NamedQueryRepository

	// ResolveResultSetMapping returns the sealed mapping for a registered name, resolving
	// it at most once per domain model version. The consumer sees each query space once.
	ResolveResultSetMapping(name string, consumer QuerySpaceConsumer) (*ResultSetMapping, error)
	ExecuteNamedQuery(ctx context.Context, source RowSource, name string, args ...any) (*QueryResult, error)
	// ReplaceDomainModel swaps the model and drops cached resolutions of older versions.
	ReplaceDomainModel(model DomainModel) error
	CacheStats() CacheStats
	Close() error
}
