package internal

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
)

type repositorySnapshot struct {
	mappings map[string]*resultmap.NamedResultSetMappingMemento
	queries  map[string]*resultmap.NamedQueryMemento
}

// namedQueryRepository publishes an immutable snapshot after every registration, so lookups
// never take a lock. Registrations serialize on mu.
type namedQueryRepository struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[repositorySnapshot]
	closed   atomic.Bool
}

// NewNamedQueryRepository creates an empty repository.
func NewNamedQueryRepository() resultmap.NamedQueryRepository {
	r := &namedQueryRepository{}
	r.snapshot.Store(&repositorySnapshot{
		mappings: map[string]*resultmap.NamedResultSetMappingMemento{},
		queries:  map[string]*resultmap.NamedQueryMemento{},
	})
	return r
}

// RegisterResultSetMappingMemento stores a copy of memento; later changes by the caller
// are not seen.
func (r *namedQueryRepository) RegisterResultSetMappingMemento(memento *resultmap.NamedResultSetMappingMemento) error {
	if memento == nil || strings.TrimSpace(memento.Name) == "" {
		return resultmap.NewInvalidArgumentError("result set mapping memento must have a name")
	}
	for i, result := range memento.Results {
		if result == nil {
			return resultmap.NewInvalidArgumentError(fmt.Sprintf("result %d is nil", i)).
				WithDetail("mapping", memento.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return resultmap.NewRepositoryClosedError()
	}

	current := r.snapshot.Load()
	if existing, ok := current.mappings[memento.Name]; ok {
		if existing.Equivalent(memento) {
			return nil
		}
		return resultmap.NewDuplicateNameError("result set mapping", memento.Name)
	}

	next := &repositorySnapshot{
		mappings: make(map[string]*resultmap.NamedResultSetMappingMemento, len(current.mappings)+1),
		queries:  current.queries,
	}
	for k, v := range current.mappings {
		next.mappings[k] = v
	}
	next.mappings[memento.Name] = memento.Clone()
	r.snapshot.Store(next)

	zap.S().Debugw("registered result set mapping", "name", memento.Name, "results", len(memento.Results))
	return nil
}

func (r *namedQueryRepository) GetResultSetMappingMemento(name string) (*resultmap.NamedResultSetMappingMemento, error) {
	if r.closed.Load() {
		return nil, resultmap.NewRepositoryClosedError()
	}
	memento, ok := r.snapshot.Load().mappings[name]
	if !ok {
		return nil, resultmap.NewNotFoundError("result set mapping", name)
	}
	return memento, nil
}

func (r *namedQueryRepository) RegisterQueryMemento(memento *resultmap.NamedQueryMemento) error {
	if memento == nil || strings.TrimSpace(memento.Name) == "" {
		return resultmap.NewInvalidArgumentError("query memento must have a name")
	}
	if strings.TrimSpace(memento.SQL) == "" {
		return resultmap.NewInvalidArgumentError("query memento must have SQL").WithDetail("query", memento.Name)
	}
	if memento.TimeoutSeconds < 0 {
		return resultmap.NewInvalidArgumentError("query timeout must not be negative").WithDetail("query", memento.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return resultmap.NewRepositoryClosedError()
	}

	current := r.snapshot.Load()
	if existing, ok := current.queries[memento.Name]; ok {
		if existing.Equivalent(memento) {
			return nil
		}
		return resultmap.NewDuplicateNameError("query", memento.Name)
	}

	next := &repositorySnapshot{
		mappings: current.mappings,
		queries:  make(map[string]*resultmap.NamedQueryMemento, len(current.queries)+1),
	}
	for k, v := range current.queries {
		next.queries[k] = v
	}
	next.queries[memento.Name] = memento.Clone()
	r.snapshot.Store(next)

	zap.S().Debugw("registered named query", "name", memento.Name, "mapping", memento.ResultSetMapping)
	return nil
}

func (r *namedQueryRepository) GetQueryMemento(name string) (*resultmap.NamedQueryMemento, error) {
	if r.closed.Load() {
		return nil, resultmap.NewRepositoryClosedError()
	}
	memento, ok := r.snapshot.Load().queries[name]
	if !ok {
		return nil, resultmap.NewNotFoundError("query", name)
	}
	return memento, nil
}

func (r *namedQueryRepository) ResultSetMappingNames() []string {
	names := MapKeys(r.snapshot.Load().mappings)
	sort.Strings(names)
	return names
}

func (r *namedQueryRepository) QueryNames() []string {
	names := MapKeys(r.snapshot.Load().queries)
	sort.Strings(names)
	return names
}

// Close drops every registration. Later lookups and registrations fail.
func (r *namedQueryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Swap(true) {
		return nil
	}
	r.snapshot.Store(&repositorySnapshot{
		mappings: map[string]*resultmap.NamedResultSetMappingMemento{},
		queries:  map[string]*resultmap.NamedQueryMemento{},
	})
	zap.S().Infow("named query repository closed")
	return nil
}
