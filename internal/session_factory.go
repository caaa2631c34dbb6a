package internal

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
)

type modelRef struct {
	model resultmap.DomainModel
}

// resolutionSnapshot pins the model a single resolution runs against, so a concurrent
// ReplaceDomainModel cannot mix two versions into one mapping.
type resolutionSnapshot struct {
	model         resultmap.DomainModel
	instantiators *resultmap.InstantiatorRegistry
}

func (s resolutionSnapshot) DomainModel() resultmap.DomainModel { return s.model }

func (s resolutionSnapshot) Instantiators() *resultmap.InstantiatorRegistry { return s.instantiators }

type sessionFactory struct {
	model         atomic.Pointer[modelRef]
	repository    resultmap.NamedQueryRepository
	instantiators *resultmap.InstantiatorRegistry
	cache         *ResolutionCache
	closed        atomic.Bool
}

// NewSessionFactory wires a domain model, a repository and instantiators behind a
// resolution cache.
func NewSessionFactory(
	model resultmap.DomainModel,
	repository resultmap.NamedQueryRepository,
	instantiators *resultmap.InstantiatorRegistry,
	cacheEnabled bool,
) (resultmap.SessionFactory, error) {
	if model == nil {
		return nil, resultmap.NewInvalidArgumentError("domain model is required")
	}
	if repository == nil {
		repository = NewNamedQueryRepository()
	}
	if instantiators == nil {
		instantiators = resultmap.NewInstantiatorRegistry()
	}
	sf := &sessionFactory{
		repository:    repository,
		instantiators: instantiators,
		cache:         NewResolutionCache(cacheEnabled),
	}
	sf.model.Store(&modelRef{model: model})
	sf.cache.Invalidate(model.Version())
	return sf, nil
}

func (sf *sessionFactory) DomainModel() resultmap.DomainModel {
	return sf.model.Load().model
}

func (sf *sessionFactory) Dialect() resultmap.Dialect {
	return sf.DomainModel().Dialect()
}

func (sf *sessionFactory) Instantiators() *resultmap.InstantiatorRegistry {
	return sf.instantiators
}

func (sf *sessionFactory) NamedQueryRepository() resultmap.NamedQueryRepository {
	return sf.repository
}

func (sf *sessionFactory) ResolveResultSetMapping(name string, consumer resultmap.QuerySpaceConsumer) (*resultmap.ResultSetMapping, error) {
	return sf.resolveResultSetMapping(context.Background(), name, consumer)
}

func (sf *sessionFactory) resolveResultSetMapping(ctx context.Context, name string, consumer resultmap.QuerySpaceConsumer) (*resultmap.ResultSetMapping, error) {
	if sf.closed.Load() {
		return nil, resultmap.NewRepositoryClosedError()
	}
	memento, err := sf.repository.GetResultSetMappingMemento(name)
	if err != nil {
		return nil, err
	}

	snapshot := resolutionSnapshot{model: sf.DomainModel(), instantiators: sf.instantiators}
	start := time.Now()
	mapping, err := sf.cache.GetOrResolve(ctx, name, snapshot.model.Version(), func() (*resultmap.ResultSetMapping, error) {
		target := resultmap.NewResultSetMapping(name)
		if err := ResolveNamed(memento, target, nil, snapshot); err != nil {
			return nil, err
		}
		return target, nil
	})
	EmitResolutionLatency(ctx, name, time.Since(start).Microseconds(), err == nil)
	if err != nil {
		zap.S().Warnw("failed to resolve result set mapping", "mapping", name, "error", err)
		return nil, err
	}

	if consumer != nil {
		for _, space := range mapping.QuerySpaces() {
			consumer(space)
		}
	}
	return mapping, nil
}

func (sf *sessionFactory) ExecuteNamedQuery(ctx context.Context, source resultmap.RowSource, name string, args ...any) (*resultmap.QueryResult, error) {
	if source == nil {
		return nil, resultmap.NewInvalidArgumentError("row source is required")
	}
	if sf.closed.Load() {
		return nil, resultmap.NewRepositoryClosedError()
	}
	query, err := sf.repository.GetQueryMemento(name)
	if err != nil {
		return nil, err
	}
	if query.ResultSetMapping == "" {
		return nil, resultmap.NewInvalidArgumentError("named query has no result set mapping").WithDetail("query", name)
	}

	spaces := NewOrderedSet[string]()
	mapping, err := sf.resolveResultSetMapping(ctx, query.ResultSetMapping, func(space string) { spaces.Add(space) })
	if err != nil {
		return nil, err
	}
	spaces.AddAll(query.QuerySpaces...)

	if timeout := query.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows, err := source.QueryRows(ctx, query.SQL, args...)
	if err != nil {
		return nil, resultmap.NewRowReadError("named query "+name+" failed", err)
	}

	result := &resultmap.QueryResult{
		Query:       name,
		Mapping:     query.ResultSetMapping,
		QuerySpaces: spaces.ToSlice(),
		Rows:        [][]any{},
	}
	count, err := ReadRows(ctx, rows, mapping, func(tuple []any) error {
		result.Rows = append(result.Rows, tuple)
		return nil
	})
	if err != nil {
		return nil, err
	}
	EmitRowCount(ctx, name, count)
	zap.S().Debugw("executed named query", "query", name, "rows", count)
	return result, nil
}

func (sf *sessionFactory) ReplaceDomainModel(model resultmap.DomainModel) error {
	if model == nil {
		return resultmap.NewInvalidArgumentError("domain model is required")
	}
	if sf.closed.Load() {
		return resultmap.NewRepositoryClosedError()
	}
	previous := sf.model.Swap(&modelRef{model: model})
	sf.cache.Invalidate(model.Version())
	zap.S().Infow("domain model replaced",
		"previous", previous.model.Version().String(),
		"current", model.Version().String())
	return nil
}

func (sf *sessionFactory) CacheStats() resultmap.CacheStats {
	return sf.cache.Stats()
}

func (sf *sessionFactory) Close() error {
	if sf.closed.Swap(true) {
		return nil
	}
	sf.cache.Clear()
	return sf.repository.Close()
}

// ResolveAll resolves every registered result set mapping once and reports every failure.
func ResolveAll(sf resultmap.SessionFactory) error {
	var errs []error
	for _, name := range sf.NamedQueryRepository().ResultSetMappingNames() {
		if _, err := sf.ResolveResultSetMapping(name, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
