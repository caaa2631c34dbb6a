package factory

import (
	"context"
	"fmt"

	"github.com/lychee-technology/resultmap"
	"github.com/lychee-technology/resultmap/internal"
	"go.uber.org/zap"
)

// Option customizes boot beyond what Config expresses.
type Option func(*bootOptions)

type bootOptions struct {
	ctx           context.Context
	sources       []resultmap.DefinitionSource
	entities      []any
	instantiators *resultmap.InstantiatorRegistry
	instErrs      []error
}

// WithContext bounds definition loading.
func WithContext(ctx context.Context) Option {
	return func(o *bootOptions) { o.ctx = ctx }
}

// WithDefinitionSource adds a source loaded after the configured directory and bucket.
func WithDefinitionSource(source resultmap.DefinitionSource) Option {
	return func(o *bootOptions) { o.sources = append(o.sources, source) }
}

// WithDefinitions adds in-memory definition documents.
func WithDefinitions(name string, docs ...*resultmap.DefinitionDocument) Option {
	return WithDefinitionSource(internal.NewStaticDefinitionSource(name, docs...))
}

// WithEntities declares entities from tagged Go structs (see the `orm` tag).
func WithEntities(structs ...any) Option {
	return func(o *bootOptions) { o.entities = append(o.entities, structs...) }
}

// WithInstantiator registers a constructor target by name.
func WithInstantiator(name string, inst resultmap.Instantiator) Option {
	return func(o *bootOptions) {
		if err := o.instantiators.Register(name, inst); err != nil {
			o.instErrs = append(o.instErrs, err)
		}
	}
}

// WithInstantiatorFunc registers fn, a func returning T or (T, error), as a constructor target.
func WithInstantiatorFunc(name string, fn any) Option {
	return func(o *bootOptions) {
		if err := o.instantiators.RegisterFunc(name, fn); err != nil {
			o.instErrs = append(o.instErrs, err)
		}
	}
}

// WithFallbackInstantiator serves constructor targets that have no registered instantiator.
func WithFallbackInstantiator(fn func(targetType string) (resultmap.Instantiator, bool)) Option {
	return func(o *bootOptions) { o.instantiators.SetFallback(fn) }
}

// NewSessionFactoryWithConfig boots a SessionFactory: definitions are loaded, the domain model
// is built, mementos are registered and, with Resolution.ValidateOnBoot, every mapping is
// resolved once so broken definitions fail here instead of at first use.
//
// Usage:
//
//	import (
//	    "github.com/lychee-technology/resultmap"
//	    "github.com/lychee-technology/resultmap/factory"
//	)
//
//	config := resultmap.DefaultConfig()
//	config.Definitions.Directory = "./definitions"
//	sf, err := factory.NewSessionFactoryWithConfig(config,
//	    factory.WithInstantiatorFunc("PersonSummary", NewPersonSummary))
//	if err != nil {
//	    // handle error
//	}
//	defer sf.Close()
func NewSessionFactoryWithConfig(config *resultmap.Config, opts ...Option) (resultmap.SessionFactory, error) {
	if config == nil {
		config = resultmap.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &bootOptions{ctx: context.Background(), instantiators: resultmap.NewInstantiatorRegistry()}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.instErrs) > 0 {
		return nil, o.instErrs[0]
	}

	dialect, err := internal.LookupDialect(config.Dialect.Name)
	if err != nil {
		return nil, err
	}

	sources, err := definitionSources(o.ctx, config, o.sources)
	if err != nil {
		return nil, err
	}
	docs, err := loadDefinitions(o.ctx, sources)
	if err != nil {
		return nil, err
	}

	var decls []resultmap.EntityDeclaration
	for _, doc := range docs {
		decls = append(decls, doc.Entities...)
	}
	for _, v := range o.entities {
		decl, err := internal.DeclareEntity(v)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}

	model, err := internal.BuildMetamodel(dialect, decls)
	if err != nil {
		return nil, err
	}

	repository := internal.NewNamedQueryRepository()
	if err := registerDefinitions(repository, docs); err != nil {
		return nil, err
	}

	sf, err := internal.NewSessionFactory(model, repository, o.instantiators, config.Resolution.CacheEnabled)
	if err != nil {
		return nil, err
	}

	if config.Resolution.ValidateOnBoot {
		if err := internal.ResolveAll(sf); err != nil {
			_ = sf.Close()
			return nil, fmt.Errorf("failed to resolve result set mappings: %w", err)
		}
	}

	zap.S().Infow("session factory ready",
		"dialect", dialect.Name(),
		"entities", len(model.EntityNames()),
		"mappings", len(repository.ResultSetMappingNames()),
		"queries", len(repository.QueryNames()))
	return sf, nil
}

func definitionSources(ctx context.Context, config *resultmap.Config, extra []resultmap.DefinitionSource) ([]resultmap.DefinitionSource, error) {
	var sources []resultmap.DefinitionSource
	defs := config.Definitions
	if defs.Directory != "" {
		sources = append(sources, internal.NewDirectoryDefinitionSource(defs.Directory, defs.ValidateDocuments))
	}
	if defs.S3.Enabled() {
		client, err := internal.NewS3Client(ctx, defs.S3)
		if err != nil {
			return nil, err
		}
		sources = append(sources, internal.NewS3DefinitionSource(client, defs.S3.Bucket, defs.S3.Prefix, defs.ValidateDocuments))
	}
	return append(sources, extra...), nil
}

func loadDefinitions(ctx context.Context, sources []resultmap.DefinitionSource) ([]*resultmap.DefinitionDocument, error) {
	var docs []*resultmap.DefinitionDocument
	for _, source := range sources {
		loaded, err := source.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load definitions from %s: %w", source.Name(), err)
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

func registerDefinitions(repository resultmap.NamedQueryRepository, docs []*resultmap.DefinitionDocument) error {
	for _, doc := range docs {
		for _, m := range doc.ResultSetMappings {
			if err := repository.RegisterResultSetMappingMemento(m); err != nil {
				return fmt.Errorf("%s: %w", doc.Source, err)
			}
		}
	}
	for _, doc := range docs {
		for _, q := range doc.NamedQueries {
			if q.ResultSetMapping != "" {
				if _, err := repository.GetResultSetMappingMemento(q.ResultSetMapping); err != nil {
					return fmt.Errorf("%s: named query %s: %w", doc.Source, q.Name, err)
				}
			}
			if err := repository.RegisterQueryMemento(q); err != nil {
				return fmt.Errorf("%s: %w", doc.Source, err)
			}
		}
	}
	return nil
}
