package internal

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
)

// domainModel is an immutable set of entity descriptors resolved against one dialect.
type domainModel struct {
	version  uuid.UUID
	dialect  resultmap.Dialect
	entities map[string]*resultmap.EntityDescriptor
	names    []string
}

// BuildMetamodel resolves every declaration against the dialect. It fails on the first
// invalid declaration so configuration errors surface at boot rather than at query time.
func BuildMetamodel(dialect resultmap.Dialect, declarations []resultmap.EntityDeclaration) (resultmap.DomainModel, error) {
	if dialect == nil {
		return nil, resultmap.NewInvalidArgumentError("dialect is required to build a domain model")
	}

	model := &domainModel{
		version:  uuid.New(),
		dialect:  dialect,
		entities: make(map[string]*resultmap.EntityDescriptor, len(declarations)),
	}

	for _, decl := range declarations {
		if decl.Name == "" {
			return nil, resultmap.NewInvalidArgumentError("entity name must not be empty")
		}
		if _, exists := model.entities[decl.Name]; exists {
			return nil, resultmap.NewDuplicateNameError("entity", decl.Name)
		}
		descriptor, err := buildEntityDescriptor(dialect, decl)
		if err != nil {
			return nil, err
		}
		model.entities[decl.Name] = descriptor
		model.names = append(model.names, decl.Name)
	}
	sort.Strings(model.names)

	zap.S().Infow("domain model built",
		"dialect", dialect.Name(),
		"entities", len(model.names),
		"version", model.version.String())

	return model, nil
}

func buildEntityDescriptor(dialect resultmap.Dialect, decl resultmap.EntityDeclaration) (*resultmap.EntityDescriptor, error) {
	table := decl.Table
	if table == "" {
		table = decl.Name
	}

	seen := NewOrderedSet[string]()
	attributes := make([]*resultmap.AttributeMapping, 0, len(decl.Attributes))
	for _, attrDecl := range decl.Attributes {
		if attrDecl.Name == "" {
			return nil, resultmap.NewInvalidArgumentError("attribute name must not be empty").
				WithDetail("entity", decl.Name)
		}
		if !seen.Add(attrDecl.Name) {
			return nil, resultmap.NewDuplicateNameError("attribute", decl.Name).WithAttribute(attrDecl.Name)
		}

		jdbc, err := ResolveJdbcMapping(attrDecl.Type, attrDecl.Nationalized, attrDecl.Lob, dialect)
		if err != nil {
			var me *resultmap.MappingError
			if errors.As(err, &me) {
				me.Name = decl.Name
				me.Attribute = attrDecl.Name
			}
			return nil, err
		}
		jdbc.Nullable = attrDecl.Nullable && !attrDecl.Identifier

		attributes = append(attributes, resultmap.NewAttributeMapping(decl.Name, attrDecl, table, jdbc))
	}

	descriptor := resultmap.NewEntityDescriptor(decl.Name, table, decl.SecondaryTables, attributes)
	if decl.GoType != nil {
		descriptor.WithGoType(decl.GoType, structInstantiator(decl.GoType, attributes))
	}
	return descriptor, nil
}

func (m *domainModel) Version() uuid.UUID { return m.version }

func (m *domainModel) Dialect() resultmap.Dialect { return m.dialect }

func (m *domainModel) FindEntityDescriptor(name string) (*resultmap.EntityDescriptor, bool) {
	d, ok := m.entities[name]
	return d, ok
}

func (m *domainModel) EntityNames() []string {
	return append([]string(nil), m.names...)
}
