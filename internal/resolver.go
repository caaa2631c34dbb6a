package internal

import (
	"fmt"
	"sort"

	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
)

// Resolve turns one result memento into a result builder appended to target. Query spaces
// touched by the memento are recorded on target and reported to consumer once each, after
// the memento has resolved. On failure target is left unchanged.
func Resolve(
	memento resultmap.ResultMemento,
	target *resultmap.ResultSetMapping,
	consumer resultmap.QuerySpaceConsumer,
	ctx resultmap.ResolutionContext,
) error {
	if memento == nil {
		return resultmap.NewInvalidArgumentError("result memento is nil")
	}
	return resolveAll("", []resultmap.ResultMemento{memento}, target, consumer, ctx)
}

// ResolveNamed resolves every result of a named mapping, in declaration order, as one unit.
func ResolveNamed(
	named *resultmap.NamedResultSetMappingMemento,
	target *resultmap.ResultSetMapping,
	consumer resultmap.QuerySpaceConsumer,
	ctx resultmap.ResolutionContext,
) error {
	if named == nil {
		return resultmap.NewInvalidArgumentError("named result set mapping memento is nil")
	}
	return resolveAll(named.Name, named.Results, target, consumer, ctx)
}

func resolveAll(
	name string,
	mementos []resultmap.ResultMemento,
	target *resultmap.ResultSetMapping,
	consumer resultmap.QuerySpaceConsumer,
	ctx resultmap.ResolutionContext,
) error {
	if target == nil {
		return resultmap.NewInvalidArgumentError("target result set mapping is nil")
	}
	if target.Sealed() {
		return resultmap.NewInvalidArgumentError("target result set mapping is sealed").WithDetail("mapping", name)
	}
	if ctx == nil || ctx.DomainModel() == nil {
		return resultmap.NewInvalidArgumentError("resolution context has no domain model")
	}

	r := &resolution{
		mapping: name,
		model:   ctx.DomainModel(),
		ctx:     ctx,
		spaces:  NewOrderedSet[string](),
	}

	builders := make([]resultmap.ResultBuilder, 0, len(mementos))
	for i, m := range mementos {
		b, err := r.resolve(m, fmt.Sprintf("results[%d]", i))
		if err != nil {
			return err
		}
		builders = append(builders, b)
	}

	if err := target.AddResultBuilders(builders...); err != nil {
		return err
	}
	spaces := r.spaces.ToSlice()
	if err := target.AddQuerySpaces(spaces...); err != nil {
		return err
	}
	if consumer != nil {
		for _, space := range spaces {
			consumer(space)
		}
	}

	zap.S().Debugw("resolved result set mapping",
		"mapping", name,
		"builders", len(builders),
		"querySpaces", spaces)
	return nil
}

type resolution struct {
	mapping string
	model   resultmap.DomainModel
	ctx     resultmap.ResolutionContext
	spaces  *OrderedSet[string]
}

func (r *resolution) resolve(m resultmap.ResultMemento, path string) (resultmap.ResultBuilder, error) {
	switch v := m.(type) {
	case *resultmap.EntityResultMemento:
		if v != nil {
			return r.resolveEntity(v, path)
		}
	case *resultmap.ScalarResultMemento:
		if v != nil {
			return r.resolveScalar(v, path)
		}
	case *resultmap.ConstructorResultMemento:
		if v != nil {
			return r.resolveConstructor(v, path)
		}
	case nil:
	default:
		return nil, resultmap.NewInvalidArgumentError(fmt.Sprintf("unsupported result memento %T", m)).
			WithDetail("path", path)
	}
	return nil, resultmap.NewInvalidArgumentError("result memento is nil").WithDetail("path", path)
}

func (r *resolution) entity(name, path string) (*resultmap.EntityDescriptor, error) {
	if name == "" {
		return nil, resultmap.NewInvalidArgumentError("entity name is required").WithDetail("path", path)
	}
	descriptor, ok := r.model.FindEntityDescriptor(name)
	if !ok {
		return nil, resultmap.NewUnresolvableMappingError(r.mapping, fmt.Sprintf("unknown entity %q", name)).
			WithDetail("entity", name).
			WithDetail("path", path)
	}
	return descriptor, nil
}

func (r *resolution) resolveEntity(m *resultmap.EntityResultMemento, path string) (resultmap.ResultBuilder, error) {
	descriptor, err := r.entity(m.Entity, path)
	if err != nil {
		return nil, err
	}

	aliased := MapKeys(m.ColumnAliases)
	sort.Strings(aliased)
	for _, attr := range aliased {
		if descriptor.FindAttributeMapping(attr) == nil {
			return nil, resultmap.NewUnresolvableMappingError(r.mapping,
				fmt.Sprintf("entity %q has no attribute %q", m.Entity, attr)).
				WithAttribute(attr).
				WithDetail("path", path)
		}
	}

	r.spaces.AddAll(descriptor.QuerySpaces()...)
	return resultmap.NewEntityResultBuilder(descriptor, m.ColumnAliases), nil
}

func (r *resolution) resolveScalar(m *resultmap.ScalarResultMemento, path string) (resultmap.ResultBuilder, error) {
	if m.Column == "" {
		return nil, resultmap.NewInvalidArgumentError("scalar result requires a column").WithDetail("path", path)
	}

	mapping := resultmap.JdbcMapping{TypeCode: resultmap.JDBCTypeOther, Nullable: true}

	switch {
	case m.Attribute != "":
		if m.Entity == "" {
			return nil, resultmap.NewInvalidArgumentError("scalar attribute reference requires an entity").
				WithAttribute(m.Attribute).WithDetail("path", path)
		}
		descriptor, err := r.entity(m.Entity, path)
		if err != nil {
			return nil, err
		}
		attr := descriptor.FindAttributeMapping(m.Attribute)
		if attr == nil {
			return nil, resultmap.NewUnresolvableMappingError(r.mapping,
				fmt.Sprintf("entity %q has no attribute %q", m.Entity, m.Attribute)).
				WithAttribute(m.Attribute).
				WithDetail("path", path)
		}
		mapping = attr.JdbcMapping
		if m.JDBCType != nil {
			mapping.TypeCode = *m.JDBCType
		}
	case m.JDBCType != nil:
		if m.Entity != "" {
			if _, err := r.entity(m.Entity, path); err != nil {
				return nil, err
			}
		}
		mapping = resultmap.JdbcMapping{
			TypeCode:      *m.JDBCType,
			AttributeType: attributeTypeForCode(*m.JDBCType),
			Nullable:      true,
			Lob:           m.JDBCType.IsLob(),
		}
	case m.Entity != "":
		if _, err := r.entity(m.Entity, path); err != nil {
			return nil, err
		}
	}

	return resultmap.NewScalarResultBuilder(m.Column, mapping), nil
}

func (r *resolution) resolveConstructor(m *resultmap.ConstructorResultMemento, path string) (resultmap.ResultBuilder, error) {
	if m.TargetType == "" {
		return nil, resultmap.NewInvalidArgumentError("constructor result requires a target type").WithDetail("path", path)
	}

	args := make([]resultmap.ResultBuilder, 0, len(m.Arguments))
	for i, arg := range m.Arguments {
		b, err := r.resolve(arg, fmt.Sprintf("%s.arguments[%d]", path, i))
		if err != nil {
			return nil, err
		}
		args = append(args, b)
	}

	var inst resultmap.Instantiator
	var ok bool
	if registry := r.ctx.Instantiators(); registry != nil {
		inst, ok = registry.Lookup(m.TargetType)
	}
	if !ok {
		return nil, resultmap.NewUnresolvableMappingError(r.mapping,
			fmt.Sprintf("no instantiator registered for %q", m.TargetType)).
			WithDetail("targetType", m.TargetType).
			WithDetail("path", path)
	}
	if inst.Arity != resultmap.VariadicArity && inst.Arity != len(args) {
		return nil, resultmap.NewUnresolvableMappingError(r.mapping,
			fmt.Sprintf("%s takes %d arguments, mapping declares %d", m.TargetType, inst.Arity, len(args))).
			WithDetail("targetType", m.TargetType).
			WithDetail("path", path)
	}

	return resultmap.NewConstructorResultBuilder(m.TargetType, inst, args), nil
}

func attributeTypeForCode(code resultmap.JDBCType) resultmap.AttributeType {
	switch code {
	case resultmap.JDBCTypeChar, resultmap.JDBCTypeVarchar, resultmap.JDBCTypeLongVarchar, resultmap.JDBCTypeClob,
		resultmap.JDBCTypeNChar, resultmap.JDBCTypeNVarchar, resultmap.JDBCTypeLongNVarchar, resultmap.JDBCTypeNClob:
		return resultmap.AttributeTypeString
	case resultmap.JDBCTypeBit, resultmap.JDBCTypeBoolean:
		return resultmap.AttributeTypeBool
	case resultmap.JDBCTypeTinyInt, resultmap.JDBCTypeSmallInt:
		return resultmap.AttributeTypeInt16
	case resultmap.JDBCTypeInteger:
		return resultmap.AttributeTypeInt32
	case resultmap.JDBCTypeBigInt:
		return resultmap.AttributeTypeInt64
	case resultmap.JDBCTypeFloat, resultmap.JDBCTypeReal, resultmap.JDBCTypeDouble:
		return resultmap.AttributeTypeFloat64
	case resultmap.JDBCTypeNumeric, resultmap.JDBCTypeDecimal:
		return resultmap.AttributeTypeDecimal
	case resultmap.JDBCTypeDate:
		return resultmap.AttributeTypeDate
	case resultmap.JDBCTypeTime:
		return resultmap.AttributeTypeTime
	case resultmap.JDBCTypeTimestamp:
		return resultmap.AttributeTypeTimestamp
	case resultmap.JDBCTypeBinary, resultmap.JDBCTypeVarbinary, resultmap.JDBCTypeLongVarbin, resultmap.JDBCTypeBlob:
		return resultmap.AttributeTypeBytes
	case resultmap.JDBCTypeUUID:
		return resultmap.AttributeTypeUUID
	default:
		return ""
	}
}
