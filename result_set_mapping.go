package resultmap

import (
	"fmt"
	"strings"
)

// ResultBuilderKind mirrors the memento kind a builder was resolved from.
type ResultBuilderKind = ResultMementoKind

// ResultBuilder is one unit of row-reading logic. The set of implementations is closed:
// *EntityResultBuilder, *ScalarResultBuilder and *ConstructorResultBuilder.
type ResultBuilder interface {
	Kind() ResultBuilderKind
	// Columns returns the column labels the builder reads, in read order.
	Columns() []string
	Build(row RowValues) (any, error)
	isResultBuilder()
}

// ColumnIndex maps lower-cased column labels to positions. The first occurrence of a
// label wins.
type ColumnIndex map[string]int

// NewColumnIndex indexes the labels of a result set.
func NewColumnIndex(columns []string) ColumnIndex {
	idx := make(ColumnIndex, len(columns))
	for i, c := range columns {
		key := strings.ToLower(c)
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// RowValues is one result row addressed by column label.
type RowValues struct {
	Index  ColumnIndex
	Values []any
}

// Lookup returns the raw value of a column, matching labels case-insensitively.
func (r RowValues) Lookup(label string) (any, bool) {
	i, ok := r.Index[strings.ToLower(label)]
	if !ok || i >= len(r.Values) {
		return nil, false
	}
	return r.Values[i], true
}

// EntityResultBuilder materializes one entity per row.
type EntityResultBuilder struct {
	descriptor *EntityDescriptor
	columns    []string
}

// NewEntityResultBuilder reads every attribute of the entity, using the alias for an
// attribute when one is given and the mapped column otherwise.
func NewEntityResultBuilder(descriptor *EntityDescriptor, aliases map[string]string) *EntityResultBuilder {
	attrs := descriptor.AttributeMappings()
	columns := make([]string, len(attrs))
	for i, attr := range attrs {
		if alias, ok := aliases[attr.Name]; ok && alias != "" {
			columns[i] = alias
		} else {
			columns[i] = attr.Column
		}
	}
	return &EntityResultBuilder{descriptor: descriptor, columns: columns}
}

func (*EntityResultBuilder) Kind() ResultBuilderKind { return ResultMementoKindEntity }
func (*EntityResultBuilder) isResultBuilder()        {}

func (b *EntityResultBuilder) Descriptor() *EntityDescriptor { return b.descriptor }

func (b *EntityResultBuilder) Columns() []string {
	return append([]string(nil), b.columns...)
}

// ColumnFor returns the label read for the named attribute.
func (b *EntityResultBuilder) ColumnFor(attribute string) (string, bool) {
	for i, attr := range b.descriptor.attributes {
		if attr.Name == attribute {
			return b.columns[i], true
		}
	}
	return "", false
}

func (b *EntityResultBuilder) Build(row RowValues) (any, error) {
	values := make(map[string]any, len(b.columns))
	for i, attr := range b.descriptor.attributes {
		raw, ok := row.Lookup(b.columns[i])
		if !ok {
			return nil, NewRowReadError(fmt.Sprintf("column %q missing from result set", b.columns[i]), nil).
				WithAttribute(attr.Name)
		}
		v, err := attr.JdbcMapping.Extract(raw)
		if err != nil {
			return nil, NewRowReadError(fmt.Sprintf("reading %s.%s", b.descriptor.name, attr.Name), err)
		}
		values[attr.Name] = v
	}
	entity, err := b.descriptor.Instantiate(values)
	if err != nil {
		return nil, NewRowReadError("instantiating "+b.descriptor.name, err)
	}
	return entity, nil
}

// ScalarResultBuilder reads a single column.
type ScalarResultBuilder struct {
	column  string
	mapping JdbcMapping
}

func NewScalarResultBuilder(column string, mapping JdbcMapping) *ScalarResultBuilder {
	return &ScalarResultBuilder{column: column, mapping: mapping}
}

func (*ScalarResultBuilder) Kind() ResultBuilderKind { return ResultMementoKindScalar }
func (*ScalarResultBuilder) isResultBuilder()        {}

func (b *ScalarResultBuilder) Column() string { return b.column }

func (b *ScalarResultBuilder) JdbcMapping() JdbcMapping { return b.mapping }

func (b *ScalarResultBuilder) Columns() []string { return []string{b.column} }

func (b *ScalarResultBuilder) Build(row RowValues) (any, error) {
	raw, ok := row.Lookup(b.column)
	if !ok {
		return nil, NewRowReadError(fmt.Sprintf("column %q missing from result set", b.column), nil)
	}
	v, err := b.mapping.Extract(raw)
	if err != nil {
		return nil, NewRowReadError("reading column "+b.column, err)
	}
	return v, nil
}

// ConstructorResultBuilder builds its arguments in order and hands them to an instantiator.
type ConstructorResultBuilder struct {
	targetType   string
	instantiator Instantiator
	arguments    []ResultBuilder
}

func NewConstructorResultBuilder(targetType string, instantiator Instantiator, arguments []ResultBuilder) *ConstructorResultBuilder {
	return &ConstructorResultBuilder{
		targetType:   targetType,
		instantiator: instantiator,
		arguments:    append([]ResultBuilder(nil), arguments...),
	}
}

func (*ConstructorResultBuilder) Kind() ResultBuilderKind { return ResultMementoKindConstructor }
func (*ConstructorResultBuilder) isResultBuilder()        {}

func (b *ConstructorResultBuilder) TargetType() string { return b.targetType }

// Arguments returns the argument builders in declaration order.
func (b *ConstructorResultBuilder) Arguments() []ResultBuilder {
	return append([]ResultBuilder(nil), b.arguments...)
}

func (b *ConstructorResultBuilder) Columns() []string {
	var cols []string
	for _, arg := range b.arguments {
		cols = append(cols, arg.Columns()...)
	}
	return cols
}

func (b *ConstructorResultBuilder) Build(row RowValues) (any, error) {
	args := make([]any, len(b.arguments))
	for i, arg := range b.arguments {
		v, err := arg.Build(row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	out, err := b.instantiator.New(args)
	if err != nil {
		return nil, NewRowReadError("constructing "+b.targetType, err)
	}
	return out, nil
}

// ResultSetMapping is the executable reader structure produced by resolution. It is
// populated by a single resolver and sealed before being shared; a sealed mapping is
// read-only and safe for concurrent use.
type ResultSetMapping struct {
	name        string
	builders    []ResultBuilder
	querySpaces []string
	sealed      bool
}

// NewResultSetMapping returns an empty mapping. The name is informational.
func NewResultSetMapping(name string) *ResultSetMapping {
	return &ResultSetMapping{name: name}
}

func (m *ResultSetMapping) Name() string { return m.name }

// AddResultBuilders appends all builders or none.
func (m *ResultSetMapping) AddResultBuilders(builders ...ResultBuilder) error {
	if m.sealed {
		return NewInvalidArgumentError("result set mapping is sealed").WithDetail("mapping", m.name)
	}
	for i, b := range builders {
		if b == nil {
			return NewInvalidArgumentError(fmt.Sprintf("result builder %d is nil", i))
		}
	}
	m.builders = append(m.builders, builders...)
	return nil
}

// AddResultBuilder appends a single builder.
func (m *ResultSetMapping) AddResultBuilder(builder ResultBuilder) error {
	return m.AddResultBuilders(builder)
}

// AddQuerySpaces records spaces not already present.
func (m *ResultSetMapping) AddQuerySpaces(spaces ...string) error {
	if m.sealed {
		return NewInvalidArgumentError("result set mapping is sealed").WithDetail("mapping", m.name)
	}
	for _, s := range spaces {
		if !containsString(m.querySpaces, s) {
			m.querySpaces = append(m.querySpaces, s)
		}
	}
	return nil
}

// Seal makes the mapping read-only.
func (m *ResultSetMapping) Seal() { m.sealed = true }

func (m *ResultSetMapping) Sealed() bool { return m.sealed }

func (m *ResultSetMapping) NumberOfResultBuilders() int { return len(m.builders) }

func (m *ResultSetMapping) ResultBuilders() []ResultBuilder {
	return append([]ResultBuilder(nil), m.builders...)
}

// QuerySpaces returns the distinct spaces touched by the mapping, in discovery order.
func (m *ResultSetMapping) QuerySpaces() []string {
	return append([]string(nil), m.querySpaces...)
}

// BuildRow produces one tuple element per builder, in builder order.
func (m *ResultSetMapping) BuildRow(row RowValues) ([]any, error) {
	tuple := make([]any, len(m.builders))
	for i, b := range m.builders {
		v, err := b.Build(row)
		if err != nil {
			return nil, err
		}
		tuple[i] = v
	}
	return tuple, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
