package resultmap

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// JDBCType is a column type code using the java.sql.Types numbering, which is what
// dialects, drivers and mapping documents exchange.
type JDBCType int

const (
	JDBCTypeBit          JDBCType = -7
	JDBCTypeTinyInt      JDBCType = -6
	JDBCTypeSmallInt     JDBCType = 5
	JDBCTypeInteger      JDBCType = 4
	JDBCTypeBigInt       JDBCType = -5
	JDBCTypeFloat        JDBCType = 6
	JDBCTypeReal         JDBCType = 7
	JDBCTypeDouble       JDBCType = 8
	JDBCTypeNumeric      JDBCType = 2
	JDBCTypeDecimal      JDBCType = 3
	JDBCTypeChar         JDBCType = 1
	JDBCTypeVarchar      JDBCType = 12
	JDBCTypeLongVarchar  JDBCType = -1
	JDBCTypeDate         JDBCType = 91
	JDBCTypeTime         JDBCType = 92
	JDBCTypeTimestamp    JDBCType = 93
	JDBCTypeBinary       JDBCType = -2
	JDBCTypeVarbinary    JDBCType = -3
	JDBCTypeLongVarbin   JDBCType = -4
	JDBCTypeNull         JDBCType = 0
	JDBCTypeOther        JDBCType = 1111
	JDBCTypeBlob         JDBCType = 2004
	JDBCTypeClob         JDBCType = 2005
	JDBCTypeBoolean      JDBCType = 16
	JDBCTypeNChar        JDBCType = -15
	JDBCTypeNVarchar     JDBCType = -9
	JDBCTypeLongNVarchar JDBCType = -16
	JDBCTypeNClob        JDBCType = 2011
	// JDBCTypeUUID is an extension code outside java.sql.Types for native UUID columns.
	JDBCTypeUUID JDBCType = 3000
)

var jdbcTypeNames = map[JDBCType]string{
	JDBCTypeBit:          "BIT",
	JDBCTypeTinyInt:      "TINYINT",
	JDBCTypeSmallInt:     "SMALLINT",
	JDBCTypeInteger:      "INTEGER",
	JDBCTypeBigInt:       "BIGINT",
	JDBCTypeFloat:        "FLOAT",
	JDBCTypeReal:         "REAL",
	JDBCTypeDouble:       "DOUBLE",
	JDBCTypeNumeric:      "NUMERIC",
	JDBCTypeDecimal:      "DECIMAL",
	JDBCTypeChar:         "CHAR",
	JDBCTypeVarchar:      "VARCHAR",
	JDBCTypeLongVarchar:  "LONGVARCHAR",
	JDBCTypeDate:         "DATE",
	JDBCTypeTime:         "TIME",
	JDBCTypeTimestamp:    "TIMESTAMP",
	JDBCTypeBinary:       "BINARY",
	JDBCTypeVarbinary:    "VARBINARY",
	JDBCTypeLongVarbin:   "LONGVARBINARY",
	JDBCTypeNull:         "NULL",
	JDBCTypeOther:        "OTHER",
	JDBCTypeBlob:         "BLOB",
	JDBCTypeClob:         "CLOB",
	JDBCTypeBoolean:      "BOOLEAN",
	JDBCTypeNChar:        "NCHAR",
	JDBCTypeNVarchar:     "NVARCHAR",
	JDBCTypeLongNVarchar: "LONGNVARCHAR",
	JDBCTypeNClob:        "NCLOB",
	JDBCTypeUUID:         "UUID",
}

// String returns the SQL name of the type code.
func (t JDBCType) String() string {
	if name, ok := jdbcTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("JDBCType(%d)", int(t))
}

// ParseJDBCType accepts either a SQL type name ("NVARCHAR") or its numeric code.
func ParseJDBCType(s string) (JDBCType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for code, n := range jdbcTypeNames {
		if n == name {
			return code, nil
		}
	}
	if code, err := strconv.Atoi(name); err == nil {
		return JDBCType(code), nil
	}
	return 0, fmt.Errorf("unknown jdbc type: %s", s)
}

// MarshalJSON renders known codes by name and unknown codes as numbers.
func (t JDBCType) MarshalJSON() ([]byte, error) {
	if name, ok := jdbcTypeNames[t]; ok {
		return json.Marshal(name)
	}
	return json.Marshal(int(t))
}

// UnmarshalJSON accepts a type name or a numeric code.
func (t *JDBCType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseJDBCType(name)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("jdbc type must be a name or an integer code: %w", err)
	}
	*t = JDBCType(code)
	return nil
}

// IsNationalized reports whether the code is one of the national character variants.
func (t JDBCType) IsNationalized() bool {
	switch t {
	case JDBCTypeNChar, JDBCTypeNVarchar, JDBCTypeLongNVarchar, JDBCTypeNClob:
		return true
	default:
		return false
	}
}

// IsLob reports whether the code denotes a large object column.
func (t JDBCType) IsLob() bool {
	return t == JDBCTypeClob || t == JDBCTypeNClob || t == JDBCTypeBlob
}

// AttributeType is the declared (logical) type of a persistent attribute.
type AttributeType string

const (
	AttributeTypeString         AttributeType = "string"
	AttributeTypeChar           AttributeType = "char"
	AttributeTypeCharArray      AttributeType = "char_array"      // []rune
	AttributeTypeCharacterArray AttributeType = "character_array" // []*rune
	AttributeTypeBytes          AttributeType = "bytes"
	AttributeTypeBool           AttributeType = "bool"
	AttributeTypeInt16          AttributeType = "int16"
	AttributeTypeInt32          AttributeType = "int32"
	AttributeTypeInt64          AttributeType = "int64"
	AttributeTypeFloat64        AttributeType = "float64"
	AttributeTypeDecimal        AttributeType = "decimal"
	AttributeTypeDate           AttributeType = "date"
	AttributeTypeTime           AttributeType = "time"
	AttributeTypeTimestamp      AttributeType = "timestamp"
	AttributeTypeUUID           AttributeType = "uuid"
)

// IsCharacterData reports whether values of this type are character data, the only
// kind of attribute that may be nationalized.
func (t AttributeType) IsCharacterData() bool {
	switch t {
	case AttributeTypeString, AttributeTypeChar, AttributeTypeCharArray, AttributeTypeCharacterArray:
		return true
	default:
		return false
	}
}

// Valid reports whether t is one of the known attribute types.
func (t AttributeType) Valid() bool {
	switch t {
	case AttributeTypeString, AttributeTypeChar, AttributeTypeCharArray, AttributeTypeCharacterArray,
		AttributeTypeBytes, AttributeTypeBool, AttributeTypeInt16, AttributeTypeInt32, AttributeTypeInt64,
		AttributeTypeFloat64, AttributeTypeDecimal, AttributeTypeDate, AttributeTypeTime,
		AttributeTypeTimestamp, AttributeTypeUUID:
		return true
	default:
		return false
	}
}

// ColumnCategory is the logical column category a dialect translates into a type code.
type ColumnCategory string

const (
	CategoryFixedString           ColumnCategory = "fixed_string"
	CategoryVarString             ColumnCategory = "var_string"
	CategoryLongVarString         ColumnCategory = "long_var_string"
	CategoryCharacterLOB          ColumnCategory = "character_lob"
	CategoryNationalFixedString   ColumnCategory = "national_fixed_string"
	CategoryNationalVarString     ColumnCategory = "national_var_string"
	CategoryNationalLongVarString ColumnCategory = "national_long_var_string"
	CategoryNationalLOB           ColumnCategory = "national_lob"
	CategoryBinary                ColumnCategory = "binary"
	CategoryBinaryLOB             ColumnCategory = "binary_lob"
	CategoryBoolean               ColumnCategory = "boolean"
	CategorySmallInt              ColumnCategory = "smallint"
	CategoryInteger               ColumnCategory = "integer"
	CategoryBigInt                ColumnCategory = "bigint"
	CategoryDouble                ColumnCategory = "double"
	CategoryDecimal               ColumnCategory = "decimal"
	CategoryDate                  ColumnCategory = "date"
	CategoryTime                  ColumnCategory = "time"
	CategoryTimestamp             ColumnCategory = "timestamp"
	CategoryUUID                  ColumnCategory = "uuid"
)

// IsNational reports whether the category is one of the national character variants.
func (c ColumnCategory) IsNational() bool {
	switch c {
	case CategoryNationalFixedString, CategoryNationalVarString, CategoryNationalLongVarString, CategoryNationalLOB:
		return true
	default:
		return false
	}
}

// AttributeMapping describes one persistent attribute of an entity and the JDBC mapping
// used to read and write it. Instances are created when the domain model is built and
// must be treated as read-only.
type AttributeMapping struct {
	Name          string        `json:"name"`
	EntityName    string        `json:"entity"`
	Column        string        `json:"column"`
	Table         string        `json:"table"`
	AttributeType AttributeType `json:"type"`
	Nationalized  bool          `json:"nationalized,omitempty"`
	Lob           bool          `json:"lob,omitempty"`
	Nullable      bool          `json:"nullable,omitempty"`
	Identifier    bool          `json:"id,omitempty"`
	JdbcMapping   JdbcMapping   `json:"jdbcMapping"`

	// fieldIndex locates the backing struct field for struct-declared entities.
	fieldIndex []int
}

// FieldIndex returns the reflect field index of the backing struct field, if any.
func (a *AttributeMapping) FieldIndex() []int {
	return a.fieldIndex
}

// EntityInstantiator builds an entity value from attribute values keyed by attribute name.
type EntityInstantiator func(values map[string]any) (any, error)

// EntityRecord is the value produced for entities that have no Go type bound to them.
type EntityRecord struct {
	Entity string         `json:"entity"`
	Values map[string]any `json:"values"`
}

// EntityDescriptor is the resolved, immutable mapping of one entity.
type EntityDescriptor struct {
	name            string
	table           string
	secondaryTables []string
	attributes      []*AttributeMapping
	byName          map[string]*AttributeMapping
	identifier      *AttributeMapping
	goType          reflect.Type
	instantiator    EntityInstantiator
}

// NewEntityDescriptor assembles a descriptor. Attribute order is preserved; the caller
// is responsible for having validated names and resolved JDBC mappings.
func NewEntityDescriptor(name, table string, secondaryTables []string, attributes []*AttributeMapping) *EntityDescriptor {
	d := &EntityDescriptor{
		name:            name,
		table:           table,
		secondaryTables: append([]string(nil), secondaryTables...),
		attributes:      append([]*AttributeMapping(nil), attributes...),
		byName:          make(map[string]*AttributeMapping, len(attributes)),
	}
	for _, attr := range d.attributes {
		d.byName[attr.Name] = attr
		if attr.Identifier && d.identifier == nil {
			d.identifier = attr
		}
	}
	return d
}

// WithGoType binds a Go struct type and the instantiator producing values of it.
func (d *EntityDescriptor) WithGoType(goType reflect.Type, instantiator EntityInstantiator) *EntityDescriptor {
	d.goType = goType
	d.instantiator = instantiator
	return d
}

func (d *EntityDescriptor) Name() string { return d.name }

func (d *EntityDescriptor) Table() string { return d.table }

func (d *EntityDescriptor) SecondaryTables() []string {
	return append([]string(nil), d.secondaryTables...)
}

// GoType returns the bound struct type, or nil for document-declared entities.
func (d *EntityDescriptor) GoType() reflect.Type { return d.goType }

// Identifier returns the identifier attribute, or nil when the entity declares none.
func (d *EntityDescriptor) Identifier() *AttributeMapping { return d.identifier }

// FindAttributeMapping returns the named attribute mapping, or nil when absent.
func (d *EntityDescriptor) FindAttributeMapping(name string) *AttributeMapping {
	return d.byName[name]
}

// AttributeMappings returns the attribute mappings in declaration order.
func (d *EntityDescriptor) AttributeMappings() []*AttributeMapping {
	return append([]*AttributeMapping(nil), d.attributes...)
}

// NumberOfAttributeMappings returns the number of mapped attributes.
func (d *EntityDescriptor) NumberOfAttributeMappings() int {
	return len(d.attributes)
}

// QuerySpaces returns every table the entity reads from: the primary table, the
// secondary tables and any table named by an attribute, each once, in that order.
func (d *EntityDescriptor) QuerySpaces() []string {
	seen := make(map[string]struct{}, 1+len(d.secondaryTables))
	spaces := make([]string, 0, 1+len(d.secondaryTables))
	add := func(table string) {
		if table == "" {
			return
		}
		if _, ok := seen[table]; ok {
			return
		}
		seen[table] = struct{}{}
		spaces = append(spaces, table)
	}
	add(d.table)
	for _, t := range d.secondaryTables {
		add(t)
	}
	for _, attr := range d.attributes {
		add(attr.Table)
	}
	return spaces
}

// Instantiate builds an entity value from attribute values.
func (d *EntityDescriptor) Instantiate(values map[string]any) (any, error) {
	if d.instantiator != nil {
		return d.instantiator(values)
	}
	return &EntityRecord{Entity: d.name, Values: values}, nil
}

// EntityDeclaration is the boot-time description of an entity, before JDBC mappings are
// resolved against a dialect.
type EntityDeclaration struct {
	Name            string                 `json:"name"`
	Table           string                 `json:"table,omitempty"`
	SecondaryTables []string               `json:"secondaryTables,omitempty"`
	Attributes      []AttributeDeclaration `json:"attributes"`

	GoType reflect.Type `json:"-"`
}

// AttributeDeclaration is the boot-time description of one attribute.
type AttributeDeclaration struct {
	Name         string        `json:"name"`
	Column       string        `json:"column,omitempty"`
	Table        string        `json:"table,omitempty"`
	Type         AttributeType `json:"type"`
	Nationalized bool          `json:"nationalized,omitempty"`
	Lob          bool          `json:"lob,omitempty"`
	Nullable     bool          `json:"nullable,omitempty"`
	Identifier   bool          `json:"id,omitempty"`

	FieldIndex []int `json:"-"`
}

// NewAttributeMapping creates an attribute mapping from its declaration and resolved JDBC mapping.
func NewAttributeMapping(entity string, decl AttributeDeclaration, table string, jdbc JdbcMapping) *AttributeMapping {
	column := decl.Column
	if column == "" {
		column = decl.Name
	}
	if decl.Table != "" {
		table = decl.Table
	}
	return &AttributeMapping{
		Name:          decl.Name,
		EntityName:    entity,
		Column:        column,
		Table:         table,
		AttributeType: decl.Type,
		Nationalized:  decl.Nationalized,
		Lob:           decl.Lob,
		Nullable:      decl.Nullable,
		Identifier:    decl.Identifier,
		JdbcMapping:   jdbc,
		fieldIndex:    append([]int(nil), decl.FieldIndex...),
	}
}

// QuerySpaceConsumer receives each table/space touched by a resolved mapping.
type QuerySpaceConsumer func(space string)
