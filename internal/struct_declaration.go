package internal

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/lychee-technology/resultmap"
)

const (
	tagORMName         = "orm"
	tagKeyColumn       = "column"
	tagKeyTable        = "table"
	tagKeyType         = "type"
	tagKeyID           = "id"
	tagKeyNationalized = "nationalized"
	tagKeyLob          = "lob"
	tagKeyNullable     = "nullable"
	tagKeySkip         = "-"
)

// TableNamer lets a struct choose its primary table.
type TableNamer interface {
	TableName() string
}

// EntityNamer lets a struct choose its entity name; the Go type name is used otherwise.
type EntityNamer interface {
	EntityName() string
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	runeType = reflect.TypeOf(rune(0))
)

// DeclareEntity derives an entity declaration from a struct value or pointer.
//
// Every exported field becomes an attribute named after the field with a lower-case first
// letter. The orm tag refines it, for example
//
//	Notes []rune `orm:"column:notes;nationalized;lob"`
//
// Recognised keys are column, table, type, id, nationalized, lob and nullable; "-" skips
// the field. Pointer fields are nullable.
func DeclareEntity(v any) (resultmap.EntityDeclaration, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return resultmap.EntityDeclaration{}, resultmap.NewInvalidArgumentError("cannot declare an entity from nil")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return resultmap.EntityDeclaration{}, resultmap.NewInvalidArgumentError(
			fmt.Sprintf("entity declarations require a struct, got %s", t.Kind()))
	}

	decl := resultmap.EntityDeclaration{
		Name:   t.Name(),
		Table:  toSnakeCase(t.Name()),
		GoType: t,
	}
	sample := reflect.New(t).Interface()
	if namer, ok := sample.(EntityNamer); ok {
		decl.Name = namer.EntityName()
	}
	if namer, ok := sample.(TableNamer); ok {
		decl.Table = namer.TableName()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		attr, skip, err := declareAttribute(field)
		if err != nil {
			return resultmap.EntityDeclaration{}, resultmap.NewInvalidArgumentError(err.Error()).
				WithDetail("entity", decl.Name).WithAttribute(field.Name)
		}
		if skip {
			continue
		}
		decl.Attributes = append(decl.Attributes, attr)
	}
	return decl, nil
}

func declareAttribute(field reflect.StructField) (resultmap.AttributeDeclaration, bool, error) {
	tag := strings.TrimSpace(field.Tag.Get(tagORMName))
	if tag == tagKeySkip {
		return resultmap.AttributeDeclaration{}, true, nil
	}

	attr := resultmap.AttributeDeclaration{
		Name:       lowerFirst(field.Name),
		Column:     toSnakeCase(field.Name),
		FieldIndex: field.Index,
	}

	fieldType := field.Type
	if fieldType.Kind() == reflect.Ptr {
		attr.Nullable = true
		fieldType = fieldType.Elem()
	}

	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, ":")
		switch strings.TrimSpace(key) {
		case tagKeyColumn:
			attr.Column = strings.TrimSpace(value)
		case tagKeyTable:
			attr.Table = strings.TrimSpace(value)
		case tagKeyType:
			attr.Type = resultmap.AttributeType(strings.TrimSpace(value))
		case tagKeyID:
			attr.Identifier = true
		case tagKeyNationalized:
			attr.Nationalized = true
		case tagKeyLob:
			attr.Lob = true
		case tagKeyNullable:
			attr.Nullable = true
		default:
			return attr, false, fmt.Errorf("unknown orm tag key %q", key)
		}
	}

	if attr.Type == "" {
		inferred, ok := inferAttributeType(fieldType)
		if !ok {
			return attr, false, fmt.Errorf("cannot infer attribute type of %s", field.Type)
		}
		attr.Type = inferred
	}
	return attr, false, nil
}

func inferAttributeType(t reflect.Type) (resultmap.AttributeType, bool) {
	switch t {
	case timeType:
		return resultmap.AttributeTypeTimestamp, true
	case uuidType:
		return resultmap.AttributeTypeUUID, true
	}
	switch t.Kind() {
	case reflect.String:
		return resultmap.AttributeTypeString, true
	case reflect.Bool:
		return resultmap.AttributeTypeBool, true
	case reflect.Int16, reflect.Int8, reflect.Uint8:
		return resultmap.AttributeTypeInt16, true
	case reflect.Int32, reflect.Uint16:
		return resultmap.AttributeTypeInt32, true
	case reflect.Int, reflect.Int64, reflect.Uint32:
		return resultmap.AttributeTypeInt64, true
	case reflect.Float32, reflect.Float64:
		return resultmap.AttributeTypeFloat64, true
	case reflect.Slice:
		elem := t.Elem()
		switch {
		case elem.Kind() == reflect.Uint8:
			return resultmap.AttributeTypeBytes, true
		case elem == runeType:
			return resultmap.AttributeTypeCharArray, true
		case elem.Kind() == reflect.Ptr && elem.Elem() == runeType:
			return resultmap.AttributeTypeCharacterArray, true
		}
	}
	return "", false
}

// structInstantiator builds a pointer to a new struct and assigns extracted values to the
// fields recorded on the attribute mappings.
func structInstantiator(goType reflect.Type, attributes []*resultmap.AttributeMapping) resultmap.EntityInstantiator {
	return func(values map[string]any) (any, error) {
		ptr := reflect.New(goType)
		for _, attr := range attributes {
			index := attr.FieldIndex()
			if len(index) == 0 {
				continue
			}
			value, ok := values[attr.Name]
			if !ok || value == nil {
				continue
			}
			if err := assignField(ptr.Elem().FieldByIndex(index), value); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", goType.Name(), attr.Name, err)
			}
		}
		return ptr.Interface(), nil
	}
}

func assignField(field reflect.Value, value any) error {
	v := reflect.ValueOf(value)
	target := field.Type()
	switch {
	case v.Type().AssignableTo(target):
		field.Set(v)
	case target.Kind() == reflect.Ptr && v.Type().AssignableTo(target.Elem()):
		p := reflect.New(target.Elem())
		p.Elem().Set(v)
		field.Set(p)
	case target.Kind() == reflect.Ptr && v.Type().ConvertibleTo(target.Elem()) && isNumeric(v.Kind()):
		p := reflect.New(target.Elem())
		p.Elem().Set(v.Convert(target.Elem()))
		field.Set(p)
	case v.Type().ConvertibleTo(target) && isNumeric(v.Kind()) && isNumeric(target.Kind()):
		field.Set(v.Convert(target))
	default:
		return fmt.Errorf("cannot assign %s to %s", v.Type(), target)
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// lowerFirst lower-cases a leading initialism as a unit: "ID" -> "id", "URLPath" -> "urlPath".
func lowerFirst(s string) string {
	r := []rune(s)
	upper := 0
	for upper < len(r) && unicode.IsUpper(r[upper]) {
		upper++
	}
	switch {
	case upper == 0:
		return s
	case upper > 1 && upper < len(r):
		upper--
	}
	for i := 0; i < upper; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

// toSnakeCase converts "PrimitiveNVarchar" to "primitive_n_varchar" and "ID" to "id".
func toSnakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
