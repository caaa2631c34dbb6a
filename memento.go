package resultmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ResultMementoKind discriminates the closed set of result memento variants.
type ResultMementoKind string

const (
	ResultMementoKindEntity      ResultMementoKind = "entity"
	ResultMementoKindScalar      ResultMementoKind = "scalar"
	ResultMementoKindConstructor ResultMementoKind = "constructor"
)

// ResultMemento is a serializable description of one result-row mapping. The set of
// implementations is closed: *EntityResultMemento, *ScalarResultMemento and
// *ConstructorResultMemento.
type ResultMemento interface {
	Kind() ResultMementoKind
	isResultMemento()
}

// EntityResultMemento maps the result columns onto one entity. ColumnAliases overrides the
// column label read for an attribute; unlisted attributes use their mapped column name.
type EntityResultMemento struct {
	Entity        string            `json:"entity"`
	ColumnAliases map[string]string `json:"columnAliases,omitempty"`
}

// ScalarResultMemento maps a single column. The column's type comes from Attribute (of
// Entity) when set, otherwise from JDBCType, otherwise it is inferred at read time.
type ScalarResultMemento struct {
	Column    string    `json:"column"`
	Entity    string    `json:"entity,omitempty"`
	Attribute string    `json:"attribute,omitempty"`
	JDBCType  *JDBCType `json:"jdbcType,omitempty"`
}

// ConstructorResultMemento feeds the resolved arguments, in order, to the instantiator
// registered under TargetType.
type ConstructorResultMemento struct {
	TargetType string          `json:"targetType"`
	Arguments  []ResultMemento `json:"arguments"`
}

func (*EntityResultMemento) Kind() ResultMementoKind      { return ResultMementoKindEntity }
func (*ScalarResultMemento) Kind() ResultMementoKind      { return ResultMementoKindScalar }
func (*ConstructorResultMemento) Kind() ResultMementoKind { return ResultMementoKindConstructor }

func (*EntityResultMemento) isResultMemento()      {}
func (*ScalarResultMemento) isResultMemento()      {}
func (*ConstructorResultMemento) isResultMemento() {}

func (m *EntityResultMemento) MarshalJSON() ([]byte, error) {
	type alias EntityResultMemento
	return json.Marshal(struct {
		Kind ResultMementoKind `json:"kind"`
		*alias
	}{ResultMementoKindEntity, (*alias)(m)})
}

func (m *ScalarResultMemento) MarshalJSON() ([]byte, error) {
	type alias ScalarResultMemento
	return json.Marshal(struct {
		Kind ResultMementoKind `json:"kind"`
		*alias
	}{ResultMementoKindScalar, (*alias)(m)})
}

func (m *ConstructorResultMemento) MarshalJSON() ([]byte, error) {
	type alias ConstructorResultMemento
	return json.Marshal(struct {
		Kind ResultMementoKind `json:"kind"`
		*alias
	}{ResultMementoKindConstructor, (*alias)(m)})
}

func (m *ConstructorResultMemento) UnmarshalJSON(data []byte) error {
	var raw struct {
		TargetType string            `json:"targetType"`
		Arguments  []json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	args, err := decodeResultMementos(raw.Arguments)
	if err != nil {
		return fmt.Errorf("constructor %s: %w", raw.TargetType, err)
	}
	m.TargetType = raw.TargetType
	m.Arguments = args
	return nil
}

// UnmarshalResultMemento decodes one memento, selecting the variant by its "kind" field.
func UnmarshalResultMemento(data []byte) (ResultMemento, error) {
	var head struct {
		Kind ResultMementoKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	var m ResultMemento
	switch head.Kind {
	case ResultMementoKindEntity:
		m = &EntityResultMemento{}
	case ResultMementoKindScalar:
		m = &ScalarResultMemento{}
	case ResultMementoKindConstructor:
		m = &ConstructorResultMemento{}
	default:
		return nil, fmt.Errorf("unknown result memento kind %q", head.Kind)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeResultMementos(raws []json.RawMessage) ([]ResultMemento, error) {
	out := make([]ResultMemento, 0, len(raws))
	for i, raw := range raws {
		m, err := UnmarshalResultMemento(raw)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// NamedResultSetMappingMemento is a registered, named result-set mapping.
type NamedResultSetMappingMemento struct {
	Name    string          `json:"name"`
	Results []ResultMemento `json:"results"`
}

func (m *NamedResultSetMappingMemento) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name    string            `json:"name"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	results, err := decodeResultMementos(raw.Results)
	if err != nil {
		return fmt.Errorf("result set mapping %s: %w", raw.Name, err)
	}
	m.Name = raw.Name
	m.Results = results
	return nil
}

// Equivalent reports whether both mementos serialize to the same document.
func (m *NamedResultSetMappingMemento) Equivalent(other *NamedResultSetMappingMemento) bool {
	return canonicalEqual(m, other)
}

// Clone returns a deep copy sharing no slices, maps or pointers with m.
func (m *NamedResultSetMappingMemento) Clone() *NamedResultSetMappingMemento {
	if m == nil {
		return nil
	}
	return &NamedResultSetMappingMemento{Name: m.Name, Results: cloneResultMementos(m.Results)}
}

func cloneResultMementos(results []ResultMemento) []ResultMemento {
	if results == nil {
		return nil
	}
	out := make([]ResultMemento, len(results))
	for i, r := range results {
		out[i] = cloneResultMemento(r)
	}
	return out
}

func cloneResultMemento(r ResultMemento) ResultMemento {
	switch v := r.(type) {
	case *EntityResultMemento:
		if v == nil {
			return v
		}
		c := &EntityResultMemento{Entity: v.Entity}
		if v.ColumnAliases != nil {
			c.ColumnAliases = make(map[string]string, len(v.ColumnAliases))
			for k, col := range v.ColumnAliases {
				c.ColumnAliases[k] = col
			}
		}
		return c
	case *ScalarResultMemento:
		if v == nil {
			return v
		}
		c := *v
		if v.JDBCType != nil {
			code := *v.JDBCType
			c.JDBCType = &code
		}
		return &c
	case *ConstructorResultMemento:
		if v == nil {
			return v
		}
		return &ConstructorResultMemento{TargetType: v.TargetType, Arguments: cloneResultMementos(v.Arguments)}
	}
	return r
}

// NamedQueryMemento is a registered, named native query.
type NamedQueryMemento struct {
	Name             string   `json:"name"`
	SQL              string   `json:"sql"`
	ResultSetMapping string   `json:"resultSetMapping,omitempty"`
	QuerySpaces      []string `json:"querySpaces,omitempty"`
	TimeoutSeconds   int      `json:"timeoutSeconds,omitempty"`
}

// Timeout returns the query timeout, zero when unbounded.
func (q *NamedQueryMemento) Timeout() time.Duration {
	return time.Duration(q.TimeoutSeconds) * time.Second
}

// Clone returns a copy with its own QuerySpaces slice.
func (q *NamedQueryMemento) Clone() *NamedQueryMemento {
	if q == nil {
		return nil
	}
	c := *q
	if q.QuerySpaces != nil {
		c.QuerySpaces = append([]string(nil), q.QuerySpaces...)
	}
	return &c
}

// Equivalent reports whether both mementos serialize to the same document.
func (q *NamedQueryMemento) Equivalent(other *NamedQueryMemento) bool {
	return canonicalEqual(q, other)
}

func canonicalEqual(a, b any) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}
