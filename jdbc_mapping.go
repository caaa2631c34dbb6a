package resultmap

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JdbcMapping is the resolved database-level type of an attribute or result column.
// It is a value type; copies are interchangeable.
type JdbcMapping struct {
	TypeCode      JDBCType      `json:"typeCode"`
	AttributeType AttributeType `json:"attributeType,omitempty"`
	Nullable      bool          `json:"nullable,omitempty"`
	Lob           bool          `json:"lob,omitempty"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
}

// Extract converts a raw driver value into the attribute's Go value. A nil raw value
// yields nil. Mappings without an attribute type (inferred scalars) return the raw value
// with byte slices turned into strings.
func (m JdbcMapping) Extract(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if valuer, ok := raw.(driver.Valuer); ok {
		if _, isUUID := raw.(uuid.UUID); !isUUID {
			v, err := valuer.Value()
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, nil
			}
			raw = v
		}
	}

	switch m.AttributeType {
	case "":
		if b, ok := raw.([]byte); ok {
			return string(b), nil
		}
		return raw, nil
	case AttributeTypeString, AttributeTypeDecimal:
		return toString(raw)
	case AttributeTypeChar:
		s, err := toString(raw)
		if err != nil {
			return nil, err
		}
		r := []rune(s)
		if len(r) == 0 {
			return nil, nil
		}
		return r[0], nil
	case AttributeTypeCharArray:
		s, err := toString(raw)
		if err != nil {
			return nil, err
		}
		return []rune(s), nil
	case AttributeTypeCharacterArray:
		s, err := toString(raw)
		if err != nil {
			return nil, err
		}
		return wrapRunes([]rune(s)), nil
	case AttributeTypeBytes:
		switch v := raw.(type) {
		case []byte:
			return append([]byte(nil), v...), nil
		case string:
			return []byte(v), nil
		}
	case AttributeTypeBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case string:
			return strconv.ParseBool(v)
		case []byte:
			return strconv.ParseBool(string(v))
		}
	case AttributeTypeInt16:
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("value %d overflows int16", n)
		}
		return int16(n), nil
	case AttributeTypeInt32:
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("value %d overflows int32", n)
		}
		return int32(n), nil
	case AttributeTypeInt64:
		return toInt64(raw)
	case AttributeTypeFloat64:
		return toFloat64(raw)
	case AttributeTypeDate, AttributeTypeTime, AttributeTypeTimestamp:
		return toTime(raw)
	case AttributeTypeUUID:
		switch v := raw.(type) {
		case uuid.UUID:
			return v, nil
		case [16]byte:
			return uuid.UUID(v), nil
		case string:
			return uuid.Parse(v)
		case []byte:
			if len(v) == 16 {
				return uuid.FromBytes(v)
			}
			return uuid.ParseBytes(v)
		}
	}
	return nil, fmt.Errorf("cannot extract %s from %T", m.describe(), raw)
}

// Bind converts an attribute value into a driver parameter.
func (m JdbcMapping) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		if !m.Nullable && m.AttributeType != "" {
			return nil, fmt.Errorf("null bound to non-nullable %s", m.describe())
		}
		return nil, nil
	case rune:
		if m.AttributeType == AttributeTypeChar {
			return string(v), nil
		}
		return v, nil
	case []rune:
		return string(v), nil
	case []*rune:
		var sb strings.Builder
		for _, r := range v {
			if r != nil {
				sb.WriteRune(*r)
			}
		}
		return sb.String(), nil
	case uuid.UUID:
		return v.String(), nil
	default:
		return value, nil
	}
}

func (m JdbcMapping) describe() string {
	if m.AttributeType == "" {
		return m.TypeCode.String()
	}
	return fmt.Sprintf("%s(%s)", m.TypeCode, m.AttributeType)
}

func wrapRunes(rs []rune) []*rune {
	out := make([]*rune, len(rs))
	for i := range rs {
		r := rs[i]
		out[i] = &r
	}
	return out
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case []rune:
		return string(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("cannot convert %T to string", raw)
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("value %v is not integral", v)
		}
		// 2^63 is exactly representable; MaxInt64 is not.
		if v < math.MinInt64 || v >= -math.MinInt64 {
			return 0, fmt.Errorf("value %v overflows int64", v)
		}
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to integer", raw)
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	}
	n, err := toInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to float", raw)
	}
	return float64(n), nil
}

func toTime(raw any) (time.Time, error) {
	var s string
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", raw)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", s)
}
