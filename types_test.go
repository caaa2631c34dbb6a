package resultmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// JDBCType Tests
// =============================================================================

func TestParseJDBCType(t *testing.T) {
	tests := []struct {
		input   string
		want    JDBCType
		wantErr bool
	}{
		{input: "NVARCHAR", want: JDBCTypeNVarchar},
		{input: " nclob ", want: JDBCTypeNClob},
		{input: "varchar", want: JDBCTypeVarchar},
		{input: "-9", want: JDBCTypeNVarchar},
		{input: "4242", want: JDBCType(4242)},
		{input: "TEXTISH", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseJDBCType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJDBCType_String(t *testing.T) {
	assert.Equal(t, "NVARCHAR", JDBCTypeNVarchar.String())
	assert.Equal(t, "UUID", JDBCTypeUUID.String())
	assert.Equal(t, "JDBCType(4242)", JDBCType(4242).String())
}

func TestJDBCType_JSON(t *testing.T) {
	data, err := json.Marshal([]JDBCType{JDBCTypeNClob, JDBCType(4242)})
	require.NoError(t, err)
	assert.JSONEq(t, `["NCLOB", 4242]`, string(data))

	var decoded []JDBCType
	require.NoError(t, json.Unmarshal([]byte(`["nvarchar", -15, "2011"]`), &decoded))
	assert.Equal(t, []JDBCType{JDBCTypeNVarchar, JDBCTypeNChar, JDBCTypeNClob}, decoded)

	var bad JDBCType
	assert.Error(t, json.Unmarshal([]byte(`"TEXTISH"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestJDBCType_Predicates(t *testing.T) {
	for _, code := range []JDBCType{JDBCTypeNChar, JDBCTypeNVarchar, JDBCTypeLongNVarchar, JDBCTypeNClob} {
		assert.True(t, code.IsNationalized(), code.String())
	}
	assert.False(t, JDBCTypeVarchar.IsNationalized())

	assert.True(t, JDBCTypeClob.IsLob())
	assert.True(t, JDBCTypeNClob.IsLob())
	assert.True(t, JDBCTypeBlob.IsLob())
	assert.False(t, JDBCTypeLongVarchar.IsLob())
}

// =============================================================================
// AttributeType / ColumnCategory Tests
// =============================================================================

func TestAttributeType_IsCharacterData(t *testing.T) {
	character := []AttributeType{AttributeTypeString, AttributeTypeChar, AttributeTypeCharArray, AttributeTypeCharacterArray}
	for _, at := range character {
		assert.True(t, at.IsCharacterData(), string(at))
		assert.True(t, at.Valid(), string(at))
	}
	for _, at := range []AttributeType{AttributeTypeBytes, AttributeTypeInt64, AttributeTypeUUID, AttributeTypeTimestamp} {
		assert.False(t, at.IsCharacterData(), string(at))
		assert.True(t, at.Valid(), string(at))
	}
	assert.False(t, AttributeType("money").Valid())
}

func TestColumnCategory_IsNational(t *testing.T) {
	assert.True(t, CategoryNationalVarString.IsNational())
	assert.True(t, CategoryNationalLOB.IsNational())
	assert.False(t, CategoryVarString.IsNational())
	assert.False(t, CategoryCharacterLOB.IsNational())
}

// =============================================================================
// EntityDescriptor Tests
// =============================================================================

func testDescriptor() *EntityDescriptor {
	id := NewAttributeMapping("Person", AttributeDeclaration{Name: "id", Type: AttributeTypeInt64, Identifier: true}, "person",
		JdbcMapping{TypeCode: JDBCTypeBigInt, AttributeType: AttributeTypeInt64})
	name := NewAttributeMapping("Person", AttributeDeclaration{Name: "name", Column: "full_name", Type: AttributeTypeString, Nationalized: true}, "person",
		JdbcMapping{TypeCode: JDBCTypeNVarchar, AttributeType: AttributeTypeString})
	bio := NewAttributeMapping("Person", AttributeDeclaration{Name: "bio", Table: "person_detail", Type: AttributeTypeString, Lob: true, Nullable: true}, "person",
		JdbcMapping{TypeCode: JDBCTypeClob, AttributeType: AttributeTypeString, Nullable: true, Lob: true})
	return NewEntityDescriptor("Person", "person", []string{"person_detail", "person"}, []*AttributeMapping{id, name, bio})
}

func TestEntityDescriptor(t *testing.T) {
	d := testDescriptor()

	assert.Equal(t, "Person", d.Name())
	assert.Equal(t, 3, d.NumberOfAttributeMappings())
	require.NotNil(t, d.Identifier())
	assert.Equal(t, "id", d.Identifier().Name)
	assert.Equal(t, "full_name", d.FindAttributeMapping("name").Column)
	assert.Equal(t, "person_detail", d.FindAttributeMapping("bio").Table)
	assert.Equal(t, []string{"person", "person_detail"}, d.QuerySpaces())
	assert.Nil(t, d.GoType())

	// returned slices are copies
	attrs := d.AttributeMappings()
	attrs[0] = nil
	assert.NotNil(t, d.AttributeMappings()[0])

	v, err := d.Instantiate(map[string]any{"id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, &EntityRecord{Entity: "Person", Values: map[string]any{"id": int64(1)}}, v)
}
