package internal

import (
	"testing"

	"github.com/lychee-technology/resultmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personDeclaration() resultmap.EntityDeclaration {
	return resultmap.EntityDeclaration{
		Name:            "Person",
		Table:           "person",
		SecondaryTables: []string{"person_detail"},
		Attributes: []resultmap.AttributeDeclaration{
			{Name: "id", Type: resultmap.AttributeTypeInt64, Identifier: true, Nullable: true},
			{Name: "name", Type: resultmap.AttributeTypeString, Nationalized: true},
			{Name: "nickname", Column: "nick", Type: resultmap.AttributeTypeString, Nullable: true},
			{Name: "biography", Column: "bio", Table: "person_detail", Type: resultmap.AttributeTypeString, Nationalized: true, Lob: true},
			{Name: "avatarId", Table: "avatar", Type: resultmap.AttributeTypeUUID},
		},
	}
}

func TestBuildMetamodel(t *testing.T) {
	sqlserver, err := LookupDialect("sqlserver")
	require.NoError(t, err)

	model, err := BuildMetamodel(sqlserver, []resultmap.EntityDeclaration{
		personDeclaration(),
		{Name: "Address", Attributes: []resultmap.AttributeDeclaration{{Name: "city", Type: resultmap.AttributeTypeString}}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Address", "Person"}, model.EntityNames())
	assert.Same(t, sqlserver, model.Dialect())
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", model.Version().String())

	person, ok := model.FindEntityDescriptor("Person")
	require.True(t, ok)
	assert.Equal(t, "person", person.Table())
	assert.Equal(t, []string{"person", "person_detail", "avatar"}, person.QuerySpaces())
	require.NotNil(t, person.Identifier())
	assert.Equal(t, "id", person.Identifier().Name)

	id := person.FindAttributeMapping("id")
	assert.False(t, id.JdbcMapping.Nullable, "identifiers are never nullable")
	assert.Equal(t, resultmap.JDBCTypeBigInt, id.JdbcMapping.TypeCode)

	name := person.FindAttributeMapping("name")
	assert.Equal(t, "name", name.Column)
	assert.Equal(t, resultmap.JDBCTypeNVarchar, name.JdbcMapping.TypeCode)

	nickname := person.FindAttributeMapping("nickname")
	assert.Equal(t, "nick", nickname.Column)
	assert.True(t, nickname.JdbcMapping.Nullable)
	assert.Equal(t, resultmap.JDBCTypeVarchar, nickname.JdbcMapping.TypeCode)

	bio := person.FindAttributeMapping("biography")
	assert.Equal(t, "person_detail", bio.Table)
	assert.Equal(t, resultmap.JDBCTypeNClob, bio.JdbcMapping.TypeCode)

	assert.Equal(t, resultmap.JDBCTypeUUID, person.FindAttributeMapping("avatarId").JdbcMapping.TypeCode)
	assert.Nil(t, person.FindAttributeMapping("missing"))

	address, ok := model.FindEntityDescriptor("Address")
	require.True(t, ok)
	assert.Equal(t, "Address", address.Table(), "table defaults to the entity name")

	_, ok = model.FindEntityDescriptor("Unknown")
	assert.False(t, ok)
}

func TestBuildMetamodel_VersionsDiffer(t *testing.T) {
	postgres, _ := LookupDialect("postgresql")
	a, err := BuildMetamodel(postgres, nil)
	require.NoError(t, err)
	b, err := BuildMetamodel(postgres, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Version(), b.Version())
}

func TestBuildMetamodel_Errors(t *testing.T) {
	postgres, _ := LookupDialect("postgresql")
	duck, _ := LookupDialect("duckdb")

	_, err := BuildMetamodel(nil, nil)
	assert.True(t, resultmap.IsInvalidArgumentError(err))

	_, err = BuildMetamodel(postgres, []resultmap.EntityDeclaration{{Name: ""}})
	assert.True(t, resultmap.IsInvalidArgumentError(err))

	_, err = BuildMetamodel(postgres, []resultmap.EntityDeclaration{personDeclaration(), personDeclaration()})
	assert.True(t, resultmap.IsDuplicateNameError(err))

	dup := personDeclaration()
	dup.Attributes = append(dup.Attributes, resultmap.AttributeDeclaration{Name: "name", Type: resultmap.AttributeTypeString})
	_, err = BuildMetamodel(postgres, []resultmap.EntityDeclaration{dup})
	require.True(t, resultmap.IsDuplicateNameError(err))
	var me *resultmap.MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "name", me.Attribute)

	_, err = BuildMetamodel(duck, []resultmap.EntityDeclaration{personDeclaration()})
	require.True(t, resultmap.IsUnsupportedDialectFeatureError(err))
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Person", me.Name)
	assert.Equal(t, "name", me.Attribute)
}
