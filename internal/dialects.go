package internal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lychee-technology/resultmap"
)

// builtinDialect is a table-driven resultmap.Dialect.
type builtinDialect struct {
	name            string
	nationalization *resultmap.NationalizationSupport
	codes           map[resultmap.ColumnCategory]resultmap.JDBCType
	features        map[resultmap.DialectFeature]struct{}
}

func (d *builtinDialect) Name() string { return d.name }

func (d *builtinDialect) NationalizationSupport() *resultmap.NationalizationSupport {
	return d.nationalization
}

func (d *builtinDialect) TypeCode(category resultmap.ColumnCategory) (resultmap.JDBCType, error) {
	if category.IsNational() {
		if d.nationalization == nil {
			return 0, resultmap.NewUnsupportedDialectFeatureError(d.name, resultmap.FeatureNationalizedData).
				WithDetail("category", string(category))
		}
		code, _ := d.nationalization.VariantCode(category)
		return code, nil
	}
	code, ok := d.codes[category]
	if !ok {
		return 0, resultmap.NewInvalidArgumentError(fmt.Sprintf("unknown column category %q", category))
	}
	return code, nil
}

func (d *builtinDialect) Supports(feature resultmap.DialectFeature) bool {
	_, ok := d.features[feature]
	return ok
}

func baseTypeCodes() map[resultmap.ColumnCategory]resultmap.JDBCType {
	return map[resultmap.ColumnCategory]resultmap.JDBCType{
		resultmap.CategoryFixedString:   resultmap.JDBCTypeChar,
		resultmap.CategoryVarString:     resultmap.JDBCTypeVarchar,
		resultmap.CategoryLongVarString: resultmap.JDBCTypeLongVarchar,
		resultmap.CategoryCharacterLOB:  resultmap.JDBCTypeClob,
		resultmap.CategoryBinary:        resultmap.JDBCTypeVarbinary,
		resultmap.CategoryBinaryLOB:     resultmap.JDBCTypeBlob,
		resultmap.CategoryBoolean:       resultmap.JDBCTypeBoolean,
		resultmap.CategorySmallInt:      resultmap.JDBCTypeSmallInt,
		resultmap.CategoryInteger:       resultmap.JDBCTypeInteger,
		resultmap.CategoryBigInt:        resultmap.JDBCTypeBigInt,
		resultmap.CategoryDouble:        resultmap.JDBCTypeDouble,
		resultmap.CategoryDecimal:       resultmap.JDBCTypeNumeric,
		resultmap.CategoryDate:          resultmap.JDBCTypeDate,
		resultmap.CategoryTime:          resultmap.JDBCTypeTime,
		resultmap.CategoryTimestamp:     resultmap.JDBCTypeTimestamp,
		resultmap.CategoryUUID:          resultmap.JDBCTypeOther,
	}
}

func newBuiltinDialect(
	name string,
	nationalization *resultmap.NationalizationSupport,
	overrides map[resultmap.ColumnCategory]resultmap.JDBCType,
	features ...resultmap.DialectFeature,
) *builtinDialect {
	codes := baseTypeCodes()
	for category, code := range overrides {
		codes[category] = code
	}
	featureSet := make(map[resultmap.DialectFeature]struct{}, len(features)+2)
	for _, f := range features {
		featureSet[f] = struct{}{}
	}
	if nationalization != nil {
		featureSet[resultmap.FeatureNationalizedData] = struct{}{}
		if nationalization == resultmap.NationalizationExplicit {
			featureSet[resultmap.FeatureExplicitNationalizedTypes] = struct{}{}
		}
	}
	return &builtinDialect{
		name:            name,
		nationalization: nationalization,
		codes:           codes,
		features:        featureSet,
	}
}

// NewDialect builds a dialect from the ordinary type table plus overrides. A nil
// nationalization means national character data is unsupported.
func NewDialect(
	name string,
	nationalization *resultmap.NationalizationSupport,
	overrides map[resultmap.ColumnCategory]resultmap.JDBCType,
	features ...resultmap.DialectFeature,
) resultmap.Dialect {
	return newBuiltinDialect(name, nationalization, overrides, features...)
}

var builtinDialects = map[string]*builtinDialect{
	"postgresql": newBuiltinDialect("postgresql", resultmap.NationalizationImplicit,
		map[resultmap.ColumnCategory]resultmap.JDBCType{
			resultmap.CategoryUUID: resultmap.JDBCTypeUUID,
		},
		resultmap.FeatureLOBColumns, resultmap.FeatureBooleanType, resultmap.FeatureUUIDType),
	"h2": newBuiltinDialect("h2", resultmap.NationalizationImplicit,
		map[resultmap.ColumnCategory]resultmap.JDBCType{
			resultmap.CategoryUUID: resultmap.JDBCTypeUUID,
		},
		resultmap.FeatureLOBColumns, resultmap.FeatureBooleanType, resultmap.FeatureUUIDType),
	"mysql": newBuiltinDialect("mysql", resultmap.NationalizationImplicit,
		map[resultmap.ColumnCategory]resultmap.JDBCType{
			resultmap.CategoryBoolean: resultmap.JDBCTypeBit,
			resultmap.CategoryUUID:    resultmap.JDBCTypeChar,
		},
		resultmap.FeatureLOBColumns),
	"sqlite": newBuiltinDialect("sqlite", resultmap.NationalizationImplicit,
		map[resultmap.ColumnCategory]resultmap.JDBCType{
			resultmap.CategoryUUID: resultmap.JDBCTypeVarchar,
		},
		resultmap.FeatureLOBColumns),
	"sqlserver": newBuiltinDialect("sqlserver", resultmap.NationalizationExplicit,
		map[resultmap.ColumnCategory]resultmap.JDBCType{
			resultmap.CategoryBoolean: resultmap.JDBCTypeBit,
			resultmap.CategoryUUID:    resultmap.JDBCTypeUUID,
		},
		resultmap.FeatureLOBColumns, resultmap.FeatureUUIDType),
	"oracle": newBuiltinDialect("oracle", resultmap.NationalizationExplicit,
		map[resultmap.ColumnCategory]resultmap.JDBCType{
			resultmap.CategoryBoolean: resultmap.JDBCTypeBit,
			resultmap.CategoryUUID:    resultmap.JDBCTypeVarbinary,
		},
		resultmap.FeatureLOBColumns),
	"duckdb": newBuiltinDialect("duckdb", nil,
		map[resultmap.ColumnCategory]resultmap.JDBCType{
			resultmap.CategoryCharacterLOB: resultmap.JDBCTypeVarchar,
			resultmap.CategoryUUID:         resultmap.JDBCTypeUUID,
		},
		resultmap.FeatureBooleanType, resultmap.FeatureUUIDType),
}

var dialectAliases = map[string]string{
	"postgres": "postgresql",
	"pg":       "postgresql",
	"dsql":     "postgresql",
	"mssql":    "sqlserver",
	"sqlite3":  "sqlite",
	"mariadb":  "mysql",
}

// LookupDialect returns a built-in dialect by name or alias, case-insensitively.
func LookupDialect(name string) (resultmap.Dialect, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := dialectAliases[key]; ok {
		key = canonical
	}
	d, ok := builtinDialects[key]
	if !ok {
		return nil, resultmap.NewNotFoundError("dialect", name).WithDetail("known", DialectNames())
	}
	return d, nil
}

// DialectNames lists the canonical built-in dialect names.
func DialectNames() []string {
	names := MapKeys(builtinDialects)
	sort.Strings(names)
	return names
}
