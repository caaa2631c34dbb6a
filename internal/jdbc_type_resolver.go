package internal

import (
	"fmt"

	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
)

// ResolveJdbcMapping computes the JDBC mapping an attribute is persisted and read as.
//
// Nationalized character data uses the dialect's national variant: the CLOB variant for
// LOBs and the VARCHAR variant for everything else, single characters included. All other
// attributes use the dialect's ordinary code for the matching column category.
func ResolveJdbcMapping(
	attributeType resultmap.AttributeType,
	nationalized bool,
	lob bool,
	dialect resultmap.Dialect,
) (resultmap.JdbcMapping, error) {
	if dialect == nil {
		return resultmap.JdbcMapping{}, resultmap.NewInvalidArgumentError("dialect is required")
	}
	if !attributeType.Valid() {
		return resultmap.JdbcMapping{}, resultmap.NewInvalidArgumentError(
			fmt.Sprintf("unknown attribute type %q", attributeType))
	}

	mapping := resultmap.JdbcMapping{AttributeType: attributeType, Lob: lob}

	if nationalized {
		if !attributeType.IsCharacterData() {
			return resultmap.JdbcMapping{}, resultmap.NewInvalidArgumentError(
				fmt.Sprintf("attribute type %s cannot be nationalized", attributeType))
		}
		support := dialect.NationalizationSupport()
		if support == nil {
			return resultmap.JdbcMapping{}, resultmap.NewUnsupportedDialectFeatureError(
				dialect.Name(), resultmap.FeatureNationalizedData)
		}
		if lob {
			mapping.TypeCode = support.ClobVariantCode
		} else {
			mapping.TypeCode = support.VarcharVariantCode
		}
		zap.S().Debugw("resolved nationalized jdbc mapping",
			"dialect", dialect.Name(), "attributeType", attributeType, "lob", lob, "code", mapping.TypeCode)
		return mapping, nil
	}

	category, err := columnCategory(attributeType, lob)
	if err != nil {
		return resultmap.JdbcMapping{}, err
	}
	code, err := dialect.TypeCode(category)
	if err != nil {
		return resultmap.JdbcMapping{}, err
	}
	mapping.TypeCode = code
	return mapping, nil
}

func columnCategory(attributeType resultmap.AttributeType, lob bool) (resultmap.ColumnCategory, error) {
	if attributeType.IsCharacterData() {
		switch {
		case lob:
			return resultmap.CategoryCharacterLOB, nil
		case attributeType == resultmap.AttributeTypeChar:
			return resultmap.CategoryFixedString, nil
		default:
			return resultmap.CategoryVarString, nil
		}
	}
	if attributeType == resultmap.AttributeTypeBytes {
		if lob {
			return resultmap.CategoryBinaryLOB, nil
		}
		return resultmap.CategoryBinary, nil
	}
	if lob {
		return "", resultmap.NewInvalidArgumentError(
			fmt.Sprintf("attribute type %s cannot be a LOB", attributeType))
	}
	switch attributeType {
	case resultmap.AttributeTypeBool:
		return resultmap.CategoryBoolean, nil
	case resultmap.AttributeTypeInt16:
		return resultmap.CategorySmallInt, nil
	case resultmap.AttributeTypeInt32:
		return resultmap.CategoryInteger, nil
	case resultmap.AttributeTypeInt64:
		return resultmap.CategoryBigInt, nil
	case resultmap.AttributeTypeFloat64:
		return resultmap.CategoryDouble, nil
	case resultmap.AttributeTypeDecimal:
		return resultmap.CategoryDecimal, nil
	case resultmap.AttributeTypeDate:
		return resultmap.CategoryDate, nil
	case resultmap.AttributeTypeTime:
		return resultmap.CategoryTime, nil
	case resultmap.AttributeTypeTimestamp:
		return resultmap.CategoryTimestamp, nil
	case resultmap.AttributeTypeUUID:
		return resultmap.CategoryUUID, nil
	}
	return "", resultmap.NewInvalidArgumentError(fmt.Sprintf("no column category for %s", attributeType))
}
