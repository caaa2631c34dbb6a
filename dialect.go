package resultmap

import (
	"fmt"
	"strings"
)

// Dialect is the capability surface of a database dialect consumed by type resolution.
type Dialect interface {
	Name() string
	// NationalizationSupport returns nil when the dialect cannot store national character data.
	NationalizationSupport() *NationalizationSupport
	// TypeCode returns the type code the dialect uses for a column category.
	TypeCode(category ColumnCategory) (JDBCType, error)
	Supports(feature DialectFeature) bool
}

// NationalizationSupport describes how a dialect stores national character data.
type NationalizationSupport struct {
	Name                   string   `json:"name"`
	CharVariantCode        JDBCType `json:"charVariantCode"`
	VarcharVariantCode     JDBCType `json:"varcharVariantCode"`
	LongVarcharVariantCode JDBCType `json:"longVarcharVariantCode"`
	ClobVariantCode        JDBCType `json:"clobVariantCode"`
}

var (
	// NationalizationImplicit is used by dialects whose ordinary character types are already Unicode.
	NationalizationImplicit = &NationalizationSupport{
		Name:                   "implicit",
		CharVariantCode:        JDBCTypeChar,
		VarcharVariantCode:     JDBCTypeVarchar,
		LongVarcharVariantCode: JDBCTypeLongVarchar,
		ClobVariantCode:        JDBCTypeClob,
	}
	// NationalizationExplicit is used by dialects with dedicated N-prefixed column types.
	NationalizationExplicit = &NationalizationSupport{
		Name:                   "explicit",
		CharVariantCode:        JDBCTypeNChar,
		VarcharVariantCode:     JDBCTypeNVarchar,
		LongVarcharVariantCode: JDBCTypeLongNVarchar,
		ClobVariantCode:        JDBCTypeNClob,
	}
)

// VariantCode returns the national variant for a character column category.
func (n *NationalizationSupport) VariantCode(category ColumnCategory) (JDBCType, bool) {
	switch category {
	case CategoryFixedString, CategoryNationalFixedString:
		return n.CharVariantCode, true
	case CategoryVarString, CategoryNationalVarString:
		return n.VarcharVariantCode, true
	case CategoryLongVarString, CategoryNationalLongVarString:
		return n.LongVarcharVariantCode, true
	case CategoryCharacterLOB, CategoryNationalLOB:
		return n.ClobVariantCode, true
	default:
		return 0, false
	}
}

// DialectFeature names an optional capability a dialect may declare.
type DialectFeature string

const (
	FeatureNationalizedData          DialectFeature = "nationalized_data"
	FeatureExplicitNationalizedTypes DialectFeature = "explicit_nationalized_types"
	FeatureLOBColumns                DialectFeature = "lob_columns"
	FeatureBooleanType               DialectFeature = "boolean_type"
	FeatureUUIDType                  DialectFeature = "uuid_type"
)

// Requirement is a precondition on a dialect, evaluated before an operation runs.
type Requirement interface {
	Satisfied(d Dialect) bool
	// Check returns an UnsupportedDialectFeature error naming the first unmet feature.
	Check(d Dialect) error
	String() string
}

// RequireFeature is satisfied when the dialect supports the feature.
func RequireFeature(feature DialectFeature) Requirement {
	return featureRequirement{feature: feature}
}

// AllOf is satisfied when every requirement is.
func AllOf(reqs ...Requirement) Requirement {
	return allOf(reqs)
}

// AnyOf is satisfied when at least one requirement is. An empty AnyOf is never satisfied.
func AnyOf(reqs ...Requirement) Requirement {
	return anyOf(reqs)
}

// Not inverts a requirement.
func Not(req Requirement) Requirement {
	return not{req: req}
}

type featureRequirement struct {
	feature DialectFeature
}

func (r featureRequirement) Satisfied(d Dialect) bool {
	return d != nil && d.Supports(r.feature)
}

func (r featureRequirement) Check(d Dialect) error {
	if r.Satisfied(d) {
		return nil
	}
	return NewUnsupportedDialectFeatureError(dialectName(d), r.feature)
}

func (r featureRequirement) String() string { return string(r.feature) }

type allOf []Requirement

func (r allOf) Satisfied(d Dialect) bool {
	for _, req := range r {
		if !req.Satisfied(d) {
			return false
		}
	}
	return true
}

func (r allOf) Check(d Dialect) error {
	for _, req := range r {
		if err := req.Check(d); err != nil {
			return err
		}
	}
	return nil
}

func (r allOf) String() string { return joinRequirements("allOf", r) }

type anyOf []Requirement

func (r anyOf) Satisfied(d Dialect) bool {
	for _, req := range r {
		if req.Satisfied(d) {
			return true
		}
	}
	return false
}

func (r anyOf) Check(d Dialect) error {
	if r.Satisfied(d) {
		return nil
	}
	return NewUnsupportedDialectFeatureError(dialectName(d), DialectFeature(r.String()))
}

func (r anyOf) String() string { return joinRequirements("anyOf", r) }

type not struct {
	req Requirement
}

func (r not) Satisfied(d Dialect) bool {
	return !r.req.Satisfied(d)
}

func (r not) Check(d Dialect) error {
	if r.Satisfied(d) {
		return nil
	}
	return NewUnsupportedDialectFeatureError(dialectName(d), DialectFeature(r.String()))
}

func (r not) String() string { return fmt.Sprintf("not(%s)", r.req) }

func joinRequirements(op string, reqs []Requirement) string {
	parts := make([]string, len(reqs))
	for i, req := range reqs {
		parts[i] = req.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}

func dialectName(d Dialect) string {
	if d == nil {
		return "<nil>"
	}
	return d.Name()
}
