package resultmap

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeResolution    ErrorType = "resolution"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeExecution     ErrorType = "execution"
	ErrorTypeInternal      ErrorType = "internal"
)

// Error codes
const (
	ErrCodeNotFound                  = "NOT_FOUND"
	ErrCodeDuplicateName             = "DUPLICATE_NAME"
	ErrCodeUnresolvableMapping       = "UNRESOLVABLE_MAPPING"
	ErrCodeInvalidArgument           = "INVALID_ARGUMENT"
	ErrCodeUnsupportedDialectFeature = "UNSUPPORTED_DIALECT_FEATURE"
	ErrCodeRepositoryClosed          = "REPOSITORY_CLOSED"
	ErrCodeDefinitionInvalid         = "DEFINITION_INVALID"
	ErrCodeRowReadFailed             = "ROW_READ_FAILED"
)

// MappingError is the error returned by every mapping, registration and resolution operation.
type MappingError struct {
	Type      ErrorType      `json:"type"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Name      string         `json:"name,omitempty"`
	Attribute string         `json:"attribute,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *MappingError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.Name != "" && e.Attribute != "" {
		return fmt.Sprintf("[%s:%s] %s.%s: %s", e.Type, e.Code, e.Name, e.Attribute, msg)
	}
	if e.Name != "" {
		return fmt.Sprintf("[%s:%s] '%s': %s", e.Type, e.Code, e.Name, msg)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, msg)
}

func (e *MappingError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a MappingError
func (e *MappingError) WithDetail(key string, value any) *MappingError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a MappingError
func (e *MappingError) WithCause(cause error) *MappingError {
	e.Cause = cause
	return e
}

// WithAttribute names the offending attribute
func (e *MappingError) WithAttribute(attribute string) *MappingError {
	e.Attribute = attribute
	return e
}

// NewMappingError creates a new MappingError
func NewMappingError(errorType ErrorType, code, message string) *MappingError {
	return &MappingError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewNotFoundError reports an unknown name of the given kind ("result set mapping", "query", ...).
func NewNotFoundError(kind, name string) *MappingError {
	return &MappingError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeNotFound,
		Message: kind + " not found",
		Name:    name,
		Details: map[string]any{"kind": kind},
	}
}

// NewDuplicateNameError reports a conflicting re-registration.
func NewDuplicateNameError(kind, name string) *MappingError {
	return &MappingError{
		Type:    ErrorTypeConflict,
		Code:    ErrCodeDuplicateName,
		Message: kind + " already registered with a different definition",
		Name:    name,
		Details: map[string]any{"kind": kind},
	}
}

// NewUnresolvableMappingError reports a memento referencing metadata absent from the domain model.
func NewUnresolvableMappingError(name, message string) *MappingError {
	return &MappingError{
		Type:    ErrorTypeResolution,
		Code:    ErrCodeUnresolvableMapping,
		Message: message,
		Name:    name,
		Details: make(map[string]any),
	}
}

// NewInvalidArgumentError reports a malformed call.
func NewInvalidArgumentError(message string) *MappingError {
	return &MappingError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeInvalidArgument,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewUnsupportedDialectFeatureError reports a feature the dialect does not declare.
func NewUnsupportedDialectFeatureError(dialect string, feature DialectFeature) *MappingError {
	return &MappingError{
		Type:    ErrorTypeConfiguration,
		Code:    ErrCodeUnsupportedDialectFeature,
		Message: fmt.Sprintf("dialect does not support %s", feature),
		Name:    dialect,
		Details: map[string]any{"feature": string(feature)},
	}
}

// NewRepositoryClosedError reports use of a repository after Close.
func NewRepositoryClosedError() *MappingError {
	return &MappingError{
		Type:    ErrorTypeExecution,
		Code:    ErrCodeRepositoryClosed,
		Message: "named query repository is closed",
		Details: make(map[string]any),
	}
}

// NewDefinitionInvalidError reports a definition document that failed validation or decoding.
func NewDefinitionInvalidError(source, message string, cause error) *MappingError {
	return &MappingError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeDefinitionInvalid,
		Message: message,
		Name:    source,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewRowReadError reports a failure while materializing result rows.
func NewRowReadError(message string, cause error) *MappingError {
	return &MappingError{
		Type:    ErrorTypeExecution,
		Code:    ErrCodeRowReadFailed,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

func hasCode(err error, code string) bool {
	var me *MappingError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

func IsNotFoundError(err error) bool { return hasCode(err, ErrCodeNotFound) }

func IsDuplicateNameError(err error) bool { return hasCode(err, ErrCodeDuplicateName) }

func IsUnresolvableMappingError(err error) bool { return hasCode(err, ErrCodeUnresolvableMapping) }

func IsInvalidArgumentError(err error) bool { return hasCode(err, ErrCodeInvalidArgument) }

func IsUnsupportedDialectFeatureError(err error) bool {
	return hasCode(err, ErrCodeUnsupportedDialectFeature)
}

func IsRepositoryClosedError(err error) bool { return hasCode(err, ErrCodeRepositoryClosed) }

func IsDefinitionInvalidError(err error) bool { return hasCode(err, ErrCodeDefinitionInvalid) }

func IsRowReadError(err error) bool { return hasCode(err, ErrCodeRowReadFailed) }

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
