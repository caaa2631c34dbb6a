package internal

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/resultmap"
)

//go:embed definition_schema.json
var definitionSchemaJSON []byte

var (
	definitionSchemaOnce sync.Once
	definitionSchema     *jsonschema.Resolved
	definitionSchemaErr  error
)

func resolvedDefinitionSchema() (*jsonschema.Resolved, error) {
	definitionSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal(definitionSchemaJSON, &schema); err != nil {
			definitionSchemaErr = fmt.Errorf("failed to unmarshal definition schema: %w", err)
			return
		}
		definitionSchema, definitionSchemaErr = schema.Resolve(&jsonschema.ResolveOptions{})
	})
	return definitionSchema, definitionSchemaErr
}

// ValidateDefinitionJSON checks a raw document against the embedded definition schema.
func ValidateDefinitionJSON(source string, data []byte) error {
	resolved, err := resolvedDefinitionSchema()
	if err != nil {
		return resultmap.NewDefinitionInvalidError(source, "definition schema is unusable", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return resultmap.NewDefinitionInvalidError(source, "document is not valid JSON", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return resultmap.NewDefinitionInvalidError(source, "document does not match the definition schema", err)
	}
	return nil
}

// ParseDefinitionDocument decodes one document, optionally validating it first. source is
// used in error messages only.
func ParseDefinitionDocument(source string, data []byte, validate bool) (*resultmap.DefinitionDocument, error) {
	if validate {
		if err := ValidateDefinitionJSON(source, data); err != nil {
			return nil, err
		}
	}

	var doc resultmap.DefinitionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, resultmap.NewDefinitionInvalidError(source, "failed to decode definitions", err)
	}
	doc.Source = source

	for i, m := range doc.ResultSetMappings {
		if m == nil || m.Name == "" {
			return nil, resultmap.NewDefinitionInvalidError(source,
				fmt.Sprintf("resultSetMappings[%d] has no name", i), nil)
		}
	}
	for i, q := range doc.NamedQueries {
		if q == nil || q.Name == "" {
			return nil, resultmap.NewDefinitionInvalidError(source,
				fmt.Sprintf("namedQueries[%d] has no name", i), nil)
		}
	}
	return &doc, nil
}
