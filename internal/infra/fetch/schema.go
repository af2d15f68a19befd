package fetch

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"composer/internal/domain"
)

//go:embed schema/*.json
var schemaFS embed.FS

type documentKind string

const (
	documentRegistry documentKind = "registry"
	documentManifest documentKind = "manifest"
)

var (
	schemaOnce sync.Once
	schemas    map[documentKind]*jsonschema.Resolved
	schemaErr  error
)

func loadSchemas() (map[documentKind]*jsonschema.Resolved, error) {
	schemaOnce.Do(func() {
		schemas = make(map[documentKind]*jsonschema.Resolved, 2)
		for _, kind := range []documentKind{documentRegistry, documentManifest} {
			raw, err := schemaFS.ReadFile(fmt.Sprintf("schema/%s.schema.json", kind))
			if err != nil {
				schemaErr = err
				return
			}
			var schema jsonschema.Schema
			if err := json.Unmarshal(raw, &schema); err != nil {
				schemaErr = fmt.Errorf("parse %s schema: %w", kind, err)
				return
			}
			resolved, err := schema.Resolve(nil)
			if err != nil {
				schemaErr = fmt.Errorf("resolve %s schema: %w", kind, err)
				return
			}
			schemas[kind] = resolved
		}
	})
	return schemas, schemaErr
}

// validateDocument checks a decoded JSON value against the schema for kind.
func validateDocument(kind documentKind, doc any) error {
	resolved, err := loadSchemas()
	if err != nil {
		return domain.E(domain.CodeInternal, "load schema", "", err)
	}
	if err := resolved[kind].Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidPayload, kind, err)
	}
	return nil
}
