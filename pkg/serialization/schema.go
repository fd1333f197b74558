package serialization

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const archiveSchemaURL = "archive-object.json"

// archiveSchema describes one object of a JSON archive: a type tag and a
// property bag whose values are scalars, arrays or nested objects. Only the
// top-level object needs a non-empty tag.
const archiveSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "allOf": [
    {"$ref": "#/definitions/object"},
    {"properties": {"type": {"minLength": 1}}}
  ],
  "definitions": {
    "object": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string"},
        "properties": {
          "type": ["object", "null"],
          "additionalProperties": {"$ref": "#/definitions/value"}
        }
      }
    },
    "value": {
      "anyOf": [
        {"type": ["string", "number", "boolean", "null"]},
        {"type": "array", "items": {"$ref": "#/definitions/value"}},
        {"$ref": "#/definitions/object"}
      ]
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadArchiveSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(archiveSchemaURL, strings.NewReader(archiveSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(archiveSchemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateJSONArchive checks every object of an uncompressed newline-delimited
// JSON archive against the archive object schema. It returns the number of
// objects checked.
func ValidateJSONArchive(r io.Reader) (int, error) {
	schema, err := loadArchiveSchema()
	if err != nil {
		return 0, fmt.Errorf("compile archive schema: %w", err)
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	count := 0
	for {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, fmt.Errorf("object %d: %w", count, err)
		}
		if err := schema.Validate(doc); err != nil {
			return count, fmt.Errorf("%w: object %d: %v", ErrMalformedObject, count, err)
		}
		count++
	}
}
