package scoring

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// markingSchemeSchema pins the wire shape of a marking-scheme document.
// CalculateScore assumes a fully-populated scheme, so every field is
// required here; the transport layer runs this before decoding.
const markingSchemeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["singleCorrect", "numerical", "multipleCorrect"],
  "$defs": {
    "triple": {
      "type": "object",
      "required": ["correct", "incorrect", "unanswered"],
      "properties": {
        "correct": {"type": "integer"},
        "incorrect": {"type": "integer"},
        "unanswered": {"type": "integer"}
      }
    }
  },
  "properties": {
    "singleCorrect": {
      "type": "object",
      "required": ["global", "default"],
      "properties": {
        "global": {"type": "boolean"},
        "default": {"$ref": "#/$defs/triple"}
      }
    },
    "numerical": {"$ref": "#/$defs/triple"},
    "multipleCorrect": {
      "type": "object",
      "required": ["allCorrect", "partialCorrect", "anyIncorrect", "unanswered"],
      "properties": {
        "allCorrect": {"type": "integer"},
        "anyIncorrect": {"type": "integer"},
        "unanswered": {"type": "integer"},
        "partialCorrect": {
          "type": "object",
          "required": ["allCorrectOptionsThreeMarked", "twoCorrectOptionsMarked", "oneCorrectOptionMarked"],
          "properties": {
            "allCorrectOptionsThreeMarked": {"type": "integer"},
            "twoCorrectOptionsMarked": {"type": "integer"},
            "oneCorrectOptionMarked": {"type": "integer"}
          }
        }
      }
    }
  }
}`

var (
	schemeSchemaOnce sync.Once
	schemeSchema     *jsonschema.Schema
	schemeSchemaErr  error
)

func compiledSchemeSchema() (*jsonschema.Schema, error) {
	schemeSchemaOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(markingSchemeSchema), &def); err != nil {
			schemeSchemaErr = fmt.Errorf("parse marking scheme schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://marking-scheme.json"
		if err := c.AddResource(url, def); err != nil {
			schemeSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schemeSchema, schemeSchemaErr = c.Compile(url)
	})
	return schemeSchema, schemeSchemaErr
}

// ParseMarkingScheme validates a marking-scheme document against the
// embedded schema and decodes it. A nil/empty document yields the defaults.
func ParseMarkingScheme(raw []byte) (MarkingScheme, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return DefaultMarkingScheme(), nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return MarkingScheme{}, fmt.Errorf("marking scheme is not valid JSON: %w", err)
	}

	schema, err := compiledSchemeSchema()
	if err != nil {
		return MarkingScheme{}, err
	}
	if err := schema.Validate(parsed); err != nil {
		return MarkingScheme{}, fmt.Errorf("marking scheme rejected: %w", err)
	}

	var scheme MarkingScheme
	if err := json.Unmarshal(raw, &scheme); err != nil {
		return MarkingScheme{}, fmt.Errorf("decode marking scheme: %w", err)
	}
	return scheme, nil
}
