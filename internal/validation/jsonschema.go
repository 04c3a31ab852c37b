// Package validation wires github.com/santhosh-tekuri/jsonschema/v6 for
// optional, opt-in validation of action input values against a JSON
// Schema a schema author supplies. The core walker never requires this:
// it's consumed by builtin actions (assert.schema) and any host action
// that wants the same capability.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/forgewalk/forge/pkg/forge"
)

// JSONSchemaValidator validates arbitrary data against JSON Schema
// Draft 2020-12 documents, compiling and caching each distinct schema it
// sees. Safe for concurrent use. Exposes a single ValidateInput
// operation — tree/action document structure is validated elsewhere,
// by the loader and the walker as they consume it.
type JSONSchemaValidator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator creates an empty validator.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{cache: make(map[string]*jsonschema.Schema)}
}

// ValidateInput validates data against a JSON Schema document provided
// as raw bytes. An empty schema means "no schema required" and always
// passes.
func (v *JSONSchemaValidator) ValidateInput(data any, inputSchema []byte) error {
	if len(inputSchema) == 0 {
		return nil
	}

	compiled, err := v.getOrCompile(inputSchema)
	if err != nil {
		return forge.NewError(forge.ErrCodeValidation, "invalid input schema").WithCause(err)
	}

	doc, err := toJSONValue(data)
	if err != nil {
		return forge.NewError(forge.ErrCodeValidation, "failed to serialize input").WithCause(err)
	}

	if err := compiled.Validate(doc); err != nil {
		return toForgeError(err)
	}
	return nil
}

func (v *JSONSchemaValidator) getOrCompile(schemaBytes []byte) (*jsonschema.Schema, error) {
	key := string(schemaBytes)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := fmt.Sprintf("forge://input-schema/%d", len(v.cache))
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so
// that numeric values become json.Number, as santhosh-tekuri/jsonschema
// requires.
func toJSONValue(val any) (any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toForgeError converts a jsonschema.ValidationError into a
// *forge.ForgeError carrying the flattened list of violations.
func toForgeError(err error) *forge.ForgeError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return forge.NewError(forge.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return forge.NewError(forge.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return forge.NewError(forge.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return forge.NewError(forge.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
