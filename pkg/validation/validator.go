// Package validation runs form data through a JSON Schema validator and turns
// the result into the error views a form renders: the flat ValidationError
// list, the nested ErrorSchema, the display list, and the ordered list.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

const resourceName = "schema.json"

// Validator checks form data against a schema. Findings about the data are
// returned as ValidationErrors; the error result is reserved for problems
// with the schema or the validator itself.
type Validator interface {
	Validate(formData any, s *schema.Schema) ([]errorschema.ValidationError, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(formData any, s *schema.Schema) ([]errorschema.ValidationError, error)

// Validate implements Validator.
func (fn ValidatorFunc) Validate(formData any, s *schema.Schema) ([]errorschema.ValidationError, error) {
	return fn(formData, s)
}

// JSONSchemaValidator validates with santhosh-tekuri/jsonschema. Compiled
// schemas are cached by their encoded form.
type JSONSchemaValidator struct {
	mu        sync.RWMutex
	compiled  map[string]*jsonschema.Schema
	draft     *jsonschema.Draft
	formatter MessageFormatter
	log       zerolog.Logger
}

// ValidatorOption customises a JSONSchemaValidator.
type ValidatorOption func(*JSONSchemaValidator)

// WithDraft selects the draft used when the schema has no $schema.
func WithDraft(draft *jsonschema.Draft) ValidatorOption {
	return func(v *JSONSchemaValidator) {
		if draft != nil {
			v.draft = draft
		}
	}
}

// WithMessageFormatter replaces the message formatter.
func WithMessageFormatter(formatter MessageFormatter) ValidatorOption {
	return func(v *JSONSchemaValidator) {
		if formatter != nil {
			v.formatter = formatter
		}
	}
}

// WithValidatorLogger attaches a logger.
func WithValidatorLogger(log zerolog.Logger) ValidatorOption {
	return func(v *JSONSchemaValidator) {
		v.log = log
	}
}

// NewJSONSchemaValidator creates a validator defaulting to draft-07.
func NewJSONSchemaValidator(opts ...ValidatorOption) *JSONSchemaValidator {
	v := &JSONSchemaValidator{
		compiled:  make(map[string]*jsonschema.Schema),
		draft:     jsonschema.Draft7,
		formatter: DefaultMessageFormatter,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate implements Validator.
func (v *JSONSchemaValidator) Validate(formData any, s *schema.Schema) ([]errorschema.ValidationError, error) {
	if s == nil {
		return nil, &schema.InvalidSchemaError{Reason: "schema is nil"}
	}
	compiled, err := v.Compile(s)
	if err != nil {
		return nil, err
	}

	instance := dropUndefined(schema.NormalizeValue(formData))
	err = compiled.Validate(instance)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, fmt.Errorf("validation: %w", err)
	}

	f := &flattener{root: s, instance: instance, formatter: v.formatter}
	f.walk(verr)
	v.log.Debug().Int("errors", len(f.out)).Msg("form data failed validation")
	return f.out, nil
}

// Compile returns the compiled form of s, using the cache when possible.
func (v *JSONSchemaValidator) Compile(s *schema.Schema) (*jsonschema.Schema, error) {
	raw, err := encodeForValidator(s)
	if err != nil {
		return nil, fmt.Errorf("validation: encode schema: %w", err)
	}
	cacheKey := string(raw)

	v.mu.RLock()
	if compiled, exists := v.compiled[cacheKey]; exists {
		v.mu.RUnlock()
		return compiled, nil
	}
	v.mu.RUnlock()

	compiler := jsonschema.NewCompiler()
	compiler.Draft = v.draft
	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("validation: add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("validation: compile schema: %w", err)
	}
	v.log.Debug().Int("bytes", len(raw)).Msg("compiled schema")

	v.mu.Lock()
	v.compiled[cacheKey] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// ClearCache drops every compiled schema.
func (v *JSONSchemaValidator) ClearCache() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.compiled = make(map[string]*jsonschema.Schema)
}

// encodeForValidator serialises s with "#/$defs/" references rewritten to
// the "definitions" keyword the decoded tree keeps them under.
func encodeForValidator(s *schema.Schema) ([]byte, error) {
	value := rewriteRefs(s.ToValue())
	return json.Marshal(value)
}

// dropUndefined removes nil object members; nil stands for "not set" in form
// data and must not be validated as JSON null.
func dropUndefined(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, entry := range typed {
			if entry == nil {
				delete(typed, key)
				continue
			}
			typed[key] = dropUndefined(entry)
		}
		return typed
	case []any:
		for idx, entry := range typed {
			typed[idx] = dropUndefined(entry)
		}
		return typed
	default:
		return typed
	}
}

func rewriteRefs(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, entry := range typed {
			if ref, ok := entry.(string); ok && key == "$ref" && strings.HasPrefix(ref, "#/$defs/") {
				typed[key] = "#/definitions/" + strings.TrimPrefix(ref, "#/$defs/")
				continue
			}
			typed[key] = rewriteRefs(entry)
		}
		return typed
	case []any:
		for idx, entry := range typed {
			typed[idx] = rewriteRefs(entry)
		}
		return typed
	default:
		return typed
	}
}
