// Package defaults computes the initial form state implied by a schema and
// merges it with live form data.
package defaults

import (
	"fmt"

	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

// ComputeDefaults returns the default value for s given the default its
// parent implies for it. Deeper nodes take priority: a node's own default
// replaces (or, for objects, is merged over) the parent default, and object
// properties recurse with their slice of the result. nil means undefined.
func ComputeDefaults(s *schema.Schema, parentDefault any, definitions map[string]*schema.Schema) (any, error) {
	if s == nil {
		return schema.CloneValue(parentDefault), nil
	}
	if definitions == nil {
		definitions = s.Definitions
	}
	c := &computer{
		resolver: jsonschema.NewResolver(definitions),
		active:   make(map[string]int),
	}
	return c.compute(s, schema.CloneValue(parentDefault), nil)
}

// GetDefaultFormState computes the defaults for s and merges formData over
// them. Object form data is deep merged with formData winning; any other
// defined form data is returned as is. anyOf/oneOf nodes take their defaults
// from the option the form data at that node selects.
func GetDefaultFormState(s *schema.Schema, formData any, definitions map[string]*schema.Schema) (any, error) {
	if s == nil {
		return nil, &schema.InvalidSchemaError{Reason: "schema must be an object"}
	}
	if definitions == nil {
		definitions = s.Definitions
	}
	c := &computer{
		resolver: jsonschema.NewResolver(definitions),
		active:   make(map[string]int),
	}
	computed, err := c.compute(s, nil, formData)
	if err != nil {
		return nil, err
	}
	if formData == nil {
		return computed, nil
	}
	if data, ok := formData.(map[string]any); ok {
		base, _ := computed.(map[string]any)
		return MergeObjects(base, data), nil
	}
	return schema.CloneValue(formData), nil
}

type computer struct {
	resolver *jsonschema.Resolver
	active   map[string]int
}

// compute returns the defaults for s. data is the form data at the same
// node; it only steers option selection and is never copied into the result.
func (c *computer) compute(s *schema.Schema, effective, data any) (any, error) {
	if s == nil {
		return effective, nil
	}

	if s.Ref != "" || len(s.AllOf) > 0 {
		if ref := s.Ref; ref != "" {
			if c.active[ref] > 0 {
				// Recursive definition: stop expanding and keep what the parent gave.
				return effective, nil
			}
			c.active[ref]++
			defer func() { c.active[ref]-- }()
		}
		selector := data
		if selector == nil {
			selector = effective
		}
		resolved, err := c.resolver.Resolve(s, selector)
		if err != nil {
			return nil, fmt.Errorf("defaults: %w", err)
		}
		s = resolved
	}

	switch {
	case isObject(effective) && isObject(s.Default):
		effective = MergeObjects(effective.(map[string]any), s.Default.(map[string]any))
	case s.Default != nil:
		effective = schema.CloneValue(s.Default)
	case effective == nil && len(s.Enum) > 0:
		effective = schema.CloneValue(s.Enum[0])
	}

	if effective == nil && schema.IsMultiSchema(s) {
		_, option, err := c.resolver.SelectOption(s, data)
		if err != nil {
			return nil, fmt.Errorf("defaults: %w", err)
		}
		return c.compute(option, nil, data)
	}

	if effective == nil && s.IsFixedItems() {
		items := make([]any, len(s.TupleItems))
		given, _ := data.([]any)
		for idx, item := range s.TupleItems {
			value, err := c.compute(item, nil, indexOf(given, idx))
			if err != nil {
				return nil, err
			}
			items[idx] = value
		}
		effective = items
	}

	kind := s.Kind()
	if effective == nil {
		effective = emptyValue(kind)
	}

	switch kind {
	case schema.KindObject:
		return c.computeObject(s, effective, data)
	case schema.KindArray:
		return c.computeArray(s, effective, data)
	default:
		return effective, nil
	}
}

func (c *computer) computeObject(s *schema.Schema, effective, data any) (any, error) {
	values, _ := effective.(map[string]any)
	given, _ := data.(map[string]any)
	if s.Properties.Len() == 0 {
		if values == nil {
			return map[string]any{}, nil
		}
		return values, nil
	}
	out := make(map[string]any, s.Properties.Len())
	for name, child := range s.Properties.All() {
		value, err := c.compute(child, values[name], given[name])
		if err != nil {
			return nil, err
		}
		if value != nil {
			out[name] = value
		}
	}
	return out, nil
}

func (c *computer) computeArray(s *schema.Schema, effective, data any) (any, error) {
	items, ok := effective.([]any)
	if !ok {
		return effective, nil
	}
	given, _ := data.([]any)
	out := make([]any, len(items))
	for idx, item := range items {
		// Only tuple positions recompute; a single items schema would replace
		// every element with its own default.
		if !s.IsFixedItems() || s.ItemSchema(idx) == nil {
			out[idx] = item
			continue
		}
		itemSchema := s.ItemSchema(idx)
		value, err := c.compute(itemSchema, item, indexOf(given, idx))
		if err != nil {
			return nil, err
		}
		out[idx] = value
	}

	if s.MinItems == nil || len(out) >= *s.MinItems || isMultiSelect(s) {
		return out, nil
	}
	for idx := len(out); idx < *s.MinItems; idx++ {
		itemSchema := s.ItemSchema(idx)
		if itemSchema == nil {
			break
		}
		value, err := c.compute(itemSchema, nil, indexOf(given, idx))
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// isMultiSelect reports arrays rendered as a set of choices; padding those
// with defaults would pre-select options.
func isMultiSelect(s *schema.Schema) bool {
	unique, _ := s.Keyword("uniqueItems")
	if flag, ok := unique.(bool); !ok || !flag || s.Items == nil {
		return false
	}
	return len(s.Items.Enum) > 0
}

func indexOf(items []any, idx int) any {
	if idx < 0 || idx >= len(items) {
		return nil
	}
	return items[idx]
}

func emptyValue(kind schema.Kind) any {
	switch kind {
	case schema.KindString:
		return ""
	case schema.KindNumber:
		return float64(0)
	case schema.KindBoolean:
		return false
	case schema.KindArray:
		return []any{}
	case schema.KindObject:
		return map[string]any{}
	default:
		return nil
	}
}
