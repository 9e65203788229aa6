package jsonschema

import (
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/schema"
)

// StructuralMatch is the fallback BranchMatcher. It accepts formData when its
// JSON type fits the option, required properties are present, and const/enum
// constraints hold for the value and for each declared property.
func StructuralMatch(formData any, option *schema.Schema, definitions map[string]*schema.Schema) bool {
	if option == nil {
		return false
	}
	if !typeMatches(formData, option) {
		return false
	}
	if option.Const != nil && !cmp.Equal(option.Const, formData) {
		return false
	}
	if len(option.Enum) > 0 && !containsValue(option.Enum, formData) {
		return false
	}

	values, ok := formData.(map[string]any)
	if !ok {
		return true
	}
	for _, name := range option.Required {
		if _, present := values[name]; !present {
			return false
		}
	}
	for name, child := range option.Properties.All() {
		value, present := values[name]
		if !present || child == nil {
			continue
		}
		if child.Ref != "" {
			resolved, err := NewResolver(definitions).Resolve(child, value)
			if err != nil {
				return false
			}
			child = resolved
		}
		if child.Const != nil && !cmp.Equal(child.Const, value) {
			return false
		}
		if len(child.Enum) > 0 && !containsValue(child.Enum, value) {
			return false
		}
		if child.TypeName() != "" && !typeMatches(value, child) {
			return false
		}
	}
	return true
}

func typeMatches(value any, s *schema.Schema) bool {
	names := s.Types
	if s.Type != "" {
		names = []string{s.Type}
	}
	if len(names) == 0 {
		return true
	}
	actual := schema.GuessType(value)
	for _, name := range names {
		switch {
		case name == actual:
			return true
		case name == "integer" && actual == "number":
			if f, ok := value.(float64); ok && f == float64(int64(f)) {
				return true
			}
		}
	}
	return false
}

func containsValue(list []any, value any) bool {
	for _, entry := range list {
		if cmp.Equal(entry, value) {
			return true
		}
	}
	return false
}
