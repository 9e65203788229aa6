package jsonschema

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-formschema/pkg/schema"
)

const (
	definitionsPrefix = "#/definitions/"
	defsPrefix        = "#/$defs/"
)

// FindDefinition looks up a local "#/definitions/<name>[/<sub path>]" pointer.
// Sub paths may descend through properties, items, definitions, additionalItems
// and composition keywords. A pointer that does not resolve fails with
// *schema.DefinitionNotFoundError.
func FindDefinition(ref string, definitions map[string]*schema.Schema) (*schema.Schema, error) {
	var rest string
	switch {
	case strings.HasPrefix(ref, definitionsPrefix):
		rest = strings.TrimPrefix(ref, definitionsPrefix)
	case strings.HasPrefix(ref, defsPrefix):
		rest = strings.TrimPrefix(ref, defsPrefix)
	default:
		return nil, &schema.DefinitionNotFoundError{Ref: ref}
	}

	tokens, err := pointerTokens(rest)
	if err != nil || len(tokens) == 0 {
		return nil, &schema.DefinitionNotFoundError{Ref: ref}
	}
	current, ok := definitions[tokens[0]]
	if !ok || current == nil {
		return nil, &schema.DefinitionNotFoundError{Ref: ref}
	}
	current, err = descend(current, tokens[1:], definitions, false)
	if err != nil {
		return nil, &schema.DefinitionNotFoundError{Ref: ref}
	}
	return current, nil
}

// Lookup walks root along a JSON pointer such as a validator keyword location
// ("/properties/foo/minLength"). Trailing keyword tokens that do not address a
// sub-schema are ignored, so the node owning the keyword is returned. "$ref"
// tokens are followed through the root's definitions.
func Lookup(root *schema.Schema, pointer string) (*schema.Schema, error) {
	if root == nil {
		return nil, fmt.Errorf("jsonschema: lookup %q: schema is nil", pointer)
	}
	pointer = strings.TrimPrefix(pointer, "#")
	tokens, err := pointerTokens(strings.TrimPrefix(pointer, "/"))
	if err != nil {
		return nil, err
	}
	return descend(root, tokens, root.Definitions, true)
}

// descend follows schema-addressing tokens. A strict walk requires every
// token to address a sub-schema; a lenient walk stops at the first keyword
// token and follows $ref tokens.
func descend(current *schema.Schema, tokens []string, definitions map[string]*schema.Schema, lenient bool) (*schema.Schema, error) {
	for idx := 0; idx < len(tokens); idx++ {
		token := tokens[idx]
		next := ""
		if idx+1 < len(tokens) {
			next = tokens[idx+1]
		}
		switch token {
		case "properties":
			child, ok := current.Properties.Get(next)
			if !ok {
				return nil, fmt.Errorf("jsonschema: property %q not found", next)
			}
			current = child
			idx++
		case "definitions", "$defs":
			child, ok := current.Definitions[next]
			if !ok {
				return nil, fmt.Errorf("jsonschema: definition %q not found", next)
			}
			current = child
			idx++
		case "items":
			if position, err := strconv.Atoi(next); err == nil && current.IsFixedItems() {
				if position < 0 || position >= len(current.TupleItems) {
					return nil, fmt.Errorf("jsonschema: tuple item %d out of range", position)
				}
				current = current.TupleItems[position]
				idx++
				continue
			}
			if current.Items == nil {
				return nil, fmt.Errorf("jsonschema: items not declared")
			}
			current = current.Items
		case "additionalItems":
			if current.AdditionalItems == nil {
				return nil, fmt.Errorf("jsonschema: additionalItems not declared")
			}
			current = current.AdditionalItems
		case "allOf", "anyOf", "oneOf":
			branches := compositeBranches(current, token)
			position, err := strconv.Atoi(next)
			if err != nil || position < 0 || position >= len(branches) {
				if lenient && err != nil {
					return current, nil
				}
				return nil, fmt.Errorf("jsonschema: %s branch %q not found", token, next)
			}
			current = branches[position]
			idx++
		case "$ref":
			if !lenient {
				return nil, fmt.Errorf("jsonschema: unexpected $ref token")
			}
			target, err := FindDefinition(current.Ref, definitions)
			if err != nil {
				return nil, err
			}
			current = target
		default:
			if lenient {
				return current, nil
			}
			return nil, fmt.Errorf("jsonschema: unsupported pointer token %q", token)
		}
		if current == nil {
			return nil, fmt.Errorf("jsonschema: pointer addresses an empty schema")
		}
	}
	return current, nil
}

func compositeBranches(s *schema.Schema, keyword string) []*schema.Schema {
	switch keyword {
	case "allOf":
		return s.AllOf
	case "anyOf":
		return s.AnyOf
	default:
		return s.OneOf
	}
}

func pointerTokens(pointer string) ([]string, error) {
	if pointer == "" {
		return nil, nil
	}
	parts := strings.Split(pointer, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		decoded, err := url.PathUnescape(part)
		if err != nil {
			return nil, err
		}
		decoded = strings.ReplaceAll(decoded, "~1", "/")
		decoded = strings.ReplaceAll(decoded, "~0", "~")
		out = append(out, decoded)
	}
	return out, nil
}

func escapeJSONPointer(value string) string {
	replacer := strings.NewReplacer("~", "~0", "/", "~1")
	return replacer.Replace(value)
}

func splitRef(ref string) (string, string) {
	parts := strings.SplitN(ref, "#", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
