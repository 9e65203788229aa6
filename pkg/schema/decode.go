package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// object is a decoded mapping that remembers key order.
type object struct {
	keys   []string
	values map[string]any
}

func newObject(size int) *object {
	return &object{keys: make([]string, 0, size), values: make(map[string]any, size)}
}

func (o *object) set(key string, value any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Parse decodes a JSON or YAML schema document. Property declaration order is
// preserved for both encodings.
func Parse(raw []byte) (*Schema, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &InvalidSchemaError{Reason: "document is empty"}
	}

	var (
		root any
		err  error
	)
	if trimmed[0] == '{' || trimmed[0] == '[' {
		root, err = decodeJSON(trimmed)
	} else {
		root, err = decodeYAML(trimmed)
	}
	if err != nil {
		return nil, err
	}
	return fromNode(root, "#")
}

// FromValue builds a Schema from an already decoded JSON-like value. Map keys
// carry no order, so properties are declared in sorted key order.
func FromValue(value any) (*Schema, error) {
	return fromNode(orderedFromValue(value), "#")
}

// FromYAMLNode builds a Schema from a node of an already decoded YAML or JSON
// document, keeping property order.
func FromYAMLNode(node *yaml.Node) (*Schema, error) {
	if node == nil {
		return nil, &InvalidSchemaError{Reason: "document is empty"}
	}
	root, err := readYAMLNode(node, 0)
	if err != nil {
		return nil, err
	}
	return fromNode(root, "#")
}

// MustParse panics when raw cannot be parsed. Useful for tests.
func MustParse(raw string) *Schema {
	s, err := Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	return s
}

func fromNode(root any, path string) (*Schema, error) {
	obj, ok := root.(*object)
	if !ok {
		return nil, &InvalidSchemaError{Reason: fmt.Sprintf("root must be a mapping, got %s", describe(root))}
	}
	return buildSchema(obj, path)
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	value, err := readJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("schema: parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("schema: parse json: trailing data after document")
	}
	return value, nil
}

func readJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch typed := tok.(type) {
	case json.Delim:
		switch typed {
		case '{':
			obj := newObject(4)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			list := make([]any, 0, 4)
			for dec.More() {
				value, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", typed)
		}
	case json.Number:
		return typed.Float64()
	default:
		return typed, nil
	}
}

func decodeYAML(raw []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse yaml: %w", err)
	}
	if doc.Kind == 0 {
		return nil, &InvalidSchemaError{Reason: "document is empty"}
	}
	return readYAMLNode(&doc, 0)
}

const maxYAMLDepth = 512

func readYAMLNode(node *yaml.Node, depth int) (any, error) {
	if depth > maxYAMLDepth {
		return nil, errors.New("schema: parse yaml: document nests too deeply")
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return readYAMLNode(node.Content[0], depth+1)
	case yaml.AliasNode:
		return readYAMLNode(node.Alias, depth+1)
	case yaml.MappingNode:
		obj := newObject(len(node.Content) / 2)
		for idx := 0; idx+1 < len(node.Content); idx += 2 {
			value, err := readYAMLNode(node.Content[idx+1], depth+1)
			if err != nil {
				return nil, err
			}
			obj.set(node.Content[idx].Value, value)
		}
		return obj, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := readYAMLNode(child, depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("schema: parse yaml: line %d: %w", node.Line, err)
		}
		return NormalizeValue(value), nil
	default:
		return nil, fmt.Errorf("schema: parse yaml: unsupported node kind %d", node.Kind)
	}
}

func orderedFromValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		obj := newObject(len(keys))
		for _, key := range keys {
			obj.set(key, orderedFromValue(typed[key]))
		}
		return obj
	case []any:
		out := make([]any, len(typed))
		for idx, entry := range typed {
			out[idx] = orderedFromValue(entry)
		}
		return out
	default:
		return NormalizeValue(value)
	}
}

// plain converts decoded nodes back into map[string]any trees.
func plain(value any) any {
	switch typed := value.(type) {
	case *object:
		out := make(map[string]any, len(typed.keys))
		for _, key := range typed.keys {
			out[key] = plain(typed.values[key])
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, entry := range typed {
			out[idx] = plain(entry)
		}
		return out
	default:
		return typed
	}
}

// NormalizeValue maps Go numeric types to float64 and nested maps/slices to
// their JSON-like equivalents so decoded documents compare consistently.
func NormalizeValue(value any) any {
	switch typed := value.(type) {
	case int:
		return float64(typed)
	case int8:
		return float64(typed)
	case int16:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint:
		return float64(typed)
	case uint8:
		return float64(typed)
	case uint16:
		return float64(typed)
	case uint32:
		return float64(typed)
	case uint64:
		return float64(typed)
	case float32:
		return float64(typed)
	case json.Number:
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, entry := range typed {
			out[key] = NormalizeValue(entry)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, entry := range typed {
			out[fmt.Sprint(key)] = NormalizeValue(entry)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, entry := range typed {
			out[idx] = NormalizeValue(entry)
		}
		return out
	default:
		return typed
	}
}

func buildSchema(obj *object, path string) (*Schema, error) {
	out := &Schema{}
	for _, key := range obj.keys {
		value := obj.values[key]
		keyPath := path + "/" + key
		switch key {
		case "$id":
			out.ID = stringValue(value)
		case "$ref":
			ref, ok := value.(string)
			if !ok {
				return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must be a string", keyPath)}
			}
			out.Ref = strings.TrimSpace(ref)
		case "type":
			switch typed := value.(type) {
			case string:
				out.Type = typed
			case []any:
				for _, entry := range typed {
					name, ok := entry.(string)
					if !ok {
						return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must list type names", keyPath)}
					}
					out.Types = append(out.Types, name)
				}
				if len(out.Types) == 1 {
					out.Type, out.Types = out.Types[0], nil
				}
			default:
				return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must be a string or list", keyPath)}
			}
		case "title":
			out.Title = stringValue(value)
		case "description":
			out.Description = stringValue(value)
		case "format":
			out.Format = stringValue(value)
		case "default":
			out.Default = plain(value)
		case "const":
			out.Const = plain(value)
		case "enum":
			list, ok := value.([]any)
			if !ok {
				return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must be a list", keyPath)}
			}
			out.Enum = plain(list).([]any)
		case "required":
			list, ok := value.([]any)
			if !ok {
				out.keep(key, value)
				continue
			}
			for _, entry := range list {
				if name, ok := entry.(string); ok {
					out.Required = append(out.Required, name)
				}
			}
		case "properties":
			props, ok := value.(*object)
			if !ok {
				return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must be a mapping", keyPath)}
			}
			out.Properties = NewProperties()
			for _, name := range props.keys {
				child, err := schemaValue(props.values[name], keyPath+"/"+name)
				if err != nil {
					return nil, err
				}
				out.Properties.Set(name, child)
			}
		case "items":
			if list, ok := value.([]any); ok {
				items, err := schemaList(list, keyPath)
				if err != nil {
					return nil, err
				}
				out.TupleItems = items
				continue
			}
			child, err := schemaValue(value, keyPath)
			if err != nil {
				return nil, err
			}
			out.Items = child
		case "additionalItems":
			if _, ok := value.(bool); ok {
				out.keep(key, value)
				continue
			}
			child, err := schemaValue(value, keyPath)
			if err != nil {
				return nil, err
			}
			out.AdditionalItems = child
		case "minItems":
			count, ok := value.(float64)
			if !ok || count < 0 || count != math.Trunc(count) {
				return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must be a non-negative integer", keyPath)}
			}
			n := int(count)
			out.MinItems = &n
		case "allOf", "anyOf", "oneOf":
			list, ok := value.([]any)
			if !ok {
				return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must be a list", keyPath)}
			}
			branches, err := schemaList(list, keyPath)
			if err != nil {
				return nil, err
			}
			switch key {
			case "allOf":
				out.AllOf = branches
			case "anyOf":
				out.AnyOf = branches
			default:
				out.OneOf = branches
			}
		case "definitions", "$defs":
			defs, ok := value.(*object)
			if !ok {
				return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must be a mapping", keyPath)}
			}
			if out.Definitions == nil {
				out.Definitions = make(map[string]*Schema, len(defs.keys))
			}
			for _, name := range defs.keys {
				child, err := schemaValue(defs.values[name], keyPath+"/"+name)
				if err != nil {
					return nil, err
				}
				out.Definitions[name] = child
			}
		default:
			out.keep(key, plain(value))
		}
	}
	return out, nil
}

func (s *Schema) keep(key string, value any) {
	if s.Keywords == nil {
		s.Keywords = make(map[string]any)
	}
	s.Keywords[key] = value
}

// schemaValue decodes a sub-schema. Boolean schemas are accepted: true is the
// empty schema, false one that rejects everything.
func schemaValue(value any, path string) (*Schema, error) {
	switch typed := value.(type) {
	case *object:
		return buildSchema(typed, path)
	case bool:
		if typed {
			return &Schema{}, nil
		}
		return &Schema{Keywords: map[string]any{"not": map[string]any{}}}, nil
	default:
		return nil, &InvalidSchemaError{Reason: fmt.Sprintf("%s must be a schema, got %s", path, describe(value))}
	}
}

func schemaList(list []any, path string) ([]*Schema, error) {
	out := make([]*Schema, 0, len(list))
	for idx, entry := range list {
		child, err := schemaValue(entry, fmt.Sprintf("%s/%d", path, idx))
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func stringValue(value any) string {
	if str, ok := value.(string); ok {
		return str
	}
	return ""
}

func describe(value any) string {
	switch value.(type) {
	case *object:
		return "mapping"
	case []any:
		return "list"
	case nil:
		return "null"
	default:
		return GuessType(value)
	}
}
