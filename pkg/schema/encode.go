package schema

import (
	"bytes"
	"encoding/json"
	"sort"
)

// ToValue returns the schema as a JSON-like map tree. Property order is not
// representable in a map; use MarshalJSON when order matters.
func (s *Schema) ToValue() map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any, len(s.Keywords)+8)
	for key, value := range s.Keywords {
		out[key] = CloneValue(value)
	}
	if s.ID != "" {
		out["$id"] = s.ID
	}
	if s.Ref != "" {
		out["$ref"] = s.Ref
	}
	if s.Type != "" {
		out["type"] = s.Type
	} else if len(s.Types) > 0 {
		types := make([]any, len(s.Types))
		for idx, name := range s.Types {
			types[idx] = name
		}
		out["type"] = types
	}
	if s.Title != "" {
		out["title"] = s.Title
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Default != nil {
		out["default"] = CloneValue(s.Default)
	}
	if s.Enum != nil {
		out["enum"] = CloneValue(s.Enum)
	}
	if s.Const != nil {
		out["const"] = CloneValue(s.Const)
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if len(s.Required) > 0 {
		required := make([]any, len(s.Required))
		for idx, name := range s.Required {
			required[idx] = name
		}
		out["required"] = required
	}
	if s.Properties != nil {
		props := make(map[string]any, s.Properties.Len())
		for name, child := range s.Properties.All() {
			props[name] = child.ToValue()
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = s.Items.ToValue()
	} else if len(s.TupleItems) > 0 {
		out["items"] = valueList(s.TupleItems)
	}
	if s.AdditionalItems != nil {
		out["additionalItems"] = s.AdditionalItems.ToValue()
	}
	if s.MinItems != nil {
		out["minItems"] = float64(*s.MinItems)
	}
	if len(s.AllOf) > 0 {
		out["allOf"] = valueList(s.AllOf)
	}
	if len(s.AnyOf) > 0 {
		out["anyOf"] = valueList(s.AnyOf)
	}
	if len(s.OneOf) > 0 {
		out["oneOf"] = valueList(s.OneOf)
	}
	if len(s.Definitions) > 0 {
		defs := make(map[string]any, len(s.Definitions))
		for name, child := range s.Definitions {
			defs[name] = child.ToValue()
		}
		out["definitions"] = defs
	}
	return out
}

func valueList(list []*Schema) []any {
	out := make([]any, len(list))
	for idx, child := range list {
		out[idx] = child.ToValue()
	}
	return out
}

// MarshalJSON encodes the schema with a stable key order and properties in
// declaration order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	w := &objectWriter{}
	w.buf.WriteByte('{')
	w.field("$id", s.ID, s.ID != "")
	w.field("$ref", s.Ref, s.Ref != "")
	if s.Type != "" {
		w.field("type", s.Type, true)
	} else {
		w.field("type", s.Types, len(s.Types) > 0)
	}
	w.field("title", s.Title, s.Title != "")
	w.field("description", s.Description, s.Description != "")
	w.field("default", s.Default, s.Default != nil)
	w.field("enum", s.Enum, s.Enum != nil)
	w.field("const", s.Const, s.Const != nil)
	w.field("format", s.Format, s.Format != "")
	w.field("required", s.Required, len(s.Required) > 0)
	w.field("properties", s.Properties, s.Properties != nil)
	if s.Items != nil {
		w.field("items", s.Items, true)
	} else {
		w.field("items", s.TupleItems, len(s.TupleItems) > 0)
	}
	w.field("additionalItems", s.AdditionalItems, s.AdditionalItems != nil)
	w.field("minItems", s.MinItems, s.MinItems != nil)
	w.field("allOf", s.AllOf, len(s.AllOf) > 0)
	w.field("anyOf", s.AnyOf, len(s.AnyOf) > 0)
	w.field("oneOf", s.OneOf, len(s.OneOf) > 0)
	if len(s.Definitions) > 0 {
		names := make([]string, 0, len(s.Definitions))
		for name := range s.Definitions {
			names = append(names, name)
		}
		sort.Strings(names)
		defs := NewProperties()
		for _, name := range names {
			defs.Set(name, s.Definitions[name])
		}
		w.field("definitions", defs, true)
	}
	if len(s.Keywords) > 0 {
		names := make([]string, 0, len(s.Keywords))
		for name := range s.Keywords {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			w.field(name, s.Keywords[name], true)
		}
	}
	if w.err != nil {
		return nil, w.err
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}

// MarshalJSON encodes properties in declaration order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	for name, child := range p.All() {
		w.field(name, child, true)
	}
	if w.err != nil {
		return nil, w.err
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}

type objectWriter struct {
	buf   bytes.Buffer
	count int
	err   error
}

func (w *objectWriter) field(key string, value any, present bool) {
	if !present || w.err != nil {
		return
	}
	encodedKey, err := json.Marshal(key)
	if err != nil {
		w.err = err
		return
	}
	encodedValue, err := json.Marshal(value)
	if err != nil {
		w.err = err
		return
	}
	if w.count > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.Write(encodedKey)
	w.buf.WriteByte(':')
	w.buf.Write(encodedValue)
	w.count++
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	out.Types = append([]string(nil), s.Types...)
	out.Required = append([]string(nil), s.Required...)
	out.Default = CloneValue(s.Default)
	out.Const = CloneValue(s.Const)
	if s.Enum != nil {
		out.Enum = CloneValue(s.Enum).([]any)
	}
	if s.Properties != nil {
		out.Properties = s.Properties.Clone()
	}
	out.Items = s.Items.Clone()
	out.TupleItems = cloneList(s.TupleItems)
	out.AdditionalItems = s.AdditionalItems.Clone()
	if s.MinItems != nil {
		n := *s.MinItems
		out.MinItems = &n
	}
	out.AllOf = cloneList(s.AllOf)
	out.AnyOf = cloneList(s.AnyOf)
	out.OneOf = cloneList(s.OneOf)
	if s.Definitions != nil {
		out.Definitions = make(map[string]*Schema, len(s.Definitions))
		for name, child := range s.Definitions {
			out.Definitions[name] = child.Clone()
		}
	}
	if s.Keywords != nil {
		out.Keywords = CloneValue(s.Keywords).(map[string]any)
	}
	return &out
}

// Clone returns a deep copy of the property map.
func (p *Properties) Clone() *Properties {
	if p == nil {
		return nil
	}
	out := &Properties{names: append([]string(nil), p.names...), byName: make(map[string]*Schema, len(p.byName))}
	for name, child := range p.byName {
		out.byName[name] = child.Clone()
	}
	return out
}

func cloneList(list []*Schema) []*Schema {
	if list == nil {
		return nil
	}
	out := make([]*Schema, len(list))
	for idx, child := range list {
		out[idx] = child.Clone()
	}
	return out
}

// CloneValue deep copies JSON-like values (maps, slices, scalars).
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[key] = CloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, val := range typed {
			out[idx] = CloneValue(val)
		}
		return out
	default:
		return typed
	}
}
