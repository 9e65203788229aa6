package schema

import (
	"iter"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Schema is the JSON-Schema-like node consumed by the form core. Keywords the
// core does not interpret are kept verbatim in Keywords so the validator still
// sees the complete document.
type Schema struct {
	ID              string
	Ref             string
	Type            string
	Types           []string
	Title           string
	Description     string
	Default         any
	Enum            []any
	Const           any
	Format          string
	Required        []string
	Properties      *Properties
	Items           *Schema
	TupleItems      []*Schema
	AdditionalItems *Schema
	MinItems        *int
	AllOf           []*Schema
	AnyOf           []*Schema
	OneOf           []*Schema
	Definitions     map[string]*Schema
	Keywords        map[string]any
}

// Kind is the closed set of schema kinds renderers dispatch on.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindObject
	KindArray
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// KindFromType maps a JSON Schema type name to its Kind. integer shares the
// number kind.
func KindFromType(name string) Kind {
	switch strings.TrimSpace(name) {
	case "string":
		return KindString
	case "number", "integer":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "object":
		return KindObject
	case "array":
		return KindArray
	case "null":
		return KindNull
	default:
		return KindUnknown
	}
}

// TypeName returns the effective type name: the declared type, the non-null
// member of a [T, "null"] pair, or a type guessed from properties, const or
// enum values. It returns "" when nothing can be inferred.
func (s *Schema) TypeName() string {
	if s == nil {
		return ""
	}
	if s.Type != "" {
		return s.Type
	}
	if len(s.Types) > 0 {
		if len(s.Types) == 2 {
			for idx, name := range s.Types {
				if name == "null" {
					return s.Types[1-idx]
				}
			}
		}
		return s.Types[0]
	}
	if s.Const != nil {
		return GuessType(s.Const)
	}
	if len(s.Enum) > 0 {
		return GuessType(s.Enum[0])
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		return "object"
	}
	return ""
}

// Kind reports the node's kind.
func (s *Schema) Kind() Kind {
	return KindFromType(s.TypeName())
}

// IsMultiSchema reports whether the node offers anyOf/oneOf options without
// an explicit type, which calls for a branch selector instead of a concrete
// field.
func IsMultiSchema(s *Schema) bool {
	if s == nil || s.Type != "" || len(s.Types) > 0 {
		return false
	}
	return len(s.AnyOf) > 0 || len(s.OneOf) > 0
}

// Options returns the anyOf or oneOf options and the keyword they came from.
func (s *Schema) Options() ([]*Schema, string) {
	if s == nil {
		return nil, ""
	}
	if len(s.OneOf) > 0 {
		return s.OneOf, "oneOf"
	}
	if len(s.AnyOf) > 0 {
		return s.AnyOf, "anyOf"
	}
	return nil, ""
}

// IsFixedItems reports whether the node describes a fixed tuple array.
func (s *Schema) IsFixedItems() bool {
	return s != nil && len(s.TupleItems) > 0
}

// ItemSchema returns the schema for the array element at idx, honouring tuple
// items and additionalItems.
func (s *Schema) ItemSchema(idx int) *Schema {
	if s == nil {
		return nil
	}
	if len(s.TupleItems) > 0 {
		if idx >= 0 && idx < len(s.TupleItems) {
			return s.TupleItems[idx]
		}
		return s.AdditionalItems
	}
	return s.Items
}

// IsRequired reports whether name appears in the node's required list.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, entry := range s.Required {
		if entry == name {
			return true
		}
	}
	return false
}

// Keyword returns an uninterpreted keyword value.
func (s *Schema) Keyword(name string) (any, bool) {
	if s == nil || s.Keywords == nil {
		return nil, false
	}
	value, ok := s.Keywords[name]
	return value, ok
}

// GuessType returns the JSON type name of a decoded value.
func GuessType(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return ""
	}
}

// Property pairs a property name with its schema.
type Property struct {
	Name   string
	Schema *Schema
}

// Prop builds a Property.
func Prop(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

// Properties is an insertion-ordered property map. Declaration order drives
// default field and error ordering, so it must survive decoding.
type Properties struct {
	names  []string
	byName map[string]*Schema
}

// NewProperties returns a Properties holding props in the given order.
func NewProperties(props ...Property) *Properties {
	out := &Properties{byName: make(map[string]*Schema, len(props))}
	for _, prop := range props {
		out.Set(prop.Name, prop.Schema)
	}
	return out
}

// Set adds or replaces a property. Replacing keeps the original position.
func (p *Properties) Set(name string, s *Schema) {
	if p.byName == nil {
		p.byName = make(map[string]*Schema)
	}
	if _, exists := p.byName[name]; !exists {
		p.names = append(p.names, name)
	}
	p.byName[name] = s
}

// Get returns the schema registered for name.
func (p *Properties) Get(name string) (*Schema, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := p.byName[name]
	return s, ok
}

// Names returns the property names in declaration order.
func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.names...)
}

// Len reports the number of properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// All iterates properties in declaration order.
func (p *Properties) All() iter.Seq2[string, *Schema] {
	return func(yield func(string, *Schema) bool) {
		if p == nil {
			return
		}
		for _, name := range p.names {
			if !yield(name, p.byName[name]) {
				return
			}
		}
	}
}

// Equal reports whether both maps declare the same properties, in the same
// order, with equal schemas.
func (p *Properties) Equal(other *Properties) bool {
	if p.Len() != other.Len() {
		return false
	}
	if p.Len() == 0 {
		return (p == nil) == (other == nil)
	}
	for idx, name := range p.names {
		if other.names[idx] != name {
			return false
		}
		if !cmp.Equal(p.byName[name], other.byName[name]) {
			return false
		}
	}
	return true
}

// Object is shorthand for an object schema with ordered properties.
func Object(props ...Property) *Schema {
	return &Schema{Type: "object", Properties: NewProperties(props...)}
}
