// Package idschema derives the stable per-field identifier tree for a schema.
package idschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

const (
	// DefaultPrefix is the root id used when no override is configured.
	DefaultPrefix = "root"
	// DefaultSeparator joins id segments.
	DefaultSeparator = "_"
	// IndexPlaceholder marks the array index slot inside item templates.
	IndexPlaceholder = "{index}"

	rootFieldIDKey = "ui:rootFieldId"
)

// IDSchema mirrors a schema's property structure with one id per node.
// Properties holds object properties, and the positions of fixed tuples
// keyed by index. Items is the template for single-schema array items; its
// ids contain IndexPlaceholder until Item binds a concrete index.
type IDSchema struct {
	ID         string
	Properties map[string]*IDSchema
	Items      *IDSchema
}

// Option configures id generation.
type Option func(*options)

type options struct {
	prefix    string
	separator string
}

// WithIDPrefix overrides the root id.
func WithIDPrefix(prefix string) Option {
	return func(o *options) {
		if strings.TrimSpace(prefix) != "" {
			o.prefix = prefix
		}
	}
}

// WithSeparator overrides the segment separator.
func WithSeparator(separator string) Option {
	return func(o *options) {
		if separator != "" {
			o.separator = separator
		}
	}
}

func newOptions(opts []Option) options {
	cfg := options{prefix: DefaultPrefix, separator: DefaultSeparator}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// RootID returns the root id: the UI schema's ui:rootFieldId when set,
// otherwise prefix (or DefaultPrefix).
func RootID(uiSchema map[string]any, prefix string) string {
	if value, ok := uiSchema[rootFieldIDKey].(string); ok && strings.TrimSpace(value) != "" {
		return value
	}
	if strings.TrimSpace(prefix) != "" {
		return prefix
	}
	return DefaultPrefix
}

// ToIDSchema builds the id tree for s. An empty id starts at the configured
// prefix. Object properties get parent + separator + name; untyped
// anyOf/oneOf nodes follow the option formData selects. The schema is never
// modified.
func ToIDSchema(s *schema.Schema, id string, definitions map[string]*schema.Schema, formData any, opts ...Option) (*IDSchema, error) {
	cfg := newOptions(opts)
	if id == "" {
		id = cfg.prefix
	}
	if s == nil {
		return &IDSchema{ID: id}, nil
	}
	if definitions == nil {
		definitions = s.Definitions
	}
	g := &generator{
		resolver:  jsonschema.NewResolver(definitions),
		separator: cfg.separator,
		active:    make(map[string]int),
	}
	return g.build(s, id, formData)
}

// ItemIDSchema builds the concrete id tree for the array item at index.
func ItemIDSchema(itemSchema *schema.Schema, parentID string, index int, definitions map[string]*schema.Schema, formData any, opts ...Option) (*IDSchema, error) {
	cfg := newOptions(opts)
	return ToIDSchema(itemSchema, parentID+cfg.separator+strconv.Itoa(index), definitions, formData, opts...)
}

type generator struct {
	resolver  *jsonschema.Resolver
	separator string
	active    map[string]int
}

func (g *generator) build(s *schema.Schema, id string, formData any) (*IDSchema, error) {
	node := &IDSchema{ID: id}
	if s == nil {
		return node, nil
	}

	if s.Ref != "" || len(s.AllOf) > 0 {
		if ref := s.Ref; ref != "" {
			if g.active[ref] > 0 {
				return node, nil
			}
			g.active[ref]++
			defer func() { g.active[ref]-- }()
		}
		resolved, err := g.resolver.Resolve(s, formData)
		if err != nil {
			return nil, fmt.Errorf("idschema: %s: %w", id, err)
		}
		s = resolved
	}

	if schema.IsMultiSchema(s) {
		_, option, err := g.resolver.SelectOption(s, formData)
		if err != nil {
			return nil, fmt.Errorf("idschema: %s: %w", id, err)
		}
		return g.build(option, id, formData)
	}

	switch s.Kind() {
	case schema.KindObject:
		values, _ := formData.(map[string]any)
		for name, child := range s.Properties.All() {
			childNode, err := g.build(child, id+g.separator+name, values[name])
			if err != nil {
				return nil, err
			}
			node.set(name, childNode)
		}
	case schema.KindArray:
		items, _ := formData.([]any)
		if s.IsFixedItems() {
			for idx, item := range s.TupleItems {
				var value any
				if idx < len(items) {
					value = items[idx]
				}
				key := strconv.Itoa(idx)
				childNode, err := g.build(item, id+g.separator+key, value)
				if err != nil {
					return nil, err
				}
				node.set(key, childNode)
			}
			break
		}
		if s.Items != nil {
			template, err := g.build(s.Items, id+g.separator+IndexPlaceholder, nil)
			if err != nil {
				return nil, err
			}
			node.Items = template
		}
	}
	return node, nil
}

func (n *IDSchema) set(name string, child *IDSchema) {
	if n.Properties == nil {
		n.Properties = make(map[string]*IDSchema)
	}
	n.Properties[name] = child
}

// Child returns the id node for a property or tuple position.
func (n *IDSchema) Child(name string) *IDSchema {
	if n == nil {
		return nil
	}
	return n.Properties[name]
}

// Item binds the items template to a concrete index. It returns nil when the
// node has no template.
func (n *IDSchema) Item(index int) *IDSchema {
	if n == nil || n.Items == nil {
		return nil
	}
	prefix := n.Items.ID
	concrete := strings.TrimSuffix(prefix, IndexPlaceholder) + strconv.Itoa(index)
	return n.Items.rebase(prefix, concrete)
}

func (n *IDSchema) rebase(prefix, concrete string) *IDSchema {
	out := &IDSchema{ID: n.ID}
	if strings.HasPrefix(out.ID, prefix) {
		out.ID = concrete + strings.TrimPrefix(out.ID, prefix)
	}
	for name, child := range n.Properties {
		out.set(name, child.rebase(prefix, concrete))
	}
	if n.Items != nil {
		out.Items = n.Items.rebase(prefix, concrete)
	}
	return out
}

// MarshalJSON encodes the node as {"$id": ..., "<property>": {...}} with
// properties in key order. Item templates are not encoded.
func (n *IDSchema) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	id, err := json.Marshal(n.ID)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"$id":`)
	buf.Write(id)

	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		child, err := n.Properties[name].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(child)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
