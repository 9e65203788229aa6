package form

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/idschema"
	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/ordering"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
	"github.com/goliatone/go-formschema/pkg/validation"
	"github.com/goliatone/go-formschema/pkg/widgets"
)

// FieldNode is one field of the derived field tree.
type FieldNode struct {
	Name string
	ID   string
	// Path is the field path, e.g. ".address.street" or ".tags[1]".
	Path string
	Kind schema.Kind
	// Schema is the field's schema with refs and allOf resolved.
	Schema      *schema.Schema
	Selection   widgets.Selection
	Required    bool
	Title       string
	Description string
	Help        string
	Placeholder string
	Disabled    bool
	ReadOnly    bool
	AutoFocus   bool
	Value       any
	Errors      []string
	// Option is the selected anyOf/oneOf option, -1 for other nodes.
	Option   int
	Children []*FieldNode
	// ConfigError replaces Children when the level's ui:order is malformed.
	ConfigError *ordering.OrderConfigurationError
	UISchema    uischema.UISchema
}

// Walk visits n and its descendants depth first, in display order.
func (n *FieldNode) Walk(visit func(*FieldNode) error) error {
	if n == nil {
		return nil
	}
	if err := visit(n); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := child.Walk(visit); err != nil {
			return err
		}
	}
	return nil
}

// Fields derives the field tree for the current snapshot. Every node gets
// its own copies of the values it carries, so the tree may be modified
// freely.
func (f *Form) Fields() (*FieldNode, error) {
	b := &fieldBuilder{
		registry:  f.registry,
		resolver:  jsonschema.NewResolver(f.definitions, jsonschema.WithMatcher(validation.Matcher(f.validator))),
		separator: idschema.DefaultSeparator,
		active:    make(map[string]int),
	}
	root := errorschema.Path{errorschema.Name("")}
	return b.build(fieldInput{
		schema:   f.schema,
		ui:       f.ui,
		ids:      f.state.IDSchema,
		id:       idschema.RootID(f.ui, f.idPrefix),
		path:     root,
		value:    f.state.FormData,
		errors:   f.state.ErrorSchema,
		required: false,
	})
}

type fieldBuilder struct {
	registry  *widgets.Registry
	resolver  *jsonschema.Resolver
	separator string
	active    map[string]int
}

type fieldInput struct {
	schema   *schema.Schema
	ui       uischema.UISchema
	ids      *idschema.IDSchema
	id       string
	path     errorschema.Path
	value    any
	errors   *errorschema.ErrorSchema
	required bool
}

func (b *fieldBuilder) build(in fieldInput) (*FieldNode, error) {
	if in.ids != nil {
		in.id = in.ids.ID
	}
	name := in.path[len(in.path)-1].Key()

	node := &FieldNode{
		Name:     name,
		ID:       in.id,
		Path:     in.path.String(),
		Required: in.required,
		Value:    schema.CloneValue(in.value),
		Option:   -1,
		UISchema: in.ui.Clone(),
	}
	if in.errors != nil {
		node.Errors = append([]string(nil), in.errors.Errors...)
	}

	s := in.schema
	if ref := s.Ref; ref != "" {
		if b.active[ref] > 0 {
			node.Selection = widgets.Selection{Field: widgets.UnsupportedField}
			return node, nil
		}
		b.active[ref]++
		defer func() { b.active[ref]-- }()
	}
	resolved, err := b.resolver.Resolve(s, in.value)
	if err != nil {
		return nil, fmt.Errorf("form: field %s: %w", in.id, err)
	}

	selection, err := b.registry.Resolve(resolved, in.ui)
	if err != nil {
		return nil, fmt.Errorf("form: field %s: %w", in.id, err)
	}
	node.Selection = selection
	node.Schema = resolved
	node.Kind = resolved.Kind()
	node.Title = firstNonEmpty(in.ui.Title(), resolved.Title, name)
	node.Description = firstNonEmpty(in.ui.Description(), resolved.Description)
	node.Help = in.ui.Help()
	node.Placeholder = in.ui.Placeholder()
	node.Disabled = in.ui.Disabled()
	node.ReadOnly = in.ui.ReadOnly()
	node.AutoFocus = in.ui.AutoFocus()

	if schema.IsMultiSchema(resolved) {
		idx, option, err := b.resolver.SelectOption(resolved, in.value)
		if err != nil {
			return nil, fmt.Errorf("form: field %s: %w", in.id, err)
		}
		node.Option = idx
		branch := in
		branch.schema = option
		branch.ui = withoutSelection(in.ui)
		child, err := b.build(branch)
		if err != nil {
			return nil, err
		}
		node.Children = []*FieldNode{child}
		return node, nil
	}

	switch node.Kind {
	case schema.KindObject:
		return node, b.buildObject(node, resolved, in)
	case schema.KindArray:
		if selection.Widget != "" {
			return node, nil
		}
		return node, b.buildArray(node, resolved, in)
	}
	return node, nil
}

func (b *fieldBuilder) buildObject(node *FieldNode, s *schema.Schema, in fieldInput) error {
	names := s.Properties.Names()
	order, malformed := ordering.LevelOrder(s, in.ui)
	if malformed != nil {
		malformed.Path = node.Path
		node.ConfigError = malformed
		return nil
	}
	ordered, err := ordering.OrderProperties(names, order)
	if err != nil {
		var cfgErr *ordering.OrderConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = node.Path
			node.ConfigError = cfgErr
			return nil
		}
		return err
	}

	values, _ := in.value.(map[string]any)
	for _, prop := range ordered {
		child, _ := s.Properties.Get(prop)
		childNode, err := b.build(fieldInput{
			schema:   child,
			ui:       in.ui.Child(prop),
			ids:      in.ids.Child(prop),
			id:       in.id + b.separator + prop,
			path:     appendPath(in.path, errorschema.Name(prop)),
			value:    values[prop],
			errors:   in.errors.Child(prop),
			required: s.IsRequired(prop),
		})
		if err != nil {
			return err
		}
		node.Children = append(node.Children, childNode)
	}
	return nil
}

func (b *fieldBuilder) buildArray(node *FieldNode, s *schema.Schema, in fieldInput) error {
	items, _ := in.value.([]any)
	for idx, item := range items {
		itemSchema := s.ItemSchema(idx)
		if itemSchema == nil {
			continue
		}
		key := strconv.Itoa(idx)
		ids := in.ids.Item(idx)
		if s.IsFixedItems() {
			ids = in.ids.Child(key)
		}
		childNode, err := b.build(fieldInput{
			schema: itemSchema,
			ui:     in.ui.ItemUI(),
			ids:    ids,
			id:     in.id + b.separator + key,
			path:   appendPath(in.path, errorschema.Index(idx)),
			value:  item,
			errors: in.errors.Child(key),
		})
		if err != nil {
			return err
		}
		node.Children = append(node.Children, childNode)
	}
	return nil
}

// withoutSelection drops the hints that picked the composite's own field so
// the selected option is rendered by kind.
func withoutSelection(ui uischema.UISchema) uischema.UISchema {
	if ui == nil {
		return nil
	}
	out := ui.Clone()
	delete(out, uischema.KeyField)
	delete(out, uischema.KeyWidget)
	return out
}

func appendPath(path errorschema.Path, segment errorschema.Segment) errorschema.Path {
	return append(append(errorschema.Path(nil), path...), segment)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
