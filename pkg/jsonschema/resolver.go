package jsonschema

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formschema/pkg/schema"
)

const defaultMaxRefDepth = 64

// ErrRefCycle reports a $ref chain that points back at itself.
var ErrRefCycle = errors.New("jsonschema resolver: ref cycle detected")

// BranchMatcher decides whether form data satisfies an anyOf/oneOf option.
// option is already resolved; definitions lets the matcher follow nested refs.
type BranchMatcher interface {
	Match(formData any, option *schema.Schema, definitions map[string]*schema.Schema) bool
}

// BranchMatcherFunc adapts a function into a BranchMatcher.
type BranchMatcherFunc func(formData any, option *schema.Schema, definitions map[string]*schema.Schema) bool

// Match implements BranchMatcher.
func (f BranchMatcherFunc) Match(formData any, option *schema.Schema, definitions map[string]*schema.Schema) bool {
	return f(formData, option, definitions)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMatcher sets the matcher used to pick anyOf/oneOf branches. Without one
// the resolver falls back to a structural check (type, required, const, enum).
func WithMatcher(matcher BranchMatcher) ResolverOption {
	return func(r *Resolver) {
		r.matcher = matcher
	}
}

// WithMaxRefDepth caps the length of $ref chains.
func WithMaxRefDepth(depth int) ResolverOption {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxRefDepth = depth
		}
	}
}

// Resolver resolves $ref and allOf against a definitions mapping. It never
// mutates the schemas it is given: every result is a fresh copy.
type Resolver struct {
	definitions map[string]*schema.Schema
	matcher     BranchMatcher
	maxRefDepth int
}

// NewResolver constructs a resolver for the supplied root definitions.
func NewResolver(definitions map[string]*schema.Schema, options ...ResolverOption) *Resolver {
	r := &Resolver{
		definitions: definitions,
		maxRefDepth: defaultMaxRefDepth,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.matcher == nil {
		r.matcher = BranchMatcherFunc(StructuralMatch)
	}
	return r
}

// Resolve is shorthand for NewResolver(definitions).Resolve(s, formData).
func Resolve(s *schema.Schema, definitions map[string]*schema.Schema, formData any) (*schema.Schema, error) {
	return NewResolver(definitions).Resolve(s, formData)
}

// Definitions returns the mapping the resolver looks refs up in.
func (r *Resolver) Definitions() map[string]*schema.Schema {
	if r == nil {
		return nil
	}
	return r.definitions
}

// Resolve returns the effective schema for one node: $ref chains are
// followed with the referencing node's own keys winning, and allOf branches
// are folded into a single schema. Untyped anyOf/oneOf nodes come back with
// their options intact; schema.IsMultiSchema reports them and SelectOption
// picks a branch.
func (r *Resolver) Resolve(s *schema.Schema, formData any) (*schema.Schema, error) {
	if r == nil {
		return nil, errors.New("jsonschema resolver: resolver is nil")
	}
	if s == nil {
		return nil, errors.New("jsonschema resolver: schema is nil")
	}
	state := &resolveState{stack: make([]string, 0, 4), inStack: make(map[string]struct{})}
	return r.resolveNode(s.Clone(), state)
}

func (r *Resolver) resolveNode(node *schema.Schema, state *resolveState) (*schema.Schema, error) {
	pushed := make([]string, 0, 2)
	defer func() {
		for idx := len(pushed) - 1; idx >= 0; idx-- {
			state.pop(pushed[idx])
		}
	}()

	for node.Ref != "" {
		ref := node.Ref
		if len(state.stack) >= r.maxRefDepth {
			return nil, fmt.Errorf("jsonschema resolver: ref depth exceeds %d", r.maxRefDepth)
		}
		if state.contains(ref) {
			return nil, fmt.Errorf("%w at %s", ErrRefCycle, ref)
		}
		target, err := FindDefinition(ref, r.definitions)
		if err != nil {
			return nil, err
		}
		state.push(ref)
		pushed = append(pushed, ref)
		node = mergeRefTarget(target, node)
	}

	if len(node.AllOf) > 0 {
		merged, err := r.mergeAllOf(node, state)
		if err != nil {
			return nil, err
		}
		node = merged
	}
	return node, nil
}

func (r *Resolver) mergeAllOf(node *schema.Schema, state *resolveState) (*schema.Schema, error) {
	branches := node.AllOf
	merged := node.Clone()
	merged.AllOf = nil
	for idx, branch := range branches {
		if branch == nil {
			continue
		}
		resolved, err := r.resolveNode(branch.Clone(), state)
		if err != nil {
			return nil, fmt.Errorf("jsonschema resolver: allOf/%d: %w", idx, err)
		}
		mergeAllOfBranch(merged, resolved)
	}
	return merged, nil
}

// SelectOption picks the anyOf/oneOf option that formData satisfies, in
// declaration order, defaulting to option 0 when none match. The returned
// schema is the resolved option.
func (r *Resolver) SelectOption(s *schema.Schema, formData any) (int, *schema.Schema, error) {
	if r == nil {
		return 0, nil, errors.New("jsonschema resolver: resolver is nil")
	}
	options, keyword := s.Options()
	if len(options) == 0 {
		return 0, nil, errors.New("jsonschema resolver: schema has no anyOf/oneOf options")
	}

	resolved := make([]*schema.Schema, len(options))
	for idx, option := range options {
		if option == nil {
			return 0, nil, fmt.Errorf("jsonschema resolver: %s/%d is empty", keyword, idx)
		}
		out, err := r.Resolve(option, formData)
		if err != nil {
			return 0, nil, fmt.Errorf("jsonschema resolver: %s/%d: %w", keyword, idx, err)
		}
		resolved[idx] = out
	}

	if formData != nil {
		for idx, option := range resolved {
			if r.matcher.Match(formData, option, r.definitions) {
				return idx, option, nil
			}
		}
	}
	return 0, resolved[0], nil
}

// mergeRefTarget overlays the referencing node on a copy of the target. The
// result carries the target's own $ref so chains keep resolving.
func mergeRefTarget(target, local *schema.Schema) *schema.Schema {
	merged := target.Clone()
	override := local.Clone()
	merged.Ref = target.Ref

	if override.ID != "" {
		merged.ID = override.ID
	}
	if override.Type != "" || len(override.Types) > 0 {
		merged.Type, merged.Types = override.Type, override.Types
	}
	if override.Title != "" {
		merged.Title = override.Title
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.Default != nil {
		merged.Default = override.Default
	}
	if override.Enum != nil {
		merged.Enum = override.Enum
	}
	if override.Const != nil {
		merged.Const = override.Const
	}
	if override.Format != "" {
		merged.Format = override.Format
	}
	if override.Required != nil {
		merged.Required = override.Required
	}
	if override.Properties != nil {
		merged.Properties = override.Properties
	}
	if override.Items != nil || override.TupleItems != nil {
		merged.Items, merged.TupleItems = override.Items, override.TupleItems
	}
	if override.AdditionalItems != nil {
		merged.AdditionalItems = override.AdditionalItems
	}
	if override.MinItems != nil {
		merged.MinItems = override.MinItems
	}
	if override.AllOf != nil {
		merged.AllOf = override.AllOf
	}
	if override.AnyOf != nil {
		merged.AnyOf = override.AnyOf
	}
	if override.OneOf != nil {
		merged.OneOf = override.OneOf
	}
	for name, def := range override.Definitions {
		if merged.Definitions == nil {
			merged.Definitions = make(map[string]*schema.Schema)
		}
		merged.Definitions[name] = def
	}
	for key, value := range override.Keywords {
		if merged.Keywords == nil {
			merged.Keywords = make(map[string]any)
		}
		merged.Keywords[key] = value
	}
	return merged
}

// mergeAllOfBranch folds one resolved allOf branch into target. Properties of
// later branches replace earlier ones, required lists are unioned, and other
// keywords only fill gaps.
func mergeAllOfBranch(target, branch *schema.Schema) {
	if branch.Properties != nil {
		if target.Properties == nil {
			target.Properties = schema.NewProperties()
		}
		for name, child := range branch.Properties.All() {
			target.Properties.Set(name, child)
		}
	}
	for _, name := range branch.Required {
		if !target.IsRequired(name) {
			target.Required = append(target.Required, name)
		}
	}
	if target.Type == "" && len(target.Types) == 0 {
		target.Type, target.Types = branch.Type, branch.Types
	}
	if target.Title == "" {
		target.Title = branch.Title
	}
	if target.Description == "" {
		target.Description = branch.Description
	}
	if target.Default == nil {
		target.Default = branch.Default
	}
	if target.Enum == nil {
		target.Enum = branch.Enum
	}
	if target.Const == nil {
		target.Const = branch.Const
	}
	if target.Format == "" {
		target.Format = branch.Format
	}
	if target.Items == nil && target.TupleItems == nil {
		target.Items, target.TupleItems = branch.Items, branch.TupleItems
	}
	if target.MinItems == nil {
		target.MinItems = branch.MinItems
	}
	if target.AnyOf == nil {
		target.AnyOf = branch.AnyOf
	}
	if target.OneOf == nil {
		target.OneOf = branch.OneOf
	}
	for key, value := range branch.Keywords {
		if _, exists := target.Keywords[key]; exists {
			continue
		}
		if target.Keywords == nil {
			target.Keywords = make(map[string]any)
		}
		target.Keywords[key] = value
	}
}

type resolveState struct {
	stack   []string
	inStack map[string]struct{}
}

func (s *resolveState) push(ref string) {
	s.stack = append(s.stack, ref)
	if s.inStack == nil {
		s.inStack = make(map[string]struct{})
	}
	s.inStack[ref] = struct{}{}
}

func (s *resolveState) pop(ref string) {
	if len(s.stack) == 0 {
		return
	}
	last := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.inStack, last)
	if ref != last {
		delete(s.inStack, ref)
	}
}

func (s *resolveState) contains(ref string) bool {
	_, ok := s.inStack[ref]
	return ok
}
