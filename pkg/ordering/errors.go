package ordering

import (
	"errors"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

const (
	keywordOneOf = "oneOf"
	keywordAnyOf = "anyOf"

	// compositeLast sorts a whole-composite error after its subtree.
	compositeLast = math.MaxInt

	maxCompositeHops = 32
)

// OrderErrors returns errs in display order. Every error gets a sort key by
// walking the schema along its property path:
//
//   - object levels contribute the property's position under the level's
//     ui:order (declaration order without one);
//   - array levels contribute the index and continue into the item schema,
//     configured by the level's "items" UI node or, failing that, by the
//     level's own UI node;
//   - oneOf/anyOf levels contribute the branch index taken from the error's
//     schema path (typed levels only for names they do not declare), and the
//     composite error itself sorts after every error in its subtree.
//
// The sort is stable, so messages for one field keep their arrival order.
// A misconfigured ui:order never drops errors: its level falls back to
// declaration order and the configuration errors are returned, joined, next
// to the fully ordered list.
func OrderErrors(errs []errorschema.ValidationError, s *schema.Schema, ui uischema.UISchema, definitions map[string]*schema.Schema) ([]errorschema.ValidationError, error) {
	out := append([]errorschema.ValidationError(nil), errs...)
	if definitions == nil && s != nil {
		definitions = s.Definitions
	}

	k := &keyer{
		resolver: jsonschema.NewResolver(definitions),
		levels:   make(map[string][]string),
		reported: make(map[string]bool),
	}
	keys := make([][]int, len(out))
	for idx, err := range out {
		keys[idx] = k.key(err, s, ui)
	}

	indices := make([]int, len(out))
	for idx := range indices {
		indices[idx] = idx
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return slices.Compare(keys[indices[a]], keys[indices[b]]) < 0
	})

	ordered := make([]errorschema.ValidationError, len(out))
	for pos, idx := range indices {
		ordered[pos] = out[idx]
	}
	return ordered, errors.Join(k.configErrs...)
}

type keyer struct {
	resolver   *jsonschema.Resolver
	levels     map[string][]string
	reported   map[string]bool
	configErrs []error
}

func (k *keyer) key(err errorschema.ValidationError, root *schema.Schema, ui uischema.UISchema) []int {
	segments := err.Path().Fields()
	branches := newBranchCursor(err.SchemaPath)
	node := root
	uiNode := ui
	var key []int
	fieldPath := errorschema.Path{errorschema.Name("")}
	hops := 0
	viaBranch := false

	for pos := 0; ; {
		node = k.resolve(node)

		if hops < maxCompositeHops && takesBranch(node, segments[pos:]) {
			hops++
			options, keyword := node.Options()
			if pos == len(segments) && isCompositeError(err, keyword) {
				return append(key, compositeLast)
			}
			branch, ok := branches.next()
			if !ok || branch < 0 || branch >= len(options) {
				branch = guessBranch(options, segments[pos:])
			}
			if schema.IsMultiSchema(node) {
				key = append(key, branch)
			} else {
				// Own properties of a typed composite sort first under 0.
				key = append(key, branch+1)
			}
			node = options[branch]
			viaBranch = true
			continue
		}

		if pos == len(segments) {
			if node != nil && len(node.OneOf)+len(node.AnyOf) > 0 && isCompositeError(err, "") {
				key = append(key, compositeLast)
			}
			return key
		}

		seg := segments[pos]
		pos++
		hops = 0
		branchLevel := viaBranch
		viaBranch = false
		fieldPath = append(fieldPath, seg)

		if node != nil && node.Kind() == schema.KindArray {
			idx := seg.Index
			if !seg.IsIndex {
				idx, _ = strconv.Atoi(seg.Name)
			}
			key = append(key, idx)
			node = node.ItemSchema(idx)
			uiNode = uiNode.ItemUI()
			continue
		}

		if node == nil || node.Properties.Len() == 0 {
			if seg.IsIndex {
				key = append(key, seg.Index)
			} else {
				key = append(key, 0)
			}
			node = nil
			uiNode = uiNode.Child(seg.Key())
			continue
		}

		ordered := k.levelOrder(node, uiNode, fieldPath[:len(fieldPath)-1], branchLevel)
		if len(node.OneOf)+len(node.AnyOf) > 0 {
			key = append(key, 0)
		}
		name := seg.Key()
		position := slices.Index(ordered, name)
		if position < 0 {
			position = len(ordered)
		}
		key = append(key, position)
		child, _ := node.Properties.Get(name)
		node = child
		uiNode = uiNode.Child(name)
	}
}

func (k *keyer) resolve(node *schema.Schema) *schema.Schema {
	if node == nil || (node.Ref == "" && len(node.AllOf) == 0) {
		return node
	}
	resolved, err := k.resolver.Resolve(node, nil)
	if err != nil {
		return nil
	}
	return resolved
}

// levelOrder memoises the ordered property names for one object level and
// records its configuration error once. A branch of a oneOf/anyOf shares the
// UI node of its composite, so names declared only by sibling branches are
// ignored there.
func (k *keyer) levelOrder(node *schema.Schema, ui uischema.UISchema, path errorschema.Path, branch bool) []string {
	location := path.String()
	names := node.Properties.Names()
	order, malformed := LevelOrder(node, ui)
	if malformed != nil && !k.reported[location] {
		k.reported[location] = true
		malformed.Path = location
		k.configErrs = append(k.configErrs, malformed)
	}
	if branch && order != nil {
		order = slices.DeleteFunc(order, func(entry string) bool {
			return entry != uischema.Wildcard && !slices.Contains(names, entry)
		})
	}
	cacheKey := location + "\x00" + strings.Join(names, "\x00") + "\x00" + strings.Join(order, "\x00")
	if cached, ok := k.levels[cacheKey]; ok {
		return cached
	}
	ordered, err := OrderProperties(names, order)
	if err != nil {
		var cfgErr *OrderConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = location
		}
		if !k.reported[location] {
			k.reported[location] = true
			k.configErrs = append(k.configErrs, err)
		}
	}
	k.levels[cacheKey] = ordered
	return ordered
}

func declaredByOption(options []*schema.Schema, name string) bool {
	for _, option := range options {
		if option == nil {
			continue
		}
		if _, ok := option.Properties.Get(name); ok {
			return true
		}
	}
	return false
}

// takesBranch reports whether the walk steps into an anyOf/oneOf option at
// node. Untyped composites always do; typed ones only when the next segment
// is not one of their own properties.
func takesBranch(node *schema.Schema, rest []errorschema.Segment) bool {
	if node == nil || len(node.OneOf)+len(node.AnyOf) == 0 {
		return false
	}
	if schema.IsMultiSchema(node) {
		return true
	}
	if len(rest) == 0 || rest[0].IsIndex || node.Kind() == schema.KindArray {
		return false
	}
	_, own := node.Properties.Get(rest[0].Key())
	return !own
}

func isCompositeError(err errorschema.ValidationError, keyword string) bool {
	if err.Name == keywordOneOf || err.Name == keywordAnyOf {
		return keyword == "" || err.Name == keyword
	}
	tokens := pathTokens(err.SchemaPath)
	if len(tokens) == 0 {
		return false
	}
	last := tokens[len(tokens)-1]
	return last == keywordOneOf || last == keywordAnyOf
}

// guessBranch picks the first option that declares the next property on the
// path, defaulting to the first option.
func guessBranch(options []*schema.Schema, rest []errorschema.Segment) int {
	if len(rest) == 0 || rest[0].IsIndex {
		return 0
	}
	for idx, option := range options {
		if option == nil {
			continue
		}
		if _, ok := option.Properties.Get(rest[0].Name); ok {
			return idx
		}
	}
	return 0
}

type branchCursor struct {
	tokens []string
	pos    int
}

func newBranchCursor(schemaPath string) *branchCursor {
	return &branchCursor{tokens: pathTokens(schemaPath)}
}

// next returns the branch index following the next oneOf/anyOf token.
func (c *branchCursor) next() (int, bool) {
	for c.pos < len(c.tokens)-1 {
		token := c.tokens[c.pos]
		c.pos++
		if token != keywordOneOf && token != keywordAnyOf {
			continue
		}
		branch, err := strconv.Atoi(c.tokens[c.pos])
		if err != nil {
			continue
		}
		c.pos++
		return branch, true
	}
	return 0, false
}

func pathTokens(schemaPath string) []string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(schemaPath), "#")
	var out []string
	for _, token := range strings.Split(trimmed, "/") {
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}
