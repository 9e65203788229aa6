// Package errorschema turns flat validator output into a nested error tree
// and back into display lists.
package errorschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-formschema/pkg/schema"
)

// ErrorsKey is the reserved key holding a node's messages when encoded.
const ErrorsKey = "__errors"

// DefaultFieldName labels root level entries in ToErrorList.
const DefaultFieldName = "root"

// ValidationError is one validator finding. Property addresses the failing
// value as "instance.a.b[2]"; Name is the violated keyword.
type ValidationError struct {
	Property   string         `json:"property"`
	Message    string         `json:"message"`
	Name       string         `json:"name,omitempty"`
	Argument   any            `json:"argument,omitempty"`
	Schema     *schema.Schema `json:"schema,omitempty"`
	Instance   any            `json:"instance,omitempty"`
	SchemaPath string         `json:"schemaPath,omitempty"`
	Stack      string         `json:"stack"`
}

// Path parses Property.
func (e ValidationError) Path() Path {
	return PropertyToPath(e.Property)
}

// FieldPath renders Property without its root marker, e.g. ".a.b[2]".
func (e ValidationError) FieldPath() string {
	return e.Path().String()
}

// ErrorListItem is one entry of the flat display list.
type ErrorListItem struct {
	Stack string `json:"stack"`
}

// ErrorSchema is a node of the error tree. Children are addressed by property
// name or decimal index and keep first-seen order.
type ErrorSchema struct {
	Errors   []string
	keys     []string
	children map[string]*ErrorSchema
}

// New returns an empty error tree.
func New() *ErrorSchema {
	return &ErrorSchema{}
}

// ToErrorSchema builds the error tree for errs. The root marker of every
// property path is dropped and messages accumulate in arrival order.
func ToErrorSchema(errs []ValidationError) *ErrorSchema {
	root := New()
	for _, err := range errs {
		node := root
		for _, seg := range err.Path().Fields() {
			node = node.ensure(seg.Key())
		}
		node.Errors = append(node.Errors, err.Message)
	}
	return root
}

// ToErrorList flattens es into "<field>: <message>" entries: a node's own
// messages first, then its children in first-seen order, each labelled with
// its own key. An empty fieldName means DefaultFieldName.
func ToErrorList(es *ErrorSchema, fieldName string) []ErrorListItem {
	if fieldName == "" {
		fieldName = DefaultFieldName
	}
	var out []ErrorListItem
	es.walk(nil, func(path []string, node *ErrorSchema) {
		name := fieldName
		if len(path) > 0 {
			name = path[len(path)-1]
		}
		for _, message := range node.Errors {
			out = append(out, ErrorListItem{Stack: fmt.Sprintf("%s: %s", name, message)})
		}
	})
	return out
}

// Flatten converts es back into validation errors addressed from root (for
// example "instance"). Decimal keys render as indices. Used to feed extra and
// custom errors through ordering.
func Flatten(es *ErrorSchema, root string) []ValidationError {
	var out []ValidationError
	es.walk(nil, func(keys []string, node *ErrorSchema) {
		path := make(Path, 0, len(keys)+1)
		path = append(path, Name(root))
		for _, key := range keys {
			if idx, err := strconv.Atoi(key); err == nil && idx >= 0 {
				path = append(path, Index(idx))
				continue
			}
			path = append(path, Name(key))
		}
		name := DefaultFieldName
		if len(keys) > 0 {
			name = keys[len(keys)-1]
		}
		property := path.Property(root)
		for _, message := range node.Errors {
			out = append(out, ValidationError{
				Property: property,
				Message:  message,
				Stack:    fmt.Sprintf("%s: %s", name, message),
			})
		}
	})
	return out
}

func (es *ErrorSchema) walk(path []string, visit func([]string, *ErrorSchema)) {
	if es == nil {
		return
	}
	visit(path, es)
	for _, key := range es.keys {
		next := append(append([]string(nil), path...), key)
		es.children[key].walk(next, visit)
	}
}

func (es *ErrorSchema) ensure(key string) *ErrorSchema {
	if es.children == nil {
		es.children = make(map[string]*ErrorSchema)
	}
	child, ok := es.children[key]
	if !ok {
		child = New()
		es.children[key] = child
		es.keys = append(es.keys, key)
	}
	return child
}

// Child returns the node for key, or nil.
func (es *ErrorSchema) Child(key string) *ErrorSchema {
	if es == nil {
		return nil
	}
	return es.children[key]
}

// At walks a path of keys.
func (es *ErrorSchema) At(keys ...string) *ErrorSchema {
	node := es
	for _, key := range keys {
		node = node.Child(key)
		if node == nil {
			return nil
		}
	}
	return node
}

// Keys lists child keys in first-seen order.
func (es *ErrorSchema) Keys() []string {
	if es == nil {
		return nil
	}
	return append([]string(nil), es.keys...)
}

// Empty reports whether the tree holds no messages at any level.
func (es *ErrorSchema) Empty() bool {
	empty := true
	es.walk(nil, func(_ []string, node *ErrorSchema) {
		if len(node.Errors) > 0 {
			empty = false
		}
	})
	return empty
}

// Count returns the number of messages in the tree.
func (es *ErrorSchema) Count() int {
	total := 0
	es.walk(nil, func(_ []string, node *ErrorSchema) {
		total += len(node.Errors)
	})
	return total
}

// Clone returns a deep copy.
func (es *ErrorSchema) Clone() *ErrorSchema {
	if es == nil {
		return nil
	}
	out := &ErrorSchema{Errors: append([]string(nil), es.Errors...)}
	for _, key := range es.keys {
		out.ensure(key)
		out.children[key] = es.children[key].Clone()
	}
	return out
}

// Merge returns a new tree holding both trees' messages; lists at the same
// node are concatenated, es first.
func (es *ErrorSchema) Merge(other *ErrorSchema) *ErrorSchema {
	out := es.Clone()
	if out == nil {
		out = New()
	}
	out.mergeFrom(other)
	return out
}

func (es *ErrorSchema) mergeFrom(other *ErrorSchema) {
	if other == nil {
		return
	}
	es.Errors = append(es.Errors, other.Errors...)
	for _, key := range other.keys {
		es.ensure(key).mergeFrom(other.children[key])
	}
}

// Equal reports structural equality, child order included.
func (es *ErrorSchema) Equal(other *ErrorSchema) bool {
	if es.Empty() && other.Empty() && len(es.Keys()) == 0 && len(other.Keys()) == 0 {
		return true
	}
	if es == nil || other == nil {
		return false
	}
	if len(es.Errors) != len(other.Errors) || len(es.keys) != len(other.keys) {
		return false
	}
	for idx, message := range es.Errors {
		if other.Errors[idx] != message {
			return false
		}
	}
	for idx, key := range es.keys {
		if other.keys[idx] != key || !es.children[key].Equal(other.children[key]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the tree with messages under ErrorsKey and children in
// first-seen order. An empty tree encodes as {}.
func (es *ErrorSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if es != nil {
		count := 0
		if len(es.Errors) > 0 {
			encoded, err := json.Marshal(es.Errors)
			if err != nil {
				return nil, err
			}
			buf.WriteString(`"` + ErrorsKey + `":`)
			buf.Write(encoded)
			count++
		}
		for _, key := range es.keys {
			encodedKey, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			child, err := es.children[key].MarshalJSON()
			if err != nil {
				return nil, err
			}
			if count > 0 {
				buf.WriteByte(',')
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			buf.Write(child)
			count++
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the encoded form. Child order follows key order.
func (es *ErrorSchema) UnmarshalJSON(raw []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("errorschema: %w", err)
	}
	decoded, err := FromValue(payload)
	if err != nil {
		return err
	}
	*es = *decoded
	return nil
}

// FromValue builds a tree from a decoded map such as
// {"foo": {"__errors": ["..."]}}. Keys are visited in sorted order.
func FromValue(value map[string]any) (*ErrorSchema, error) {
	out := New()
	keys := make([]string, 0, len(value))
	for key := range value {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entry := value[key]
		if key == ErrorsKey {
			list, ok := entry.([]any)
			if !ok {
				return nil, fmt.Errorf("errorschema: %s must be a list", ErrorsKey)
			}
			for _, message := range list {
				text, ok := message.(string)
				if !ok {
					return nil, fmt.Errorf("errorschema: %s entries must be strings", ErrorsKey)
				}
				out.Errors = append(out.Errors, text)
			}
			continue
		}
		childMap, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("errorschema: %q must be an object", key)
		}
		child, err := FromValue(childMap)
		if err != nil {
			return nil, err
		}
		out.ensure(key)
		out.children[key] = child
	}
	return out, nil
}
