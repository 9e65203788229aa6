package openapi

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// node wraps the decoded raw document for pointer style lookups.
type node struct {
	root *yaml.Node
}

func decodeNode(raw []byte) (node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return node{}, fmt.Errorf("openapi: decode document: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return node{root: doc.Content[0]}, nil
	}
	return node{root: &doc}, nil
}

// lookup follows keys through nested mappings.
func (n node) lookup(keys ...string) (*yaml.Node, bool) {
	current := n.root
	for _, key := range keys {
		if current == nil || current.Kind != yaml.MappingNode {
			return nil, false
		}
		var next *yaml.Node
		for idx := 0; idx+1 < len(current.Content); idx += 2 {
			if current.Content[idx].Value == key {
				next = current.Content[idx+1]
				break
			}
		}
		if next == nil {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

// pointer resolves a local "#/a/b" reference.
func (n node) pointer(ref string) (*yaml.Node, bool) {
	trimmed := strings.TrimPrefix(ref, "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return n.root, true
	}
	parts := strings.Split(trimmed, "/")
	for idx, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[idx] = strings.ReplaceAll(part, "~0", "~")
	}
	return n.lookup(parts...)
}

// keys lists the keys of the mapping at path in document order.
func (n node) keys(path ...string) []string {
	mapping, ok := n.lookup(path...)
	if !ok || mapping.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]string, 0, len(mapping.Content)/2)
	for idx := 0; idx+1 < len(mapping.Content); idx += 2 {
		out = append(out, mapping.Content[idx].Value)
	}
	return out
}
