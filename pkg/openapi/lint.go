package openapi

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formschema/pkg/uischema"
)

// Violation is one malformed x-ui extension.
type Violation struct {
	// Location joins the keys leading to the extension with " > ".
	Location string
	Line     int
	Message  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%d: %s -> %s", v.Line, v.Location, v.Message)
}

// Lint reports every x-ui extension of raw that is not an object of known UI
// schema keys with well-typed values. Violations are sorted by location.
func Lint(raw []byte) ([]Violation, error) {
	tree, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	var out []Violation
	lintNode(tree.root, nil, &out)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Location == out[j].Location {
			return out[i].Message < out[j].Message
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

func lintNode(n *yaml.Node, path []string, out *[]Violation) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.SequenceNode:
		for idx, child := range n.Content {
			lintNode(child, appendPath(path, fmt.Sprint(idx)), out)
		}
	case yaml.MappingNode:
		for idx := 0; idx+1 < len(n.Content); idx += 2 {
			key, value := n.Content[idx].Value, n.Content[idx+1]
			if key == UIExtension {
				lintExtension(value, appendPath(path, key), out)
				continue
			}
			lintNode(value, appendPath(path, key), out)
		}
	}
}

func lintExtension(n *yaml.Node, path []string, out *[]Violation) {
	report := func(at *yaml.Node, location []string, format string, args ...any) {
		*out = append(*out, Violation{
			Location: strings.Join(location, " > "),
			Line:     at.Line,
			Message:  fmt.Sprintf(format, args...),
		})
	}
	if n.Kind != yaml.MappingNode {
		report(n, path, "%s must be an object", UIExtension)
		return
	}
	for idx := 0; idx+1 < len(n.Content); idx += 2 {
		keyNode, value := n.Content[idx], n.Content[idx+1]
		key := keyNode.Value
		location := appendPath(path, key)
		switch {
		case !uischema.KnownKey(key):
			report(keyNode, location, "unsupported UI schema key %q", key)
		case key == uischema.KeyOrder:
			if value.Kind != yaml.SequenceNode {
				report(value, location, "%s must be a list of property names", key)
				continue
			}
			for _, item := range value.Content {
				if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
					report(item, location, "%s entries must be strings", key)
				}
			}
		case key == uischema.KeyOptions:
			if value.Kind != yaml.MappingNode {
				report(value, location, "%s must be an object", key)
			}
		case key == uischema.KeyDisabled || key == uischema.KeyReadOnly || key == uischema.KeyAutoFocus:
			if value.Kind != yaml.ScalarNode || value.Tag != "!!bool" {
				report(value, location, "%s must be a boolean", key)
			}
		default:
			if value.Kind != yaml.ScalarNode || value.Tag != "!!str" {
				report(value, location, "%s must be a string", key)
			}
		}
	}
}

func appendPath(path []string, segment string) []string {
	next := append([]string(nil), path...)
	return append(next, segment)
}
