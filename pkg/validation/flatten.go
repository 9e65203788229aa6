package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	pkgjsonschema "github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

// InstanceRoot is the root marker of validation error properties.
const InstanceRoot = "instance"

// flattener turns the validator's output tree into the flat error list:
// leaf failures plus oneOf/anyOf composite failures. Wrapper nodes ($ref,
// allOf, if/then/else, the document root) only contribute their causes.
type flattener struct {
	root      *schema.Schema
	instance  any
	formatter MessageFormatter
	out       []errorschema.ValidationError
}

func (f *flattener) walk(verr *jsonschema.ValidationError) {
	if verr == nil {
		return
	}
	keyword := keywordOf(verr.KeywordLocation)
	switch {
	case len(verr.Causes) == 0:
		f.emit(verr, keyword)
	case keyword == "oneOf" || keyword == "anyOf":
		f.emit(verr, keyword)
		f.walkCauses(verr)
	case verr.Message == "" || isWrapper(keyword):
		f.walkCauses(verr)
	default:
		f.emit(verr, keyword)
	}
}

func (f *flattener) walkCauses(verr *jsonschema.ValidationError) {
	for _, cause := range verr.Causes {
		f.walk(cause)
	}
}

func isWrapper(keyword string) bool {
	switch keyword {
	case "", "$ref", "$recursiveRef", "$dynamicRef", "allOf", "if", "then", "else", "dependencies", "dependentSchemas":
		return true
	default:
		return false
	}
}

func (f *flattener) emit(verr *jsonschema.ValidationError, keyword string) {
	path, value := instanceAt(f.instance, verr.InstanceLocation)
	node, err := pkgjsonschema.Lookup(f.root, verr.KeywordLocation)
	if err != nil {
		node = nil
	}

	switch keyword {
	case "required":
		for _, name := range missingProperties(node, value, verr.Message) {
			f.add(append(append(errorschema.Path(nil), path...), errorschema.Name(name)), keyword, name, node, nil, verr)
		}
		return
	case "additionalProperties":
		for _, name := range quotedNames(verr.Message) {
			f.add(path, keyword, name, node, value, verr)
		}
		return
	}
	f.add(path, keyword, argumentFor(keyword, node), node, value, verr)
}

func (f *flattener) add(path errorschema.Path, keyword string, argument any, node *schema.Schema, value any, verr *jsonschema.ValidationError) {
	property := path.Property(InstanceRoot)
	message := f.formatter(keyword, argument, verr.Message)
	f.out = append(f.out, errorschema.ValidationError{
		Property:   property,
		Message:    message,
		Name:       keyword,
		Argument:   argument,
		Schema:     node,
		Instance:   value,
		SchemaPath: verr.KeywordLocation,
		Stack:      property + " " + message,
	})
}

// keywordOf returns the keyword a keyword location ends in, skipping the
// index of indexed applicators ("allOf/0" is allOf).
func keywordOf(location string) string {
	tokens := splitPointer(location)
	n := len(tokens)
	if n == 0 {
		return ""
	}
	if n >= 3 && (tokens[n-3] == "dependencies" || tokens[n-3] == "dependentRequired") {
		if _, err := strconv.Atoi(tokens[n-1]); err == nil {
			return tokens[n-3]
		}
	}
	if n >= 2 && (tokens[n-2] == "dependencies" || tokens[n-2] == "dependentSchemas") {
		return tokens[n-2]
	}
	last := tokens[n-1]
	if _, err := strconv.Atoi(last); err == nil && n >= 2 {
		return tokens[n-2]
	}
	return last
}

// instanceAt resolves an instance location against the data, returning the
// error path (root marker included) and the value found there. Numeric
// tokens become indices only when the data at that point is an array.
func instanceAt(instance any, location string) (errorschema.Path, any) {
	path := errorschema.Path{errorschema.Name(InstanceRoot)}
	current := instance
	for _, token := range splitPointer(location) {
		switch typed := current.(type) {
		case []any:
			if idx, err := strconv.Atoi(token); err == nil && idx >= 0 {
				path = append(path, errorschema.Index(idx))
				if idx < len(typed) {
					current = typed[idx]
				} else {
					current = nil
				}
				continue
			}
			current = nil
		case map[string]any:
			current = typed[token]
		default:
			current = nil
		}
		path = append(path, errorschema.Name(token))
	}
	return path, current
}

func splitPointer(pointer string) []string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(pointer, "#"), "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	for idx, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[idx] = strings.ReplaceAll(part, "~0", "~")
	}
	return parts
}

// missingProperties lists the required names absent from value, falling back
// to the names quoted in the validator's message.
func missingProperties(node *schema.Schema, value any, message string) []string {
	object, isObject := value.(map[string]any)
	if node == nil || len(node.Required) == 0 || !isObject {
		return quotedNames(message)
	}
	var missing []string
	for _, name := range node.Required {
		if _, ok := object[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// quotedNames extracts the single-quoted names of messages such as
// "missing properties: 'a', 'b'".
func quotedNames(message string) []string {
	var out []string
	rest := message
	for {
		start := strings.IndexByte(rest, '\'')
		if start < 0 {
			return out
		}
		end := strings.IndexByte(rest[start+1:], '\'')
		if end < 0 {
			return out
		}
		out = append(out, rest[start+1:start+1+end])
		rest = rest[start+end+2:]
	}
}

func argumentFor(keyword string, node *schema.Schema) any {
	if node == nil {
		return nil
	}
	switch keyword {
	case "type":
		if len(node.Types) > 0 {
			return append([]string(nil), node.Types...)
		}
		if node.Type != "" {
			return []string{node.Type}
		}
		return nil
	case "enum":
		return node.Enum
	case "const":
		return node.Const
	case "format":
		return node.Format
	case "minItems":
		if node.MinItems != nil {
			return float64(*node.MinItems)
		}
		return nil
	case "oneOf", "anyOf":
		options, _ := node.Options()
		refs := make([]string, len(options))
		for idx := range options {
			refs[idx] = fmt.Sprintf("#/%s/%d", keyword, idx)
		}
		return refs
	}
	value, _ := node.Keyword(keyword)
	return value
}
