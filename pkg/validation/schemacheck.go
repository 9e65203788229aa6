package validation

import (
	"bytes"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-formschema/pkg/schema"
)

// SchemaIssue represents a schema problem with optional location metadata.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaCheckResult captures the outcome of CheckSchema.
type SchemaCheckResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// CheckSchema decodes raw (JSON or YAML) and compiles it against the
// draft-07 meta-schema, reporting every problem with its location.
func CheckSchema(raw []byte) SchemaCheckResult {
	result := SchemaCheckResult{Valid: true}

	s, err := schema.Parse(raw)
	if err != nil {
		result.Valid = false
		result.Issues = []SchemaIssue{issueFromError(err)}
		return result
	}
	encoded, err := encodeForValidator(s)
	if err != nil {
		result.Valid = false
		result.Issues = []SchemaIssue{issueFromError(err)}
		return result
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(resourceName, bytes.NewReader(encoded)); err != nil {
		result.Valid = false
		result.Issues = []SchemaIssue{issueFromError(err)}
		return result
	}
	if _, err := compiler.Compile(resourceName); err != nil {
		result.Valid = false
		result.Issues = issuesFromCompile(err)
	}
	return result
}

func issuesFromCompile(err error) []SchemaIssue {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []SchemaIssue{issueFromError(err)}
	}
	var out []SchemaIssue
	var visit func(*jsonschema.ValidationError)
	visit = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			out = append(out, SchemaIssue{
				Path:    node.InstanceLocation,
				Field:   fieldPathFromPointer(node.InstanceLocation),
				Message: strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			visit(cause)
		}
	}
	visit(verr)
	if len(out) == 0 {
		return []SchemaIssue{issueFromError(err)}
	}
	return out
}

func issueFromError(err error) SchemaIssue {
	if err == nil {
		return SchemaIssue{Message: "unknown error"}
	}
	var notFound *schema.DefinitionNotFoundError
	if errors.As(err, &notFound) {
		return SchemaIssue{Path: notFound.Ref, Field: fieldPathFromPointer(notFound.Ref), Message: err.Error()}
	}

	msg := strings.TrimSpace(err.Error())
	msg = strings.TrimPrefix(msg, "jsonschema: ")
	msg = strings.TrimPrefix(msg, "schema: ")
	return SchemaIssue{Message: strings.TrimSpace(msg)}
}

// fieldPathFromPointer maps a pointer into a schema document onto the dotted
// field path it configures ("/properties/a/items/properties/b" is "a.items.b").
func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimSpace(pointer)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for idx := 0; idx < len(parts); idx++ {
		segment := strings.ReplaceAll(parts[idx], "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		switch segment {
		case "properties":
			if idx+1 < len(parts) {
				next := strings.ReplaceAll(parts[idx+1], "~1", "/")
				next = strings.ReplaceAll(next, "~0", "~")
				out = append(out, next)
				idx++
			}
		case "items":
			out = append(out, "items")
		case "oneOf", "anyOf", "allOf":
			if idx+1 < len(parts) && isNumeric(parts[idx+1]) {
				idx++
			}
		case "definitions", "$defs":
			if idx+1 < len(parts) {
				out = append(out, parts[idx+1])
				idx++
			}
		default:
			if segment == "" {
				continue
			}
			out = append(out, segment)
		}
	}
	return strings.Join(out, ".")
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
