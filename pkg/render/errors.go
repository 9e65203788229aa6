package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload turns a server error payload into an ErrorSchema usable as
// extra errors. Keys may be JSON pointers ("/body/owner/email"), dotted or
// bracketed paths ("$.owner.tags[0]"); request wrappers such as "body" are
// skipped. Each key is matched against s as deep as the schema allows and
// unmatched keys land on the form itself.
func MapErrorPayload(s *schema.Schema, payload map[string][]string) *errorschema.ErrorSchema {
	out := errorschema.NewFieldErrors()
	if len(payload) == 0 {
		return out.ToErrorSchema()
	}

	var definitions map[string]*schema.Schema
	if s != nil {
		definitions = s.Definitions
	}
	resolver := jsonschema.NewResolver(definitions)

	rawPaths := make([]string, 0, len(payload))
	for rawPath := range payload {
		rawPaths = append(rawPaths, rawPath)
	}
	sort.Strings(rawPaths)

	for _, rawPath := range rawPaths {
		messages := normalizeMessages(payload[rawPath])
		if len(messages) == 0 {
			continue
		}
		target := out
		for _, key := range mapErrorPath(rawPath, s, resolver) {
			target = target.Child(key)
		}
		for _, message := range messages {
			target.AddError(message)
		}
	}
	return out.ToErrorSchema()
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// mapErrorPath returns the error tree keys for raw; nil means form level.
func mapErrorPath(raw string, s *schema.Schema, resolver *jsonschema.Resolver) []string {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) || s == nil {
		return nil
	}

	segments := parsePathSegments(trimmed)
	var best []string
	for _, variant := range [][]string{segments, dropWrapperSegments(segments)} {
		if matched := matchSchemaPath(s, variant, resolver); len(matched) > len(best) {
			best = matched
		}
	}
	return best
}

// matchSchemaPath follows segments through the schema's properties and
// array items, returning the longest prefix the schema declares.
func matchSchemaPath(s *schema.Schema, segments []string, resolver *jsonschema.Resolver) []string {
	var matched []string
	node := s
	for _, segment := range segments {
		if node == nil {
			break
		}
		if node.Ref != "" || len(node.AllOf) > 0 {
			resolved, err := resolver.Resolve(node, nil)
			if err != nil {
				break
			}
			node = resolved
		}
		switch node.Kind() {
		case schema.KindObject:
			child, ok := node.Properties.Get(segment)
			if !ok {
				return matched
			}
			matched = append(matched, segment)
			node = child
		case schema.KindArray:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 {
				return matched
			}
			matched = append(matched, segment)
			node = node.ItemSchema(idx)
		default:
			return matched
		}
	}
	return matched
}

func parsePathSegments(path string) []string {
	if path == "" {
		return nil
	}

	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimPrefix(clean, "#")
		clean = strings.TrimPrefix(clean, "/")
		clean = strings.TrimPrefix(clean, ".")
		clean = strings.TrimPrefix(clean, "$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = replacer.Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"instance":   {},
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; ok {
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", errorschema.ErrorsKey, "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
