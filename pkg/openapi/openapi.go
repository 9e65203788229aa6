package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

var (
	// ErrOperationNotFound is returned when no operation has the requested id.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestBody is returned when the operation has no request body
	// with a schema.
	ErrNoRequestBody = errors.New("openapi: operation has no request body schema")
)

// UIExtension names the schema extension whose object is merged into the
// generated UI schema node of a property.
const UIExtension = "x-ui"

const (
	componentsPrefix  = "#/components/schemas/"
	definitionsPrefix = "#/definitions/"
)

var preferredContentTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// Operation describes an operation that accepts a request body.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	ContentType string
}

// Result is the form derived from one operation.
type Result struct {
	Operation Operation
	// Schema is the request body schema. Component schemas are attached as
	// definitions and referenced through "#/definitions/<name>".
	Schema *schema.Schema
	// UISchema carries ui:readonly for readOnly properties and the contents
	// of x-ui extensions.
	UISchema uischema.UISchema
}

// Detect reports whether raw looks like an OpenAPI or Swagger document.
func Detect(raw []byte) bool {
	tree, err := decodeNode(bytes.TrimSpace(raw))
	if err != nil {
		return false
	}
	if _, ok := tree.lookup("openapi"); ok {
		return true
	}
	_, ok := tree.lookup("swagger")
	return ok
}

// Operations lists the operations that accept a request body, sorted by path
// and method.
func Operations(ctx context.Context, raw []byte) ([]Operation, error) {
	doc, err := load(ctx, raw)
	if err != nil {
		return nil, err
	}
	var out []Operation
	for _, entry := range operationsOf(doc) {
		contentType, ok := pickContentType(entry.op.RequestBody)
		if !ok {
			continue
		}
		entry.info.ContentType = contentType
		out = append(out, entry.info)
	}
	return out, nil
}

// FormSchema returns the request body schema of operationID with component
// schemas attached as definitions.
func FormSchema(ctx context.Context, raw []byte, operationID string) (*schema.Schema, error) {
	result, err := Extract(ctx, raw, operationID)
	if err != nil {
		return nil, err
	}
	return result.Schema, nil
}

// Extract returns the form derived from operationID.
func Extract(ctx context.Context, raw []byte, operationID string) (*Result, error) {
	doc, err := load(ctx, raw)
	if err != nil {
		return nil, err
	}

	var found *operationEntry
	for _, entry := range operationsOf(doc) {
		if entry.info.ID == operationID {
			found = &entry
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}
	contentType, ok := pickContentType(found.op.RequestBody)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRequestBody, operationID)
	}
	found.info.ContentType = contentType

	tree, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	bodyNode, ok := requestBodyNode(tree, found)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRequestBody, operationID)
	}
	schemaNode, ok := (node{root: bodyNode}).lookup("content", contentType, "schema")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRequestBody, operationID)
	}

	root, err := convert(schemaNode)
	if err != nil {
		return nil, fmt.Errorf("openapi: operation %q: %w", operationID, err)
	}
	for _, name := range tree.keys("components", "schemas") {
		defNode, _ := tree.lookup("components", "schemas", name)
		def, err := convert(defNode)
		if err != nil {
			return nil, fmt.Errorf("openapi: component %q: %w", name, err)
		}
		if root.Definitions == nil {
			root.Definitions = make(map[string]*schema.Schema)
		}
		if _, exists := root.Definitions[name]; !exists {
			root.Definitions[name] = def
		}
	}

	return &Result{
		Operation: found.info,
		Schema:    root,
		UISchema:  uiSchemaFor(root, root.Definitions, map[string]bool{}),
	}, nil
}

// Load fetches the document behind src and extracts operationID.
func Load(ctx context.Context, loader jsonschema.Loader, src jsonschema.Source, operationID string) (*Result, error) {
	if loader == nil {
		return nil, errors.New("openapi: loader is nil")
	}
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", src.Location(), err)
	}
	return Extract(ctx, doc.Raw(), operationID)
}

func load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

type operationEntry struct {
	info Operation
	op   *openapi3.Operation
}

func operationsOf(doc *openapi3.T) []operationEntry {
	if doc.Paths == nil {
		return nil
	}
	paths := doc.Paths.Map()
	names := make([]string, 0, len(paths))
	for path := range paths {
		names = append(names, path)
	}
	sort.Strings(names)

	var out []operationEntry
	for _, path := range names {
		item := paths[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for method := range ops {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			op := ops[method]
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out = append(out, operationEntry{
				info: Operation{
					ID:          id,
					Method:      strings.ToUpper(method),
					Path:        path,
					Summary:     op.Summary,
					Description: op.Description,
				},
				op: op,
			})
		}
	}
	return out
}

func pickContentType(body *openapi3.RequestBodyRef) (string, bool) {
	if body == nil || body.Value == nil || len(body.Value.Content) == 0 {
		return "", false
	}
	content := body.Value.Content
	for _, contentType := range preferredContentTypes {
		if media := content[contentType]; media != nil && media.Schema != nil {
			return contentType, true
		}
	}
	types := make([]string, 0, len(content))
	for contentType := range content {
		types = append(types, contentType)
	}
	sort.Strings(types)
	for _, contentType := range types {
		if media := content[contentType]; media != nil && media.Schema != nil {
			return contentType, true
		}
	}
	return "", false
}

// requestBodyNode finds the raw request body, following a components
// reference when the operation uses one.
func requestBodyNode(tree node, entry *operationEntry) (*yaml.Node, bool) {
	if ref := entry.op.RequestBody.Ref; ref != "" {
		return tree.pointer(ref)
	}
	return tree.lookup("paths", entry.info.Path, strings.ToLower(entry.info.Method), "requestBody")
}

// convert builds a schema from an OpenAPI schema object: component refs
// point at definitions and nullable becomes a null type member.
func convert(n *yaml.Node) (*schema.Schema, error) {
	s, err := schema.FromYAMLNode(n)
	if err != nil {
		return nil, err
	}
	adapt(s)
	return s, nil
}

func adapt(s *schema.Schema) {
	if s == nil {
		return
	}
	if strings.HasPrefix(s.Ref, componentsPrefix) {
		s.Ref = definitionsPrefix + strings.TrimPrefix(s.Ref, componentsPrefix)
	}
	if nullable, ok := s.Keywords["nullable"].(bool); ok {
		delete(s.Keywords, "nullable")
		if nullable && s.Type != "" {
			s.Types = []string{s.Type, "null"}
			s.Type = ""
		}
	}

	for _, prop := range s.Properties.All() {
		adapt(prop)
	}
	adapt(s.Items)
	adapt(s.AdditionalItems)
	for _, list := range [][]*schema.Schema{s.TupleItems, s.AllOf, s.AnyOf, s.OneOf} {
		for _, child := range list {
			adapt(child)
		}
	}
	for _, def := range s.Definitions {
		adapt(def)
	}
}

// uiSchemaFor collects ui:readonly and x-ui hints from the properties of s,
// following definitions refs once per path.
func uiSchemaFor(s *schema.Schema, defs map[string]*schema.Schema, seen map[string]bool) uischema.UISchema {
	if s == nil {
		return nil
	}
	if name, ok := strings.CutPrefix(s.Ref, definitionsPrefix); ok {
		if seen[name] {
			return nil
		}
		seen[name] = true
		defer delete(seen, name)
		return uiSchemaFor(defs[name], defs, seen)
	}

	out := uischema.UISchema{}
	if extra, ok := s.Keywords[UIExtension].(map[string]any); ok {
		for key, value := range extra {
			out[key] = schema.CloneValue(value)
		}
	}
	if readOnly, _ := s.Keywords["readOnly"].(bool); readOnly {
		out[uischema.KeyReadOnly] = true
	}
	for name, prop := range s.Properties.All() {
		if child := uiSchemaFor(prop, defs, seen); len(child) > 0 {
			out[name] = map[string]any(child)
		}
	}
	if items := uiSchemaFor(s.Items, defs, seen); len(items) > 0 {
		out[uischema.KeyItems] = map[string]any(items)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
