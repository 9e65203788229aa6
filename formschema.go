// Package formschema turns JSON Schema documents into form state: defaults,
// field ids, validation errors and their display order. The subpackages hold
// the pieces; this package wires the common path from a document location to
// a form and its HTML error markup.
package formschema

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formschema/internal/jsonschema/loader"
	"github.com/goliatone/go-formschema/pkg/form"
	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/openapi"
	"github.com/goliatone/go-formschema/pkg/render"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

type (
	// Schema aliases schema.Schema.
	Schema = schema.Schema
	// UISchema aliases uischema.UISchema.
	UISchema = uischema.UISchema
	// Form aliases form.Form.
	Form = form.Form
	// RenderOptions aliases render.RenderOptions.
	RenderOptions = render.RenderOptions
)

// NewLoader constructs a loader using the internal implementation while
// keeping the concrete type hidden from consumers.
func NewLoader(options ...jsonschema.LoaderOption) jsonschema.Loader {
	return loader.New(jsonschema.NewLoaderOptions(options...))
}

// LoadSchema fetches src and bundles every external $ref it reaches into the
// root definitions.
func LoadSchema(ctx context.Context, l jsonschema.Loader, src jsonschema.Source, opts jsonschema.BundleOptions) (*Schema, error) {
	if l == nil {
		l = NewLoader()
	}
	return jsonschema.NewBundler(l, opts).Load(ctx, src)
}

// LoadOperation fetches an OpenAPI document and returns the form of
// operationID together with the UI hints carried by the document.
func LoadOperation(ctx context.Context, l jsonschema.Loader, src jsonschema.Source, operationID string) (*Schema, UISchema, error) {
	if l == nil {
		l = NewLoader()
	}
	result, err := openapi.Load(ctx, l, src, operationID)
	if err != nil {
		return nil, nil, err
	}
	return result.Schema, result.UISchema, nil
}

// NewForm builds a form for s.
func NewForm(s *Schema, options ...form.Option) (*Form, error) {
	return form.New(s, options...)
}

// RenderErrorsHTML renders the error panel and configuration error
// placeholders of f's current snapshot with the built-in templates.
func RenderErrorsHTML(ctx context.Context, f *Form, options RenderOptions) ([]byte, error) {
	engine, err := render.NewEngine()
	if err != nil {
		return nil, err
	}
	out, err := render.NewHTMLRenderer(engine).Render(ctx, f, options)
	if err != nil {
		return nil, fmt.Errorf("formschema: %w", err)
	}
	return out, nil
}
