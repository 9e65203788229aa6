package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-formschema/pkg/form"
	"github.com/goliatone/go-formschema/pkg/render/template"
)

// Renderer converts a form's current snapshot into bytes.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, f *form.Form, options RenderOptions) ([]byte, error)
}

// HTMLRenderer renders the error panel followed by one placeholder per
// malformed ui:order level.
type HTMLRenderer struct {
	engine template.TemplateRenderer
}

// NewHTMLRenderer wraps a template engine; see NewEngine.
func NewHTMLRenderer(engine template.TemplateRenderer) *HTMLRenderer {
	return &HTMLRenderer{engine: engine}
}

// Name implements Renderer.
func (r *HTMLRenderer) Name() string { return "html" }

// ContentType implements Renderer.
func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

// Render implements Renderer.
func (r *HTMLRenderer) Render(ctx context.Context, f *form.Form, options RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("render: form is required")
	}
	state := f.State()

	var out strings.Builder
	panel, err := ErrorPanel(r.engine, state.Errors, state.IDSchema, options)
	if err != nil {
		return nil, err
	}
	out.WriteString(panel)

	fields, err := f.Fields()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	err = fields.Walk(func(node *form.FieldNode) error {
		if node.ConfigError == nil {
			return nil
		}
		placeholder, err := ConfigErrorPlaceholder(r.engine, node.ConfigError, options)
		if err != nil {
			return err
		}
		out.WriteString(placeholder)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []byte(out.String()), nil
}

// TextRenderer writes the error list and configuration errors as plain text,
// one per line.
type TextRenderer struct{}

// Name implements Renderer.
func (TextRenderer) Name() string { return "text" }

// ContentType implements Renderer.
func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

// Render implements Renderer.
func (TextRenderer) Render(ctx context.Context, f *form.Form, options RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("render: form is required")
	}
	state := f.State()

	var out strings.Builder
	for _, err := range LocalizeErrors(state.Errors, options) {
		out.WriteString(err.Stack)
		out.WriteByte('\n')
	}
	fields, err := f.Fields()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	_ = fields.Walk(func(node *form.FieldNode) error {
		if node.ConfigError != nil {
			out.WriteString(node.ConfigError.Error())
			out.WriteByte('\n')
		}
		return nil
	})
	return []byte(out.String()), nil
}
