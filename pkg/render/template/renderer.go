package template

import (
	"io"
)

// TemplateRenderer renders a named template. Output is returned and copied
// to every writer in out.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}

// Engine is the full template engine contract, matching the
// github.com/goliatone/go-template renderer: inline content, filters and
// data shared by every render.
type Engine interface {
	TemplateRenderer
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

// RendererFunc adapts a function to TemplateRenderer.
type RendererFunc func(name string, data any) (string, error)

// RenderTemplate implements TemplateRenderer.
func (fn RendererFunc) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	result, err := fn(name, data)
	if err != nil {
		return "", err
	}
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := io.WriteString(w, result); err != nil {
			return "", err
		}
	}
	return result, nil
}
