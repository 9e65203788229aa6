package render

import (
	"embed"
	"fmt"
	"io/fs"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/idschema"
	"github.com/goliatone/go-formschema/pkg/ordering"
	"github.com/goliatone/go-formschema/pkg/render/template"
	"github.com/goliatone/go-formschema/pkg/render/template/gotemplate"
)

var _ template.Engine = (*gotemplatepkg.Engine)(nil)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

// Template names of the built-in templates.
const (
	ErrorPanelTemplate  = "error-panel"
	ConfigErrorTemplate = "config-error"
)

// TemplatesFS exposes the built-in templates so callers can copy or extend
// them.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// NewEngine returns a template engine loading the built-in templates. Extra
// options are applied after the defaults, so WithBaseDir can shadow them.
func NewEngine(options ...gotemplate.Option) (*gotemplate.Engine, error) {
	opts := append([]gotemplate.Option{gotemplate.WithFS(TemplatesFS())}, options...)
	engine, err := gotemplate.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("render: template engine: %w", err)
	}
	return engine, nil
}

// NewHookedEngine returns a github.com/goliatone/go-template engine loading
// the built-in templates. Hooks registered on it run around every panel and
// placeholder render. A base directory option overrides the built-in files.
func NewHookedEngine(options ...gotemplatepkg.Option) (*gotemplatepkg.Engine, error) {
	opts := append([]gotemplatepkg.Option{gotemplatepkg.WithFS(TemplatesFS())}, options...)
	engine, err := gotemplatepkg.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("render: hooked template engine: %w", err)
	}
	return engine, nil
}

type panelItem struct {
	Stack    string `json:"stack"`
	Property string `json:"property"`
	Message  string `json:"message"`
	FieldID  string `json:"field_id,omitempty"`
}

// ErrorPanel renders the ordered error list. ids, when given, links every
// entry to the id of the field it concerns. No errors render nothing.
func ErrorPanel(r template.TemplateRenderer, errs []errorschema.ValidationError, ids *idschema.IDSchema, opts RenderOptions) (string, error) {
	if len(errs) == 0 {
		return "", nil
	}
	if r == nil {
		return "", fmt.Errorf("render: template renderer is required")
	}
	heading := opts.Heading
	if heading == "" {
		heading = DefaultHeading
	}

	localized := LocalizeErrors(errs, opts)
	items := make([]panelItem, len(localized))
	for idx, err := range localized {
		items[idx] = panelItem{
			Stack:    err.Stack,
			Property: err.Property,
			Message:  err.Message,
			FieldID:  fieldID(ids, err.Path()),
		}
	}
	out, err := r.RenderTemplate(ErrorPanelTemplate, map[string]any{
		"classes": Classes(opts.Theme),
		"heading": heading,
		"items":   items,
	})
	if err != nil {
		return "", fmt.Errorf("render: error panel: %w", err)
	}
	return out, nil
}

// ConfigErrorPlaceholder renders the visible block shown in place of a level
// whose ui:order is malformed.
func ConfigErrorPlaceholder(r template.TemplateRenderer, cfgErr *ordering.OrderConfigurationError, opts RenderOptions) (string, error) {
	if cfgErr == nil {
		return "", nil
	}
	if r == nil {
		return "", fmt.Errorf("render: template renderer is required")
	}
	out, err := r.RenderTemplate(ConfigErrorTemplate, map[string]any{
		"classes": Classes(opts.Theme),
		"path":    cfgErr.Path,
		"message": cfgErr.Error(),
	})
	if err != nil {
		return "", fmt.Errorf("render: config error placeholder: %w", err)
	}
	return out, nil
}

// fieldID resolves the id of the field an error path points at. Paths that
// leave the id tree resolve to "".
func fieldID(ids *idschema.IDSchema, path errorschema.Path) string {
	node := ids
	for _, seg := range path.Fields() {
		if node == nil {
			return ""
		}
		if seg.IsIndex {
			if item := node.Item(seg.Index); item != nil {
				node = item
				continue
			}
		}
		node = node.Child(seg.Key())
	}
	if node == nil {
		return ""
	}
	return node.ID
}
