package form

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
	"github.com/goliatone/go-formschema/pkg/validation"
	"github.com/goliatone/go-formschema/pkg/widgets"
)

// Option customises a Form.
type Option func(*Form)

// WithUISchema attaches the presentation hints.
func WithUISchema(ui uischema.UISchema) Option {
	return func(f *Form) {
		f.ui = ui.Clone()
	}
}

// WithFormData supplies the initial form data. It is merged over the schema
// defaults.
func WithFormData(formData any) Option {
	return func(f *Form) {
		f.initial = schema.NormalizeValue(formData)
	}
}

// WithDefinitions overrides the definitions references resolve against.
// Defaults to the schema's own definitions.
func WithDefinitions(definitions map[string]*schema.Schema) Option {
	return func(f *Form) {
		f.definitions = definitions
	}
}

// WithLiveValidate validates on every Change.
func WithLiveValidate(enabled bool) Option {
	return func(f *Form) {
		f.liveValidate = enabled
	}
}

// WithValidator replaces the JSON Schema validator.
func WithValidator(v validation.Validator) Option {
	return func(f *Form) {
		if v != nil {
			f.validator = v
		}
	}
}

// WithCustomValidate registers form-level checks run after schema
// validation.
func WithCustomValidate(fn validation.CustomValidateFunc) Option {
	return func(f *Form) {
		f.customValidate = fn
	}
}

// WithTransformErrors registers a hook rewriting validator errors.
func WithTransformErrors(fn validation.TransformErrorsFunc) Option {
	return func(f *Form) {
		f.transformErrors = fn
	}
}

// WithExtraErrors merges errors produced elsewhere, e.g. by a server, into
// every error view.
func WithExtraErrors(errs *errorschema.ErrorSchema) Option {
	return func(f *Form) {
		if errs != nil {
			f.extraErrors = errs.Clone()
		}
	}
}

// WithRegistry injects the widget registry used by Fields.
func WithRegistry(registry *widgets.Registry) Option {
	return func(f *Form) {
		if registry != nil {
			f.registry = registry
		}
	}
}

// WithIDPrefix overrides the root id. ui:rootFieldId still wins.
func WithIDPrefix(prefix string) Option {
	return func(f *Form) {
		f.idPrefix = prefix
	}
}

// WithLogger attaches a logger. Forms are silent by default.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Form) {
		f.log = log
	}
}
