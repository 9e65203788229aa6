package validation

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/ordering"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

// TransformErrorsFunc rewrites validator errors before they are grouped.
type TransformErrorsFunc func([]errorschema.ValidationError) []errorschema.ValidationError

// CustomValidateFunc adds form-level checks. It receives the form data and a
// handler tree, records messages with AddError and returns the handler.
type CustomValidateFunc func(formData any, errs *errorschema.FieldErrors) *errorschema.FieldErrors

// Options configures Run.
type Options struct {
	Validator       Validator
	UISchema        uischema.UISchema
	Definitions     map[string]*schema.Schema
	TransformErrors TransformErrorsFunc
	CustomValidate  CustomValidateFunc
	// ExtraErrors are merged after validation, e.g. server side errors.
	ExtraErrors *errorschema.ErrorSchema
}

// Result holds every error view of one validation pass.
type Result struct {
	// Errors is the flat list in display order.
	Errors       []errorschema.ValidationError
	ErrorSchema  *errorschema.ErrorSchema
	ErrorList    []errorschema.ErrorListItem
	ConfigErrors []*ordering.OrderConfigurationError
}

// Valid reports whether the pass produced no errors.
func (r Result) Valid() bool {
	return len(r.Errors) == 0 && (r.ErrorSchema == nil || r.ErrorSchema.Empty())
}

// Run validates formData against s: validator, TransformErrors,
// ToErrorSchema, CustomValidate and ExtraErrors merged with list
// concatenation, ToErrorList, then OrderErrors. Only schema or validator
// failures are returned as errors.
func Run(formData any, s *schema.Schema, opts Options) (Result, error) {
	if s == nil {
		return Result{}, &schema.InvalidSchemaError{Reason: "schema is nil"}
	}
	validator := opts.Validator
	if validator == nil {
		validator = NewJSONSchemaValidator()
	}
	definitions := opts.Definitions
	if definitions == nil {
		definitions = s.Definitions
	}
	target := s
	if s.Definitions == nil && definitions != nil {
		target = s.Clone()
		target.Definitions = definitions
	}

	errs, err := validator.Validate(formData, target)
	if err != nil {
		return Result{}, fmt.Errorf("validation: %w", err)
	}
	if opts.TransformErrors != nil {
		errs = opts.TransformErrors(errs)
	}

	errorSchema := errorschema.ToErrorSchema(errs)
	added := errorschema.New()
	if opts.CustomValidate != nil {
		handler := opts.CustomValidate(schema.CloneValue(formData), errorschema.NewFieldErrors())
		added = added.Merge(handler.ToErrorSchema())
	}
	if opts.ExtraErrors != nil {
		added = added.Merge(opts.ExtraErrors)
	}
	errorSchema = errorSchema.Merge(added)

	all := append(append([]errorschema.ValidationError(nil), errs...), errorschema.Flatten(added, InstanceRoot)...)
	ordered, orderErr := ordering.OrderErrors(all, target, opts.UISchema, definitions)

	return Result{
		Errors:       ordered,
		ErrorSchema:  errorSchema,
		ErrorList:    errorschema.ToErrorList(errorSchema, ""),
		ConfigErrors: ConfigErrors(orderErr),
	}, nil
}

// ConfigErrors unpacks the configuration errors joined into err.
func ConfigErrors(err error) []*ordering.OrderConfigurationError {
	if err == nil {
		return nil
	}
	var out []*ordering.OrderConfigurationError
	var visit func(error)
	visit = func(current error) {
		if joined, ok := current.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				visit(inner)
			}
			return
		}
		var cfgErr *ordering.OrderConfigurationError
		if errors.As(current, &cfgErr) {
			out = append(out, cfgErr)
		}
	}
	visit(err)
	return out
}
