package form

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formschema/pkg/defaults"
	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/idschema"
	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/ordering"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
	"github.com/goliatone/go-formschema/pkg/validation"
	"github.com/goliatone/go-formschema/pkg/widgets"
)

// State is one immutable snapshot of a form.
type State struct {
	// FormData is the submitted data merged over the schema defaults.
	FormData any
	// Schema is the root schema resolved against FormData.
	Schema       *schema.Schema
	IDSchema     *idschema.IDSchema
	ErrorSchema  *errorschema.ErrorSchema
	Errors       []errorschema.ValidationError
	ErrorList    []errorschema.ErrorListItem
	ConfigErrors []*ordering.OrderConfigurationError
}

// Valid reports whether the snapshot carries no errors.
func (s State) Valid() bool {
	return len(s.Errors) == 0 && (s.ErrorSchema == nil || s.ErrorSchema.Empty())
}

// Form holds the wiring of one schema-driven form and its latest snapshot.
type Form struct {
	schema          *schema.Schema
	ui              uischema.UISchema
	definitions     map[string]*schema.Schema
	initial         any
	liveValidate    bool
	validator       validation.Validator
	customValidate  validation.CustomValidateFunc
	transformErrors validation.TransformErrorsFunc
	extraErrors     *errorschema.ErrorSchema
	registry        *widgets.Registry
	idPrefix        string
	log             zerolog.Logger

	state State
}

// New builds a form for s. The initial snapshot applies schema defaults to
// the supplied form data and, with live validation on, validates it.
func New(s *schema.Schema, options ...Option) (*Form, error) {
	if s == nil {
		return nil, &schema.InvalidSchemaError{Reason: "form: schema is nil"}
	}
	f := &Form{
		schema:   s.Clone(),
		registry: widgets.NewRegistry(),
		log:      zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.definitions == nil {
		f.definitions = f.schema.Definitions
	}
	if f.validator == nil {
		f.validator = validation.NewJSONSchemaValidator(validation.WithValidatorLogger(f.log))
	}

	state, err := f.snapshot(f.initial, f.liveValidate && f.initial != nil, State{})
	if err != nil {
		return nil, err
	}
	f.state = state
	return f, nil
}

// State returns the current snapshot.
func (f *Form) State() State {
	return f.state
}

// Schema returns the form's root schema.
func (f *Form) Schema() *schema.Schema {
	return f.schema
}

// UISchema returns the form's UI schema.
func (f *Form) UISchema() uischema.UISchema {
	return f.ui
}

// Change replaces the form data. Defaults are merged again; errors are
// recomputed with live validation and carried over otherwise.
func (f *Form) Change(formData any) (State, error) {
	state, err := f.snapshot(schema.NormalizeValue(formData), f.liveValidate, f.state)
	if err != nil {
		return f.state, err
	}
	f.state = state
	f.log.Debug().Bool("validated", f.liveValidate).Int("errors", len(state.Errors)).Msg("form data changed")
	return state, nil
}

// Submit validates the current form data. The boolean reports whether the
// data is free of errors.
func (f *Form) Submit() (State, bool, error) {
	state, err := f.snapshot(f.state.FormData, true, f.state)
	if err != nil {
		return f.state, false, err
	}
	f.state = state
	ok := state.Valid()
	event := f.log.Info()
	if !ok {
		event = f.log.Warn()
	}
	event.Int("errors", len(state.Errors)).Int("config_errors", len(state.ConfigErrors)).Msg("form submitted")
	return state, ok, nil
}

// Inputs returns the values a renderer depends on.
func (f *Form) Inputs() Inputs {
	return Inputs{
		Schema:      f.schema,
		UISchema:    f.ui,
		FormData:    f.state.FormData,
		ErrorSchema: f.state.ErrorSchema,
	}
}

func (f *Form) snapshot(formData any, validate bool, prev State) (State, error) {
	data, err := defaults.GetDefaultFormState(f.schema, formData, f.definitions)
	if err != nil {
		return State{}, fmt.Errorf("form: default state: %w", err)
	}
	resolved, err := jsonschema.Resolve(f.schema, f.definitions, data)
	if err != nil {
		return State{}, fmt.Errorf("form: resolve schema: %w", err)
	}
	ids, err := idschema.ToIDSchema(f.schema, idschema.RootID(f.ui, f.idPrefix), f.definitions, data)
	if err != nil {
		return State{}, fmt.Errorf("form: id schema: %w", err)
	}

	state := State{FormData: data, Schema: resolved, IDSchema: ids}
	switch {
	case validate:
		result, err := validation.Run(data, f.schema, validation.Options{
			Validator:       f.validator,
			UISchema:        f.ui,
			Definitions:     f.definitions,
			TransformErrors: f.transformErrors,
			CustomValidate:  f.customValidate,
			ExtraErrors:     f.extraErrors,
		})
		if err != nil {
			return State{}, fmt.Errorf("form: %w", err)
		}
		state.Errors = result.Errors
		state.ErrorSchema = result.ErrorSchema
		state.ErrorList = result.ErrorList
		state.ConfigErrors = result.ConfigErrors
	case prev.ErrorSchema != nil:
		state.Errors = prev.Errors
		state.ErrorSchema = prev.ErrorSchema
		state.ErrorList = prev.ErrorList
		state.ConfigErrors = prev.ConfigErrors
	case f.extraErrors != nil:
		extra := f.extraErrors.Clone()
		ordered, orderErr := ordering.OrderErrors(errorschema.Flatten(extra, validation.InstanceRoot), f.schema, f.ui, f.definitions)
		state.Errors = ordered
		state.ErrorSchema = extra
		state.ErrorList = errorschema.ToErrorList(extra, "")
		state.ConfigErrors = validation.ConfigErrors(orderErr)
	}
	return state, nil
}

// Inputs are the values that decide what a form renders.
type Inputs struct {
	Schema      *schema.Schema
	UISchema    uischema.UISchema
	FormData    any
	ErrorSchema *errorschema.ErrorSchema
}

var inputsComparer = cmp.Options{
	cmpopts.EquateEmpty(),
}

// ShouldUpdate reports whether next differs structurally from prev.
func ShouldUpdate(prev, next Inputs) bool {
	return !cmp.Equal(prev, next, inputsComparer)
}
