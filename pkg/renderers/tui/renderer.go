package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/form"
	"github.com/goliatone/go-formschema/pkg/render"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/widgets"
)

// Renderer implements render.Renderer for terminal sessions. Fields are
// prompted in display order, prefilled from the form's default state. When a
// submission fails, the errors are printed in display order and only the
// failing fields are prompted again, up to the attempt limit.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	maxAttempts       int
	log               zerolog.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		maxAttempts:  DefaultMaxAttempts,
		log:          zerolog.Nop(),
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}

	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render runs a prompt session over f and returns the validated form data
// serialized in the configured format. A session that still fails after the
// last attempt returns a *ValidationError.
func (r *Renderer) Render(ctx context.Context, f *form.Form, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("tui: form is required")
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}

	root, err := f.Fields()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	state := NewState(f.State().FormData)
	if err := r.promptTree(ctx, root, state, nil); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		if _, err := f.Change(state.Value()); err != nil {
			return nil, fmt.Errorf("tui: %w", err)
		}
		snapshot, ok, err := f.Submit()
		if err != nil {
			return nil, fmt.Errorf("tui: %w", err)
		}
		r.log.Debug().Int("attempt", attempt).Int("errors", len(snapshot.Errors)).Msg("tui submission")
		if ok {
			break
		}
		if err := r.reportErrors(ctx, snapshot.Errors, opts); err != nil {
			return nil, err
		}
		if attempt >= r.maxAttempts {
			r.log.Warn().Int("attempts", attempt).Msg("tui session gave up")
			return nil, &ValidationError{Attempts: attempt, Errors: snapshot.Errors}
		}

		if root, err = f.Fields(); err != nil {
			return nil, fmt.Errorf("tui: %w", err)
		}
		state = NewState(snapshot.FormData)
		if err := r.promptTree(ctx, root, state, failingPaths(snapshot.Errors)); err != nil {
			return nil, err
		}
	}

	values := f.State().FormData
	if r.submitTransformer != nil {
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}

	return r.serialize(values)
}

func (r *Renderer) reportErrors(ctx context.Context, errs []errorschema.ValidationError, opts render.RenderOptions) error {
	for _, err := range render.LocalizeErrors(errs, opts) {
		if infoErr := r.driver.Info(ctx, r.theme.ErrorPrefix+err.Stack); infoErr != nil {
			return infoErr
		}
	}
	return nil
}

// failingPaths indexes error paths in field path form (".a.b[2]").
func failingPaths(errs []errorschema.ValidationError) map[string]bool {
	out := make(map[string]bool, len(errs))
	for _, err := range errs {
		out[err.FieldPath()] = true
	}
	return out
}

// promptTree prompts the leaves under node. A nil failing set prompts every
// leaf; otherwise only leaves at or below a failing path are prompted.
func (r *Renderer) promptTree(ctx context.Context, node *form.FieldNode, state *State, failing map[string]bool) error {
	return r.walk(ctx, node, state, failing, failing == nil)
}

func (r *Renderer) walk(ctx context.Context, node *form.FieldNode, state *State, failing map[string]bool, selected bool) error {
	if node == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	selected = selected || failing[node.Path]

	if node.ConfigError != nil {
		if failing != nil {
			return nil
		}
		return r.driver.Info(ctx, r.theme.ErrorPrefix+node.ConfigError.Error())
	}
	if node.Selection.Widget == widgets.WidgetHidden || node.ReadOnly || node.Disabled {
		return nil
	}
	if node.Schema == nil || node.Selection.Field == widgets.UnsupportedField {
		if !selected {
			return nil
		}
		return r.driver.Info(ctx, fmt.Sprintf("%s%s: unsupported field", r.theme.InfoPrefix, displayLabel(node)))
	}

	if node.Selection.Field == widgets.MultiSchemaField || node.Kind == schema.KindObject || isItemList(node) {
		for _, child := range node.Children {
			if err := r.walk(ctx, child, state, failing, selected); err != nil {
				return err
			}
		}
		return nil
	}

	if !selected {
		return nil
	}
	return r.promptLeaf(ctx, node, state)
}

// isItemList reports arrays rendered item by item rather than by a single
// prompt.
func isItemList(node *form.FieldNode) bool {
	if node.Kind != schema.KindArray || node.Selection.Widget != "" {
		return false
	}
	return node.Schema.IsFixedItems() || !isScalar(node.Schema.ItemSchema(0))
}

func isScalar(s *schema.Schema) bool {
	switch s.Kind() {
	case schema.KindString, schema.KindNumber, schema.KindBoolean:
		return true
	default:
		return false
	}
}

func (r *Renderer) promptLeaf(ctx context.Context, node *form.FieldNode, state *State) error {
	path := errorschema.PropertyToPath(node.Path)

	var (
		value any
		err   error
	)
	switch {
	case node.Kind == schema.KindArray && node.Selection.Widget == widgets.WidgetCheckboxes:
		value, err = r.promptMultiSelect(ctx, node, state, path)
	case node.Kind == schema.KindArray:
		value, err = r.promptList(ctx, node, state, path)
	case len(node.Schema.Enum) > 0:
		value, err = r.promptEnum(ctx, node, state, path)
	case node.Kind == schema.KindBoolean:
		value, err = r.promptBoolean(ctx, node, state, path)
	case node.Kind == schema.KindNumber:
		value, err = r.promptNumber(ctx, node, state, path)
	case node.Kind == schema.KindString:
		value, err = r.promptString(ctx, node, state, path)
	case node.Kind == schema.KindNull:
		value = nil
	default:
		return r.driver.Info(ctx, fmt.Sprintf("%s%s: unsupported field", r.theme.InfoPrefix, displayLabel(node)))
	}
	if err != nil {
		return err
	}
	return state.SetValue(path, value)
}

func (r *Renderer) promptString(ctx context.Context, node *form.FieldNode, state *State, path errorschema.Path) (any, error) {
	label := r.theme.PromptPrefix + displayLabel(node)
	help := displayHelp(node)
	defaultVal := defaultStringValue(state, path)

	for {
		var (
			response string
			err      error
		)
		cfg := InputConfig{
			Message:   label,
			Default:   defaultVal,
			Help:      help,
			Validator: requiredValidator(node.Required),
		}
		switch node.Selection.Widget {
		case widgets.WidgetPassword:
			response, err = r.driver.Password(ctx, cfg)
		case widgets.WidgetTextarea:
			response, err = r.driver.TextArea(ctx, TextAreaConfig{
				Message: label,
				Default: defaultVal,
				Help:    help,
			})
		default:
			response, err = r.driver.Input(ctx, cfg)
		}
		if err != nil {
			return nil, err
		}

		if err := cfg.Validator(response); err != nil {
			if infoErr := r.invalid(ctx, node, err); infoErr != nil {
				return nil, infoErr
			}
			continue
		}
		return response, nil
	}
}

func (r *Renderer) promptBoolean(ctx context.Context, node *form.FieldNode, state *State, path errorschema.Path) (any, error) {
	return r.driver.Confirm(ctx, ConfirmConfig{
		Message: r.theme.PromptPrefix + displayLabel(node),
		Default: defaultBoolValue(state, path),
		Help:    displayHelp(node),
	})
}

func (r *Renderer) promptNumber(ctx context.Context, node *form.FieldNode, state *State, path errorschema.Path) (any, error) {
	integer := node.Schema.TypeName() == "integer"
	defaultStr := ""
	if v, ok := state.GetValue(path); ok {
		if num, ok := v.(float64); ok {
			defaultStr = strconv.FormatFloat(num, 'f', -1, 64)
		}
	}
	validate := func(input string) error {
		input = strings.TrimSpace(input)
		if input == "" {
			return requiredValidator(node.Required)(input)
		}
		_, err := parseNumber(input, integer)
		return err
	}

	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message:   r.theme.PromptPrefix + displayLabel(node),
			Default:   defaultStr,
			Help:      displayHelp(node),
			Validator: validate,
		})
		if err != nil {
			return nil, err
		}
		if err := validate(input); err != nil {
			if infoErr := r.invalid(ctx, node, err); infoErr != nil {
				return nil, infoErr
			}
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			return nil, nil
		}
		return parseNumber(input, integer)
	}
}

func (r *Renderer) promptEnum(ctx context.Context, node *form.FieldNode, state *State, path errorschema.Path) (any, error) {
	options := stringifyValues(node.Schema.Enum)
	defaultIdx := -1
	if v, ok := state.GetValue(path); ok {
		defaultIdx = indexOf(options, fmt.Sprint(v))
	}

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      r.theme.PromptPrefix + displayLabel(node),
			Options:      options,
			DefaultIndex: defaultIdx,
			Help:         displayHelp(node),
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(options) {
			if infoErr := r.invalid(ctx, node, errors.New("invalid selection")); infoErr != nil {
				return nil, infoErr
			}
			continue
		}
		return schema.CloneValue(node.Schema.Enum[idx]), nil
	}
}

func (r *Renderer) promptMultiSelect(ctx context.Context, node *form.FieldNode, state *State, path errorschema.Path) (any, error) {
	var choices []any
	if items := node.Schema.ItemSchema(0); items != nil {
		choices = items.Enum
	}
	options := stringifyValues(choices)
	defaults := indicesOf(options, stringifyValues(getArrayValue(state, path)))

	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  r.theme.PromptPrefix + displayLabel(node),
		Options:  options,
		Defaults: defaults,
		Help:     displayHelp(node),
	})
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(choices) {
			out = append(out, schema.CloneValue(choices[idx]))
		}
	}
	return out, nil
}

// promptList reads an array of scalars as one comma separated answer.
func (r *Renderer) promptList(ctx context.Context, node *form.FieldNode, state *State, path errorschema.Path) (any, error) {
	items := node.Schema.ItemSchema(0)
	defaultStr := strings.Join(stringifyValues(getArrayValue(state, path)), ", ")
	validate := func(input string) error {
		_, err := parseList(input, items)
		return err
	}

	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message:   r.theme.PromptPrefix + displayLabel(node),
			Default:   defaultStr,
			Help:      firstNonEmpty(displayHelp(node), "comma separated"),
			Validator: validate,
		})
		if err != nil {
			return nil, err
		}
		list, err := parseList(input, items)
		if err != nil {
			if infoErr := r.invalid(ctx, node, err); infoErr != nil {
				return nil, infoErr
			}
			continue
		}
		return list, nil
	}
}

func (r *Renderer) invalid(ctx context.Context, node *form.FieldNode, err error) error {
	return r.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: %v", r.theme.ErrorPrefix, displayLabel(node), err))
}

func (r *Renderer) serialize(values any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func requiredValidator(required bool) func(string) error {
	return func(input string) error {
		if required && strings.TrimSpace(input) == "" {
			return errors.New("required")
		}
		return nil
	}
}

func parseNumber(input string, integer bool) (float64, error) {
	if integer {
		i, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", input)
		}
		return float64(i), nil
	}
	f, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", input)
	}
	return f, nil
}

func parseList(input string, items *schema.Schema) ([]any, error) {
	out := []any{}
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch items.Kind() {
		case schema.KindNumber:
			num, err := parseNumber(part, items.TypeName() == "integer")
			if err != nil {
				return nil, err
			}
			out = append(out, num)
		case schema.KindBoolean:
			b, err := strconv.ParseBool(part)
			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", part)
			}
			out = append(out, b)
		default:
			out = append(out, part)
		}
	}
	return out, nil
}

func displayLabel(node *form.FieldNode) string {
	if node.Title != "" {
		return node.Title
	}
	if node.Name != "" {
		return node.Name
	}
	return "value"
}

func displayHelp(node *form.FieldNode) string {
	return firstNonEmpty(node.Help, node.Description, node.Placeholder)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func stringifyValues(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func getArrayValue(state *State, path errorschema.Path) []any {
	if v, ok := state.GetValue(path); ok {
		if arr, ok := v.([]any); ok {
			return arr
		}
	}
	return nil
}

func defaultStringValue(state *State, path errorschema.Path) string {
	if v, ok := state.GetValue(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func defaultBoolValue(state *State, path errorschema.Path) bool {
	if v, ok := state.GetValue(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func flattenForm(values any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	case nil:
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(b, next, v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}
