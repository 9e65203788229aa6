package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-formschema/internal/jsonschema/loader"
	"github.com/goliatone/go-formschema/pkg/defaults"
	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/form"
	"github.com/goliatone/go-formschema/pkg/idschema"
	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/openapi"
	"github.com/goliatone/go-formschema/pkg/render"
	"github.com/goliatone/go-formschema/pkg/render/template"
	"github.com/goliatone/go-formschema/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formschema/pkg/renderers/tui"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

var (
	// errInvalid reports form data that failed validation; the errors are
	// already written.
	errInvalid = errors.New("form data is invalid")
	// errUsage reports bad flags; flag already printed the problem.
	errUsage = errors.New("usage")
	// errHelp reports that -h was handled.
	errHelp = errors.New("help")
)

// inputFlags are shared by every command that builds a form.
type inputFlags struct {
	schema    string
	operation string
	ui        string
	data      string
	allowHTTP bool
}

func (in *inputFlags) register(fs *flag.FlagSet, a *app) {
	fs.StringVar(&in.schema, "schema", "", "JSON Schema (or OpenAPI document with -operation) path or URL")
	fs.StringVar(&in.operation, "operation", "", "treat -schema as an OpenAPI document and use this operation's request body")
	fs.StringVar(&in.ui, "ui", "", "UI schema path (JSON or YAML)")
	fs.StringVar(&in.data, "data", "", `form data path (JSON or YAML, "-" for stdin)`)
	fs.BoolVar(&in.allowHTTP, "allow-http", a.cfg.Loader.AllowHTTP, "allow http(s) sources and remote $ref targets")
}

type inputs struct {
	schema   *schema.Schema
	ui       uischema.UISchema
	formData any
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return errUsage
	}
	return nil
}

func (a *app) newLoader(allowHTTP bool) jsonschema.Loader {
	var opts []jsonschema.LoaderOption
	if allowHTTP {
		opts = append(opts, jsonschema.WithHTTPFallback(a.cfg.Loader.RequestTimeout))
	}
	return loader.New(jsonschema.NewLoaderOptions(opts...))
}

func (a *app) loadInputs(ctx context.Context, in inputFlags) (*inputs, error) {
	if strings.TrimSpace(in.schema) == "" {
		return nil, errors.New("-schema is required")
	}
	src, err := schema.SourceFromLocation(in.schema)
	if err != nil {
		return nil, err
	}
	l := a.newLoader(in.allowHTTP)

	out := &inputs{}
	if in.operation != "" {
		result, err := openapi.Load(ctx, l, src, in.operation)
		if err != nil {
			return nil, err
		}
		out.schema, out.ui = result.Schema, result.UISchema
	} else {
		bundler := jsonschema.NewBundler(l, jsonschema.BundleOptions{AllowHTTPRefs: in.allowHTTP})
		out.schema, err = bundler.Load(ctx, src)
		if err != nil {
			return nil, err
		}
	}
	a.log.Debug().Str("schema", src.Location()).Int("definitions", len(out.schema.Definitions)).Msg("schema loaded")

	if in.ui != "" {
		raw, err := os.ReadFile(in.ui)
		if err != nil {
			return nil, fmt.Errorf("read ui schema: %w", err)
		}
		ui, err := uischema.Parse(raw)
		if err != nil {
			return nil, err
		}
		if out.ui == nil {
			out.ui = ui
		} else {
			for key, value := range ui {
				out.ui[key] = value
			}
		}
	}

	if in.data != "" {
		out.formData, err = a.readData(in.data)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *app) readData(location string) (any, error) {
	var (
		raw []byte
		err error
	)
	if location == "-" {
		raw, err = io.ReadAll(a.stdin)
	} else {
		raw, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("read form data: %w", err)
	}
	value, err := decodeValue(raw)
	if err != nil {
		return nil, fmt.Errorf("decode form data: %w", err)
	}
	return value, nil
}

// decodeValue accepts JSON or YAML. Blank input decodes to nil.
func decodeValue(raw []byte) (any, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err == nil {
		return schema.NormalizeValue(value), nil
	}
	ui, err := uischema.Parse(raw)
	if err != nil {
		return nil, err
	}
	return map[string]any(ui), nil
}

func (a *app) newForm(in *inputs, extra ...form.Option) (*form.Form, error) {
	opts := []form.Option{
		form.WithUISchema(in.ui),
		form.WithFormData(in.formData),
		form.WithIDPrefix(a.cfg.Form.IDPrefix),
		form.WithLiveValidate(a.cfg.Form.LiveValidate),
		form.WithLogger(a.log),
	}
	return form.New(in.schema, append(opts, extra...)...)
}

func (a *app) writeJSON(value any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(value)
}

func runDefaults(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "defaults")
	var in inputFlags
	in.register(fs, a)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	loaded, err := a.loadInputs(ctx, in)
	if err != nil {
		return err
	}
	state, err := defaults.GetDefaultFormState(loaded.schema, loaded.formData, loaded.schema.Definitions)
	if err != nil {
		return err
	}
	return a.writeJSON(state)
}

func runIDs(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "ids")
	var in inputFlags
	in.register(fs, a)
	prefix := fs.String("prefix", a.cfg.Form.IDPrefix, "root id prefix")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	loaded, err := a.loadInputs(ctx, in)
	if err != nil {
		return err
	}
	root := idschema.RootID(loaded.ui, *prefix)
	ids, err := idschema.ToIDSchema(loaded.schema, root, loaded.schema.Definitions, loaded.formData, idschema.WithIDPrefix(*prefix))
	if err != nil {
		return err
	}
	return a.writeJSON(ids)
}

type validationReport struct {
	Valid        bool                     `json:"valid"`
	Errors       []reportedError          `json:"errors"`
	ErrorSchema  *errorschema.ErrorSchema `json:"errorSchema"`
	ConfigErrors []string                 `json:"configErrors,omitempty"`
}

type reportedError struct {
	Property string `json:"property"`
	Name     string `json:"name,omitempty"`
	Message  string `json:"message"`
	Stack    string `json:"stack"`
}

// submitFlags extend inputFlags for commands that submit the form.
type submitFlags struct {
	inputFlags
	extraErrors string
}

func (s *submitFlags) register(fs *flag.FlagSet, a *app) {
	s.inputFlags.register(fs, a)
	fs.StringVar(&s.extraErrors, "extra-errors", "", `server error payload path: {"<field path>": ["message", ...]}`)
}

func (a *app) submit(ctx context.Context, in submitFlags) (*form.Form, form.State, bool, error) {
	loaded, err := a.loadInputs(ctx, in.inputFlags)
	if err != nil {
		return nil, form.State{}, false, err
	}
	var extra []form.Option
	if in.extraErrors != "" {
		raw, err := os.ReadFile(in.extraErrors)
		if err != nil {
			return nil, form.State{}, false, fmt.Errorf("read extra errors: %w", err)
		}
		var payload map[string][]string
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, form.State{}, false, fmt.Errorf("decode extra errors: %w", err)
		}
		extra = append(extra, form.WithExtraErrors(render.MapErrorPayload(loaded.schema, payload)))
	}
	f, err := a.newForm(loaded, extra...)
	if err != nil {
		return nil, form.State{}, false, err
	}
	state, ok, err := f.Submit()
	if err != nil {
		return nil, form.State{}, false, err
	}
	return f, state, ok, nil
}

func runValidate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "validate")
	var in submitFlags
	in.register(fs, a)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	_, state, ok, err := a.submit(ctx, in)
	if err != nil {
		return err
	}

	report := validationReport{Valid: ok, Errors: []reportedError{}, ErrorSchema: state.ErrorSchema}
	for _, verr := range state.Errors {
		report.Errors = append(report.Errors, reportedError{
			Property: verr.Property,
			Name:     verr.Name,
			Message:  verr.Message,
			Stack:    verr.Stack,
		})
	}
	for _, cfgErr := range state.ConfigErrors {
		report.ConfigErrors = append(report.ConfigErrors, cfgErr.Error())
	}
	if err := a.writeJSON(report); err != nil {
		return err
	}
	if !ok {
		return errInvalid
	}
	return nil
}

func runErrors(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "errors")
	var in submitFlags
	in.register(fs, a)
	format := fs.String("format", "html", "renderer name (html, text)")
	heading := fs.String("heading", render.DefaultHeading, "error panel heading")
	templates := fs.String("templates", "", "directory of templates overriding the built-in ones")
	engineName := fs.String("engine", "pongo2", "template engine (pongo2, go-template)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	engine, err := newTemplateEngine(*engineName, *templates)
	if err != nil {
		return err
	}
	renderer, err := render.NewDefaultRegistry(engine).Get(*format)
	if err != nil {
		return err
	}

	f, _, _, err := a.submit(ctx, in)
	if err != nil {
		return err
	}
	out, err := renderer.Render(ctx, f, render.RenderOptions{Heading: *heading})
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}

func newTemplateEngine(name, dir string) (template.TemplateRenderer, error) {
	switch name {
	case "", "pongo2":
		var opts []gotemplate.Option
		if dir != "" {
			opts = append(opts, gotemplate.WithBaseDir(dir))
		}
		engine, err := render.NewEngine(opts...)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "go-template":
		var opts []gotemplatepkg.Option
		if dir != "" {
			opts = append(opts, gotemplatepkg.WithBaseDir(dir))
		}
		engine, err := render.NewHookedEngine(opts...)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown template engine %q (available: pongo2, go-template)", name)
	}
}

func runPrompt(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "prompt")
	var in inputFlags
	in.register(fs, a)
	output := fs.String("output", a.cfg.Prompt.Output, "output format (json, form, pretty)")
	attempts := fs.Int("max-attempts", a.cfg.Prompt.MaxAttempts, "submissions before giving up")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	loaded, err := a.loadInputs(ctx, in)
	if err != nil {
		return err
	}
	f, err := a.newForm(loaded)
	if err != nil {
		return err
	}

	renderer, err := tui.New(
		tui.WithPromptDriver(a.newDriver(a.stderr)),
		tui.WithOutputFormat(tui.OutputFormat(strings.ToLower(*output))),
		tui.WithMaxAttempts(*attempts),
		tui.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	out, err := renderer.Render(ctx, f, render.RenderOptions{})
	if err != nil {
		var verr *tui.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(a.stderr, "formschema prompt: giving up after %d attempts\n", verr.Attempts)
			return errInvalid
		}
		return err
	}
	if _, err := a.stdout.Write(out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout)
	return err
}

type openAPIForm struct {
	Operation openapi.Operation `json:"operation"`
	Schema    *schema.Schema    `json:"schema"`
	UISchema  uischema.UISchema `json:"uiSchema,omitempty"`
}

func runOpenAPI(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "openapi")
	doc := fs.String("doc", "", "OpenAPI document path or URL")
	operation := fs.String("operation", "", "operation id; lists operations when empty")
	allowHTTP := fs.Bool("allow-http", a.cfg.Loader.AllowHTTP, "allow http(s) sources")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*doc) == "" {
		return errors.New("-doc is required")
	}
	src, err := schema.SourceFromLocation(*doc)
	if err != nil {
		return err
	}
	l := a.newLoader(*allowHTTP)

	if *operation == "" {
		document, err := l.Load(ctx, src)
		if err != nil {
			return err
		}
		ops, err := openapi.Operations(ctx, document.Raw())
		if err != nil {
			return err
		}
		for _, op := range ops {
			if _, err := fmt.Fprintf(a.stdout, "%s\t%s %s\t%s\n", op.ID, op.Method, op.Path, op.ContentType); err != nil {
				return err
			}
		}
		return nil
	}

	result, err := openapi.Load(ctx, l, src, *operation)
	if err != nil {
		return err
	}
	return a.writeJSON(openAPIForm{
		Operation: result.Operation,
		Schema:    result.Schema,
		UISchema:  result.UISchema,
	})
}

func runLint(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "lint")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return errors.New("at least one document path is required")
	}

	found := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("lint %s: %w", path, err)
		}
		violations, err := openapi.Lint(raw)
		if err != nil {
			return fmt.Errorf("lint %s: %w", path, err)
		}
		for _, v := range violations {
			fmt.Fprintf(a.stdout, "%s:%s\n", path, v)
		}
		found += len(violations)
	}
	if found > 0 {
		a.log.Warn().Int("violations", found).Msg("lint found problems")
		return errInvalid
	}
	return nil
}
