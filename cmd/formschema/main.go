// Command formschema computes form state for a JSON Schema document: default
// values, field ids, ordered validation errors and an error panel. It can
// also prompt for the form in a terminal and lift the request body of an
// OpenAPI operation into a form schema.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formschema/internal/config"
	"github.com/goliatone/go-formschema/internal/logging"
	"github.com/goliatone/go-formschema/pkg/renderers/tui"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitError   = 2
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"defaults":    {summary: "print the default form state", run: runDefaults},
	"ids":         {summary: "print the field id tree", run: runIDs},
	"validate":    {summary: "validate form data and print ordered errors", run: runValidate},
	"errors":      {summary: "render ordered errors (-format html or text)", run: runErrors},
	"errors-html": {summary: "render the error panel as HTML", run: runErrors},
	"prompt":      {summary: "fill the form interactively", run: runPrompt},
	"openapi":     {summary: "list operations or print an operation's form schema", run: runOpenAPI},
	"lint":        {summary: "check x-ui extensions of OpenAPI documents", run: runLint},
}

type app struct {
	cfg       *config.Config
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	log       zerolog.Logger
	newDriver func(out io.Writer) tui.PromptDriver
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "formschema: %v\n", err)
		os.Exit(exitError)
	}
	if err := logging.Init(cfg.LoggerConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "formschema: init logging: %v\n", err)
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	a := &app{
		cfg:       cfg,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		log:       logging.WithComponent("cli"),
		newDriver: tui.NewSurveyDriver,
	}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		a.usage()
		if len(args) == 0 {
			return exitError
		}
		return exitOK
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(a.stderr, "formschema: unknown command %q\n\n", name)
		a.usage()
		return exitError
	}

	a.log.Debug().Str("command", name).Strs("args", args[1:]).Msg("running command")
	err := cmd.run(ctx, a, args[1:])
	switch {
	case err == nil, err == errHelp:
		return exitOK
	case err == errInvalid:
		return exitInvalid
	case err == errUsage:
		return exitError
	default:
		a.log.Error().Err(err).Str("command", name).Msg("command failed")
		fmt.Fprintf(a.stderr, "formschema %s: %v\n", name, err)
		return exitError
	}
}

func (a *app) usage() {
	fmt.Fprintf(a.stderr, "Usage: %s <command> [flags]\n\nCommands:\n", filepath.Base(os.Args[0]))
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		fmt.Fprintf(a.stderr, "  %s%s  %s\n", name, strings.Repeat(" ", width-len(name)), commands[name].summary)
	}
	fmt.Fprintf(a.stderr, "\nEnvironment: %sLOG_LEVEL, %sALLOW_HTTP, %sID_PREFIX, ...\n", config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
}
