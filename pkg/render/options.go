package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions describe per-request presentation choices.
type RenderOptions struct {
	// Theme supplies class tokens; see Classes for the keys read.
	Theme *theme.RendererConfig
	// Heading titles the error panel. Defaults to DefaultHeading.
	Heading string
	// Locale, Translator and OnMissing localise error messages.
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}

// DefaultHeading titles the error panel when no heading is set.
const DefaultHeading = "Errors"

// Class token keys read from RendererConfig.Tokens.
const (
	TokenErrorPanel        = "error_panel"
	TokenErrorPanelHeading = "error_panel_heading"
	TokenErrorPanelTitle   = "error_panel_title"
	TokenErrorList         = "error_list"
	TokenErrorItem         = "error_item"
	TokenConfigError       = "config_error"
)

var defaultClasses = map[string]string{
	TokenErrorPanel:        "panel panel-danger errors",
	TokenErrorPanelHeading: "panel-heading",
	TokenErrorPanelTitle:   "panel-title",
	TokenErrorList:         "list-group",
	TokenErrorItem:         "list-group-item text-danger",
	TokenConfigError:       "config-error",
}

// Classes returns the class names used by the error templates: the theme's
// tokens where set, the built-in names otherwise.
func Classes(cfg *theme.RendererConfig) map[string]string {
	out := make(map[string]string, len(defaultClasses))
	for key, value := range defaultClasses {
		out[key] = value
		if cfg != nil && cfg.Tokens[key] != "" {
			out[key] = cfg.Tokens[key]
		}
	}
	return out
}
