package render

import (
	"errors"
	"strings"

	"github.com/goliatone/go-formschema/pkg/errorschema"
)

// Translator resolves message keys for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler decides the text used when a key has no
// translation. err is ErrMissingTranslator when no translator is set.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

// ErrMissingTranslator reports a translation attempt without a translator.
var ErrMissingTranslator = errors.New("render: translator not configured")

// MessageKeyPrefix prefixes the translation key of a validation error; the
// keyword completes it ("errors.minLength").
const MessageKeyPrefix = "errors."

// LocalizeErrors returns copies of errs whose messages are translated under
// MessageKeyPrefix + keyword, with the error argument passed to the
// translator. Untranslated messages keep their text. Stacks are rebuilt from
// the translated message.
func LocalizeErrors(errs []errorschema.ValidationError, opts RenderOptions) []errorschema.ValidationError {
	if opts.Translator == nil && opts.OnMissing == nil {
		return errs
	}
	out := make([]errorschema.ValidationError, len(errs))
	for idx, err := range errs {
		if err.Name != "" {
			err.Message = translate(opts.Locale, MessageKeyPrefix+err.Name, err.Message, opts.Translator, opts.OnMissing, err.Argument)
			err.Stack = strings.TrimSpace(err.Property + " " + err.Message)
		}
		out[idx] = err
	}
	return out
}

// TemplateI18nFuncs returns template globals exposing translation:
// translate(key, ...args) and current_locale().
func TemplateI18nFuncs(t Translator, locale string, onMissing MissingTranslationHandler) map[string]any {
	return map[string]any{
		"translate": func(key string, params ...any) string {
			return translate(locale, key, "", t, onMissing, params...)
		},
		"current_locale": func() string {
			return locale
		},
	}
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	if t == nil {
		if onMissing != nil {
			return onMissing(locale, key, args, ErrMissingTranslator)
		}
		if strings.TrimSpace(fallback) != "" {
			return fallback
		}
		return key
	}

	result, err := t.Translate(locale, key, args...)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}

	if onMissing != nil {
		return onMissing(locale, key, args, err)
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}
