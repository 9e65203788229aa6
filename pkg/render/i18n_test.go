package render_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/render"
)

type stubTranslator map[string]string

func (t stubTranslator) Translate(_ string, key string, args ...any) (string, error) {
	if msg, ok := t[key]; ok {
		return fmt.Sprintf(msg, args...), nil
	}
	return "", errors.New("missing translation")
}

func sampleErrors() []errorschema.ValidationError {
	return []errorschema.ValidationError{
		{
			Property: "instance.foo",
			Name:     "minLength",
			Argument: float64(10),
			Message:  "does not meet minimum length of 10",
			Stack:    "instance.foo does not meet minimum length of 10",
		},
		{
			Property: "instance.bar",
			Name:     "type",
			Argument: []string{"string"},
			Message:  "is not of a type(s) string",
			Stack:    "instance.bar is not of a type(s) string",
		},
		{
			Property: "instance",
			Message:  "rejected by server",
			Stack:    "instance rejected by server",
		},
	}
}

func TestLocalizeErrors_TranslatesByKeyword(t *testing.T) {
	errs := sampleErrors()
	got := render.LocalizeErrors(errs, render.RenderOptions{
		Locale:     "es",
		Translator: stubTranslator{"errors.minLength": "debe tener al menos %v caracteres"},
	})

	stacks := make([]string, len(got))
	for idx, err := range got {
		stacks[idx] = err.Stack
	}
	want := []string{
		"instance.foo debe tener al menos 10 caracteres",
		"instance.bar is not of a type(s) string",
		"instance rejected by server",
	}
	if diff := cmp.Diff(want, stacks); diff != "" {
		t.Fatalf("localized stacks mismatch (-want +got):\n%s", diff)
	}
	if errs[0].Message != "does not meet minimum length of 10" {
		t.Fatalf("expected input errors to stay untouched, got %q", errs[0].Message)
	}
}

func TestLocalizeErrors_NoTranslatorIsNoop(t *testing.T) {
	errs := sampleErrors()
	got := render.LocalizeErrors(errs, render.RenderOptions{Locale: "fr"})

	if diff := cmp.Diff(errs, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalizeErrors_OnMissingHandler(t *testing.T) {
	var seen []string
	got := render.LocalizeErrors(sampleErrors()[:1], render.RenderOptions{
		Locale: "de",
		OnMissing: func(locale, key string, _ []any, err error) string {
			seen = append(seen, locale+":"+key)
			if !errors.Is(err, render.ErrMissingTranslator) {
				t.Fatalf("expected ErrMissingTranslator, got %v", err)
			}
			return "zu kurz"
		},
	})

	if diff := cmp.Diff([]string{"de:errors.minLength"}, seen); diff != "" {
		t.Fatalf("missing handler calls mismatch (-want +got):\n%s", diff)
	}
	if got[0].Stack != "instance.foo zu kurz" {
		t.Fatalf("unexpected stack %q", got[0].Stack)
	}
}

func TestTemplateI18nFuncs(t *testing.T) {
	funcs := render.TemplateI18nFuncs(stubTranslator{"greeting": "hola %s"}, "es", nil)

	translate, ok := funcs["translate"].(func(string, ...any) string)
	if !ok {
		t.Fatalf("translate helper has unexpected type %T", funcs["translate"])
	}
	if got := translate("greeting", "Ada"); got != "hola Ada" {
		t.Fatalf("translate: got %q", got)
	}
	if got := translate("unknown.key"); got != "unknown.key" {
		t.Fatalf("expected missing key to fall back to key, got %q", got)
	}

	locale, ok := funcs["current_locale"].(func() string)
	if !ok {
		t.Fatalf("current_locale helper has unexpected type %T", funcs["current_locale"])
	}
	if got := locale(); got != "es" {
		t.Fatalf("current_locale: got %q", got)
	}
}
