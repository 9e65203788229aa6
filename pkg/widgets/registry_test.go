package widgets

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

func TestResolve_KindDefaults(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		name   string
		schema string
		expect Selection
	}{
		{"string", `{"type":"string"}`, Selection{Field: StringField, Widget: WidgetText}},
		{"email format", `{"type":"string","format":"email"}`, Selection{Field: StringField, Widget: WidgetEmail}},
		{"date time format", `{"type":"string","format":"date-time"}`, Selection{Field: StringField, Widget: WidgetDateTime}},
		{"string enum", `{"type":"string","enum":["a","b"]}`, Selection{Field: StringField, Widget: WidgetSelect}},
		{"integer", `{"type":"integer"}`, Selection{Field: NumberField, Widget: WidgetUpDown}},
		{"number", `{"type":"number"}`, Selection{Field: NumberField, Widget: WidgetText}},
		{"boolean", `{"type":"boolean"}`, Selection{Field: BooleanField, Widget: WidgetCheckbox}},
		{"object", `{"type":"object","properties":{"a":{"type":"string"}}}`, Selection{Field: ObjectField}},
		{"array", `{"type":"array","items":{"type":"string"}}`, Selection{Field: ArrayField}},
		{"multiple choice", `{"type":"array","uniqueItems":true,"items":{"type":"string","enum":["x","y"]}}`, Selection{Field: ArrayField, Widget: WidgetCheckboxes}},
		{"files", `{"type":"array","items":{"type":"string","format":"data-url"}}`, Selection{Field: ArrayField, Widget: WidgetFile}},
		{"null", `{"type":"null"}`, Selection{Field: NullField}},
		{"one of", `{"oneOf":[{"type":"string"},{"type":"number"}]}`, Selection{Field: MultiSchemaField, Widget: WidgetSelect}},
		{"untyped", `{"title":"mystery"}`, Selection{Field: UnsupportedField}},
		{"const", `{"type":"string","const":"fixed"}`, Selection{Field: StringField, Widget: WidgetHidden}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := reg.Resolve(schema.MustParse(tc.schema), nil)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if diff := cmp.Diff(tc.expect, got); diff != "" {
				t.Fatalf("selection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_ExplicitWidgetWins(t *testing.T) {
	reg := NewRegistry()
	s := schema.MustParse(`{"type":"string","const":"fixed"}`)

	got, err := reg.Resolve(s, uischema.UISchema{"ui:widget": "password"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if diff := cmp.Diff(Selection{Field: StringField, Widget: WidgetPassword}, got); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}

	got, err = reg.Resolve(schema.MustParse(`{"type":"boolean"}`), uischema.UISchema{"ui:options": map[string]any{"widget": "radio"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Widget != WidgetRadio {
		t.Fatalf("expected ui:options widget to apply, got %#v", got)
	}
}

func TestResolve_UnknownWidget(t *testing.T) {
	reg := NewRegistry()
	s := schema.MustParse(`{"type":"string"}`)

	if _, err := reg.Resolve(s, uischema.UISchema{"ui:widget": "sparkles"}); !errors.Is(err, ErrUnknownWidget) {
		t.Fatalf("expected ErrUnknownWidget, got %v", err)
	}
	if _, err := reg.Resolve(s, uischema.UISchema{"ui:field": "SparkleField"}); !errors.Is(err, ErrUnknownWidget) {
		t.Fatalf("expected ErrUnknownWidget for field, got %v", err)
	}
}

func TestResolve_CustomFieldAndMatcher(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterField("GeoField")
	reg.Register("slug", 100, func(s *schema.Schema, _ uischema.UISchema) bool {
		return s.Format == "slug"
	})

	got, err := reg.Resolve(schema.MustParse(`{"type":"object"}`), uischema.UISchema{"ui:field": "GeoField"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if diff := cmp.Diff(Selection{Field: "GeoField"}, got); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}

	got, err = reg.Resolve(schema.MustParse(`{"type":"string","format":"slug"}`), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Widget != "slug" {
		t.Fatalf("expected matcher widget, got %#v", got)
	}
}

func TestResolve_MatcherPriority(t *testing.T) {
	reg := NewRegistry()
	reg.Register("low", 10, func(*schema.Schema, uischema.UISchema) bool { return true })
	reg.Register("high", 200, func(*schema.Schema, uischema.UISchema) bool { return true })
	reg.Register("high-later", 200, func(*schema.Schema, uischema.UISchema) bool { return true })

	got, err := reg.Resolve(schema.MustParse(`{"type":"string"}`), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Widget != "high" {
		t.Fatalf("expected highest priority first registration, got %q", got.Widget)
	}
}

func TestResolve_TextareaRows(t *testing.T) {
	reg := NewRegistry()
	got, err := reg.Resolve(schema.MustParse(`{"type":"string"}`), uischema.UISchema{"ui:options": map[string]any{"rows": 5.0}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Widget != WidgetTextarea {
		t.Fatalf("expected textarea, got %#v", got)
	}
}

func TestResolve_NilSchema(t *testing.T) {
	if _, err := NewRegistry().Resolve(nil, nil); err == nil {
		t.Fatalf("expected error for nil schema")
	}
}

func TestWidgets_ListsRegistered(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterWidget("stars")
	found := false
	for _, name := range reg.Widgets() {
		if name == "stars" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected registered widget in %v", reg.Widgets())
	}
}
