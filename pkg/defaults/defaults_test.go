package defaults_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/defaults"
	"github.com/goliatone/go-formschema/pkg/schema"
)

func TestComputeDefaults(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		parent any
		want   any
	}{
		{
			name:   "type fallbacks",
			schema: `{"type":"object","properties":{"s":{"type":"string"},"n":{"type":"integer"},"b":{"type":"boolean"},"a":{"type":"array"},"o":{"type":"object"},"x":{}}}`,
			want:   map[string]any{"s": "", "n": float64(0), "b": false, "a": []any{}, "o": map[string]any{}},
		},
		{
			name:   "enum first value",
			schema: `{"type":"string","enum":["red","green"]}`,
			want:   "red",
		},
		{
			name:   "enum does not override parent default",
			schema: `{"type":"string","enum":["red","green"]}`,
			parent: "green",
			want:   "green",
		},
		{
			name:   "own default replaces parent scalar",
			schema: `{"type":"string","default":"mine"}`,
			parent: "parent",
			want:   "mine",
		},
		{
			name:   "object default merged over parent default",
			schema: `{"type":"object","default":{"a":"schema"},"properties":{"a":{"type":"string"},"b":{"type":"string"}}}`,
			parent: map[string]any{"a": "parent", "b": "parent"},
			want:   map[string]any{"a": "schema", "b": "parent"},
		},
		{
			name:   "deepest default wins",
			schema: `{"type":"object","default":{"inner":{"v":"outer"}},"properties":{"inner":{"type":"object","properties":{"v":{"type":"string","default":"inner"}}}}}`,
			want:   map[string]any{"inner": map[string]any{"v": "inner"}},
		},
		{
			name:   "undeclared properties are not synthesized",
			schema: `{"type":"object","properties":{"a":{"type":"string","default":"x"}}}`,
			parent: map[string]any{"zzz": 1.0},
			want:   map[string]any{"a": "x"},
		},
		{
			name:   "tuple items",
			schema: `{"type":"array","items":[{"type":"string","default":"a"},{"type":"number"}]}`,
			want:   []any{"a", float64(0)},
		},
		{
			name:   "array default mapped through tuple items",
			schema: `{"type":"array","default":[{}, "kept"],"items":[{"type":"object","properties":{"v":{"type":"string","default":"d"}}}]}`,
			want:   []any{map[string]any{"v": "d"}, "kept"},
		},
		{
			name:   "single items schema keeps default elements",
			schema: `{"type":"array","default":["a"],"items":{"type":"string","default":"z"}}`,
			want:   []any{"a"},
		},
		{
			name:   "minItems pads with item defaults",
			schema: `{"type":"array","minItems":2,"default":["x"],"items":{"type":"string","default":"pad"}}`,
			want:   []any{"x", "pad"},
		},
		{
			name:   "multi select is not padded",
			schema: `{"type":"array","minItems":2,"uniqueItems":true,"items":{"type":"string","enum":["a","b"]}}`,
			want:   []any{},
		},
		{
			name:   "untyped anyOf uses first option",
			schema: `{"anyOf":[{"type":"object","properties":{"a":{"type":"string","default":"first"}}},{"type":"number"}]}`,
			want:   map[string]any{"a": "first"},
		},
		{
			name:   "unknown type stays undefined",
			schema: `{}`,
			want:   nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := defaults.ComputeDefaults(schema.MustParse(tc.schema), tc.parent, nil)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeDefaults_Idempotent(t *testing.T) {
	s := schema.MustParse(`{
  "type": "object",
  "default": {"nested": {"flag": true}},
  "properties": {
    "title": {"type": "string", "default": "untitled"},
    "count": {"type": "number", "default": 3},
    "nested": {"type": "object", "properties": {"flag": {"type": "boolean"}, "note": {"type": "string", "default": "n"}}}
  }
}`)
	first, err := defaults.ComputeDefaults(s, nil, nil)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := defaults.ComputeDefaults(s, first, nil)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("defaults are not idempotent (-first +second):\n%s", diff)
	}
}

func TestComputeDefaults_ResolvesRefs(t *testing.T) {
	s := schema.MustParse(`{
  "type": "object",
  "definitions": {"named": {"type": "string", "default": "ref default"}},
  "properties": {"name": {"$ref": "#/definitions/named"}}
}`)
	got, err := defaults.ComputeDefaults(s, nil, s.Definitions)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "ref default"}, got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeDefaults_RecursiveDefinitionTerminates(t *testing.T) {
	s := schema.MustParse(`{
  "definitions": {"node": {"type": "object", "properties": {"name": {"type": "string"}, "child": {"$ref": "#/definitions/node"}}}},
  "$ref": "#/definitions/node"
}`)
	got, err := defaults.ComputeDefaults(s, nil, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": ""}, got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeDefaults_MissingRef(t *testing.T) {
	s := schema.MustParse(`{"type":"object","properties":{"foo":{"$ref":"#/definitions/nonexistent"}}}`)
	_, err := defaults.ComputeDefaults(s, nil, map[string]*schema.Schema{})
	var notFound *schema.DefinitionNotFoundError
	if !errors.As(err, &notFound) || notFound.Ref != "#/definitions/nonexistent" {
		t.Fatalf("expected DefinitionNotFoundError, got %v", err)
	}
}

const paymentSchema = `{
  "type": "object",
  "properties": {
    "payment": {"oneOf": [
      {"type": "object", "required": ["card"], "properties": {"card": {"type": "string"}}},
      {"type": "object", "required": ["iban"], "properties": {"iban": {"type": "string"}, "bic": {"type": "string", "default": "GENODEF1"}}}
    ]}
  }
}`

func TestGetDefaultFormState(t *testing.T) {
	objectSchema := schema.MustParse(`{"type":"object","properties":{"a":{"type":"string","default":"x"},"b":{"type":"object","properties":{"c":{"type":"string","default":"c"},"d":{"type":"number"}}}}}`)

	cases := []struct {
		name     string
		schema   *schema.Schema
		formData any
		want     any
	}{
		{
			name:     "form data overrides defaults",
			schema:   schema.MustParse(`{"type":"object","properties":{"a":{"type":"string","default":"x"}}}`),
			formData: map[string]any{"a": "y"},
			want:     map[string]any{"a": "y"},
		},
		{
			name:     "undefined form data returns defaults",
			schema:   objectSchema,
			formData: nil,
			want:     map[string]any{"a": "x", "b": map[string]any{"c": "c", "d": float64(0)}},
		},
		{
			name:     "nested merge",
			schema:   objectSchema,
			formData: map[string]any{"b": map[string]any{"d": float64(4)}, "extra": true},
			want:     map[string]any{"a": "x", "b": map[string]any{"c": "c", "d": float64(4)}, "extra": true},
		},
		{
			name:     "scalar form data returned",
			schema:   schema.MustParse(`{"type":"string","default":"x"}`),
			formData: "typed",
			want:     "typed",
		},
		{
			name:     "oneOf defaults follow the option the data selects",
			schema:   schema.MustParse(paymentSchema),
			formData: map[string]any{"payment": map[string]any{"iban": "DE00"}},
			want:     map[string]any{"payment": map[string]any{"iban": "DE00", "bic": "GENODEF1"}},
		},
		{
			name:     "oneOf defaults without data use the first option",
			schema:   schema.MustParse(paymentSchema),
			formData: map[string]any{},
			want:     map[string]any{"payment": map[string]any{"card": ""}},
		},
		{
			name:     "array form data replaces defaults",
			schema:   schema.MustParse(`{"type":"array","default":["a","b"],"items":{"type":"string"}}`),
			formData: []any{"c"},
			want:     []any{"c"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := defaults.GetDefaultFormState(tc.schema, tc.formData, tc.schema.Definitions)
			if err != nil {
				t.Fatalf("default form state: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetDefaultFormState_RefRoundTrip(t *testing.T) {
	s := schema.MustParse(`{"$ref":"#/definitions/foo"}`)
	defs := map[string]*schema.Schema{"foo": schema.MustParse(`{"type":"string","default":"hello"}`)}
	got, err := defaults.GetDefaultFormState(s, nil, defs)
	if err != nil {
		t.Fatalf("default form state: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected hello, got %#v", got)
	}
}

func TestGetDefaultFormState_InvalidSchema(t *testing.T) {
	_, err := defaults.GetDefaultFormState(nil, nil, nil)
	var invalid *schema.InvalidSchemaError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidSchemaError, got %v", err)
	}
}

func TestGetDefaultFormState_DoesNotMutateInputs(t *testing.T) {
	s := schema.MustParse(`{"type":"object","default":{"a":{"b":"x"}},"properties":{"a":{"type":"object","properties":{"b":{"type":"string"}}}}}`)
	formData := map[string]any{"a": map[string]any{"c": "y"}}

	got, err := defaults.GetDefaultFormState(s, formData, nil)
	if err != nil {
		t.Fatalf("default form state: %v", err)
	}
	got.(map[string]any)["a"].(map[string]any)["b"] = "changed"

	if diff := cmp.Diff(map[string]any{"a": map[string]any{"c": "y"}}, formData); diff != "" {
		t.Fatalf("form data mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"a": map[string]any{"b": "x"}}, s.Default); diff != "" {
		t.Fatalf("schema default mutated (-want +got):\n%s", diff)
	}
}

func TestMergeObjects(t *testing.T) {
	base := map[string]any{"a": map[string]any{"x": 1.0, "list": []any{1.0}}, "keep": "k"}
	override := map[string]any{"a": map[string]any{"y": 2.0, "list": []any{2.0}}}

	replaced := defaults.MergeObjects(base, override)
	want := map[string]any{"a": map[string]any{"x": 1.0, "y": 2.0, "list": []any{2.0}}, "keep": "k"}
	if diff := cmp.Diff(want, replaced); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}

	concatenated := defaults.MergeObjects(base, override, defaults.WithConcatArrays())
	want["a"].(map[string]any)["list"] = []any{1.0, 2.0}
	if diff := cmp.Diff(want, concatenated); diff != "" {
		t.Fatalf("concat merge mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{1.0}, base["a"].(map[string]any)["list"]); diff != "" {
		t.Fatalf("base mutated (-want +got):\n%s", diff)
	}
}
