package schema_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/schema"
)

func TestParse_JSONPreservesPropertyOrder(t *testing.T) {
	s, err := schema.Parse([]byte(`{
  "type": "object",
  "properties": {
    "zeta": {"type": "string"},
    "alpha": {"type": "integer", "minimum": 2},
    "mid": {"type": ["string", "null"]}
  }
}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, s.Properties.Names()); diff != "" {
		t.Fatalf("property order mismatch (-want +got):\n%s", diff)
	}

	alpha, _ := s.Properties.Get("alpha")
	if alpha.Kind() != schema.KindNumber {
		t.Fatalf("expected integer to map to number kind, got %s", alpha.Kind())
	}
	if got := alpha.Keywords["minimum"]; got != float64(2) {
		t.Fatalf("expected minimum keyword kept as float64, got %#v", got)
	}

	mid, _ := s.Properties.Get("mid")
	if mid.Kind() != schema.KindString {
		t.Fatalf("expected nullable pair to resolve to string, got %s", mid.Kind())
	}
}

func TestParse_YAMLPreservesPropertyOrder(t *testing.T) {
	s, err := schema.Parse([]byte(`
type: object
required: [b]
properties:
  b:
    type: string
    default: hi
  a:
    type: array
    minItems: 2
    items:
      type: number
definitions:
  thing:
    type: boolean
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a"}, s.Properties.Names()); diff != "" {
		t.Fatalf("property order mismatch (-want +got):\n%s", diff)
	}
	a, _ := s.Properties.Get("a")
	if a.MinItems == nil || *a.MinItems != 2 {
		t.Fatalf("expected minItems 2, got %v", a.MinItems)
	}
	if a.Items == nil || a.Items.Kind() != schema.KindNumber {
		t.Fatalf("expected number items, got %#v", a.Items)
	}
	if _, ok := s.Definitions["thing"]; !ok {
		t.Fatalf("definitions not decoded: %#v", s.Definitions)
	}
	if !s.IsRequired("b") {
		t.Fatalf("expected b to be required")
	}
}

func TestParse_RejectsNonMappingRoot(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"text"`, `- a`} {
		_, err := schema.Parse([]byte(raw))
		var invalid *schema.InvalidSchemaError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: expected InvalidSchemaError, got %v", raw, err)
		}
	}
}

func TestParse_TupleItemsAndDefs(t *testing.T) {
	s := schema.MustParse(`{
  "type": "array",
  "items": [{"type": "string"}, {"type": "boolean"}],
  "additionalItems": {"type": "number"},
  "$defs": {"x": {"type": "null"}}
}`)
	if !s.IsFixedItems() {
		t.Fatalf("expected tuple items")
	}
	if got := s.ItemSchema(1).Kind(); got != schema.KindBoolean {
		t.Fatalf("item 1 kind: %s", got)
	}
	if got := s.ItemSchema(5).Kind(); got != schema.KindNumber {
		t.Fatalf("additional item kind: %s", got)
	}
	if got := s.Definitions["x"].Kind(); got != schema.KindNull {
		t.Fatalf("$defs not folded into definitions: %s", got)
	}
}

func TestKindInference(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want schema.Kind
	}{
		{name: "explicit", raw: `{"type":"boolean"}`, want: schema.KindBoolean},
		{name: "properties", raw: `{"properties":{"a":{}}}`, want: schema.KindObject},
		{name: "const", raw: `{"const": 3}`, want: schema.KindNumber},
		{name: "enum", raw: `{"enum": ["a","b"]}`, want: schema.KindString},
		{name: "unknown", raw: `{}`, want: schema.KindUnknown},
		{name: "unsupported", raw: `{"type":"file"}`, want: schema.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := schema.MustParse(tc.raw).Kind(); got != tc.want {
				t.Fatalf("kind: want %s got %s", tc.want, got)
			}
		})
	}
}

func TestIsMultiSchema(t *testing.T) {
	if !schema.IsMultiSchema(schema.MustParse(`{"anyOf":[{"type":"string"}]}`)) {
		t.Fatalf("expected untyped anyOf to be a multi schema")
	}
	if schema.IsMultiSchema(schema.MustParse(`{"type":"object","oneOf":[{"required":["a"]}]}`)) {
		t.Fatalf("typed oneOf should not be a multi schema")
	}
}

func TestMarshalJSON_KeepsDeclarationOrder(t *testing.T) {
	raw := `{"type":"object","required":["b"],"properties":{"b":{"type":"string","minLength":3},"a":{"type":"number"}}}`
	s := schema.MustParse(raw)
	got, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if diff := cmp.Diff(raw, string(got)); diff != "" {
		t.Fatalf("encoded schema mismatch (-want +got):\n%s", diff)
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := schema.MustParse(`{"type":"object","properties":{"a":{"type":"string","default":"x","enum":["x","y"]}}}`)
	clone := s.Clone()
	if !cmp.Equal(s, clone) {
		t.Fatalf("clone differs: %s", cmp.Diff(s, clone))
	}

	child, _ := clone.Properties.Get("a")
	child.Title = "changed"
	child.Enum[0] = "z"
	clone.Properties.Set("b", &schema.Schema{Type: "number"})

	original, _ := s.Properties.Get("a")
	if original.Title != "" || original.Enum[0] != "x" {
		t.Fatalf("clone shares nested state with original: %#v", original)
	}
	if s.Properties.Len() != 1 {
		t.Fatalf("clone shares property map with original")
	}
}

func TestFromValue_SortsKeys(t *testing.T) {
	s, err := schema.FromValue(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"b": map[string]any{"type": "string"},
			"a": map[string]any{"type": "integer", "default": 3},
		},
	})
	if err != nil {
		t.Fatalf("from value: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, s.Properties.Names()); diff != "" {
		t.Fatalf("property order mismatch (-want +got):\n%s", diff)
	}
	a, _ := s.Properties.Get("a")
	if a.Default != float64(3) {
		t.Fatalf("expected default normalised to float64, got %#v", a.Default)
	}

	if _, err := schema.FromValue([]any{"x"}); err == nil {
		t.Fatalf("expected error for non-mapping value")
	}
}

func TestDocumentDecode(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceFromFS("forms/user.json"), []byte(`{"type":"string"}`))
	s, err := doc.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Kind() != schema.KindString {
		t.Fatalf("decoded kind: %s", s.Kind())
	}

	bad := schema.MustNewDocument(schema.SourceFromFS("forms/bad.json"), []byte(`[]`))
	if _, err := bad.Decode(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSourceFromLocation(t *testing.T) {
	src, err := schema.SourceFromLocation("https://example.com/schema.json")
	if err != nil {
		t.Fatalf("url source: %v", err)
	}
	if src.Kind() != schema.SourceKindURL {
		t.Fatalf("expected url kind, got %s", src.Kind())
	}
	src, err = schema.SourceFromLocation("testdata/schema.json")
	if err != nil {
		t.Fatalf("file source: %v", err)
	}
	if src.Kind() != schema.SourceKindFile {
		t.Fatalf("expected file kind, got %s", src.Kind())
	}
	if _, err := schema.SourceFromLocation("  "); err == nil {
		t.Fatalf("expected error for empty location")
	}
}

func TestDefinitionNotFoundError_Message(t *testing.T) {
	err := &schema.DefinitionNotFoundError{Ref: "#/definitions/nonexistent"}
	if got, want := err.Error(), "could not find a definition for #/definitions/nonexistent"; got != want {
		t.Fatalf("message: want %q got %q", want, got)
	}
}
