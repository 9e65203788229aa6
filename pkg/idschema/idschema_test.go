package idschema_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/idschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

func marshal(t *testing.T, node *idschema.IDSchema) string {
	t.Helper()
	raw, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestToIDSchema_NestedObjects(t *testing.T) {
	s := schema.MustParse(`{"type":"object","properties":{"level1":{"type":"object","properties":{"level2":{"type":"string"}}}}}`)

	got, err := idschema.ToIDSchema(s, "", nil, nil)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	want := `{"$id":"root","level1":{"$id":"root_level1","level2":{"$id":"root_level1_level2"}}}`
	if diff := cmp.Diff(want, marshal(t, got)); diff != "" {
		t.Fatalf("id schema mismatch (-want +got):\n%s", diff)
	}
}

func TestToIDSchema_PrefixAndSeparator(t *testing.T) {
	s := schema.MustParse(`{"type":"object","properties":{"a":{"type":"object","properties":{"b":{"type":"number"}}}}}`)

	got, err := idschema.ToIDSchema(s, "", nil, nil, idschema.WithIDPrefix("form"), idschema.WithSeparator("-"))
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if id := got.Child("a").Child("b").ID; id != "form-a-b" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestToIDSchema_ResolvesRefs(t *testing.T) {
	s := schema.MustParse(`{
  "definitions": {"address": {"type": "object", "properties": {"city": {"type": "string"}}}},
  "type": "object",
  "properties": {"home": {"$ref": "#/definitions/address"}}
}`)
	got, err := idschema.ToIDSchema(s, "root", s.Definitions, nil)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if id := got.Child("home").Child("city").ID; id != "root_home_city" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestToIDSchema_ArrayTemplate(t *testing.T) {
	s := schema.MustParse(`{"type":"object","properties":{"people":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"},"tags":{"type":"array","items":{"type":"string"}}}}}}}`)

	got, err := idschema.ToIDSchema(s, "", nil, nil)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	people := got.Child("people")
	if people.Items == nil {
		t.Fatalf("expected items template")
	}
	if id := people.Items.Child("name").ID; id != "root_people_{index}_name" {
		t.Fatalf("unexpected template id %q", id)
	}

	second := people.Item(2)
	if second.ID != "root_people_2" || second.Child("name").ID != "root_people_2_name" {
		t.Fatalf("unexpected bound ids: %s", marshal(t, second))
	}
	if tags := second.Child("tags"); tags.Items.ID != "root_people_2_tags_{index}" {
		t.Fatalf("nested template should keep its placeholder, got %q", tags.Items.ID)
	}
	if people.Items.ID != "root_people_{index}" {
		t.Fatalf("template mutated: %q", people.Items.ID)
	}
}

func TestItemIDSchema(t *testing.T) {
	item := schema.MustParse(`{"type":"object","properties":{"name":{"type":"string"}}}`)
	got, err := idschema.ItemIDSchema(item, "root_people", 0, nil, nil)
	if err != nil {
		t.Fatalf("item ids: %v", err)
	}
	want := `{"$id":"root_people_0","name":{"$id":"root_people_0_name"}}`
	if diff := cmp.Diff(want, marshal(t, got)); diff != "" {
		t.Fatalf("item id schema mismatch (-want +got):\n%s", diff)
	}
}

func TestToIDSchema_TupleAndMultiSchema(t *testing.T) {
	s := schema.MustParse(`{
  "type": "object",
  "properties": {
    "pair": {"type": "array", "items": [{"type": "string"}, {"type": "object", "properties": {"x": {"type": "number"}}}]},
    "payment": {"oneOf": [
      {"type": "object", "properties": {"card": {"type": "string"}}, "required": ["card"]},
      {"type": "object", "properties": {"iban": {"type": "string"}}, "required": ["iban"]}
    ]}
  }
}`)
	got, err := idschema.ToIDSchema(s, "", nil, map[string]any{"payment": map[string]any{"iban": "DE00"}})
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if id := got.Child("pair").Child("1").Child("x").ID; id != "root_pair_1_x" {
		t.Fatalf("unexpected tuple id %q", id)
	}
	if id := got.Child("payment").Child("iban").ID; id != "root_payment_iban" {
		t.Fatalf("expected selected option ids, got %s", marshal(t, got.Child("payment")))
	}
}

func TestToIDSchema_DoesNotMutateSchema(t *testing.T) {
	s := schema.MustParse(`{"definitions":{"n":{"type":"string"}},"type":"object","properties":{"a":{"$ref":"#/definitions/n"}}}`)
	before := s.Clone()
	if _, err := idschema.ToIDSchema(s, "", nil, nil); err != nil {
		t.Fatalf("ids: %v", err)
	}
	if !cmp.Equal(before, s) {
		t.Fatalf("schema mutated: %s", cmp.Diff(before, s))
	}
}

func TestRootID(t *testing.T) {
	if got := idschema.RootID(map[string]any{"ui:rootFieldId": "signup"}, "root"); got != "signup" {
		t.Fatalf("expected ui:rootFieldId override, got %q", got)
	}
	if got := idschema.RootID(nil, "custom"); got != "custom" {
		t.Fatalf("expected prefix, got %q", got)
	}
	if got := idschema.RootID(nil, ""); got != idschema.DefaultPrefix {
		t.Fatalf("expected default prefix, got %q", got)
	}
}
