package render_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/render"
	"github.com/goliatone/go-formschema/pkg/schema"
)

func TestMapErrorPayload_GoErrorsCompatibility(t *testing.T) {
	s := schema.MustParse(`{
  "type": "object",
  "definitions": {"contact": {"type": "object", "properties": {"email": {"type": "string"}, "phone": {"type": "string"}}}},
  "properties": {
    "name": {"type": "string"},
    "owner": {"$ref": "#/definitions/contact"},
    "tags": {"type": "array", "items": {"type": "string"}}
  }
}`)

	payload := map[string][]string{
		"/body/name":                 {"Name is required"},
		"body.owner.email":           {"Email invalid", " Email invalid "},
		"$.body.tags[0]":             {"Tags must be unique"},
		"request.payload.owner":      {"Owner missing"},
		"non_field_errors":           {"Form level error"},
		"body/owner/phone/~1number":  {"Phone malformed"},
		"request/body/unknown-field": {"Should fall back to form errors"},
		"":                           {"Unscoped form error"},
	}

	mapped := render.MapErrorPayload(s, payload)
	encoded, err := json.Marshal(mapped)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(encoded, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]any{
		"__errors": []any{"Unscoped form error", "Form level error", "Should fall back to form errors"},
		"name":     map[string]any{"__errors": []any{"Name is required"}},
		"owner": map[string]any{
			"__errors": []any{"Owner missing"},
			"email":    map[string]any{"__errors": []any{"Email invalid"}},
			"phone":    map[string]any{"__errors": []any{"Phone malformed"}},
		},
		"tags": map[string]any{"0": map[string]any{"__errors": []any{"Tags must be unique"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapped errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMapErrorPayload_NilSchema(t *testing.T) {
	mapped := render.MapErrorPayload(nil, map[string][]string{"/name": {"oops"}})
	if diff := cmp.Diff([]string{"oops"}, mapped.Errors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	want := []string{"First", "Second", "third"}

	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}
