package formschema_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema"
	"github.com/goliatone/go-formschema/pkg/form"
	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

func TestLoadSchema_BundlesAndBuildsForm(t *testing.T) {
	files := fstest.MapFS{
		"signup.json": &fstest.MapFile{Data: []byte(`{
			"type": "object",
			"required": ["email"],
			"properties": {
				"email": {"type": "string", "minLength": 5},
				"address": {"$ref": "address.json"}
			}
		}`)},
		"address.json": &fstest.MapFile{Data: []byte(`{
			"type": "object",
			"properties": {"city": {"type": "string", "default": "Lisbon"}}
		}`)},
	}
	l := formschema.NewLoader(jsonschema.WithFileSystem(files))

	s, err := formschema.LoadSchema(context.Background(), l, schema.SourceFromFS("signup.json"), jsonschema.BundleOptions{})
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}

	f, err := formschema.NewForm(s, form.WithFormData(map[string]any{"email": "a@b"}), form.WithLiveValidate(true))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	want := map[string]any{
		"email":   "a@b",
		"address": map[string]any{"city": "Lisbon"},
	}
	if diff := cmp.Diff(want, f.State().FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}

	html, err := formschema.RenderErrorsHTML(context.Background(), f, formschema.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(html), `data-field="root_email"`) {
		t.Fatalf("expected email error link, got %s", html)
	}
}

func TestLoadOperation(t *testing.T) {
	files := fstest.MapFS{"api.yaml": &fstest.MapFile{Data: []byte(`openapi: 3.0.3
info:
  title: Notes
  version: "1"
paths:
  /notes:
    post:
      operationId: createNote
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                body:
                  type: string
                  x-ui:
                    "ui:widget": textarea
      responses:
        "201":
          description: created
`)}}
	l := formschema.NewLoader(jsonschema.WithFileSystem(files))

	s, ui, err := formschema.LoadOperation(context.Background(), l, schema.SourceFromFS("api.yaml"), "createNote")
	if err != nil {
		t.Fatalf("load operation: %v", err)
	}
	if diff := cmp.Diff([]string{"body"}, s.Properties.Names()); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}
	if ui.Child("body").Widget() != "textarea" {
		t.Fatalf("expected textarea hint, got %v", ui)
	}
}
