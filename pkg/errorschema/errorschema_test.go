package errorschema_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/errorschema"
)

func encode(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestPropertyToPath(t *testing.T) {
	cases := []struct {
		property string
		want     errorschema.Path
	}{
		{
			property: "instance.level1.level2[2].level3",
			want: errorschema.Path{
				errorschema.Name("instance"),
				errorschema.Name("level1"),
				errorschema.Name("level2"),
				errorschema.Index(2),
				errorschema.Name("level3"),
			},
		},
		{
			property: ".level1.level2[2]",
			want: errorschema.Path{
				errorschema.Name(""),
				errorschema.Name("level1"),
				errorschema.Name("level2"),
				errorschema.Index(2),
			},
		},
		{
			property: "instance.matrix[1][3]",
			want: errorschema.Path{
				errorschema.Name("instance"),
				errorschema.Name("matrix"),
				errorschema.Index(1),
				errorschema.Index(3),
			},
		},
		{
			property: "instance[0].name",
			want: errorschema.Path{
				errorschema.Name("instance"),
				errorschema.Index(0),
				errorschema.Name("name"),
			},
		},
		{
			property: "instance",
			want:     errorschema.Path{errorschema.Name("instance")},
		},
		{
			property: "instance.odd[key]",
			want: errorschema.Path{
				errorschema.Name("instance"),
				errorschema.Name("odd[key]"),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.property, func(t *testing.T) {
			got := errorschema.PropertyToPath(tc.property)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("path mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidationError_FieldPath(t *testing.T) {
	err := errorschema.ValidationError{Property: "instance.a.b[2].c"}
	if got := err.FieldPath(); got != ".a.b[2].c" {
		t.Fatalf("unexpected field path %q", got)
	}
	if got := err.Path().Property("instance"); got != "instance.a.b[2].c" {
		t.Fatalf("unexpected property %q", got)
	}
}

func TestToErrorSchema_Empty(t *testing.T) {
	got := errorschema.ToErrorSchema(nil)
	if encoded := encode(t, got); encoded != "{}" {
		t.Fatalf("expected {}, got %s", encoded)
	}
	if !got.Empty() {
		t.Fatalf("expected empty schema")
	}
}

func TestToErrorSchema_SingleField(t *testing.T) {
	got := errorschema.ToErrorSchema([]errorschema.ValidationError{
		{Property: "instance.foo", Message: "does not meet minimum length of 10"},
	})
	want := `{"foo":{"__errors":["does not meet minimum length of 10"]}}`
	if diff := cmp.Diff(want, encode(t, got)); diff != "" {
		t.Fatalf("error schema mismatch (-want +got):\n%s", diff)
	}
}

func TestToErrorSchema_ArrayIndices(t *testing.T) {
	got := errorschema.ToErrorSchema([]errorschema.ValidationError{
		{Property: "instance.level1.level2[2].level3", Message: "first"},
		{Property: "instance.level1.level2[4].level3", Message: "other index"},
		{Property: "instance.level1.level2[2].level3", Message: "second"},
	})

	atTwo := got.At("level1", "level2", "2", "level3")
	if diff := cmp.Diff([]string{"first", "second"}, atTwo.Errors); diff != "" {
		t.Fatalf("messages at index 2 mismatch (-want +got):\n%s", diff)
	}
	atFour := got.At("level1", "level2", "4", "level3")
	if diff := cmp.Diff([]string{"other index"}, atFour.Errors); diff != "" {
		t.Fatalf("messages at index 4 mismatch (-want +got):\n%s", diff)
	}
	if got.At("level1").Errors != nil {
		t.Fatalf("intermediate nodes must not carry messages")
	}
	if diff := cmp.Diff([]string{"2", "4"}, got.At("level1", "level2").Keys()); diff != "" {
		t.Fatalf("child order mismatch (-want +got):\n%s", diff)
	}
}

func TestToErrorSchema_RootError(t *testing.T) {
	got := errorschema.ToErrorSchema([]errorschema.ValidationError{
		{Property: "instance", Message: "is not of a type(s) object"},
	})
	if diff := cmp.Diff(`{"__errors":["is not of a type(s) object"]}`, encode(t, got)); diff != "" {
		t.Fatalf("error schema mismatch (-want +got):\n%s", diff)
	}
}

func TestToErrorList(t *testing.T) {
	es := errorschema.ToErrorSchema([]errorschema.ValidationError{
		{Property: "instance", Message: "root problem"},
		{Property: "instance.foo", Message: "too short"},
		{Property: "instance.list[1]", Message: "bad item"},
		{Property: "instance.foo", Message: "bad pattern"},
	})

	got := errorschema.ToErrorList(es, "")
	want := []errorschema.ErrorListItem{
		{Stack: "root: root problem"},
		{Stack: "foo: too short"},
		{Stack: "foo: bad pattern"},
		{Stack: "1: bad item"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("error list mismatch (-want +got):\n%s", diff)
	}

	named := errorschema.ToErrorList(es, "form")
	if named[0].Stack != "form: root problem" {
		t.Fatalf("expected custom root name, got %q", named[0].Stack)
	}
}

func TestErrorSchema_Merge(t *testing.T) {
	base := errorschema.ToErrorSchema([]errorschema.ValidationError{
		{Property: "instance.foo", Message: "from validator"},
	})
	extra, err := errorschema.FromValue(map[string]any{
		"foo": map[string]any{"__errors": []any{"from server"}},
		"bar": map[string]any{"__errors": []any{"bar error"}},
	})
	if err != nil {
		t.Fatalf("from value: %v", err)
	}

	merged := base.Merge(extra)
	want := `{"foo":{"__errors":["from validator","from server"]},"bar":{"__errors":["bar error"]}}`
	if diff := cmp.Diff(want, encode(t, merged)); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if base.Count() != 1 {
		t.Fatalf("merge mutated its receiver")
	}
}

func TestErrorSchema_JSONRoundTrip(t *testing.T) {
	raw := `{"a":{"__errors":["x"],"b":{"__errors":["y"]}}}`
	var es errorschema.ErrorSchema
	if err := json.Unmarshal([]byte(raw), &es); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(raw, encode(t, &es)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	var invalid errorschema.ErrorSchema
	if err := json.Unmarshal([]byte(`{"a":"nope"}`), &invalid); err == nil {
		t.Fatalf("expected error for non-object child")
	}
}

func TestErrorSchema_Equal(t *testing.T) {
	left := errorschema.ToErrorSchema([]errorschema.ValidationError{{Property: "instance.a", Message: "m"}})
	right := errorschema.ToErrorSchema([]errorschema.ValidationError{{Property: ".a", Message: "m"}})
	if !cmp.Equal(left, right) {
		t.Fatalf("expected equal trees: %s", cmp.Diff(left, right))
	}
	if cmp.Equal(left, errorschema.New()) {
		t.Fatalf("expected trees to differ")
	}
	if !cmp.Equal(errorschema.New(), errorschema.ToErrorSchema(nil)) {
		t.Fatalf("empty trees should be equal")
	}
}

func TestFlatten(t *testing.T) {
	es := errorschema.ToErrorSchema([]errorschema.ValidationError{
		{Property: "instance.list[3].name", Message: "required"},
		{Property: "instance", Message: "top"},
	})
	got := errorschema.Flatten(es, "instance")
	want := []errorschema.ValidationError{
		{Property: "instance", Message: "top", Stack: "root: top"},
		{Property: "instance.list[3].name", Message: "required", Stack: "name: required"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldErrors(t *testing.T) {
	handler := errorschema.NewFieldErrors()
	handler.Child("pass2").AddError("Passwords don't match")
	handler.Child("people").Index(1).Child("age").AddError("too young")
	handler.Child("untouched")

	got := handler.ToErrorSchema()
	want := `{"pass2":{"__errors":["Passwords don't match"]},"people":{"1":{"age":{"__errors":["too young"]}}}}`
	if diff := cmp.Diff(want, encode(t, got)); diff != "" {
		t.Fatalf("handler schema mismatch (-want +got):\n%s", diff)
	}
}
