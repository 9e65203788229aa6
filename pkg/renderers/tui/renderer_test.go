package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/form"
	"github.com/goliatone/go-formschema/pkg/render"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	passwords    []string
	prompts      []string
	infoMessages []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	passPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func newForm(t *testing.T, raw string, opts ...form.Option) *form.Form {
	t.Helper()
	f, err := form.New(schema.MustParse(raw), opts...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return f
}

func decodeOutput(t *testing.T, out []byte) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	return got
}

func TestRender_PromptsInDisplayOrder(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"hello", "5", "a, b"},
		selectIdx: []int{1},
		confirm:   []bool{true},
		passwords: []string{"s3cret"},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	f := newForm(t, `{
  "type": "object",
  "required": ["title"],
  "properties": {
    "title": {"type": "string"},
    "status": {"type": "string", "enum": ["draft", "published"]},
    "count": {"type": "integer", "minimum": 1},
    "agree": {"type": "boolean"},
    "secret": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}}
  }
}`, form.WithUISchema(uischema.UISchema{
		"ui:order": []any{"status", "*"},
		"secret":   map[string]any{"ui:widget": "password"},
	}))

	out, err := r.Render(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if diff := cmp.Diff([]string{"status", "title", "count", "agree", "secret", "tags"}, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{
		"title":  "hello",
		"status": "published",
		"count":  float64(5),
		"agree":  true,
		"secret": "s3cret",
		"tags":   []any{"a", "b"},
	}
	if diff := cmp.Diff(want, decodeOutput(t, out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_RepromptsOnlyFailingFields(t *testing.T) {
	driver := &stubDriver{inputs: []string{"hi", "first note", "hello"}}
	r, err := New(WithPromptDriver(driver), WithTheme(Theme{ErrorPrefix: "! "}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	f := newForm(t, `{
  "type": "object",
  "properties": {
    "title": {"type": "string", "minLength": 3},
    "note": {"type": "string"}
  }
}`)

	out, err := r.Render(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if diff := cmp.Diff([]string{"title", "note", "title"}, driver.prompts); diff != "" {
		t.Fatalf("prompt sequence mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"! instance.title does not meet minimum length of 3"}, driver.infoMessages); diff != "" {
		t.Fatalf("reported errors mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{"title": "hello", "note": "first note"}
	if diff := cmp.Diff(want, decodeOutput(t, out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_GivesUpAfterMaxAttempts(t *testing.T) {
	driver := &stubDriver{inputs: []string{"a", "b"}}
	r, err := New(WithPromptDriver(driver), WithMaxAttempts(2))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	f := newForm(t, `{"type": "object", "properties": {"title": {"type": "string", "minLength": 3}}}`)

	_, err = r.Render(context.Background(), f, render.RenderOptions{})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Attempts != 2 || len(verr.Errors) != 1 {
		t.Fatalf("unexpected validation error %+v", verr)
	}
	if driver.inputPos != 2 {
		t.Fatalf("expected two answers consumed, got %d", driver.inputPos)
	}
}

func TestRender_NumberInputIsCheckedLocally(t *testing.T) {
	driver := &stubDriver{inputs: []string{"abc", "10"}}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	f := newForm(t, `{"type": "object", "properties": {"count": {"type": "integer", "title": "Count"}}}`)

	out, err := r.Render(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(driver.infoMessages) != 1 || !strings.Contains(driver.infoMessages[0], "Invalid Count") {
		t.Fatalf("expected one local validation message, got %q", driver.infoMessages)
	}
	if diff := cmp.Diff(map[string]any{"count": float64(10)}, decodeOutput(t, out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_SkipsHiddenAndReadOnly(t *testing.T) {
	driver := &stubDriver{inputs: []string{"Ada"}}
	r, err := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	f := newForm(t, `{
  "type": "object",
  "properties": {
    "kind": {"const": "person", "default": "person"},
    "id": {"type": "string", "default": "u-1"},
    "name": {"type": "string"}
  }
}`, form.WithUISchema(uischema.UISchema{"id": map[string]any{"ui:readonly": true}}))

	out, err := r.Render(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff([]string{"name"}, driver.prompts); diff != "" {
		t.Fatalf("prompt sequence mismatch (-want +got):\n%s", diff)
	}
	if got, want := string(out), "id=u-1\nkind=person\nname=Ada\n"; got != want {
		t.Fatalf("pretty output mismatch: got %q want %q", got, want)
	}
	if r.ContentType() != "text/plain" {
		t.Fatalf("unexpected content type %q", r.ContentType())
	}
}

func TestRender_SubmitTransformer(t *testing.T) {
	driver := &stubDriver{inputs: []string{"Ada"}}
	r, err := New(
		WithPromptDriver(driver),
		WithOutputFormat(OutputFormatFormURLEncoded),
		WithSubmitTransformer(func(values any) (any, error) {
			out := values.(map[string]any)
			out["source"] = "tui"
			return out, nil
		}),
	)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	f := newForm(t, `{"type": "object", "properties": {"name": {"type": "string"}}}`)

	out, err := r.Render(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(out); got != "name=Ada&source=tui" {
		t.Fatalf("unexpected encoded output %q", got)
	}
}

func TestRender_RequiresForm(t *testing.T) {
	r, err := New(WithPromptDriver(&stubDriver{}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if _, err := r.Render(context.Background(), nil, render.RenderOptions{}); err == nil {
		t.Fatalf("expected error for nil form")
	}
}

func TestState_SetValueCreatesContainers(t *testing.T) {
	state := NewState(map[string]any{"name": "Ada"})

	if err := state.SetValue(errorschema.PropertyToPath(".address.lines[1]"), "Flat 2"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	want := map[string]any{
		"name":    "Ada",
		"address": map[string]any{"lines": []any{nil, "Flat 2"}},
	}
	if diff := cmp.Diff(want, state.Value()); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	got, ok := state.GetValue(errorschema.PropertyToPath(".address.lines[1]"))
	if !ok || got != "Flat 2" {
		t.Fatalf("get value: got %v, %v", got, ok)
	}
	if err := state.SetValue(errorschema.PropertyToPath(".name[0]"), "x"); err == nil {
		t.Fatalf("expected error when indexing a string")
	}
}
