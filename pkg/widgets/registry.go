package widgets

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

// Field identifiers. Every schema kind maps to exactly one of them.
const (
	StringField      = "StringField"
	NumberField      = "NumberField"
	BooleanField     = "BooleanField"
	ObjectField      = "ObjectField"
	ArrayField       = "ArrayField"
	NullField        = "NullField"
	MultiSchemaField = "MultiSchemaField"
	UnsupportedField = "UnsupportedField"
)

// Built-in widget identifiers.
const (
	WidgetText       = "text"
	WidgetTextarea   = "textarea"
	WidgetPassword   = "password"
	WidgetEmail      = "email"
	WidgetURI        = "uri"
	WidgetDate       = "date"
	WidgetDateTime   = "datetime"
	WidgetColor      = "color"
	WidgetSelect     = "select"
	WidgetRadio      = "radio"
	WidgetCheckbox   = "checkbox"
	WidgetCheckboxes = "checkboxes"
	WidgetUpDown     = "updown"
	WidgetRange      = "range"
	WidgetHidden     = "hidden"
	WidgetFile       = "file"
)

// ErrUnknownWidget is returned when ui:widget or ui:field names something the
// registry does not know.
var ErrUnknownWidget = errors.New("widgets: unknown widget")

// Selection is the field and widget chosen for one schema node. Widget is
// empty for container fields that render their children instead.
type Selection struct {
	Field  string
	Widget string
}

// Matcher decides whether a widget should handle the supplied node.
type Matcher func(s *schema.Schema, ui uischema.UISchema) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects fields and widgets for schema nodes. Explicit ui:field and
// ui:widget hints win, then registered matchers by priority (ties fall back
// to registration order), then the kind defaults.
type Registry struct {
	mu      sync.RWMutex
	rules   []rule
	widgets map[string]struct{}
	fields  map[string]struct{}
}

// NewRegistry constructs a registry knowing the built-in fields and widgets.
func NewRegistry() *Registry {
	reg := &Registry{
		widgets: make(map[string]struct{}),
		fields:  make(map[string]struct{}),
	}
	reg.registerBuiltins()
	return reg
}

// RegisterWidget makes name available to ui:widget.
func (r *Registry) RegisterWidget(name string) {
	trimmed := strings.TrimSpace(name)
	if r == nil || trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[trimmed] = struct{}{}
}

// RegisterField makes name available to ui:field.
func (r *Registry) RegisterField(name string) {
	trimmed := strings.TrimSpace(name)
	if r == nil || trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[trimmed] = struct{}{}
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence. The name becomes a known widget.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.widgets[trimmed] = struct{}{}
	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Widgets lists the known widget names in sorted order.
func (r *Registry) Widgets() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.widgets))
	for name := range r.widgets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve selects the field and widget for s under ui.
func (r *Registry) Resolve(s *schema.Schema, ui uischema.UISchema) (Selection, error) {
	if s == nil {
		return Selection{}, &schema.InvalidSchemaError{Reason: "widgets: schema is nil"}
	}

	selection := defaultSelection(s)
	if name := ui.Field(); name != "" {
		if !r.known(name, false) {
			return Selection{}, fmt.Errorf("%w: field %q", ErrUnknownWidget, name)
		}
		selection = Selection{Field: name}
	}

	if name := ui.Widget(); name != "" {
		if !r.known(name, true) {
			return Selection{}, fmt.Errorf("%w: %q", ErrUnknownWidget, name)
		}
		selection.Widget = name
		return selection, nil
	}
	if ui.Field() != "" {
		return selection, nil
	}

	if name, ok := r.match(s, ui); ok {
		selection.Widget = name
	}
	return selection, nil
}

func (r *Registry) known(name string, widget bool) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if widget {
		_, ok := r.widgets[name]
		return ok
	}
	_, ok := r.fields[name]
	return ok
}

func (r *Registry) match(s *schema.Schema, ui uischema.UISchema) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(s, ui) {
			return entry.name, true
		}
	}
	return "", false
}

// defaultSelection is the kind-driven choice used when no hint or matcher
// applies.
func defaultSelection(s *schema.Schema) Selection {
	if schema.IsMultiSchema(s) {
		return Selection{Field: MultiSchemaField, Widget: WidgetSelect}
	}
	switch s.Kind() {
	case schema.KindString:
		return Selection{Field: StringField, Widget: stringWidget(s)}
	case schema.KindNumber:
		if len(s.Enum) > 0 {
			return Selection{Field: NumberField, Widget: WidgetSelect}
		}
		if s.TypeName() == "integer" {
			return Selection{Field: NumberField, Widget: WidgetUpDown}
		}
		return Selection{Field: NumberField, Widget: WidgetText}
	case schema.KindBoolean:
		if len(s.Enum) > 0 {
			return Selection{Field: BooleanField, Widget: WidgetSelect}
		}
		return Selection{Field: BooleanField, Widget: WidgetCheckbox}
	case schema.KindObject:
		return Selection{Field: ObjectField}
	case schema.KindArray:
		return Selection{Field: ArrayField, Widget: arrayWidget(s)}
	case schema.KindNull:
		return Selection{Field: NullField}
	case schema.KindUnknown:
		return Selection{Field: UnsupportedField}
	default:
		return Selection{Field: UnsupportedField}
	}
}

func stringWidget(s *schema.Schema) string {
	if len(s.Enum) > 0 {
		return WidgetSelect
	}
	switch strings.ToLower(strings.TrimSpace(s.Format)) {
	case "email":
		return WidgetEmail
	case "uri", "url":
		return WidgetURI
	case "date":
		return WidgetDate
	case "date-time":
		return WidgetDateTime
	case "color":
		return WidgetColor
	case "data-url":
		return WidgetFile
	default:
		return WidgetText
	}
}

// arrayWidget covers the arrays rendered by a single widget: multiple choice
// over an enum and file lists. Other arrays render their items.
func arrayWidget(s *schema.Schema) string {
	items := s.Items
	if items == nil {
		return ""
	}
	if len(items.Enum) > 0 {
		if unique, _ := s.Keyword("uniqueItems"); unique == true {
			return WidgetCheckboxes
		}
		return ""
	}
	if items.Format == "data-url" {
		return WidgetFile
	}
	return ""
}

func (r *Registry) registerBuiltins() {
	for _, name := range []string{
		WidgetText, WidgetTextarea, WidgetPassword, WidgetEmail, WidgetURI,
		WidgetDate, WidgetDateTime, WidgetColor, WidgetSelect, WidgetRadio,
		WidgetCheckbox, WidgetCheckboxes, WidgetUpDown, WidgetRange,
		WidgetHidden, WidgetFile,
	} {
		r.widgets[name] = struct{}{}
	}
	for _, name := range []string{
		StringField, NumberField, BooleanField, ObjectField, ArrayField,
		NullField, MultiSchemaField, UnsupportedField,
	} {
		r.fields[name] = struct{}{}
	}

	r.Register(WidgetHidden, 90, func(s *schema.Schema, _ uischema.UISchema) bool {
		return s.Const != nil && s.Kind() != schema.KindObject && s.Kind() != schema.KindArray
	})

	r.Register(WidgetTextarea, 50, func(s *schema.Schema, ui uischema.UISchema) bool {
		if s.Kind() != schema.KindString || len(s.Enum) > 0 {
			return false
		}
		rows, ok := ui.Option("rows")
		return ok && rows != nil
	})
}
