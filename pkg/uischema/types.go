package uischema

import (
	"strings"
)

// Reserved UI schema keys.
const (
	KeyOrder       = "ui:order"
	KeyRootFieldID = "ui:rootFieldId"
	KeyWidget      = "ui:widget"
	KeyField       = "ui:field"
	KeyOptions     = "ui:options"
	KeyHelp        = "ui:help"
	KeyDescription = "ui:description"
	KeyPlaceholder = "ui:placeholder"
	KeyTitle       = "ui:title"
	KeyDisabled    = "ui:disabled"
	KeyReadOnly    = "ui:readonly"
	KeyAutoFocus   = "ui:autofocus"
	KeyClassNames  = "classNames"
	KeyItems       = "items"

	// Wildcard stands for every property not named explicitly in ui:order.
	Wildcard = "*"
)

var knownKeys = map[string]bool{
	KeyOrder: true, KeyRootFieldID: true, KeyWidget: true, KeyField: true,
	KeyOptions: true, KeyHelp: true, KeyDescription: true, KeyPlaceholder: true,
	KeyTitle: true, KeyDisabled: true, KeyReadOnly: true, KeyAutoFocus: true,
	KeyClassNames: true,
}

// KnownKey reports whether key is a reserved node key. Property names and
// "items" are not included.
func KnownKey(key string) bool {
	return knownKeys[key]
}

// UISchema is one node of a UI schema tree. The zero value is an empty node
// and every accessor is nil-safe.
type UISchema map[string]any

// Order returns the node's ui:order list. The boolean is false when the key
// is absent or malformed.
func (u UISchema) Order() ([]string, bool) {
	raw, ok := u[KeyOrder]
	if !ok {
		return nil, false
	}
	return stringList(raw)
}

// RootFieldID returns ui:rootFieldId.
func (u UISchema) RootFieldID() string {
	return u.str(KeyRootFieldID)
}

// Widget returns the requested widget name. ui:widget wins over the
// ui:options.widget form.
func (u UISchema) Widget() string {
	if widget := u.str(KeyWidget); widget != "" {
		return widget
	}
	if widget, ok := u.Options()["widget"].(string); ok {
		return strings.TrimSpace(widget)
	}
	return ""
}

// Field returns the requested field override.
func (u UISchema) Field() string {
	return u.str(KeyField)
}

// Options returns ui:options, or nil.
func (u UISchema) Options() map[string]any {
	options, _ := u[KeyOptions].(map[string]any)
	return options
}

// Option returns a single ui:options entry.
func (u UISchema) Option(name string) (any, bool) {
	value, ok := u.Options()[name]
	return value, ok
}

// Help returns ui:help with markup reduced to the inline text policy.
func (u UISchema) Help() string {
	return SanitizeMarkup(u.str(KeyHelp))
}

// Description returns ui:description with markup reduced to the inline text
// policy.
func (u UISchema) Description() string {
	return SanitizeMarkup(u.str(KeyDescription))
}

// Placeholder returns ui:placeholder.
func (u UISchema) Placeholder() string {
	return u.str(KeyPlaceholder)
}

// Title returns ui:title.
func (u UISchema) Title() string {
	return u.str(KeyTitle)
}

// ClassNames returns classNames.
func (u UISchema) ClassNames() string {
	return u.str(KeyClassNames)
}

// Disabled reports ui:disabled.
func (u UISchema) Disabled() bool {
	return u.flag(KeyDisabled)
}

// ReadOnly reports ui:readonly.
func (u UISchema) ReadOnly() bool {
	return u.flag(KeyReadOnly)
}

// AutoFocus reports ui:autofocus.
func (u UISchema) AutoFocus() bool {
	return u.flag(KeyAutoFocus)
}

// Child returns the node for a property, or nil.
func (u UISchema) Child(name string) UISchema {
	return asUISchema(u[name])
}

// Items returns the node configuring array items, or nil.
func (u UISchema) Items() UISchema {
	return asUISchema(u[KeyItems])
}

// ItemUI returns the node that configures each array item: the "items" node
// when present, otherwise the array node's ui:order and property nodes.
func (u UISchema) ItemUI() UISchema {
	if items := u.Items(); items != nil {
		return items
	}
	var out UISchema
	for key, value := range u {
		if key == KeyItems || (knownKeys[key] && key != KeyOrder) {
			continue
		}
		if out == nil {
			out = UISchema{}
		}
		out[key] = value
	}
	return out
}

// Clone returns a deep copy.
func (u UISchema) Clone() UISchema {
	if u == nil {
		return nil
	}
	return UISchema(cloneMap(u))
}

func (u UISchema) str(key string) string {
	value, _ := u[key].(string)
	return strings.TrimSpace(value)
}

func (u UISchema) flag(key string) bool {
	if value, ok := u[key].(bool); ok {
		return value
	}
	value, _ := u.Options()[strings.TrimPrefix(key, "ui:")].(bool)
	return value
}

func asUISchema(value any) UISchema {
	switch typed := value.(type) {
	case UISchema:
		return typed
	case map[string]any:
		return UISchema(typed)
	default:
		return nil
	}
}

func stringList(raw any) ([]string, bool) {
	switch typed := raw.(type) {
	case []string:
		return append([]string(nil), typed...), true
	case []any:
		out := make([]string, 0, len(typed))
		for _, entry := range typed {
			value, ok := entry.(string)
			if !ok {
				return nil, false
			}
			out = append(out, value)
		}
		return out, true
	default:
		return nil, false
	}
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case UISchema:
		return UISchema(cloneMap(typed))
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for idx, entry := range typed {
			out[idx] = cloneValue(entry)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
