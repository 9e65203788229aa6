package tui

import (
	"fmt"

	"github.com/goliatone/go-formschema/pkg/errorschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

// State holds the form data collected during a session. Paths carry their
// root marker, as produced by errorschema.PropertyToPath.
type State struct {
	root any
}

// NewState seeds the state with a copy of prefill.
func NewState(prefill any) *State {
	return &State{root: schema.CloneValue(prefill)}
}

// Value returns the collected form data.
func (s *State) Value() any {
	if s == nil {
		return nil
	}
	return s.root
}

// GetValue resolves path in the collected data.
func (s *State) GetValue(path errorschema.Path) (any, bool) {
	if s == nil {
		return nil, false
	}
	current := s.root
	for _, seg := range path.Fields() {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg.Key()]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(node) {
				return nil, false
			}
			current = node[seg.Index]
		default:
			return nil, false
		}
	}
	return current, true
}

// SetValue writes value at path, creating intermediate objects and growing
// arrays as needed.
func (s *State) SetValue(path errorschema.Path, value any) error {
	if s == nil {
		return fmt.Errorf("tui: state is nil")
	}
	root, err := setAt(s.root, path.Fields(), value)
	if err != nil {
		return fmt.Errorf("tui: set %s: %w", path.String(), err)
	}
	s.root = root
	return nil
}

func setAt(container any, segments errorschema.Path, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	seg := segments[0]

	if seg.IsIndex {
		list, ok := container.([]any)
		if !ok && container != nil {
			return nil, fmt.Errorf("expected array for index %d, got %T", seg.Index, container)
		}
		if seg.Index < 0 {
			return nil, fmt.Errorf("negative index %d", seg.Index)
		}
		if len(list) <= seg.Index {
			list = append(list, make([]any, seg.Index+1-len(list))...)
		}
		child, err := setAt(list[seg.Index], segments[1:], value)
		if err != nil {
			return nil, err
		}
		list[seg.Index] = child
		return list, nil
	}

	obj, ok := container.(map[string]any)
	if !ok {
		if container != nil {
			return nil, fmt.Errorf("expected object for %q, got %T", seg.Name, container)
		}
		obj = make(map[string]any)
	}
	child, err := setAt(obj[seg.Name], segments[1:], value)
	if err != nil {
		return nil, err
	}
	obj[seg.Name] = child
	return obj, nil
}
