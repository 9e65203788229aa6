package errorschema

import "strconv"

// FieldErrors is the handler tree passed to custom validation functions. Each
// node mirrors a form data path; AddError records a message on that node.
type FieldErrors struct {
	errors   []string
	keys     []string
	children map[string]*FieldErrors
}

// NewFieldErrors returns an empty handler rooted at the form.
func NewFieldErrors() *FieldErrors {
	return &FieldErrors{}
}

// AddError records message on the receiver.
func (f *FieldErrors) AddError(message string) {
	f.errors = append(f.errors, message)
}

// Child returns the handler for a property, creating it on first use.
func (f *FieldErrors) Child(name string) *FieldErrors {
	if f.children == nil {
		f.children = make(map[string]*FieldErrors)
	}
	child, ok := f.children[name]
	if !ok {
		child = NewFieldErrors()
		f.children[name] = child
		f.keys = append(f.keys, name)
	}
	return child
}

// Index returns the handler for an array position.
func (f *FieldErrors) Index(idx int) *FieldErrors {
	return f.Child(strconv.Itoa(idx))
}

// ToErrorSchema unwraps the handler tree. Nodes without messages anywhere
// below them are left out.
func (f *FieldErrors) ToErrorSchema() *ErrorSchema {
	out := New()
	if f == nil {
		return out
	}
	out.Errors = append(out.Errors, f.errors...)
	for _, key := range f.keys {
		child := f.children[key].ToErrorSchema()
		if child.Empty() {
			continue
		}
		out.ensure(key)
		out.children[key] = child
	}
	return out
}
