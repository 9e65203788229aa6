// Package ordering applies ui:order to property lists and produces a
// deterministic display order for validation errors.
package ordering

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/uischema"
)

// OrderConfigurationError reports a ui:order list that does not fit the
// property set it orders. Path is the level's field path (".a.b", "" for the
// root). Malformed marks a ui:order value that is not a list of names.
type OrderConfigurationError struct {
	Path       string
	Order      []string
	Unknown    []string
	Missing    []string
	Duplicates []string
	Wildcards  int
	Malformed  bool
}

func (e *OrderConfigurationError) Error() string {
	var problems []string
	if e.Malformed {
		problems = append(problems, "is not a list of property names")
	}
	if len(e.Unknown) > 0 {
		problems = append(problems, fmt.Sprintf("contains extraneous properties %s", quoteList(e.Unknown)))
	}
	if len(e.Missing) > 0 {
		problems = append(problems, fmt.Sprintf("does not contain properties %s", quoteList(e.Missing)))
	}
	if len(e.Duplicates) > 0 {
		problems = append(problems, fmt.Sprintf("repeats properties %s", quoteList(e.Duplicates)))
	}
	if e.Wildcards > 1 {
		problems = append(problems, "contains more than one wildcard")
	}
	location := e.Path
	if location == "" {
		location = "root"
	}
	return fmt.Sprintf("invalid ui:order at %s: order list %s", location, strings.Join(problems, "; "))
}

// LevelOrder returns the ui:order list that applies to the own properties of
// s. Entries naming properties that only the anyOf/oneOf options of s declare
// are dropped. A present but malformed ui:order yields a Malformed
// configuration error and a nil order.
func LevelOrder(s *schema.Schema, ui uischema.UISchema) ([]string, *OrderConfigurationError) {
	order, ok := ui.Order()
	if !ok {
		if _, present := ui[uischema.KeyOrder]; present {
			return nil, &OrderConfigurationError{Malformed: true}
		}
		return nil, nil
	}
	options, _ := s.Options()
	if len(options) == 0 {
		return order, nil
	}
	out := order[:0]
	for _, entry := range order {
		if _, own := s.Properties.Get(entry); !own && declaredByOption(options, entry) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// OrderProperties arranges names according to order. Names listed in order
// come first at their given positions; a single "*" entry expands in place to
// every remaining name in declaration order. A nil order keeps declaration
// order. When the order is malformed the declaration order is returned with an
// *OrderConfigurationError.
func OrderProperties(names, order []string) ([]string, error) {
	out := append([]string(nil), names...)
	if order == nil {
		return out, nil
	}

	declared := make(map[string]bool, len(names))
	for _, name := range names {
		declared[name] = true
	}

	cfgErr := &OrderConfigurationError{Order: append([]string(nil), order...)}
	listed := make(map[string]bool, len(order))
	for _, entry := range order {
		if entry == uischema.Wildcard {
			cfgErr.Wildcards++
			continue
		}
		if listed[entry] {
			cfgErr.Duplicates = append(cfgErr.Duplicates, entry)
			continue
		}
		listed[entry] = true
		if !declared[entry] {
			cfgErr.Unknown = append(cfgErr.Unknown, entry)
		}
	}

	var rest []string
	for _, name := range names {
		if !listed[name] {
			rest = append(rest, name)
		}
	}
	if cfgErr.Wildcards == 0 && len(rest) > 0 {
		cfgErr.Missing = rest
	}

	if len(cfgErr.Unknown) > 0 || len(cfgErr.Missing) > 0 || len(cfgErr.Duplicates) > 0 || cfgErr.Wildcards > 1 {
		return out, cfgErr
	}

	ordered := make([]string, 0, len(names))
	for _, entry := range order {
		if entry == uischema.Wildcard {
			ordered = append(ordered, rest...)
			continue
		}
		ordered = append(ordered, entry)
	}
	return ordered, nil
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for idx, value := range values {
		quoted[idx] = fmt.Sprintf("%q", value)
	}
	return strings.Join(quoted, ", ")
}
