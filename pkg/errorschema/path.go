package errorschema

import (
	"strconv"
	"strings"
)

// Segment is one step of an error path: a property name or an array index.
type Segment struct {
	Name    string
	Index   int
	IsIndex bool
}

// Name builds a property segment.
func Name(name string) Segment {
	return Segment{Name: name}
}

// Index builds an array index segment.
func Index(idx int) Segment {
	return Segment{Index: idx, IsIndex: true}
}

// Key returns the tree key used for the segment; indices use their decimal
// form so objects and arrays share one addressing scheme.
func (s Segment) Key() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Name
}

// Path is an ordered error path. The first segment is the root marker
// ("instance", or "" for the leading-dot form).
type Path []Segment

// PropertyToPath parses "instance.a.b[2].c" or ".a.b[2]" into segments.
// Bracketed integer suffixes become index segments after their base name;
// "a[1][2]" yields a, 1, 2.
func PropertyToPath(property string) Path {
	parts := strings.Split(property, ".")
	out := make(Path, 0, len(parts)+2)
	for idx, part := range parts {
		base, indices := splitBrackets(part)
		if base != "" || len(indices) == 0 || idx == 0 {
			out = append(out, Name(base))
		}
		for _, index := range indices {
			out = append(out, Index(index))
		}
	}
	return out
}

// splitBrackets separates "name[1][2]" into "name" and [1 2]. Brackets that
// do not hold an integer stay part of the name.
func splitBrackets(part string) (string, []int) {
	var indices []int
	rest := part
	for strings.HasSuffix(rest, "]") {
		open := strings.LastIndex(rest, "[")
		if open < 0 {
			break
		}
		value, err := strconv.Atoi(rest[open+1 : len(rest)-1])
		if err != nil || value < 0 {
			break
		}
		indices = append(indices, value)
		rest = rest[:open]
	}
	for left, right := 0, len(indices)-1; left < right; left, right = left+1, right-1 {
		indices[left], indices[right] = indices[right], indices[left]
	}
	return rest, indices
}

// Fields drops the root marker.
func (p Path) Fields() Path {
	if len(p) == 0 {
		return nil
	}
	return p[1:]
}

// String renders the path without its root marker as ".a.b[2]".
func (p Path) String() string {
	var b strings.Builder
	for _, seg := range p.Fields() {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		b.WriteByte('.')
		b.WriteString(seg.Name)
	}
	return b.String()
}

// Property renders the path with the given root marker, e.g.
// "instance.a.b[2]".
func (p Path) Property(root string) string {
	return root + p.String()
}
