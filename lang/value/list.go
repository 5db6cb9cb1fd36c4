package value

import "strings"

// List is a dynamic array of Values, backing the language's `list` builtin.
type List struct {
	Object
	Elements []Value
}

// Push appends v to the end of the list.
func (l *List) Push(v Value) {
	l.Elements = append(l.Elements, v)
}

// First returns the first element, or Null if the list is empty — taking
// first of an empty list is not an error (spec.md §7).
func (l *List) First() Value {
	if len(l.Elements) == 0 {
		return Null
	}
	return l.Elements[0]
}

// Rest returns a new slice (not a new List object) holding every element but
// the first, or an empty slice if the list has fewer than two elements.
func (l *List) Rest() []Value {
	if len(l.Elements) <= 1 {
		return nil
	}
	out := make([]Value, len(l.Elements)-1)
	copy(out, l.Elements[1:])
	return out
}

func (l *List) print() string {
	if len(l.Elements) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteString("[ ")
	for i, e := range l.Elements {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Print())
	}
	b.WriteString(" ]")
	return b.String()
}
