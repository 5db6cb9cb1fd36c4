package value

import "strings"

// Dict is the language's associative-array value, backed by the same
// open-addressed Table used for globals and string interning.
type Dict struct {
	Object
	Table Table
}

func (d *Dict) print() string {
	if d.Table.Len() == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{ ")
	first := true
	d.Table.Each(func(k, v Value) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(k.Print())
		b.WriteString(" => ")
		b.WriteString(v.Print())
	})
	b.WriteString(" }")
	return b.String()
}
