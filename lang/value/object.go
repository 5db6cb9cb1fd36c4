package value

import "unsafe"

// Kind discriminates the concrete shape of a heap Object.
type Kind int8

const (
	KindString Kind = iota
	KindFunction
	KindNative
	KindClosure
	KindUpvalue
	KindList
	KindDict

	maxKind
)

var kindNames = [...]string{
	KindString:   "string",
	KindFunction: "function",
	KindNative:   "native",
	KindClosure:  "closure",
	KindUpvalue:  "upvalue",
	KindList:     "list",
	KindDict:     "dict",
}

func (k Kind) String() string {
	if k >= 0 && k < maxKind {
		return kindNames[k]
	}
	return "unknown kind"
}

// Object is the header every heap object begins with. Next threads all live
// objects into one intrusive list rooted at the Heap; Marked is consulted
// only during collection. Concrete objects (String, Function, ...) embed
// Object as their first field, so a *Object recovered from a boxed Value can
// be reinterpreted as its concrete type once Kind is known — the same
// "header-first" layout original_source/object.h relies on.
type Object struct {
	Kind   Kind
	Marked bool
	Next   *Object
}

// AsString reinterprets o as a *String if o.Kind == KindString.
func (o *Object) AsString() (*String, bool) {
	if o == nil || o.Kind != KindString {
		return nil, false
	}
	return (*String)(unsafe.Pointer(o)), true
}

// AsFunction reinterprets o as a *Function if o.Kind == KindFunction.
func (o *Object) AsFunction() (*Function, bool) {
	if o == nil || o.Kind != KindFunction {
		return nil, false
	}
	return (*Function)(unsafe.Pointer(o)), true
}

// AsNative reinterprets o as a *Native if o.Kind == KindNative.
func (o *Object) AsNative() (*Native, bool) {
	if o == nil || o.Kind != KindNative {
		return nil, false
	}
	return (*Native)(unsafe.Pointer(o)), true
}

// AsClosure reinterprets o as a *Closure if o.Kind == KindClosure.
func (o *Object) AsClosure() (*Closure, bool) {
	if o == nil || o.Kind != KindClosure {
		return nil, false
	}
	return (*Closure)(unsafe.Pointer(o)), true
}

// AsUpvalue reinterprets o as an *Upvalue if o.Kind == KindUpvalue.
func (o *Object) AsUpvalue() (*Upvalue, bool) {
	if o == nil || o.Kind != KindUpvalue {
		return nil, false
	}
	return (*Upvalue)(unsafe.Pointer(o)), true
}

// AsList reinterprets o as a *List if o.Kind == KindList.
func (o *Object) AsList() (*List, bool) {
	if o == nil || o.Kind != KindList {
		return nil, false
	}
	return (*List)(unsafe.Pointer(o)), true
}

// AsDict reinterprets o as a *Dict if o.Kind == KindDict.
func (o *Object) AsDict() (*Dict, bool) {
	if o == nil || o.Kind != KindDict {
		return nil, false
	}
	return (*Dict)(unsafe.Pointer(o)), true
}

// Print renders v the way original_source/object.c's printObject does:
// strings bare, numbers via their usual formatting (handled by the caller
// for non-objects), functions as "<fn name>" ("<script>" for any unnamed
// function, the top-level script and anonymous lambdas alike), natives as
// "<native fn>", lists as "[ a b c ]", dicts as "{ k => v, ... }".
func (v Value) Print() string {
	switch {
	case v.IsNull():
		return "null"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return formatNumber(v.AsNumber())
	case v.IsObj():
		return v.AsObj().print()
	default:
		return "?"
	}
}

func (o *Object) print() string {
	switch o.Kind {
	case KindString:
		s, _ := o.AsString()
		return s.Chars
	case KindFunction:
		f, _ := o.AsFunction()
		if f.Name == nil {
			return "<script>"
		}
		return "<fn " + f.Name.Chars + ">"
	case KindNative:
		return "<native fn>"
	case KindClosure:
		c, _ := o.AsClosure()
		return c.Function.Object.print()
	case KindUpvalue:
		return "<upvalue>"
	case KindList:
		l, _ := o.AsList()
		return l.print()
	case KindDict:
		d, _ := o.AsDict()
		return d.print()
	default:
		return "<object>"
	}
}
