// Package natives implements the host-function catalog the VM's globals are
// seeded with (spec.md §4.H): arithmetic, comparison, predicate, IO, list,
// and dict builtins, each a value.NativeFn closing over the Heap that
// allocates their results.
package natives

import (
	"fmt"
	"io"
	"math"
	"time"

	"waterlisp/lang/value"
)

// Register defines every builtin native in globals, allocating each Native
// object through h and writing print's output to stdout. Mirrors
// original_source/vm.c's defineNative calls in initVM, generalized from that
// snapshot's arithmetic/comparison/IO set to the full catalog spec.md §4.H
// names.
//
// Register must run with h.StressGC false: each define call allocates a
// native and an interned name string before either is reachable from a root,
// the same gap Interpret's explicit stack-pinning closes for the top-level
// closure — but Register runs before any VM call frame exists, so there is
// no stack slot to pin to. This is safe under normal operation because
// h.nextGC's collection threshold is never reached by the catalog's handful
// of tiny allocations; callers that want StressGC for a test should enable
// it only after Register returns.
func Register(h *value.Heap, globals *value.Table, stdout io.Writer) {
	start := time.Now()

	define := func(name string, fn value.NativeFn) {
		n := h.NewNative(name, fn)
		globals.Set(value.Obj(&h.InternString(name).Object), value.Obj(&n.Object))
	}

	define("+", add)
	define("*", multiply)
	define("-", subtract)
	define("/", divide)
	define("rem", remainder)
	define("<", less)
	define(">", greater)
	define("=", equal)
	define("not", not)
	define("print", printFn(stdout))
	define("clock", clockFn(start))
	define("str", strCat(h))
	define("list", list(h))
	define("push", push(h))
	define("push!", pushBang)
	define("first", first)
	define("rest", rest(h))
	define("len", length)
	define("dict", dict(h))
	define("set", set)
	define("get", get)
}

func wrongArity(name string, argc int) error {
	return fmt.Errorf("Attempted to call '%s' with %d arguments.", name, argc)
}

func notANumber() error {
	return fmt.Errorf("Operand must be a number.")
}

func add(argc int, args []value.Value) (value.Value, error) {
	total := 0.0
	for _, a := range args[:argc] {
		if !a.IsNumber() {
			return value.Null, notANumber()
		}
		total += a.AsNumber()
	}
	return value.Number(total), nil
}

func multiply(argc int, args []value.Value) (value.Value, error) {
	total := 1.0
	for _, a := range args[:argc] {
		if !a.IsNumber() {
			return value.Null, notANumber()
		}
		total *= a.AsNumber()
	}
	return value.Number(total), nil
}

func subtract(argc int, args []value.Value) (value.Value, error) {
	switch argc {
	case 0:
		return value.Null, fmt.Errorf("Attempted to call '-' with no arguments.")
	case 1:
		if !args[0].IsNumber() {
			return value.Null, notANumber()
		}
		return value.Number(-args[0].AsNumber()), nil
	default:
		if !args[0].IsNumber() {
			return value.Null, notANumber()
		}
		total := args[0].AsNumber()
		for _, a := range args[1:argc] {
			if !a.IsNumber() {
				return value.Null, notANumber()
			}
			total -= a.AsNumber()
		}
		return value.Number(total), nil
	}
}

// divide's 1-argument case computes the reciprocal 1/x. original_source/
// nativeFns.c's divide instead negates its single argument for this case —
// identical to subtract's 1-arg branch just above it in that file, which
// reads as a copy-paste slip rather than an intended semantics (a division
// operator that doesn't divide on one argument). The reciprocal is what the
// rest of divide's n-ary behavior ("first argument divided by the product of
// the rest") generalizes to at n=1, so that is what's implemented here.
func divide(argc int, args []value.Value) (value.Value, error) {
	switch argc {
	case 0:
		return value.Null, fmt.Errorf("Attempted to call '/' with no arguments.")
	case 1:
		if !args[0].IsNumber() {
			return value.Null, notANumber()
		}
		if args[0].AsNumber() == 0 {
			return value.Null, fmt.Errorf("Attempted divide by zero.")
		}
		return value.Number(1 / args[0].AsNumber()), nil
	default:
		if !args[0].IsNumber() {
			return value.Null, notANumber()
		}
		total := args[0].AsNumber()
		for _, a := range args[1:argc] {
			if !a.IsNumber() {
				return value.Null, notANumber()
			}
			d := a.AsNumber()
			if d == 0 {
				return value.Null, fmt.Errorf("Attempted divide by zero.")
			}
			total /= d
		}
		return value.Number(total), nil
	}
}

// remainder has no original_source grounding (nativeFns.c has no `rem`);
// implemented as the two-argument floating-point remainder spec.md §4.H
// lists alongside the rest of the arithmetic set.
func remainder(argc int, args []value.Value) (value.Value, error) {
	if argc != 2 {
		return value.Null, wrongArity("rem", argc)
	}
	if !args[0].IsNumber() || !args[1].IsNumber() {
		return value.Null, notANumber()
	}
	if args[1].AsNumber() == 0 {
		return value.Null, fmt.Errorf("Attempted divide by zero.")
	}
	return value.Number(math.Mod(args[0].AsNumber(), args[1].AsNumber())), nil
}

func greater(argc int, args []value.Value) (value.Value, error) {
	if argc == 0 {
		return value.Null, fmt.Errorf("Attempted to call '>' with no arguments.")
	}
	if !args[0].IsNumber() {
		return value.Null, fmt.Errorf("Attempted '>' with non-number")
	}
	for i := 0; i < argc-1; i++ {
		if !args[i+1].IsNumber() {
			return value.Null, fmt.Errorf("Attempted '>' with non-number")
		}
		if !(args[i].AsNumber() > args[i+1].AsNumber()) {
			return value.False, nil
		}
	}
	return value.True, nil
}

func less(argc int, args []value.Value) (value.Value, error) {
	if argc == 0 {
		return value.Null, fmt.Errorf("Attempted to call '<' with no arguments.")
	}
	if !args[0].IsNumber() {
		return value.Null, fmt.Errorf("Attempted '<' with non-number")
	}
	for i := 0; i < argc-1; i++ {
		if !args[i+1].IsNumber() {
			return value.Null, fmt.Errorf("Attempted '<' with non-number")
		}
		if !(args[i].AsNumber() < args[i+1].AsNumber()) {
			return value.False, nil
		}
	}
	return value.True, nil
}

func equal(argc int, args []value.Value) (value.Value, error) {
	for i := 0; i < argc-1; i++ {
		if !args[i].Equal(args[i+1]) {
			return value.False, nil
		}
	}
	return value.True, nil
}

func not(argc int, args []value.Value) (value.Value, error) {
	switch argc {
	case 1:
		return value.Bool(args[0].IsFalsey()), nil
	case 0:
		return value.Null, fmt.Errorf("Attempted to call 'not' with no arguments.")
	default:
		return value.Null, fmt.Errorf("Attempted to call 'not' with more than one argument.")
	}
}

// printFn returns a native printing each argument space-separated followed
// by a newline, matching original_source/nativeFns.c's printVals, and
// returning the last argument (or null with none) so `print` composes inside
// an expression the way the other natives do.
func printFn(w io.Writer) value.NativeFn {
	return func(argc int, args []value.Value) (value.Value, error) {
		for i, a := range args[:argc] {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprint(w, a.Print())
		}
		fmt.Fprintln(w)
		if argc == 0 {
			return value.Null, nil
		}
		return args[argc-1], nil
	}
}

// clockFn returns the seconds elapsed since Register ran, mirroring
// original_source/nativeFns.c's clockNative (seconds since process start via
// C's clock()); Go has no cheap equivalent of the process's CPU clock, so
// wall-clock time since registration stands in for it.
func clockFn(start time.Time) value.NativeFn {
	return func(argc int, args []value.Value) (value.Value, error) {
		if argc != 0 {
			return value.Null, wrongArity("clock", argc)
		}
		return value.Number(time.Since(start).Seconds()), nil
	}
}

// strCat concatenates every argument's printed representation into one
// interned string, following original_source/nativeFns.c's strCat (which
// builds its buffer from each Value's bool/null/number/string rendering).
func strCat(h *value.Heap) value.NativeFn {
	return func(argc int, args []value.Value) (value.Value, error) {
		var out string
		for _, a := range args[:argc] {
			out += a.Print()
		}
		return value.Obj(&h.InternString(out).Object), nil
	}
}

// list has no original_source grounding (its ObjList constructor isn't in
// the kept nativeFns.c snapshot); builds a new List holding every argument,
// in the order given.
func list(h *value.Heap) value.NativeFn {
	return func(argc int, args []value.Value) (value.Value, error) {
		l := h.NewList()
		for _, a := range args[:argc] {
			l.Push(a)
		}
		return value.Obj(&l.Object), nil
	}
}

// push returns a new list with v appended, leaving the original unmodified —
// the non-mutating half of the list/push/push! pair spec.md §4.H names.
func push(h *value.Heap) value.NativeFn {
	return func(argc int, args []value.Value) (value.Value, error) {
		if argc != 2 {
			return value.Null, wrongArity("push", argc)
		}
		src, ok := asList(args[0])
		if !ok {
			return value.Null, fmt.Errorf("'push' expects a list as its first argument.")
		}
		l := h.NewList()
		l.Elements = append(l.Elements, src.Elements...)
		l.Push(args[1])
		return value.Obj(&l.Object), nil
	}
}

// pushBang appends v to the list in place and returns the same list object,
// the mutating counterpart of push.
func pushBang(argc int, args []value.Value) (value.Value, error) {
	if argc != 2 {
		return value.Null, wrongArity("push!", argc)
	}
	l, ok := asList(args[0])
	if !ok {
		return value.Null, fmt.Errorf("'push!' expects a list as its first argument.")
	}
	l.Push(args[1])
	return args[0], nil
}

// first returns the list's first element, or null for an empty list — not
// an error (spec.md §7's "Not errors").
func first(argc int, args []value.Value) (value.Value, error) {
	if argc != 1 {
		return value.Null, wrongArity("first", argc)
	}
	l, ok := asList(args[0])
	if !ok {
		return value.Null, fmt.Errorf("'first' expects a list argument.")
	}
	return l.First(), nil
}

// rest returns a new list holding every element but the first, or an empty
// list if there are fewer than two elements — also not an error.
func rest(h *value.Heap) value.NativeFn {
	return func(argc int, args []value.Value) (value.Value, error) {
		if argc != 1 {
			return value.Null, wrongArity("rest", argc)
		}
		l, ok := asList(args[0])
		if !ok {
			return value.Null, fmt.Errorf("'rest' expects a list argument.")
		}
		out := h.NewList()
		out.Elements = l.Rest()
		return value.Obj(&out.Object), nil
	}
}

// length reports a list's element count, a dict's entry count, or a
// string's byte length — len has no original_source grounding, generalized
// across every sized kind the language has.
func length(argc int, args []value.Value) (value.Value, error) {
	if argc != 1 {
		return value.Null, wrongArity("len", argc)
	}
	v := args[0]
	if v.IsObj() {
		switch v.AsObj().Kind {
		case value.KindList:
			l, _ := v.AsObj().AsList()
			return value.Number(float64(len(l.Elements))), nil
		case value.KindDict:
			d, _ := v.AsObj().AsDict()
			return value.Number(float64(d.Table.Len())), nil
		case value.KindString:
			s, _ := v.AsObj().AsString()
			return value.Number(float64(len(s.Chars))), nil
		}
	}
	return value.Null, fmt.Errorf("'len' expects a list, dict, or string argument.")
}

// dict builds a Dict from a flat sequence of key/value pairs: (dict k1 v1 k2
// v2 ...). Like list, this has no original_source constructor to crib from.
func dict(h *value.Heap) value.NativeFn {
	return func(argc int, args []value.Value) (value.Value, error) {
		if argc%2 != 0 {
			return value.Null, fmt.Errorf("'dict' expects an even number of key/value arguments.")
		}
		d := h.NewDict()
		for i := 0; i < argc; i += 2 {
			key, val := args[i], args[i+1]
			if _, hashable := key.Hash(); !hashable {
				return value.Null, fmt.Errorf("unhashable dict key.")
			}
			d.Table.Set(key, val)
		}
		return value.Obj(&d.Object), nil
	}
}

// set stores value under key in the dict, mutating it in place, and returns
// the dict so (set d k v) can itself be chained.
func set(argc int, args []value.Value) (value.Value, error) {
	if argc != 3 {
		return value.Null, wrongArity("set", argc)
	}
	d, ok := asDict(args[0])
	if !ok {
		return value.Null, fmt.Errorf("'set' expects a dict as its first argument.")
	}
	if _, hashable := args[1].Hash(); !hashable {
		return value.Null, fmt.Errorf("unhashable dict key.")
	}
	d.Table.Set(args[1], args[2])
	return args[0], nil
}

// get looks up key in the dict, returning null if absent — a missing key is
// not an error, matching the language's other "lookup miss returns null"
// conventions (e.g. first/rest of an empty list).
func get(argc int, args []value.Value) (value.Value, error) {
	if argc != 2 {
		return value.Null, wrongArity("get", argc)
	}
	d, ok := asDict(args[0])
	if !ok {
		return value.Null, fmt.Errorf("'get' expects a dict as its first argument.")
	}
	v, ok := d.Table.Get(args[1])
	if !ok {
		return value.Null, nil
	}
	return v, nil
}

func asList(v value.Value) (*value.List, bool) {
	if !v.IsObj() {
		return nil, false
	}
	return v.AsObj().AsList()
}

func asDict(v value.Value) (*value.Dict, bool) {
	if !v.IsObj() {
		return nil, false
	}
	return v.AsObj().AsDict()
}
