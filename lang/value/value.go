// Package value implements the runtime Value representation: a NaN-boxed
// 64-bit word that holds null, a boolean, a float64, or a pointer to a
// heap-allocated Object.
package value

import (
	"math"
	"strconv"
	"unsafe"
)

// Value is every runtime value the VM ever touches, boxed into 64 bits.
//
// Layout (see original_source/value.h's NAN_BOXING branch): any bit pattern
// that is not a quiet NaN is a live IEEE-754 float64 and represents a number
// directly. A fixed quiet-NaN prefix (qnan) with the sign bit clear encodes
// null/false/true via a 2-bit tag in the low bits. The sign bit set alongside
// the qnan prefix encodes a pointer to an Object in the low 48 bits — which
// is all a real pointer needs on every architecture this targets.
type Value uint64

const (
	qnan    Value = 0x7ffc000000000000
	signBit Value = 0x8000000000000000

	tagNull  Value = 1
	tagFalse Value = 2
	tagTrue  Value = 3
)

// Null, False and True are the three non-numeric, non-object values.
var (
	Null  = qnan | tagNull
	False = qnan | tagFalse
	True  = qnan | tagTrue
)

// Number boxes a float64 as a Value. A NaN payload that happens to collide
// with the qnan/tag/object encodings never arises here because Go's
// math.NaN() uses a different mantissa than the tags below occupy this
// package never hands out — but a foreign NaN bit pattern reaching this
// function would still be number per IEEE-754; this matches original_source/
// value.h's own accepted imprecision with NaN boxing.
func Number(n float64) Value {
	return Value(math.Float64bits(n))
}

// Bool boxes a boolean as a Value.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Obj boxes a pointer to a heap Object as a Value.
func Obj(o *Object) Value {
	return signBit | qnan | Value(uintptr(unsafe.Pointer(o)))
}

// IsNumber reports whether v holds a float64.
func (v Value) IsNumber() bool { return (v & qnan) != qnan }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v == Null }

// IsBool reports whether v is True or False.
func (v Value) IsBool() bool { return (v | 1) == True }

// IsObj reports whether v holds an Object pointer.
func (v Value) IsObj() bool { return (v & (qnan | signBit)) == (qnan | signBit) }

// AsNumber returns the float64 v holds. Undefined if !v.IsNumber().
func (v Value) AsNumber() float64 { return math.Float64frombits(uint64(v)) }

// AsBool returns the bool v holds. Undefined if !v.IsBool().
func (v Value) AsBool() bool { return v == True }

// AsObj returns the Object pointer v holds. Undefined if !v.IsObj().
func (v Value) AsObj() *Object {
	return (*Object)(unsafe.Pointer(uintptr(v & ^(signBit | qnan))))
}

// IsFalsey reports whether v is falsey: only null and false are falsey,
// everything else — including 0 and the empty string — is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNull() || (v.IsBool() && !v.AsBool())
}

// Equal implements values_equal per spec: numbers compare by IEEE float
// equality (NaN != NaN), booleans/null by identity, objects by pointer
// identity (strings are interned, so this also implements string equality).
func (v Value) Equal(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		return v.AsNumber() == o.AsNumber()
	}
	return v == o
}

// Hash computes hash_of(v): false iff v is unhashable (only null is
// unhashable). Booleans hash as 0/1, numbers as their bits truncated to 32,
// strings return their precomputed FNV-1a hash.
func (v Value) Hash() (uint32, bool) {
	switch {
	case v.IsNull():
		return 0, false
	case v.IsBool():
		if v.AsBool() {
			return 1, true
		}
		return 0, true
	case v.IsNumber():
		return uint32(math.Float64bits(v.AsNumber())), true
	case v.IsObj():
		obj := v.AsObj()
		if s, ok := obj.AsString(); ok {
			return s.Hash, true
		}
		// non-string objects hash by identity (pointer bits truncated);
		// used only for Dict keys that are not expected in well-typed
		// programs but must not crash the table.
		return uint32(uintptr(unsafe.Pointer(obj))), true
	default:
		return 0, false
	}
}

// formatNumber renders n with strconv's 'g' format at the shortest precision
// that round-trips. Unlike C's printf("%g", ...), it is not limited to six
// significant digits (1/3 prints as 0.3333333333333333).
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// Kind classifies v for printing and type-check error messages.
func (v Value) Kind() string {
	switch {
	case v.IsNull():
		return "null"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	case v.IsObj():
		return v.AsObj().Kind.String()
	default:
		return "unknown"
	}
}
