package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuePredicates(t *testing.T) {
	assert.True(t, Null.IsNull())
	assert.False(t, Null.IsBool())
	assert.False(t, Null.IsNumber())
	assert.False(t, Null.IsObj())

	assert.True(t, True.IsBool())
	assert.True(t, True.AsBool())
	assert.True(t, False.IsBool())
	assert.False(t, False.AsBool())

	n := Number(3.5)
	assert.True(t, n.IsNumber())
	assert.Equal(t, 3.5, n.AsNumber())

	zero := Number(0)
	assert.True(t, zero.IsNumber())
	assert.Equal(t, 0.0, zero.AsNumber())
}

func TestValueNegativeAndFractionalNumbers(t *testing.T) {
	for _, f := range []float64{-1, -0.5, 1e10, -1e-10, 123456.789} {
		v := Number(f)
		assert.True(t, v.IsNumber())
		assert.Equal(t, f, v.AsNumber())
	}
}

func TestTruthiness(t *testing.T) {
	assert.True(t, Null.IsFalsey())
	assert.True(t, False.IsFalsey())
	assert.False(t, True.IsFalsey())
	assert.False(t, Number(0).IsFalsey())
}

func TestEqual(t *testing.T) {
	assert.True(t, Number(1).Equal(Number(1)))
	assert.False(t, Number(1).Equal(Number(2)))
	assert.True(t, Null.Equal(Null))
	assert.True(t, True.Equal(True))
	assert.False(t, True.Equal(False))

	nan := Number(nanValue())
	assert.False(t, nan.Equal(nan))
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestObjRoundTrip(t *testing.T) {
	s := &String{Chars: "hi", Hash: fnv1a32("hi")}
	v := Obj(&s.Object)
	assert.True(t, v.IsObj())
	got, ok := v.AsObj().AsString()
	assert.True(t, ok)
	assert.Same(t, s, got)
}

func TestHashOf(t *testing.T) {
	_, ok := Null.Hash()
	assert.False(t, ok)

	h, ok := True.Hash()
	assert.True(t, ok)
	assert.EqualValues(t, 1, h)

	h, ok = False.Hash()
	assert.True(t, ok)
	assert.EqualValues(t, 0, h)

	h1, _ := Number(42).Hash()
	h2, _ := Number(42).Hash()
	assert.Equal(t, h1, h2)
}

func TestPrint(t *testing.T) {
	assert.Equal(t, "null", Null.Print())
	assert.Equal(t, "true", True.Print())
	assert.Equal(t, "false", False.Print())
	assert.Equal(t, "6", Number(6).Print())
	assert.Equal(t, "1.5", Number(1.5).Print())

	s := &String{Chars: "hello", Hash: fnv1a32("hello")}
	assert.Equal(t, "hello", Obj(&s.Object).Print())
}
