package natives

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterlisp/lang/value"
)

func setup(t *testing.T) (*value.Heap, *value.Table, *bytes.Buffer) {
	t.Helper()
	h := value.NewHeap()
	globals := &value.Table{}
	var out bytes.Buffer
	Register(h, globals, &out)
	return h, globals, &out
}

func nativeOf(t *testing.T, h *value.Heap, globals *value.Table, name string) value.NativeFn {
	t.Helper()
	v, ok := globals.Get(value.Obj(&h.InternString(name).Object))
	require.True(t, ok, "native %q must be registered", name)
	require.True(t, v.IsObj())
	n, ok := v.AsObj().AsNative()
	require.True(t, ok)
	return n.Function
}

func TestAdd(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "+")
	args := []value.Value{value.Number(1), value.Number(2), value.Number(3)}
	v, err := fn(3, args)
	require.NoError(t, err)
	assert.Equal(t, value.Number(6), v)
}

func TestAddRejectsNonNumber(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "+")
	_, err := fn(1, []value.Value{value.True})
	assert.Error(t, err)
}

func TestSubtractUnaryNegates(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "-")
	v, err := fn(1, []value.Value{value.Number(5)})
	require.NoError(t, err)
	assert.Equal(t, value.Number(-5), v)
}

func TestDivideUnaryIsReciprocal(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "/")
	v, err := fn(1, []value.Value{value.Number(4)})
	require.NoError(t, err)
	assert.Equal(t, value.Number(0.25), v)
}

func TestDivideByZero(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "/")
	_, err := fn(2, []value.Value{value.Number(1), value.Number(0)})
	assert.Error(t, err)
}

func TestDivideChained(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "/")
	v, err := fn(3, []value.Value{value.Number(100), value.Number(5), value.Number(2)})
	require.NoError(t, err)
	assert.Equal(t, value.Number(10), v)
}

func TestRemainder(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "rem")
	v, err := fn(2, []value.Value{value.Number(7), value.Number(3)})
	require.NoError(t, err)
	assert.Equal(t, value.Number(1), v)
}

func TestLessChained(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "<")
	v, err := fn(3, []value.Value{value.Number(1), value.Number(2), value.Number(3)})
	require.NoError(t, err)
	assert.Equal(t, value.True, v)

	v, err = fn(3, []value.Value{value.Number(1), value.Number(3), value.Number(2)})
	require.NoError(t, err)
	assert.Equal(t, value.False, v)
}

func TestEqualChained(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "=")
	v, err := fn(3, []value.Value{value.Number(1), value.Number(1), value.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, value.True, v)
}

func TestNotRejectsMultipleArgs(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "not")
	_, err := fn(2, []value.Value{value.True, value.False})
	assert.Error(t, err)
}

func TestPrintWritesSpaceSeparatedLine(t *testing.T) {
	h, globals, out := setup(t)
	fn := nativeOf(t, h, globals, "print")
	_, err := fn(2, []value.Value{value.Number(1), value.True})
	require.NoError(t, err)
	assert.Equal(t, "1 true\n", out.String())
}

func TestStrConcatenatesPrintedForms(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "str")
	v, err := fn(3, []value.Value{value.Obj(&h.InternString("a=").Object), value.Number(1), value.Null})
	require.NoError(t, err)
	s, ok := v.AsObj().AsString()
	require.True(t, ok)
	assert.Equal(t, "a=1null", s.Chars)
}

func TestListPushFirstRestLen(t *testing.T) {
	h, globals, _ := setup(t)
	listFn := nativeOf(t, h, globals, "list")
	pushFn := nativeOf(t, h, globals, "push")
	pushBangFn := nativeOf(t, h, globals, "push!")
	firstFn := nativeOf(t, h, globals, "first")
	restFn := nativeOf(t, h, globals, "rest")
	lenFn := nativeOf(t, h, globals, "len")

	l, err := listFn(2, []value.Value{value.Number(1), value.Number(2)})
	require.NoError(t, err)

	pushed, err := pushFn(2, []value.Value{l, value.Number(3)})
	require.NoError(t, err)
	n, err := lenFn(1, []value.Value{pushed})
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), n)

	// non-mutating: original list is untouched
	n, err = lenFn(1, []value.Value{l})
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), n)

	mutated, err := pushBangFn(2, []value.Value{l, value.Number(9)})
	require.NoError(t, err)
	n, err = lenFn(1, []value.Value{l})
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), n, "push! mutates in place")
	assert.True(t, l.Equal(mutated))

	first, err := firstFn(1, []value.Value{l})
	require.NoError(t, err)
	assert.Equal(t, value.Number(1), first)

	rest, err := restFn(1, []value.Value{l})
	require.NoError(t, err)
	n, err = lenFn(1, []value.Value{rest})
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), n)
}

func TestFirstOfEmptyListIsNullNotError(t *testing.T) {
	h, globals, _ := setup(t)
	listFn := nativeOf(t, h, globals, "list")
	firstFn := nativeOf(t, h, globals, "first")

	empty, err := listFn(0, nil)
	require.NoError(t, err)
	v, err := firstFn(1, []value.Value{empty})
	require.NoError(t, err)
	assert.Equal(t, value.Null, v)
}

func TestDictSetGet(t *testing.T) {
	h, globals, _ := setup(t)
	dictFn := nativeOf(t, h, globals, "dict")
	setFn := nativeOf(t, h, globals, "set")
	getFn := nativeOf(t, h, globals, "get")

	a := value.Obj(&h.InternString("a").Object)
	b := value.Obj(&h.InternString("b").Object)

	d, err := dictFn(2, []value.Value{a, value.Number(1)})
	require.NoError(t, err)

	_, err = setFn(3, []value.Value{d, b, value.Number(2)})
	require.NoError(t, err)

	v, err := getFn(2, []value.Value{d, b})
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), v)
}

func TestGetMissingKeyIsNullNotError(t *testing.T) {
	h, globals, _ := setup(t)
	dictFn := nativeOf(t, h, globals, "dict")
	getFn := nativeOf(t, h, globals, "get")

	d, err := dictFn(0, nil)
	require.NoError(t, err)
	v, err := getFn(2, []value.Value{d, value.Obj(&h.InternString("missing").Object)})
	require.NoError(t, err)
	assert.Equal(t, value.Null, v)
}

func TestClockReturnsNonNegativeNumber(t *testing.T) {
	h, globals, _ := setup(t)
	fn := nativeOf(t, h, globals, "clock")
	v, err := fn(0, nil)
	require.NoError(t, err)
	require.True(t, v.IsNumber())
	assert.GreaterOrEqual(t, v.AsNumber(), 0.0)
}
