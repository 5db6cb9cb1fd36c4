package vm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterlisp/internal/natives"
	"waterlisp/lang/compiler"
	"waterlisp/lang/value"
)

// newTestVM wires a VM with the full native catalog registered, ready to
// Interpret — the same assembly internal/maincmd does for `run`.
func newTestVM() (*VM, *value.Heap, *bytes.Buffer, *bytes.Buffer) {
	heap := value.NewHeap()
	v := New(heap)
	var stdout, stderr bytes.Buffer
	v.Stdout = &stdout
	v.Stderr = &stderr
	natives.Register(heap, v.Globals(), &stdout)
	return v, heap, &stdout, &stderr
}

func run(t *testing.T, src string) (value.Value, string, string, error) {
	t.Helper()
	vm, heap, stdout, stderr := newTestVM()
	var errs []string
	fn, ok := compiler.Compile([]byte(src), heap, func(msg string) { errs = append(errs, msg) })
	require.True(t, ok, "compile errors: %v", errs)
	result, err := vm.Interpret(context.Background(), fn)
	return result, stdout.String(), stderr.String(), err
}

func TestArithmeticCall(t *testing.T) {
	result, stdout, _, err := run(t, "(+ 1 2 3)")
	require.NoError(t, err)
	assert.Equal(t, value.Number(6), result)
	assert.Equal(t, "6\n", stdout)
}

func TestGlobalDefineAndUse(t *testing.T) {
	result, _, _, err := run(t, "(def x 10) (+ x x)")
	require.NoError(t, err)
	assert.Equal(t, value.Number(20), result)
}

func TestRecursiveFactorial(t *testing.T) {
	const src = `(def fact (lambda (n) (if (< n 2) 1 (* n (fact (- n 1)))))) (fact 5)`
	result, _, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, value.Number(120), result)
}

func TestUpvalueCaptureAndClose(t *testing.T) {
	const src = `(def mk (lambda (x) (lambda () x))) (def f (mk 7)) (f)`
	result, _, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, value.Number(7), result)
}

func TestWhileRebindsGlobal(t *testing.T) {
	const src = `(def i 0) (while (< i 3) (def i (+ i 1))) i`
	result, _, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), result)
}

func TestAndOrShortCircuit(t *testing.T) {
	result, _, _, err := run(t, `(and 1 (or false 2) 3)`)
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), result)
}

func TestListPushLen(t *testing.T) {
	result, _, _, err := run(t, `(len (push (list 1 2) 3))`)
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), result)
}

func TestDictLiteralGet(t *testing.T) {
	result, _, _, err := run(t, `(get { "a" 1 "b" 2 } "b")`)
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), result)
}

// not is an ordinary identifier, not a keyword, so it must reach its native
// through the same GET_GLOBAL + CALL path as any other function reference.
func TestNotResolvesToNativeGlobal(t *testing.T) {
	result, _, _, err := run(t, `(not false)`)
	require.NoError(t, err)
	assert.Equal(t, value.True, result)

	result, _, _, err = run(t, `(not true)`)
	require.NoError(t, err)
	assert.Equal(t, value.False, result)
}

func TestEmptyProgramPrintsNull(t *testing.T) {
	result, stdout, _, err := run(t, "")
	require.NoError(t, err)
	assert.Equal(t, value.Null, result)
	assert.Equal(t, "null\n", stdout)
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, _, stderr, err := run(t, "nope")
	require.Error(t, err)
	assert.Contains(t, stderr, "Undefined variable 'nope'")
	assert.Contains(t, stderr, "[line 1] in script")
}

func TestWrongArityIsRuntimeError(t *testing.T) {
	_, _, stderr, err := run(t, "(def f (lambda (a b) a)) (f 1)")
	require.Error(t, err)
	assert.Contains(t, stderr, "Expected 2 arguments but got 1.")
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	_, _, stderr, err := run(t, "(def x 1) (x)")
	require.Error(t, err)
	assert.Contains(t, stderr, "Can only call functions.")
}

func TestStackOverflow(t *testing.T) {
	const src = `(def loop (lambda () (loop))) (loop)`
	_, _, stderr, err := run(t, src)
	require.Error(t, err)
	assert.Contains(t, stderr, "Stack overflow.")
}

func TestRuntimeErrorTraceTopToBottom(t *testing.T) {
	const src = `(def inner (lambda () nope))
(def outer (lambda () (inner)))
(outer)`
	_, _, stderr, err := run(t, src)
	require.Error(t, err)
	lines := strings.Split(strings.TrimRight(stderr, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[1], "in inner()")
	assert.Contains(t, lines[2], "in outer()")
	assert.Contains(t, lines[3], "in script")
}

func TestTraceExecutionWritesToStdout(t *testing.T) {
	vm, heap, stdout, _ := newTestVM()
	vm.TraceExecution = true
	fn, ok := compiler.Compile([]byte("(+ 1 2)"), heap, func(string) {})
	require.True(t, ok)
	_, err := vm.Interpret(context.Background(), fn)
	require.NoError(t, err)
	assert.NotEmpty(t, stdout.String())
}
