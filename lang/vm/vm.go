// Package vm implements the stack-based virtual machine that executes the
// bytecode a lang/compiler.Compile call produces: the evaluation stack, the
// call-frame stack, globals, open upvalues, and the call/return machinery
// (including closing upvalues on return).
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"unsafe"

	"waterlisp/lang/opcode"
	"waterlisp/lang/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// RuntimeError is returned by Interpret when execution fails after the
// message and stack trace have already been written to Stderr — matching
// original_source/vm.c's runtimeError, which reports and unwinds in the same
// step rather than returning a value the caller formats itself.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

type callFrame struct {
	closure *value.Closure
	ip      int
	slots   int // base index into vm.stack
}

func (f *callFrame) chunk() *value.Chunk { return &f.closure.Function.Chunk }

func (f *callFrame) readByte() byte {
	b := f.chunk().Code[f.ip]
	f.ip++
	return b
}

func (f *callFrame) readShort() int {
	hi, lo := f.chunk().Code[f.ip], f.chunk().Code[f.ip+1]
	f.ip += 2
	return int(hi)<<8 | int(lo)
}

// VM is one execution context: a value stack, a call-frame stack, globals,
// the interned-string-owning heap, and the open-upvalue list. Mirrors
// spec.md §3's "VM state (process-wide, single instance)", threaded as an
// explicit value per spec.md §9's execution-context alternative rather than
// a package-global singleton.
type VM struct {
	stack    []value.Value
	stackTop int
	frames   []callFrame

	globals value.Table
	heap    *value.Heap

	openUpvalues *value.Upvalue

	// Stdout and Stderr receive the program's printed output and runtime
	// error reports, respectively — following the teacher's Thread
	// (lang/machine/thread.go) convention of per-instance io.Writer fields
	// rather than bare os.Stdout/os.Stderr calls, defaulting to the OS
	// streams when unset.
	Stdout io.Writer
	Stderr io.Writer

	// TraceExecution gates the DEBUG_TRACE_EXECUTION stack+disassembly dump
	// before every instruction (spec.md §4.G).
	TraceExecution bool
}

// New returns a VM ready to Interpret compiled functions, backed by heap.
// It registers itself as heap's RootMarker.
func New(heap *value.Heap) *VM {
	vm := &VM{
		heap:   heap,
		stack:  make([]value.Value, stackMax),
		frames: make([]callFrame, 0, framesMax),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	heap.Roots = vm
	return vm
}

// Globals exposes the VM's global table, e.g. for a REPL driver to inspect
// bindings between lines.
func (vm *VM) Globals() *value.Table { return &vm.globals }

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
}

// Interpret runs fn as a new top-level call, sharing this VM's globals and
// heap with any prior Interpret call — the REPL driver relies on this to
// keep bindings alive across lines (spec.md §5's ordering guarantees say
// nothing about cross-call isolation; the original's single process-wide
// vm implies none). ctx is accepted to match the host-ABI shape a thread
// type in this codebase style carries (a context.Context threaded through
// its run method); spec.md's VM has no cancellation model, so it is not
// consulted. On success the top-level result is both written to Stdout (the
// original always prints the final expression's value, unprompted — see
// original_source/vm.c's OP_RETURN) and returned, so callers that need the
// value programmatically (tests, a REPL echo) don't have to scrape stdout.
func (vm *VM) Interpret(ctx context.Context, fn *value.Function) (value.Value, error) {
	_ = ctx
	vm.resetStack()

	// Stack-pin protocol (spec.md §4.B's "key contract"): fn is pushed
	// before allocating the closure that wraps it, so fn stays reachable
	// through the stack root even if building the closure triggers a
	// collection; it is popped once the closure itself is on the stack.
	vm.push(value.Obj(&fn.Object))
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	vm.push(value.Obj(&closure.Object))

	if err := vm.call(closure, 0); err != nil {
		return value.Null, err
	}
	return vm.run()
}

func (vm *VM) call(closure *value.Closure, argc int) error {
	if argc != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argc)
	}
	if len(vm.frames) == framesMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames = append(vm.frames, callFrame{
		closure: closure,
		ip:      0,
		slots:   vm.stackTop - argc - 1,
	})
	return nil
}

func (vm *VM) callValue(callee value.Value, argc int) error {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions.")
	}
	obj := callee.AsObj()
	switch obj.Kind {
	case value.KindClosure:
		cl, _ := obj.AsClosure()
		return vm.call(cl, argc)
	case value.KindNative:
		n, _ := obj.AsNative()
		args := vm.stack[vm.stackTop-argc : vm.stackTop]
		result, err := n.Function(argc, args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.stackTop -= argc + 1
		vm.push(result)
		return nil
	default:
		return vm.runtimeError("Can only call functions.")
	}
}

func addr(v *value.Value) uintptr { return uintptr(unsafe.Pointer(v)) }

// captureUpvalue returns the open upvalue aliasing local, creating and
// splicing one into vm.openUpvalues (kept sorted strictly by descending
// address, per spec.md §4.G) if none exists yet.
func (vm *VM) captureUpvalue(local *value.Value) *value.Upvalue {
	var prev *value.Upvalue
	cur := vm.openUpvalues
	for cur != nil && addr(cur.Location) > addr(local) {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && addr(cur.Location) == addr(local) {
		return cur
	}
	created := vm.heap.NewUpvalue(local)
	created.Next = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose location is at or above
// &vm.stack[fromSlot]: each copies its slot's current value into its own
// Closed cell and retargets Location there, then is unlinked from the open
// list. Used both by RETURN (fromSlot = frame.slots) and CLOSE_UPVALUE
// (fromSlot = stackTop-1).
func (vm *VM) closeUpvalues(fromSlot int) {
	boundary := addr(&vm.stack[fromSlot])
	for vm.openUpvalues != nil && addr(vm.openUpvalues.Location) >= boundary {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.Next
		uv.Next = nil
	}
}

// MarkRoots implements value.RootMarker: the value stack below stackTop,
// every active frame's closure, every open upvalue, and every global
// key/value (spec.md §4.B step 1).
func (vm *VM) MarkRoots(h *value.Heap) {
	for i := 0; i < vm.stackTop; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := range vm.frames {
		h.MarkObject(&vm.frames[i].closure.Object)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		h.MarkObject(&uv.Object)
	}
	vm.globals.Each(func(k, val value.Value) {
		h.MarkValue(k)
		h.MarkValue(val)
	})
}

// runtimeError reports msg to Stderr along with a top-to-bottom frame
// stack trace (spec.md §7), resets the stack, and returns a *RuntimeError
// carrying msg for Interpret to propagate to its caller.
func (vm *VM) runtimeError(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintln(vm.Stderr, msg)

	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		line := 0
		if fr.ip-1 >= 0 && fr.ip-1 < len(fr.chunk().Lines) {
			line = fr.chunk().Lines[fr.ip-1]
		}
		name := "script"
		if fn := fr.closure.Function; fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		fmt.Fprintf(vm.Stderr, "[line %d] in %s\n", line, name)
	}
	vm.resetStack()
	return &RuntimeError{Message: msg}
}
