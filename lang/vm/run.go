package vm

import (
	"fmt"

	"waterlisp/lang/opcode"
	"waterlisp/lang/value"
)

// run is the central dispatch loop: fetch, decode, execute, repeat until a
// RETURN unwinds the outermost frame or an error breaks out. Grounded on
// original_source/vm.c's run() switch, reshaped as a Go labeled for/switch
// in the teacher's own central-dispatch-loop style (lang/machine/machine.go:
// a "loop:" block with a single in-flight error variable propagated via
// break loop), even though the opcode set itself has nothing in common.
func (vm *VM) run() (value.Value, error) {
	frame := &vm.frames[len(vm.frames)-1]

	var result value.Value
	var runErr error

loop:
	for {
		if vm.TraceExecution {
			vm.trace(frame)
		}

		op := opcode.Op(frame.readByte())
		switch op {
		case opcode.Constant:
			idx := frame.readByte()
			vm.push(frame.chunk().Constants[idx])

		case opcode.Null:
			vm.push(value.Null)
		case opcode.True:
			vm.push(value.True)
		case opcode.False:
			vm.push(value.False)

		case opcode.Pop:
			vm.pop()

		case opcode.DefineGlobal:
			idx := frame.readByte()
			vm.globals.Set(frame.chunk().Constants[idx], vm.peek(0))

		case opcode.GetGlobal:
			idx := frame.readByte()
			name := frame.chunk().Constants[idx]
			v, ok := vm.globals.Get(name)
			if !ok {
				s, _ := name.AsObj().AsString()
				runErr = vm.runtimeError("Undefined variable '%s'.", s.Chars)
				break loop
			}
			vm.push(v)

		case opcode.DefineLocal:
			slot := frame.readByte()
			vm.stack[frame.slots+int(slot)] = vm.peek(0)
			vm.push(vm.peek(0))

		case opcode.GetLocal:
			slot := frame.readByte()
			vm.push(vm.stack[frame.slots+int(slot)])

		case opcode.GetUpvalue:
			slot := frame.readByte()
			vm.push(*frame.closure.Upvalues[slot].Location)

		case opcode.CloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case opcode.JumpFalse:
			off := frame.readShort()
			if vm.peek(0).IsFalsey() {
				frame.ip += off
			}

		case opcode.Jump:
			off := frame.readShort()
			frame.ip += off

		case opcode.Loop:
			off := frame.readShort()
			frame.ip -= off

		case opcode.Call:
			argc := int(frame.readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				runErr = err
				break loop
			}
			frame = &vm.frames[len(vm.frames)-1]

		case opcode.Closure:
			idx := frame.readByte()
			fn, _ := frame.chunk().Constants[idx].AsObj().AsFunction()
			closure := vm.heap.NewClosure(fn)
			// pushed before capturing, so the closure stays rooted through
			// any collection captureUpvalue's allocation triggers
			vm.push(value.Obj(&closure.Object))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := frame.readByte()
				index := frame.readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.slots+int(index)])
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case opcode.Return:
			v := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frames = vm.frames[:len(vm.frames)-1]

			if len(vm.frames) == 0 {
				vm.pop() // the outermost closure itself
				result = v
				fmt.Fprintln(vm.Stdout, v.Print())
				break loop
			}

			vm.stackTop = frame.slots
			vm.push(v)
			frame = &vm.frames[len(vm.frames)-1]

		default:
			runErr = vm.runtimeError("Unknown opcode %d.", byte(op))
			break loop
		}
	}

	return result, runErr
}

func (vm *VM) trace(frame *callFrame) {
	fmt.Fprint(vm.Stdout, "          ")
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(vm.Stdout, "[ %s ]", vm.stack[i].Print())
	}
	fmt.Fprintln(vm.Stdout)
	line, _ := opcode.Instruction(frame.chunk(), frame.ip)
	fmt.Fprintln(vm.Stdout, line)
}
