// Package opcode defines the bytecode instruction set the compiler emits
// and the VM dispatches over. Each Op is one byte; operand widths are fixed
// per opcode and documented alongside it.
package opcode

// Op is a single bytecode instruction.
type Op byte

//nolint:revive
const (
	Constant Op = iota // const_idx:u8            -- push constants[idx]
	Null               //                          -- push Null
	True               //                          -- push True
	False              //                          -- push False
	Pop                //                          -- discard top

	DefineGlobal // name_idx:u8     -- globals[name] = peek(0)
	GetGlobal    // name_idx:u8     -- push globals[name]
	DefineLocal  // slot:u8         -- frame.slots[slot] = peek(0)
	GetLocal     // slot:u8         -- push frame.slots[slot]
	GetUpvalue   // slot:u8         -- push *closure.upvalues[slot].location

	CloseUpvalue // close the open upvalue at stack_top-1, then pop

	JumpFalse // off:u16be -- if falsey(peek(0)) then ip += off
	Jump      // off:u16be -- ip += off
	Loop      // off:u16be -- ip -= off

	Call // argc:u8 -- invoke callee at peek(argc) with argc args

	Closure // const_idx:u8, then upvalue_count * (is_local:u8, index:u8)

	Return

	maxOp
)

var names = [...]string{
	Constant:     "CONSTANT",
	Null:         "NULL",
	True:         "TRUE",
	False:        "FALSE",
	Pop:          "POP",
	DefineGlobal: "DEFINE_GLOBAL",
	GetGlobal:    "GET_GLOBAL",
	DefineLocal:  "DEFINE_LOCAL",
	GetLocal:     "GET_LOCAL",
	GetUpvalue:   "GET_UPVALUE",
	CloseUpvalue: "CLOSE_UPVALUE",
	JumpFalse:    "JUMP_FALSE",
	Jump:         "JUMP",
	Loop:         "LOOP",
	Call:         "CALL",
	Closure:      "CLOSURE",
	Return:       "RETURN",
}

func (op Op) String() string {
	if op >= 0 && op < maxOp {
		return names[op]
	}
	return "UNKNOWN_OP"
}
