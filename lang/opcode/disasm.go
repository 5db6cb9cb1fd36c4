package opcode

import (
	"fmt"
	"strings"

	"waterlisp/lang/value"
)

// Disassemble renders every instruction in chunk under the given name, one
// line per instruction, in the textual form original_source/debug.c's
// disassembleChunk produces. Used by the compiler's DEBUG_PRINT_CODE switch;
// the VM's DEBUG_TRACE_EXECUTION trace calls Instruction directly.
func Disassemble(chunk *value.Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		line, next := Instruction(chunk, offset)
		b.WriteString(line)
		b.WriteByte('\n')
		offset = next
	}
	return b.String()
}

// Instruction disassembles the single instruction at offset, returning its
// text and the offset of the next instruction.
func Instruction(chunk *value.Chunk, offset int) (string, int) {
	lineCol := fmt.Sprintf("%4d", chunk.Lines[offset])
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		lineCol = "   |"
	}
	op := Op(chunk.Code[offset])
	switch op {
	case Constant, DefineGlobal, GetGlobal:
		idx := chunk.Code[offset+1]
		return fmt.Sprintf("%04d %s %-16s %4d '%s'", offset, lineCol, op, idx, chunk.Constants[idx].Print()), offset + 2
	case DefineLocal, GetLocal, GetUpvalue, Call:
		idx := chunk.Code[offset+1]
		return fmt.Sprintf("%04d %s %-16s %4d", offset, lineCol, op, idx), offset + 2
	case JumpFalse, Jump:
		hi, lo := chunk.Code[offset+1], chunk.Code[offset+2]
		jump := int(hi)<<8 | int(lo)
		return fmt.Sprintf("%04d %s %-16s %4d -> %d", offset, lineCol, op, offset, offset+3+jump), offset + 3
	case Loop:
		hi, lo := chunk.Code[offset+1], chunk.Code[offset+2]
		jump := int(hi)<<8 | int(lo)
		return fmt.Sprintf("%04d %s %-16s %4d -> %d", offset, lineCol, op, offset, offset+3-jump), offset + 3
	case Closure:
		idx := chunk.Code[offset+1]
		next := offset + 2
		s := fmt.Sprintf("%04d %s %-16s %4d '%s'", offset, lineCol, op, idx, chunk.Constants[idx].Print())
		if fn, ok := chunk.Constants[idx].AsObj().AsFunction(); ok {
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := chunk.Code[next]
				index := chunk.Code[next+1]
				kind := "upvalue"
				if isLocal != 0 {
					kind = "local"
				}
				s += fmt.Sprintf("\n%04d      |                     %s %d", next, kind, index)
				next += 2
			}
		}
		return s, next
	default:
		return fmt.Sprintf("%04d %s %s", offset, lineCol, op), offset + 1
	}
}
