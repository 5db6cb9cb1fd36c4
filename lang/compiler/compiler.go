// Package compiler implements the single-pass recursive-descent compiler
// that turns a token stream directly into bytecode — no separate AST, no
// resolver pass. One Function is produced per lambda expression, plus one
// outer "script" function wrapping the whole program.
package compiler

import (
	"strconv"

	"github.com/google/uuid"

	"waterlisp/lang/opcode"
	"waterlisp/lang/scanner"
	"waterlisp/lang/token"
	"waterlisp/lang/value"
)

// debugPrintCode is spec.md's DEBUG_PRINT_CODE switch: when true, every
// compiled function's disassembly is handed to PrintCode as it finishes
// compiling. Disabled by default; flipping it affects no program semantics.
const debugPrintCode = false

// PrintCode receives one function's disassembly when debugPrintCode is true.
// Tests and the CLI may override it; nil is a safe no-op default.
var PrintCode func(name, disassembly string)

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
)

type localVar struct {
	name       string
	depth      int
	isCaptured bool
}

type upvalueDesc struct {
	index   byte
	isLocal bool
}

// frame is one compiler activation record, one per function (or the script)
// currently being compiled. Pushed when a lambda starts compiling; popped
// when it ends — mirrors spec.md §3's "Compiler state (stack of frames)".
type frame struct {
	enclosing *frame
	function  *value.Function
	kind      funcKind

	locals     []localVar
	scopeDepth int
	upvalues   []upvalueDesc
}

func newFrame(enclosing *frame, fn *value.Function, kind funcKind) *frame {
	depth := 0
	if enclosing != nil {
		depth = enclosing.scopeDepth + 1
	}
	fr := &frame{enclosing: enclosing, function: fn, kind: kind, scopeDepth: depth}
	// Slot 0 is reserved for the callee itself; parameters and locals start
	// at slot 1 (spec.md §3: "frame.slots points to the function value for
	// that call; parameters are at slots+1...").
	fr.locals = append(fr.locals, localVar{name: "", depth: depth})
	return fr
}

func (fr *frame) resolveLocal(name string) (int, bool) {
	for i := len(fr.locals) - 1; i >= 0; i-- {
		if fr.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

func (fr *frame) addUpvalue(index byte, isLocal bool) int {
	for i, u := range fr.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	fr.upvalues = append(fr.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	fr.function.UpvalueCount = len(fr.upvalues)
	return len(fr.upvalues) - 1
}

// resolveUpvalue walks the enclosing-compiler chain: if name is a local in
// the immediately enclosing frame, capture it directly; if it is itself an
// upvalue there, bubble the capture upward. Deduplicated by addUpvalue.
func resolveUpvalue(fr *frame, name string) (int, bool) {
	if fr.enclosing == nil {
		return -1, false
	}
	if slot, ok := fr.enclosing.resolveLocal(name); ok {
		fr.enclosing.locals[slot].isCaptured = true
		return fr.addUpvalue(byte(slot), true), true
	}
	if idx, ok := resolveUpvalue(fr.enclosing, name); ok {
		return fr.addUpvalue(byte(idx), false), true
	}
	return -1, false
}

func (fr *frame) declareLocal(p *parser, name string) {
	for i := len(fr.locals) - 1; i >= 0; i-- {
		l := fr.locals[i]
		if l.depth < fr.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Already a variable with this name in this scope.")
			return
		}
	}
	if len(fr.locals) >= 256 {
		p.error("Too many local variables in function.")
		return
	}
	fr.locals = append(fr.locals, localVar{name: name, depth: fr.scopeDepth})
}

// compiler drives one compilation: the parser plus the heap values are
// allocated through, plus the stack of active frames (current == cur).
type compiler struct {
	p    *parser
	heap *value.Heap
	cur  *frame
}

func (c *compiler) chunk() *value.Chunk { return &c.cur.function.Chunk }

func (c *compiler) emitByte(b byte, line int) { c.chunk().Write(b, line) }

func (c *compiler) emitBytes(line int, bs ...byte) {
	for _, b := range bs {
		c.emitByte(b, line)
	}
}

func (c *compiler) emitJump(op opcode.Op, line int) int {
	c.emitByte(byte(op), line)
	c.emitByte(0xff, line)
	c.emitByte(0xff, line)
	return len(c.chunk().Code) - 2
}

func (c *compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.p.error("Too much code to jump over.")
		return
	}
	c.chunk().Code[offset] = byte(jump >> 8)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (c *compiler) emitLoop(loopStart int, line int) {
	c.emitByte(byte(opcode.Loop), line)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.p.error("Loop body too large.")
		return
	}
	c.emitByte(byte(offset>>8), line)
	c.emitByte(byte(offset&0xff), line)
}

func (c *compiler) makeConstant(v value.Value) byte {
	idx := c.chunk().AddConstant(v)
	if idx > 255 {
		c.p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *compiler) emitConstant(v value.Value, line int) {
	c.emitBytes(line, byte(opcode.Constant), c.makeConstant(v))
}

func (c *compiler) identifierConstant(name string) byte {
	s := c.heap.InternString(name)
	return c.makeConstant(value.Obj(&s.Object))
}

// endFrame appends the function's final RETURN, optionally disassembles it,
// and pops back to the enclosing frame (nil at the outermost script).
func (c *compiler) endFrame() *value.Function {
	fn := c.cur.function
	line := c.p.previous.Line
	c.emitByte(byte(opcode.Return), line)

	if debugPrintCode && !c.p.hadError && PrintCode != nil {
		name := debugName(fn, c.cur.kind)
		PrintCode(name, opcode.Disassemble(&fn.Chunk, name))
	}

	c.cur = c.cur.enclosing
	return fn
}

// debugName labels fn for DEBUG_PRINT_CODE disassembly dumps. A named
// function uses its name; the outermost script uses "<script>"; an
// anonymous (never `def`-bound) lambda gets a short, stable-for-this-process
// id so distinct anonymous lambdas in the same dump don't all print under
// the same "<script>" header and become impossible to tell apart.
func debugName(fn *value.Function, kind funcKind) string {
	if fn.Name != nil {
		return fn.Name.Chars
	}
	if kind == kindScript {
		return "<script>"
	}
	return "<lambda " + uuid.NewString()[:8] + ">"
}

// compilerRoots marks every function object reachable from the currently
// compiling frame chain (and, transitively via Heap.blacken, each function's
// chunk constants) as a GC root, per spec.md §4.B step 1 and §2's "the heap
// ... calls back to the VM and the compiler to enumerate roots." Without
// this, a collection triggered mid-compile (e.g. heap.StressGC, or a large
// source) would see no roots at all and purge the intern table and every
// compiled function out from under the compiler.
type compilerRoots struct {
	c *compiler
}

func (r compilerRoots) MarkRoots(h *value.Heap) {
	for fr := r.c.cur; fr != nil; fr = fr.enclosing {
		h.MarkObject(&fr.function.Object)
	}
}

// Compile compiles src into a top-level script Function. onError receives
// one formatted message per compile error; ok is false iff any error was
// reported, per spec.md §7 ("a failed compile returns no function").
func Compile(src []byte, heap *value.Heap, onError func(string)) (*value.Function, bool) {
	var sc scanner.Scanner
	sc.Init(src)
	p := &parser{src: src, sc: &sc, onError: onError}

	scriptFn := heap.NewFunction()
	c := &compiler{p: p, heap: heap, cur: newFrame(nil, scriptFn, kindScript)}

	// Register the compiler chain as a GC root for the duration of this
	// compile, restoring whatever was installed before (typically a *vm.VM,
	// in the REPL's case, which must keep marking its own roots once this
	// call returns).
	prevRoots := heap.Roots
	heap.Roots = compilerRoots{c: c}
	defer func() { heap.Roots = prevRoots }()

	p.advance()
	c.program()
	fn := c.endFrame()

	if p.hadError {
		return nil, false
	}
	return fn, true
}

func (c *compiler) program() {
	any := false
	for !c.p.check(token.EOF) {
		c.expression()
		any = true
		if !c.p.check(token.EOF) {
			c.emitByte(byte(opcode.Pop), c.p.previous.Line)
		}
		if c.p.panicMode {
			c.synchronize()
		}
	}
	if !any {
		c.emitByte(byte(opcode.Null), 1)
	}
}

// synchronize advances past tokens until back at the outermost paren depth
// (or EOF), so the next top-level expression starts clean after an error.
func (c *compiler) synchronize() {
	c.p.panicMode = false
	for !c.p.check(token.EOF) {
		if c.p.parenDepth <= 0 {
			return
		}
		switch c.p.current.Kind {
		case token.LPAREN, token.LBRACE:
			c.p.parenDepth++
		case token.RPAREN, token.RBRACE:
			c.p.parenDepth--
		}
		c.p.advance()
	}
}

// expression dispatches on the leading token per spec.md §4.F's grammar.
func (c *compiler) expression() {
	switch c.p.current.Kind {
	case token.NUMBER:
		c.number()
	case token.STRING:
		c.string()
	case token.TRUE:
		c.p.advance()
		c.emitByte(byte(opcode.True), c.p.previous.Line)
	case token.FALSE:
		c.p.advance()
		c.emitByte(byte(opcode.False), c.p.previous.Line)
	case token.NULL:
		c.p.advance()
		c.emitByte(byte(opcode.Null), c.p.previous.Line)
	case token.IDENTIFIER:
		c.variable()
	case token.QUOTE:
		c.quote()
	case token.LPAREN:
		c.group()
	case token.LBRACE:
		c.dictLiteral()
	default:
		c.p.errorAtCurrent("Expect expression.")
		c.p.advance()
	}
}

func (c *compiler) number() {
	c.p.advance()
	lexeme := c.p.previous.Lexeme(c.p.src)
	n, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		c.p.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n), c.p.previous.Line)
}

func (c *compiler) string() {
	c.p.advance()
	lexeme := c.p.previous.Lexeme(c.p.src)
	content := lexeme[1 : len(lexeme)-1] // strip the surrounding quotes
	s := c.heap.InternString(content)
	c.emitConstant(value.Obj(&s.Object), c.p.previous.Line)
}

func (c *compiler) variable() {
	c.p.advance()
	name := c.p.previous.Lexeme(c.p.src)
	c.namedVariable(name, c.p.previous.Line)
}

// namedVariable resolves name against locals (innermost first), then
// upvalues (capturing/bubbling through enclosing frames), then falls back
// to a global lookup by name.
func (c *compiler) namedVariable(name string, line int) {
	if slot, ok := c.cur.resolveLocal(name); ok {
		c.emitBytes(line, byte(opcode.GetLocal), byte(slot))
		return
	}
	if idx, ok := resolveUpvalue(c.cur, name); ok {
		c.emitBytes(line, byte(opcode.GetUpvalue), byte(idx))
		return
	}
	c.emitBytes(line, byte(opcode.GetGlobal), c.identifierConstant(name))
}

func (c *compiler) group() {
	c.p.consume(token.LPAREN, "Expect '('.")
	c.p.parenDepth++
	c.sexpr()
	c.p.consume(token.RPAREN, "Expect ')' after expression.")
	c.p.parenDepth--
}

// sexpr dispatches the parenthesized forms: the control/definition keywords
// get dedicated emission rules; everything else is a call.
func (c *compiler) sexpr() {
	line := c.p.current.Line
	switch {
	case c.p.match(token.DEF):
		c.defForm(line)
	case c.p.match(token.LAMBDA):
		c.lambda(line)
	case c.p.match(token.IF):
		c.ifExpr(line)
	case c.p.match(token.AND):
		c.and_(line)
	case c.p.match(token.OR):
		c.or_(line)
	case c.p.match(token.WHILE):
		c.while_(line)
	default:
		c.call(line)
	}
}

// defForm: "def" IDENTIFIER expression.
func (c *compiler) defForm(line int) {
	c.p.consume(token.IDENTIFIER, "Expect variable name.")
	name := c.p.previous.Lexeme(c.p.src)

	isLocal := c.cur.scopeDepth > 0
	var globalConst byte
	var slot int
	if isLocal {
		c.cur.declareLocal(c.p, name)
		slot = len(c.cur.locals) - 1
	} else {
		globalConst = c.identifierConstant(name)
	}

	c.expression()

	// Retro-name an anonymous lambda bound directly by this def, so the
	// function carries its name (for printing and runtime stack traces)
	// before the binding itself becomes visible (spec.md §5's ordering
	// guarantee). Name resolution does not use this field.
	constants := c.chunk().Constants
	if len(constants) > 0 {
		last := constants[len(constants)-1]
		if last.IsObj() {
			if fn, ok := last.AsObj().AsFunction(); ok && fn.Name == nil {
				fn.Name = c.heap.InternString(name)
			}
		}
	}

	if isLocal {
		c.emitBytes(line, byte(opcode.DefineLocal), byte(slot))
	} else {
		c.emitBytes(line, byte(opcode.DefineGlobal), globalConst)
	}
}

// lambda: "lambda" "(" IDENTIFIER* ")" expression*.
func (c *compiler) lambda(line int) {
	fn := c.heap.NewFunction()
	enclosing := c.cur
	c.cur = newFrame(enclosing, fn, kindFunction)

	c.p.consume(token.LPAREN, "Expect '(' after lambda.")
	c.p.parenDepth++
	for !c.p.check(token.RPAREN) {
		c.p.consume(token.IDENTIFIER, "Expect parameter name.")
		fn.Arity++
		if fn.Arity > 255 {
			c.p.error("Can't have more than 255 parameters.")
		}
		c.cur.declareLocal(c.p, c.p.previous.Lexeme(c.p.src))
	}
	c.p.consume(token.RPAREN, "Expect ')' after parameters.")
	c.p.parenDepth--

	c.compileBody(token.RPAREN)

	newUpvalues := c.cur.upvalues
	compiled := c.endFrame()

	idx := c.makeConstant(value.Obj(&compiled.Object))
	c.emitBytes(line, byte(opcode.Closure), idx)
	for _, uv := range newUpvalues {
		var isLocal byte
		if uv.isLocal {
			isLocal = 1
		}
		c.emitBytes(line, isLocal, uv.index)
	}
}

// compileBody compiles a sequence of expressions up to (not including) end,
// leaving the final expression's value on the stack — or NULL if the
// sequence is empty. Used for a lambda's body (end == RPAREN); program
// applies the same rule to the script's top level on its own.
//
// This resolves spec.md §9's open question about the fragile
// "overwrite the trailing POP with RETURN" trick: rather than relying on
// the last emitted byte happening to be POP, POP is only ever emitted
// between expressions, never after the last one, so the final value is
// always intact for RETURN to hand back.
func (c *compiler) compileBody(end token.Kind) {
	any := false
	for !c.p.check(end) && !c.p.check(token.EOF) {
		c.expression()
		any = true
		if !c.p.check(end) && !c.p.check(token.EOF) {
			c.emitByte(byte(opcode.Pop), c.p.previous.Line)
		}
	}
	if !any {
		c.emitByte(byte(opcode.Null), c.p.previous.Line)
	}
}

// ifExpr: "if" expression expression expression?
func (c *compiler) ifExpr(line int) {
	c.expression() // cond
	thenJump := c.emitJump(opcode.JumpFalse, line)
	c.emitByte(byte(opcode.Pop), line)
	c.expression() // then
	elseJump := c.emitJump(opcode.Jump, line)

	c.patchJump(thenJump)
	c.emitByte(byte(opcode.Pop), line)
	if c.p.check(token.RPAREN) {
		c.emitByte(byte(opcode.Null), line)
	} else {
		c.expression() // else
	}
	c.patchJump(elseJump)
}

// and_: "and" expression*. Short-circuits to the first falsey operand's
// value; with no operands, TRUE.
func (c *compiler) and_(line int) {
	if c.p.check(token.RPAREN) {
		c.emitByte(byte(opcode.True), line)
		return
	}
	var jumps []int
	for {
		c.expression()
		if c.p.check(token.RPAREN) {
			break
		}
		jumps = append(jumps, c.emitJump(opcode.JumpFalse, line))
		c.emitByte(byte(opcode.Pop), line)
	}
	for _, j := range jumps {
		c.patchJump(j)
	}
}

// or_: "or" expression*. Short-circuits to the first truthy operand's
// value; with no operands, FALSE.
func (c *compiler) or_(line int) {
	if c.p.check(token.RPAREN) {
		c.emitByte(byte(opcode.False), line)
		return
	}
	var ends []int
	for {
		c.expression()
		if c.p.check(token.RPAREN) {
			break
		}
		elseJump := c.emitJump(opcode.JumpFalse, line)
		ends = append(ends, c.emitJump(opcode.Jump, line))
		c.patchJump(elseJump)
		c.emitByte(byte(opcode.Pop), line)
	}
	for _, e := range ends {
		c.patchJump(e)
	}
}

// while_: "while" expression expression*. Always evaluates to NULL.
func (c *compiler) while_(line int) {
	loopStart := len(c.chunk().Code)
	c.expression() // cond
	exitJump := c.emitJump(opcode.JumpFalse, line)
	c.emitByte(byte(opcode.Pop), line)
	for !c.p.check(token.RPAREN) {
		c.expression()
		c.emitByte(byte(opcode.Pop), line)
	}
	c.emitLoop(loopStart, line)
	c.patchJump(exitJump)
	c.emitByte(byte(opcode.Pop), line)
	c.emitByte(byte(opcode.Null), line)
}

// call: expression expression* — the callee, then its arguments.
func (c *compiler) call(line int) {
	c.expression() // callee
	argc := 0
	for !c.p.check(token.RPAREN) {
		c.expression()
		argc++
		if argc > 255 {
			c.p.error("Can't have more than 255 arguments.")
		}
	}
	c.emitBytes(line, byte(opcode.Call), byte(argc))
}

// quote: "'" "(" expression* ")", rewritten to (list ...).
func (c *compiler) quote() {
	line := c.p.current.Line
	c.p.consume(token.QUOTE, "Expect quote.")
	c.p.consume(token.LPAREN, "Expect '(' after quote.")
	c.p.parenDepth++

	c.namedVariable("list", line)
	argc := 0
	for !c.p.check(token.RPAREN) {
		c.expression()
		argc++
	}
	c.p.consume(token.RPAREN, "Expect ')' to close quoted list.")
	c.p.parenDepth--
	c.emitBytes(line, byte(opcode.Call), byte(argc))
}

// dictLiteral: "{" expression* "}", rewritten to (dict ...).
func (c *compiler) dictLiteral() {
	line := c.p.current.Line
	c.p.consume(token.LBRACE, "Expect '{'.")
	c.p.parenDepth++

	c.namedVariable("dict", line)
	argc := 0
	for !c.p.check(token.RBRACE) {
		c.expression()
		argc++
	}
	c.p.consume(token.RBRACE, "Expect '}' to close dict literal.")
	c.p.parenDepth--
	c.emitBytes(line, byte(opcode.Call), byte(argc))
}
