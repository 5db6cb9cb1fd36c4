package compiler

import (
	"fmt"

	"waterlisp/lang/scanner"
	"waterlisp/lang/token"
)

// parser carries the transient state of one compilation: the current and
// previous tokens, the sticky error flags, and the paren-depth counter
// synchronize uses to resync after an error. Mirrors original_source/
// compiler.c's global `Parser`, threaded explicitly instead of
// process-global per spec.md §9's "thread an execution-context handle"
// alternative.
type parser struct {
	src []byte
	sc  *scanner.Scanner

	current  token.Token
	previous token.Token

	hadError   bool
	panicMode  bool
	parenDepth int

	onError func(string)
}

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.Scan()
		if p.current.Kind != token.ERROR {
			break
		}
		p.errorAtCurrent(p.current.Message)
	}
}

func (p *parser) check(kind token.Kind) bool { return p.current.Kind == kind }

func (p *parser) match(kind token.Kind) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(kind token.Kind, msg string) {
	if p.current.Kind == kind {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

// errorAt reports msg anchored at tok, in the format
// "[line N] Error at '<lexeme>' | at end | : <message>", and enters panic
// mode so cascading errors from the same failure are suppressed until
// synchronize escapes back to the outermost paren depth.
func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	var where string
	switch tok.Kind {
	case token.EOF:
		where = " at end"
	case token.ERROR:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme(p.src))
	}
	if p.onError != nil {
		p.onError(fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, msg))
	}
}
