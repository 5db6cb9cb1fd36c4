// Package scanner lexes waterlisp source text into a stream of tokens. It
// does not allocate: every Token borrows its lexeme from the source buffer
// the Scanner was initialized with.
package scanner

import (
	"waterlisp/lang/token"
)

// Scanner tokenizes a source buffer for the compiler to consume.
//
// Modeled on lang/scanner.Scanner's Init/advance/peek shape, simplified to
// spec.md's contract: a single in-memory buffer, no file set, no Unicode
// decoding (source is treated bytewise per spec.md §6).
type Scanner struct {
	src  []byte
	pos  int // index of the next unread byte
	line int
}

// Init (re)initializes the scanner to tokenize src from the beginning.
func (s *Scanner) Init(src []byte) {
	s.src = src
	s.pos = 0
	s.line = 1
}

func (s *Scanner) atEnd() bool { return s.pos >= len(s.src) }

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.pos]
}

func (s *Scanner) peekNext() byte {
	if s.pos+1 >= len(s.src) {
		return 0
	}
	return s.src[s.pos+1]
}

func (s *Scanner) advance() byte {
	c := s.src[s.pos]
	s.pos++
	return c
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isDelimiter reports whether c terminates an identifier or number, per
// spec.md §4.E: parens, braces, whitespace, quote, and the start of a line
// comment.
func (s *Scanner) isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '{', '}', ' ', '\t', '\r', '\n', '\'':
		return true
	case '/':
		return s.peekNext() == '/'
	default:
		return false
	}
}

func (s *Scanner) makeToken(kind token.Kind, start, line int) token.Token {
	return token.Token{Kind: kind, Start: start, Length: s.pos - start, Line: line}
}

func (s *Scanner) errorToken(msg string, line int) token.Token {
	return token.Token{Kind: token.ERROR, Message: msg, Line: line}
}

func (s *Scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		switch c := s.peek(); c {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for !s.atEnd() && s.peek() != '\n' {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

// Scan returns the next token in the source. Once EOF is reached, every
// subsequent call returns an EOF token.
func (s *Scanner) Scan() token.Token {
	s.skipWhitespaceAndComments()

	start := s.pos
	line := s.line
	if s.atEnd() {
		return s.makeToken(token.EOF, start, line)
	}

	c := s.advance()
	switch c {
	case '(':
		return s.makeToken(token.LPAREN, start, line)
	case ')':
		return s.makeToken(token.RPAREN, start, line)
	case '{':
		return s.makeToken(token.LBRACE, start, line)
	case '}':
		return s.makeToken(token.RBRACE, start, line)
	case '\'':
		return s.makeToken(token.QUOTE, start, line)
	case '"':
		return s.scanString(start, line)
	}

	if isDigit(c) || (c == '.' && isDigit(s.peek())) {
		return s.scanNumber(start, line)
	}

	// any other run of non-delimiter bytes is an identifier, possibly a
	// keyword (spec.md §4.E: identifiers are any run of non-delimiter chars).
	for !s.atEnd() && !s.isDelimiter(s.peek()) {
		s.advance()
	}
	lexeme := string(s.src[start:s.pos])
	return s.makeToken(token.Lookup(lexeme), start, line)
}

func (s *Scanner) scanString(start, line int) token.Token {
	for !s.atEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.", line)
	}
	s.advance() // closing quote
	return s.makeToken(token.STRING, start, line)
}

func (s *Scanner) scanNumber(start, line int) token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.makeToken(token.NUMBER, start, line)
}
