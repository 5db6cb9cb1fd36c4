package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterlisp/lang/scanner"
	"waterlisp/lang/token"
)

func scanAll(src string) []token.Token {
	var s scanner.Scanner
	s.Init([]byte(src))
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuation(t *testing.T) {
	toks := scanAll("( ) { } '")
	kinds := make([]token.Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.QUOTE, token.EOF,
	}, kinds)
}

func TestScanKeywordsVsIdentifiers(t *testing.T) {
	cases := []struct {
		src  string
		want token.Kind
	}{
		{"and", token.AND},
		{"def", token.DEF},
		{"false", token.FALSE},
		{"for", token.FOR},
		{"if", token.IF},
		{"lambda", token.LAMBDA},
		{"null", token.NULL},
		{"or", token.OR},
		{"true", token.TRUE},
		{"while", token.WHILE},
		{"x", token.IDENTIFIER},
		{"fact", token.IDENTIFIER},
		{"+", token.IDENTIFIER},
		{"list->str", token.IDENTIFIER},
		// not is an ordinary identifier, not a keyword: it resolves to the
		// global native of the same name rather than a dedicated opcode.
		{"not", token.IDENTIFIER},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks := scanAll(c.src)
			require.Len(t, toks, 2) // token + EOF
			assert.Equal(t, c.want, toks[0].Kind)
		})
	}
}

func TestScanNumbers(t *testing.T) {
	src := "1 23 1.5 0.25"
	toks := scanAll(src)
	require.Len(t, toks, 5)
	for _, tok := range toks[:4] {
		assert.Equal(t, token.NUMBER, tok.Kind)
	}
	lexemes := make([]string, 4)
	for i, tok := range toks[:4] {
		lexemes[i] = tok.Lexeme([]byte(src))
	}
	assert.Equal(t, []string{"1", "23", "1.5", "0.25"}, lexemes)
}

func TestScanString(t *testing.T) {
	src := `"hello world"`
	toks := scanAll(src)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, src, toks[0].Lexeme([]byte(src)))
}

func TestScanStringSpansLines(t *testing.T) {
	src := "\"a\nb\" x"
	toks := scanAll(src)
	require.Len(t, toks, 3)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line) // identifier after the embedded newline
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(`"unterminated`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.ERROR, toks[0].Kind)
	assert.Equal(t, "Unterminated string.", toks[0].Message)
}

func TestScanComments(t *testing.T) {
	toks := scanAll("1 // a comment\n2")
	require.Len(t, toks, 3)
	assert.Equal(t, token.NUMBER, toks[0].Kind)
	assert.Equal(t, token.NUMBER, toks[1].Kind)
	assert.Equal(t, 2, toks[1].Line)
}

func TestScanLineCounting(t *testing.T) {
	toks := scanAll("1\n2\n\n3")
	require.Len(t, toks, 4)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 4, toks[2].Line)
}
