package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"gopkg.in/yaml.v3"

	"waterlisp/lang/scanner"
	"waterlisp/lang/token"
)

// tokenDump is one scanned token in --dump=yaml form.
type tokenDump struct {
	Kind   string `yaml:"kind"`
	Lexeme string `yaml:"lexeme"`
	Line   int    `yaml:"line"`
}

// Tokenize scans the single source file (or "-" for stdin) named by args[0]
// and prints its token stream, one token per line as "kind lexeme line" —
// or, with --dump=yaml, the same stream marshaled to YAML.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := readSource(stdio, args[0])
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", args[0], err)
		return err
	}

	var sc scanner.Scanner
	sc.Init(src)

	var dumps []tokenDump
	for {
		tok := sc.Scan()
		lexeme := tok.Lexeme(src)
		if c.Dump == "yaml" {
			dumps = append(dumps, tokenDump{Kind: tok.Kind.String(), Lexeme: lexeme, Line: tok.Line})
		} else {
			fmt.Fprintf(stdio.Stdout, "%s %q %d\n", tok.Kind, lexeme, tok.Line)
		}
		if tok.Kind == token.EOF {
			break
		}
		if tok.Kind == token.ERROR {
			fmt.Fprintf(stdio.Stderr, "[line %d] %s\n", tok.Line, tok.Message)
			return fmt.Errorf("%s: scan error at line %d: %s", args[0], tok.Line, tok.Message)
		}
	}

	if c.Dump == "yaml" {
		enc := yaml.NewEncoder(stdio.Stdout)
		defer enc.Close()
		return enc.Encode(dumps)
	}
	return nil
}
