package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"waterlisp/internal/natives"
	"waterlisp/lang/compiler"
	"waterlisp/lang/value"
	"waterlisp/lang/vm"
)

// Repl reads lines from stdin, compiling and running each as its own
// top-level program against one shared vm.VM — globals (and the heap's
// interned strings) persist across lines, so `(def x 1)` on one line is
// visible to the next — until EOF.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	heap := value.NewHeap()
	machine := vm.New(heap)
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr
	machine.TraceExecution = c.Trace
	natives.Register(heap, machine.Globals(), stdio.Stdout)

	scan := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scan.Scan() {
			break
		}
		line := scan.Text()
		if line == "" {
			continue
		}

		var compileErrs []string
		fn, ok := compiler.Compile([]byte(line), heap, func(msg string) { compileErrs = append(compileErrs, msg) })
		if !ok {
			for _, msg := range compileErrs {
				fmt.Fprintln(stdio.Stderr, msg)
			}
			continue
		}

		// Each line runs as its own top-level call, so a runtime error on one
		// line resets only that call's stack, not the REPL session itself.
		if _, err := machine.Interpret(ctx, fn); err != nil {
			continue
		}
	}
	return scan.Err()
}
