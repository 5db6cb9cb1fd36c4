package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"gopkg.in/yaml.v3"

	"waterlisp/internal/natives"
	"waterlisp/lang/compiler"
	"waterlisp/lang/value"
	"waterlisp/lang/vm"
)

// runDump is the --dump=yaml summary for the run command: the GC accounting
// snapshot at the end of execution, standing in for the "debugger protocol"
// spec.md explicitly puts out of scope.
type runDump struct {
	Result         string `yaml:"result"`
	BytesAllocated int64  `yaml:"bytes_allocated"`
}

// Run compiles and executes the single source file (or "-" for stdin) named
// by args[0], printing the top-level result the way vm.Interpret already
// does on success, and a compile/runtime error diagnostic on failure.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := readSource(stdio, args[0])
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", args[0], err)
		return err
	}

	heap := value.NewHeap()
	var compileErrs []string
	fn, ok := compiler.Compile(src, heap, func(msg string) { compileErrs = append(compileErrs, msg) })
	if !ok {
		for _, msg := range compileErrs {
			fmt.Fprintln(stdio.Stderr, msg)
		}
		return fmt.Errorf("%s: compile failed", args[0])
	}

	machine := vm.New(heap)
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr
	machine.TraceExecution = c.Trace
	natives.Register(heap, machine.Globals(), stdio.Stdout)

	_, runErr := machine.Interpret(ctx, fn)

	if c.Dump == "yaml" {
		dump := runDump{BytesAllocated: heap.BytesAllocated()}
		if runErr != nil {
			dump.Result = "RUNTIME_ERROR"
		} else {
			dump.Result = "OK"
		}
		enc := yaml.NewEncoder(stdio.Stdout)
		defer enc.Close()
		if err := enc.Encode(dump); err != nil {
			return err
		}
	}

	return runErr
}
