// Package maincmd implements the waterlisp CLI's command dispatch: flag
// parsing, usage text, and exit-code mapping, built on github.com/mna/mainer
// the same way the teacher's own maincmd package is.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "waterlisp"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and VM for the waterlisp language.

The <command> can be one of:
       run                       Compile and execute <path> (or '-' for
                                 stdin), printing the top-level result.
       tokenize                  Print the token stream <path> scans to.
       repl                      Read and execute lines from stdin one at a
                                 time, sharing bindings across lines.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Valid flag options for the <run> command are:
       --trace                   Enable DEBUG_TRACE_EXECUTION-style
                                 instruction tracing to stdout.

Valid flag options for the <run> and <tokenize> commands are:
       --dump string             Emit a machine-readable summary in the
                                 given format ("yaml") instead of (for
                                 tokenize) or in addition to (for run) the
                                 normal output.
`, binName)
)

// Cmd is the waterlisp CLI's mainer.Command implementation.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Trace bool   `flag:"trace"`
	Dump  string `flag:"dump"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) { c.args = args }

func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	if cmdName == "run" || cmdName == "tokenize" {
		if len(c.args[1:]) != 1 {
			return fmt.Errorf("%s: exactly one path (or '-' for stdin) must be provided", cmdName)
		}
	}
	if cmdName == "repl" && len(c.args[1:]) != 0 {
		return errors.New("repl: takes no path arguments")
	}
	if c.Dump != "" && c.Dump != "yaml" {
		return fmt.Errorf("--dump: unsupported format %q", c.Dump)
	}
	if c.Trace && cmdName != "run" {
		return fmt.Errorf("%s: invalid flag '--trace'", cmdName)
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command takes care of printing its own diagnostics
		return mainer.Failure
	}
	return mainer.Success
}

// readSource reads path, or stdin if path is "-".
func readSource(stdio mainer.Stdio, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdio.Stdin)
	}
	return os.ReadFile(path)
}

// valid commands are those that take a context.Context, a mainer.Stdio, and
// a slice of strings, returning a single error.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
