package terminal

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"

	"github.com/gekkodbg/gekko/pkg/config"
)

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases []string
	helpMsg string
	cmdFn   cmdfunc
}

// Returns true if the command string matches one of the aliases defined.
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands for the terminal.
type Commands struct {
	cmds []command
}

// DebugCommands returns a Commands struct with the default commands,
// extended by the aliases from conf.
func DebugCommands(conf *config.Config) *Commands {
	c := &Commands{}
	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: helpCmd, helpMsg: "Prints the help message."},
		{aliases: []string{"print", "p"}, cmdFn: printCmd, helpMsg: "Compile and evaluate a condition expression."},
		{aliases: []string{"set"}, cmdFn: setCmd, helpMsg: "set <reg> <value>. Assign a value to a register."},
		{aliases: []string{"regs"}, cmdFn: regsCmd, helpMsg: "Print the register file."},
		{aliases: []string{"stack", "bt"}, cmdFn: stackCmd, helpMsg: "Print the guest call stack."},
		{aliases: []string{"funcs"}, cmdFn: funcsCmd, helpMsg: "Print the host function library."},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCmd, helpMsg: "Exit the debugger."},
	}

	if conf != nil && conf.Aliases != nil {
		for i := range c.cmds {
			if aliases, ok := conf.Aliases[c.cmds[i].aliases[0]]; ok {
				c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
			}
		}
	}
	return c
}

// Find will look up the command function for the given command input. If
// it cannot find the command it returns a noop function.
func (c *Commands) Find(cmdstr string) cmdfunc {
	// If <enter> use last command, if there was one.
	if cmdstr == "" {
		return func(t *Term, args string) error { return nil }
	}
	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.cmdFn
		}
	}
	return func(t *Term, args string) error {
		return fmt.Errorf("command not available: %q", cmdstr)
	}
}

// Call takes a command to run and the terminal to run it against.
func (c *Commands) Call(cmdstr string, t *Term) error {
	vals := strings.SplitN(strings.TrimSpace(cmdstr), " ", 2)
	name := vals[0]
	var args string
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}
	return c.Find(name)(t, args)
}

func helpCmd(t *Term, args string) error {
	fmt.Fprintln(t.stdout, "The following commands are available:")
	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 0, '\t', 0)
	for _, cmd := range t.cmds.cmds {
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), cmd.helpMsg)
		} else {
			fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], cmd.helpMsg)
		}
	}
	return w.Flush()
}

var errNoExpression = errors.New("no expression given")

func printCmd(t *Term, args string) error {
	if args == "" {
		return errNoExpression
	}
	cond, err := t.cache.Compile(args)
	if err != nil {
		return err
	}
	result := cond.Eval()
	fmt.Fprintf(t.stdout, "%v\n", result)
	if result != 0 || math.IsNaN(result) || t.conf.TraceZeroResults {
		for _, v := range cond.Vars() {
			fmt.Fprintf(t.stdout, "    %s = %v\n", v.Name, v.Value)
		}
	}
	return nil
}

func setCmd(t *Term, args string) error {
	v, err := argv.Argv(args, func(s string) (string, error) {
		return "", fmt.Errorf("backtick not supported in %q", s)
	}, nil)
	if err != nil {
		return err
	}
	if len(v) != 1 || len(v[0]) != 2 {
		return errors.New("wrong number of arguments to set")
	}
	reg, val := v[0][0], v[0][1]

	cond, err := t.target.CompileCondition(reg + " = " + val)
	if err != nil {
		return err
	}
	cond.Eval()
	return nil
}

func regsCmd(t *Term, args string) error {
	tok := t.target.Guard.Acquire()
	defer tok.Release()

	cpu := t.target.CPU
	fmt.Fprintf(t.stdout, "pc  = %#08x    msr = %#08x\n", cpu.PC(), cpu.MSR())
	fmt.Fprintf(t.stdout, "lr  = %#08x    ctr = %#08x    xer = %#08x\n", cpu.SPR(8), cpu.SPR(9), cpu.SPR(1))
	for i := 0; i < 32; i += 4 {
		for j := i; j < i+4; j++ {
			fmt.Fprintf(t.stdout, "r%-2d = %#08x    ", j, cpu.GPR(j))
		}
		fmt.Fprintln(t.stdout)
	}
	return nil
}

func stackCmd(t *Term, args string) error {
	tok := t.target.Guard.Acquire()
	frames, err := t.target.Stack.Callstack()
	tok.Release()
	if err != nil {
		return fmt.Errorf("call stack unavailable: %v", err)
	}
	if len(frames) == 0 {
		fmt.Fprintln(t.stdout, "empty call stack")
		return nil
	}
	for i, f := range frames {
		name := f.Name
		if name == "" {
			name = "???"
		}
		fmt.Fprintf(t.stdout, "%2d  %#08x  %s\n", i, f.Ret, name)
	}
	return nil
}

func funcsCmd(t *Term, args string) error {
	for _, name := range t.target.FuncNames() {
		fmt.Fprintln(t.stdout, name)
	}
	return nil
}

func exitCmd(t *Term, args string) error {
	t.quit = true
	return nil
}
