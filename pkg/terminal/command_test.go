package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gekkodbg/gekko/pkg/config"
	"github.com/gekkodbg/gekko/pkg/proc"
	"github.com/gekkodbg/gekko/pkg/proc/sim"
)

func testTerm(t *testing.T, conf *config.Config) (*Term, *sim.CPU, *bytes.Buffer) {
	t.Helper()
	target, cpu := sim.NewTarget()
	if conf == nil {
		conf = &config.Config{}
	}
	cache, err := proc.NewConditionCache(target, conf.CacheSize())
	if err != nil {
		t.Fatal(err)
	}
	buf := new(bytes.Buffer)
	term := &Term{
		target: target,
		cache:  cache,
		conf:   conf,
		cmds:   DebugCommands(conf),
		stdout: buf,
		dumb:   true,
	}
	return term, cpu, buf
}

func TestPrintCommand(t *testing.T) {
	term, cpu, buf := testTerm(t, nil)
	cpu.SetGPR(3, 0x20)

	if err := term.cmds.Call("print r3 > 0x10", term); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1") || !strings.Contains(out, "r3 = 32") {
		t.Errorf("unexpected print output: %q", out)
	}

	buf.Reset()
	if err := term.cmds.Call("p 1 + 1", term); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "2") {
		t.Errorf("alias p output: %q", buf.String())
	}

	if err := term.cmds.Call("print r3 >", term); err == nil {
		t.Error("malformed expression did not fail")
	}
	if err := term.cmds.Call("print", term); err == nil {
		t.Error("missing expression did not fail")
	}
}

func TestSetCommand(t *testing.T) {
	term, cpu, _ := testTerm(t, nil)

	if err := term.cmds.Call("set r5 0x42", term); err != nil {
		t.Fatal(err)
	}
	if cpu.GPR(5) != 0x42 {
		t.Errorf("r5 = %#x, want 0x42", cpu.GPR(5))
	}

	if err := term.cmds.Call("set r5", term); err == nil {
		t.Error("set with one argument did not fail")
	}
}

func TestRegsCommand(t *testing.T) {
	term, cpu, buf := testTerm(t, nil)
	cpu.SetGPR(0, 9)
	cpu.SetPC(0x80003100)

	if err := term.cmds.Call("regs", term); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "pc") || !strings.Contains(out, "r31") {
		t.Errorf("regs output missing registers: %q", out)
	}
}

func TestStackCommand(t *testing.T) {
	term, cpu, buf := testTerm(t, nil)

	if err := term.cmds.Call("stack", term); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "empty call stack") {
		t.Errorf("stack output: %q", buf.String())
	}

	buf.Reset()
	cpu.PushFrame(0x80004000, "main")
	if err := term.cmds.Call("bt", term); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "main") {
		t.Errorf("stack output missing frame: %q", buf.String())
	}

	cpu.SetStackAvailable(false)
	if err := term.cmds.Call("stack", term); err == nil {
		t.Error("unavailable stack did not fail")
	}
}

func TestCommandAliases(t *testing.T) {
	conf := &config.Config{Aliases: map[string][]string{"print": {"cond"}}}
	term, _, buf := testTerm(t, conf)

	if err := term.cmds.Call("cond 2 * 3", term); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "6") {
		t.Errorf("aliased command output: %q", buf.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	term, _, _ := testTerm(t, nil)
	if err := term.cmds.Call("frobnicate", term); err == nil {
		t.Error("unknown command did not fail")
	}
}

func TestExitCommand(t *testing.T) {
	term, _, _ := testTerm(t, nil)
	if err := term.cmds.Call("exit", term); err != nil {
		t.Fatal(err)
	}
	if !term.quit {
		t.Error("exit did not request termination")
	}
}

func TestCompletion(t *testing.T) {
	term, _, _ := testTerm(t, nil)

	got := term.complete("pr")
	if !contains(got, "print") {
		t.Errorf("complete(pr) = %v, want print", got)
	}

	got = term.complete("print ib")
	if !contains(got, "print ibat0l") {
		t.Errorf("complete(print ib) = %v, want ibat entries", got)
	}

	got = term.complete("print read_u")
	if !contains(got, "print read_u8") || !contains(got, "print read_u32") {
		t.Errorf("complete(print read_u) = %v", got)
	}
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
