package proc_test

import (
	"math"
	"testing"

	"github.com/gekkodbg/gekko/pkg/proc"
	"github.com/gekkodbg/gekko/pkg/proc/sim"
)

func evalText(t *testing.T, tgt *proc.Target, text string) float64 {
	t.Helper()
	cond, err := tgt.CompileCondition(text)
	if err != nil {
		t.Fatalf("CompileCondition(%q): %v", text, err)
	}
	return cond.Eval()
}

func TestCompileFailure(t *testing.T) {
	tgt, _ := sim.NewTarget()
	for _, text := range []string{"", "r3 >", "(r3", `streq("a`, "r3 $ 4", "nosuchfunc(1)"} {
		if _, err := tgt.CompileCondition(text); err == nil {
			t.Errorf("CompileCondition(%q) succeeded, want error", text)
		}
	}
}

func TestRegisterConditions(t *testing.T) {
	tgt, cpu := sim.NewTarget()

	cond, err := tgt.CompileCondition("r3 > 0x10")
	if err != nil {
		t.Fatal(err)
	}
	if vars := cond.Vars(); len(vars) != 1 || vars[0].Name != "r3" {
		t.Fatalf("r3 > 0x10 compiled to variables %v, want exactly r3", vars)
	}
	cpu.SetGPR(3, 0x11)
	if got := cond.Eval(); got != 1 {
		t.Errorf("r3 > 0x10 with r3=0x11 = %v, want 1", got)
	}
	cpu.SetGPR(3, 0x10)
	if got := cond.Eval(); got != 0 {
		t.Errorf("r3 > 0x10 with r3=0x10 = %v, want 0", got)
	}

	cpu.SetGPR(0, 5)
	if got := evalText(t, tgt, "r0 == 5"); got != 1 {
		t.Errorf("r0 == 5 = %v, want 1", got)
	}

	cpu.SetFPR(2, 3.25)
	if got := evalText(t, tgt, "f2 * 2"); got != 6.5 {
		t.Errorf("f2 * 2 = %v, want 6.5", got)
	}

	cpu.SetSPR(8, 0x80004000) // lr
	if got := evalText(t, tgt, "lr == 0x80004000"); got != 1 {
		t.Errorf("lr compare = %v, want 1", got)
	}

	cpu.SetPC(0x80003100)
	if got := evalText(t, tgt, "pc"); got != float64(0x80003100) {
		t.Errorf("pc = %v", got)
	}
}

func TestWriteBack(t *testing.T) {
	tgt, cpu := sim.NewTarget()

	if got := evalText(t, tgt, "r0 = 9"); got != 9 {
		t.Errorf("r0 = 9 evaluated to %v, want 9", got)
	}
	if cpu.GPR(0) != 9 {
		t.Errorf("r0 not written back: %d", cpu.GPR(0))
	}

	evalText(t, tgt, "f1 = 2.5")
	if cpu.FPR(1) != 2.5 {
		t.Errorf("f1 not written back: %v", cpu.FPR(1))
	}

	evalText(t, tgt, "msr = 0x8000")
	if cpu.MSR() != 0x8000 {
		t.Errorf("msr not written back: %#x", cpu.MSR())
	}

	evalText(t, tgt, "ctr = 100")
	if cpu.SPR(9) != 100 {
		t.Errorf("ctr not written back: %d", cpu.SPR(9))
	}

	// pc is read-only: the assignment evaluates but never reaches state.
	cpu.SetPC(0x80003100)
	if got := evalText(t, tgt, "pc = 4"); got != 4 {
		t.Errorf("pc = 4 evaluated to %v", got)
	}
	if cpu.PC() != 0x80003100 {
		t.Errorf("read-only pc was moved to %#x", cpu.PC())
	}

	// Truncation on write back goes through int64 and wraps the low bits.
	evalText(t, tgt, "r7 = -1")
	if cpu.GPR(7) != 0xffffffff {
		t.Errorf("r7 = -1 stored %#x, want 0xffffffff", cpu.GPR(7))
	}
}

func TestUnboundIdentifiers(t *testing.T) {
	tgt, cpu := sim.NewTarget()

	if got := evalText(t, tgt, "foo"); got != 0 {
		t.Errorf("unbound identifier = %v, want 0", got)
	}
	// Assigning an unbound name touches only the scratch slot.
	if got := evalText(t, tgt, "foo = 123, foo + 1"); got != 124 {
		t.Errorf("unbound assignment chain = %v, want 124", got)
	}
	for i := 0; i < 32; i++ {
		if cpu.GPR(i) != 0 {
			t.Fatalf("unbound assignment leaked into r%d", i)
		}
	}
}

func TestMemoryFunctions(t *testing.T) {
	tgt, cpu := sim.NewTarget()

	if got := evalText(t, tgt, "write_u32(1234, 0x80003000)"); got != 1234 {
		t.Errorf("write_u32 returned %v, want 1234", got)
	}
	if got := evalText(t, tgt, "read_u32(0x80003000)"); got != 1234 {
		t.Errorf("read_u32 round-trip = %v, want 1234", got)
	}

	// Sign reinterpretation reads the same bits back signed.
	evalText(t, tgt, "write_u8(0xff, 0x80003004)")
	if got := evalText(t, tgt, "read_s8(0x80003004)"); got != -1 {
		t.Errorf("read_s8(0xff bits) = %v, want -1", got)
	}
	evalText(t, tgt, "write_u16(0x8000, 0x80003006)")
	if got := evalText(t, tgt, "read_s16(0x80003006)"); got != -32768 {
		t.Errorf("read_s16 = %v, want -32768", got)
	}

	// Float access is bit reinterpretation at the storage width.
	evalText(t, tgt, "write_f32(1.5, 0x80003008)")
	if got := evalText(t, tgt, "read_f32(0x80003008)"); got != 1.5 {
		t.Errorf("read_f32 round-trip = %v, want 1.5", got)
	}
	bits, err := cpu.ReadU32(0x80003008)
	if err != nil {
		t.Fatal(err)
	}
	if bits != math.Float32bits(1.5) {
		t.Errorf("write_f32 stored %#x, want the IEEE bit pattern %#x", bits, math.Float32bits(1.5))
	}
	evalText(t, tgt, "write_f64(2.25, 0x80003010)")
	if got := evalText(t, tgt, "read_f64(0x80003010)"); got != 2.25 {
		t.Errorf("read_f64 round-trip = %v, want 2.25", got)
	}

	// Faulting addresses are soft failures.
	if got := evalText(t, tgt, "read_u32(0x10)"); got != 0 {
		t.Errorf("faulting read = %v, want 0", got)
	}
	if got := evalText(t, tgt, "write_u32(1, 0x10)"); got != 0 {
		t.Errorf("faulting write = %v, want 0", got)
	}

	// Arity mismatches are neutral, not errors.
	if got := evalText(t, tgt, "read_u32()"); got != 0 {
		t.Errorf("read_u32() = %v, want 0", got)
	}
	if got := evalText(t, tgt, "read_u32(1, 2)"); got != 0 {
		t.Errorf("read_u32(1, 2) = %v, want 0", got)
	}
}

func TestCastFunctions(t *testing.T) {
	tgt, _ := sim.NewTarget()
	cases := []struct {
		text string
		want float64
	}{
		{"u8(0x1ff)", 0xff},
		{"s8(0xff)", -1},
		{"u16(0x1ffff)", 0xffff},
		{"s16(0x8000)", -32768},
		{"u32(-1)", 0xffffffff},
		{"s32(0xffffffff)", -1},
		{"s8(0x7f)", 127},
	}
	for _, tc := range cases {
		if got := evalText(t, tgt, tc.text); got != tc.want {
			t.Errorf("%s = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestCallstackFunction(t *testing.T) {
	tgt, cpu := sim.NewTarget()

	if got := evalText(t, tgt, "callstack(0)"); got != 0 {
		t.Errorf("callstack(0) on empty stack = %v, want 0", got)
	}

	cpu.PushFrame(0x80004000, "main")
	cpu.PushFrame(0x80004100, "OSSleepThread")

	if got := evalText(t, tgt, "callstack(0x80004000)"); got != 1 {
		t.Errorf("callstack(0x80004000) = %v, want 1", got)
	}
	if got := evalText(t, tgt, "callstack(0x80009999)"); got != 0 {
		t.Errorf("callstack(0x80009999) = %v, want 0", got)
	}
	if got := evalText(t, tgt, `callstack("Sleep")`); got != 1 {
		t.Errorf(`callstack("Sleep") = %v, want 1`, got)
	}
	if got := evalText(t, tgt, `callstack("NoSuchSymbol")`); got != 0 {
		t.Errorf(`callstack("NoSuchSymbol") = %v, want 0`, got)
	}

	cpu.SetStackAvailable(false)
	if got := evalText(t, tgt, "callstack(0x80004000)"); got != 0 {
		t.Errorf("callstack with unavailable stack = %v, want 0", got)
	}
}

func TestStreqFunction(t *testing.T) {
	tgt, cpu := sim.NewTarget()

	if got := evalText(t, tgt, `streq("abc", "abc")`); got != 1 {
		t.Errorf(`streq("abc", "abc") = %v, want 1`, got)
	}
	if got := evalText(t, tgt, `streq("abc", "abd")`); got != 0 {
		t.Errorf(`streq("abc", "abd") = %v, want 0`, got)
	}

	if err := cpu.WriteCString(0x80002000, "OSReport"); err != nil {
		t.Fatal(err)
	}
	if got := evalText(t, tgt, `streq(0x80002000, "OSReport")`); got != 1 {
		t.Errorf("streq(addr, literal) = %v, want 1", got)
	}
	if got := evalText(t, tgt, "streq(0x80002000, 0x80002000)"); got != 1 {
		t.Errorf("streq(addr, addr) = %v, want 1", got)
	}

	// Unresolvable argument (faulting address) is a soft 0.
	if got := evalText(t, tgt, `streq(0x10, "x")`); got != 0 {
		t.Errorf("streq with faulting address = %v, want 0", got)
	}
}

// A host function argument that itself calls a host function runs while
// the outer call already holds the access guard; the token is reused
// instead of deadlocking on a second acquire.
func TestNestedGuardAcquisition(t *testing.T) {
	tgt, cpu := sim.NewTarget()

	if err := cpu.WriteCString(0x80002000, "x"); err != nil {
		t.Fatal(err)
	}
	if err := cpu.WriteU32(0x80003000, 0x80002000); err != nil {
		t.Fatal(err)
	}
	if got := evalText(t, tgt, `streq(read_u32(0x80003000), "x")`); got != 1 {
		t.Errorf("nested host function call = %v, want 1", got)
	}
}

func TestNaNReporting(t *testing.T) {
	tgt, _ := sim.NewTarget()
	var notices []string
	tgt.Notify = func(msg string) { notices = append(notices, msg) }

	got := evalText(t, tgt, "0 / 0")
	if !math.IsNaN(got) {
		t.Fatalf("0 / 0 = %v, want NaN", got)
	}
	if len(notices) != 1 {
		t.Errorf("NaN produced %d notices, want 1", len(notices))
	}

	// A NaN in a variable slot alerts too, even with a finite result.
	notices = nil
	if got := evalText(t, tgt, "foo = 0 / 0, 1"); got != 1 {
		t.Errorf("expression result = %v, want 1", got)
	}
	if len(notices) != 1 {
		t.Errorf("NaN variable produced %d notices, want 1", len(notices))
	}

	// No notice for ordinary results.
	notices = nil
	evalText(t, tgt, "1 + 1")
	if len(notices) != 0 {
		t.Errorf("finite result produced notices: %v", notices)
	}
}

func TestConditionCache(t *testing.T) {
	tgt, _ := sim.NewTarget()
	cache, err := proc.NewConditionCache(tgt, 4)
	if err != nil {
		t.Fatal(err)
	}

	a, err := cache.Compile("r3 > 0x10")
	if err != nil {
		t.Fatal(err)
	}
	b, err := cache.Compile("r3 > 0x10")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("identical text did not reuse the compiled condition")
	}

	c, err := cache.Compile("r3 > 0x20")
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("different text reused a cached condition")
	}

	if _, err := cache.Compile("r3 >"); err == nil {
		t.Fatal("compile failure not surfaced")
	}
	if _, err := cache.Compile("r3 >"); err == nil {
		t.Fatal("compile failure cached as success")
	}
}

func TestText(t *testing.T) {
	tgt, _ := sim.NewTarget()
	cond, err := tgt.CompileCondition("r3 > 0x10")
	if err != nil {
		t.Fatal(err)
	}
	if cond.Text() != "r3 > 0x10" {
		t.Errorf("Text() = %q", cond.Text())
	}
}
