// Package proc connects compiled condition expressions to the state of the
// emulated processor: it resolves identifiers to register bindings,
// provides the host function library that reads and writes guest memory,
// and runs evaluations with bidirectional state synchronization.
package proc

import (
	"sync"

	"github.com/gekkodbg/gekko/pkg/expr"
)

// CPUState is the register file of the emulated processor. Any access must
// happen while holding the target's CPUGuard, since the emulation context
// mutates the same state.
type CPUState interface {
	GPR(n int) uint32
	SetGPR(n int, v uint32)
	FPR(n int) float64
	SetFPR(n int, v float64)
	SPR(id int) uint32
	SetSPR(id int, v uint32)
	PC() uint32
	MSR() uint32
	SetMSR(v uint32)
}

// Memory is the guest address space as exposed by the emulator's memory
// system. Implementations perform their own address checking and report
// inaccessible addresses through the returned error; callers of this
// package never see those errors, a faulting access evaluates to 0.
type Memory interface {
	ReadU8(addr uint32) (uint8, error)
	ReadU16(addr uint32) (uint16, error)
	ReadU32(addr uint32) (uint32, error)
	ReadU64(addr uint32) (uint64, error)
	WriteU8(addr uint32, v uint8) error
	WriteU16(addr uint32, v uint16) error
	WriteU32(addr uint32, v uint32) error
	WriteU64(addr uint32, v uint64) error
	// ReadCString reads a NUL terminated string starting at addr.
	ReadCString(addr uint32) (string, error)
}

// Stackframe is one frame of the guest call stack.
type Stackframe struct {
	// Ret is the frame's return address.
	Ret uint32
	// Name is the symbol name of the function the frame belongs to. It may
	// be empty when no symbol covers the address.
	Name string
}

// Stacker walks the guest call stack. Callstack must only be called while
// the CPUGuard is held; it returns an error when no stack can be produced,
// for example while the processor is not in a stable state.
type Stacker interface {
	Callstack() ([]Stackframe, error)
}

// CPUGuard is the process-wide exclusive access guard for processor state,
// shared with the emulation context. It is intentionally a plain mutex:
// re-entrant acquisition during a single evaluation is handled by
// threading the held token through the evaluation context instead of
// re-locking (see evalCtx).
type CPUGuard struct {
	mu sync.Mutex
}

// AccessToken proves that the guard is held.
type AccessToken struct {
	g *CPUGuard
}

// Acquire blocks until exclusive access to processor state is available.
// There is no timeout: a caller stalling here while the emulation context
// is unresponsive blocks indefinitely by design.
func (g *CPUGuard) Acquire() AccessToken {
	g.mu.Lock()
	return AccessToken{g: g}
}

// Release gives up exclusive access.
func (t AccessToken) Release() {
	t.g.mu.Unlock()
}

// Target bundles the collaborators a condition expression evaluates
// against.
type Target struct {
	CPU   CPUState
	Mem   Memory
	Stack Stacker
	Guard *CPUGuard

	// Notify, if set, receives non-fatal diagnostic notices (currently only
	// NaN results). It must not block.
	Notify func(msg string)

	funcs expr.FuncTable
}

// NewTarget returns a Target for the given collaborators with a fresh
// access guard.
func NewTarget(cpu CPUState, mem Memory, stack Stacker) *Target {
	t := &Target{CPU: cpu, Mem: mem, Stack: stack, Guard: new(CPUGuard)}
	t.funcs = hostFuncs(t)
	return t
}

// evalCtx is the per-evaluation context threaded through the compiled
// expression into every host function call. It carries the guard-held
// state so that a host function invoked while Sync or an outer host
// function already holds the guard reuses the access instead of
// deadlocking on a second acquire. Evaluation is single-threaded, so no
// synchronization is needed on held.
type evalCtx struct {
	t    *Target
	held bool
}

// enter ensures the guard is held and returns the matching release
// function, which is a no-op when the guard was already held upstream.
func (c *evalCtx) enter() func() {
	if c.held {
		return func() {}
	}
	tok := c.t.Guard.Acquire()
	c.held = true
	return func() {
		c.held = false
		tok.Release()
	}
}
