// Package sim provides an in-process implementation of the processor
// state, guest memory and call stack collaborators. It backs the package
// tests and the interactive front-end when no emulator is attached.
package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/gekkodbg/gekko/pkg/proc"
)

// FaultError reports an access outside every mapped region.
type FaultError struct {
	Addr uint32
}

func (e FaultError) Error() string {
	return fmt.Sprintf("guest fault at %#x", e.Addr)
}

type region struct {
	base uint32
	data []byte
}

// CPU is a simulated 750CL class processor with big-endian guest memory
// and a scripted call stack. The zero value has no mapped memory and an
// available, empty call stack.
type CPU struct {
	gpr [32]uint32
	fpr [32]float64
	spr map[int]uint32
	pc  uint32
	msr uint32

	regions []region

	frames     []proc.Stackframe
	stackAvail bool
}

// New returns a CPU with no memory mapped. Map regions before use.
func New() *CPU {
	return &CPU{spr: make(map[int]uint32), stackAvail: true}
}

// Map adds a zero-filled memory region of the given size at base.
func (c *CPU) Map(base uint32, size int) {
	c.regions = append(c.regions, region{base: base, data: make([]byte, size)})
}

// slice returns the n bytes at addr, or a fault.
func (c *CPU) slice(addr uint32, n int) ([]byte, error) {
	for _, r := range c.regions {
		if addr >= r.base && uint64(addr)+uint64(n) <= uint64(r.base)+uint64(len(r.data)) {
			off := addr - r.base
			return r.data[off : off+uint32(n)], nil
		}
	}
	return nil, FaultError{Addr: addr}
}

func (c *CPU) GPR(n int) uint32 { return c.gpr[n] }

func (c *CPU) SetGPR(n int, v uint32) { c.gpr[n] = v }

func (c *CPU) FPR(n int) float64 { return c.fpr[n] }

func (c *CPU) SetFPR(n int, v float64) { c.fpr[n] = v }

func (c *CPU) SPR(id int) uint32 { return c.spr[id] }

func (c *CPU) SetSPR(id int, v uint32) { c.spr[id] = v }

func (c *CPU) PC() uint32 { return c.pc }

func (c *CPU) MSR() uint32 { return c.msr }

func (c *CPU) SetMSR(v uint32) { c.msr = v }

// SetPC moves the program counter. The expression language treats pc as
// read-only; this is for the harness driving the simulation.
func (c *CPU) SetPC(v uint32) { c.pc = v }

func (c *CPU) ReadU8(addr uint32) (uint8, error) {
	b, err := c.slice(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *CPU) ReadU16(addr uint32) (uint16, error) {
	b, err := c.slice(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *CPU) ReadU32(addr uint32) (uint32, error) {
	b, err := c.slice(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *CPU) ReadU64(addr uint32) (uint64, error) {
	b, err := c.slice(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *CPU) WriteU8(addr uint32, v uint8) error {
	b, err := c.slice(addr, 1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (c *CPU) WriteU16(addr uint32, v uint16) error {
	b, err := c.slice(addr, 2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

func (c *CPU) WriteU32(addr uint32, v uint32) error {
	b, err := c.slice(addr, 4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

func (c *CPU) WriteU64(addr uint32, v uint64) error {
	b, err := c.slice(addr, 8)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b, v)
	return nil
}

// ReadCString reads a NUL terminated string starting at addr. Running off
// the end of the mapped region is a fault, not a silent truncation.
func (c *CPU) ReadCString(addr uint32) (string, error) {
	var out []byte
	for {
		b, err := c.ReadU8(addr)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
		addr++
	}
}

// WriteCString stores s followed by a NUL byte at addr, for test setup.
func (c *CPU) WriteCString(addr uint32, s string) error {
	for i := 0; i < len(s); i++ {
		if err := c.WriteU8(addr+uint32(i), s[i]); err != nil {
			return err
		}
	}
	return c.WriteU8(addr+uint32(len(s)), 0)
}

// PushFrame appends a frame to the scripted call stack.
func (c *CPU) PushFrame(ret uint32, name string) {
	c.frames = append(c.frames, proc.Stackframe{Ret: ret, Name: name})
}

// ClearStack empties the scripted call stack.
func (c *CPU) ClearStack() {
	c.frames = nil
}

// SetStackAvailable controls whether Callstack succeeds, simulating a
// processor that is not in a stable state.
func (c *CPU) SetStackAvailable(ok bool) {
	c.stackAvail = ok
}

// ErrNoStack is returned by Callstack while the stack is unavailable.
var ErrNoStack = fmt.Errorf("call stack unavailable")

func (c *CPU) Callstack() ([]proc.Stackframe, error) {
	if !c.stackAvail {
		return nil, ErrNoStack
	}
	frames := make([]proc.Stackframe, len(c.frames))
	copy(frames, c.frames)
	return frames, nil
}

// NewTarget maps a default main-memory region and bundles the CPU into a
// ready to use evaluation target.
func NewTarget() (*proc.Target, *CPU) {
	cpu := New()
	cpu.Map(0x80000000, 24<<20)
	return proc.NewTarget(cpu, cpu, cpu), cpu
}
