package proc

import (
	"math"
	"sort"
	"strings"

	"github.com/gekkodbg/gekko/pkg/expr"
)

// hostFuncs builds the host function library for t. The catalog is fixed:
// typed guest memory reads and writes, bit-pattern narrowing casts, a call
// stack membership test and guest string comparison. Every function keeps
// the tolerant evaluation policy of the rest of the package: wrong arity,
// a faulting guest access or an unavailable call stack all evaluate to 0.
func hostFuncs(t *Target) expr.FuncTable {
	ft := make(expr.FuncTable)

	addRead := func(name string, rd func(c *evalCtx, addr uint32) (float64, error)) {
		ft[name] = &expr.Func{Name: name, Arity: 1, Call: func(ctx interface{}, args []expr.Arg) float64 {
			addr := uint32(truncI64(args[0].Num(ctx)))
			c := ctx.(*evalCtx)
			release := c.enter()
			defer release()
			v, err := rd(c, addr)
			if err != nil {
				return 0
			}
			return v
		}}
	}
	addWrite := func(name string, wr func(c *evalCtx, v float64, addr uint32) (float64, error)) {
		ft[name] = &expr.Func{Name: name, Arity: 2, Call: func(ctx interface{}, args []expr.Arg) float64 {
			v := args[0].Num(ctx)
			addr := uint32(truncI64(args[1].Num(ctx)))
			c := ctx.(*evalCtx)
			release := c.enter()
			defer release()
			written, err := wr(c, v, addr)
			if err != nil {
				return 0
			}
			return written
		}}
	}
	addCast := func(name string, cast func(v float64) float64) {
		ft[name] = &expr.Func{Name: name, Arity: 1, Call: func(ctx interface{}, args []expr.Arg) float64 {
			return cast(args[0].Num(ctx))
		}}
	}

	addRead("read_u8", func(c *evalCtx, addr uint32) (float64, error) {
		v, err := c.t.Mem.ReadU8(addr)
		return float64(v), err
	})
	addRead("read_s8", func(c *evalCtx, addr uint32) (float64, error) {
		v, err := c.t.Mem.ReadU8(addr)
		return float64(int8(v)), err
	})
	addRead("read_u16", func(c *evalCtx, addr uint32) (float64, error) {
		v, err := c.t.Mem.ReadU16(addr)
		return float64(v), err
	})
	addRead("read_s16", func(c *evalCtx, addr uint32) (float64, error) {
		v, err := c.t.Mem.ReadU16(addr)
		return float64(int16(v)), err
	})
	addRead("read_u32", func(c *evalCtx, addr uint32) (float64, error) {
		v, err := c.t.Mem.ReadU32(addr)
		return float64(v), err
	})
	addRead("read_s32", func(c *evalCtx, addr uint32) (float64, error) {
		v, err := c.t.Mem.ReadU32(addr)
		return float64(int32(v)), err
	})
	// The float reads reinterpret the stored bit pattern; they do not
	// convert an integer's numeric value.
	addRead("read_f32", func(c *evalCtx, addr uint32) (float64, error) {
		v, err := c.t.Mem.ReadU32(addr)
		return float64(math.Float32frombits(v)), err
	})
	addRead("read_f64", func(c *evalCtx, addr uint32) (float64, error) {
		// Bit patterns whose integer value exceeds 2^53 are not exactly
		// representable on the way back out of the language.
		v, err := c.t.Mem.ReadU64(addr)
		return math.Float64frombits(v), err
	})

	addWrite("write_u8", func(c *evalCtx, v float64, addr uint32) (float64, error) {
		b := uint8(truncI64(v))
		return float64(b), c.t.Mem.WriteU8(addr, b)
	})
	addWrite("write_u16", func(c *evalCtx, v float64, addr uint32) (float64, error) {
		h := uint16(truncI64(v))
		return float64(h), c.t.Mem.WriteU16(addr, h)
	})
	addWrite("write_u32", func(c *evalCtx, v float64, addr uint32) (float64, error) {
		w := uint32(truncI64(v))
		return float64(w), c.t.Mem.WriteU32(addr, w)
	})
	addWrite("write_f32", func(c *evalCtx, v float64, addr uint32) (float64, error) {
		f := float32(v)
		return float64(f), c.t.Mem.WriteU32(addr, math.Float32bits(f))
	})
	addWrite("write_f64", func(c *evalCtx, v float64, addr uint32) (float64, error) {
		return v, c.t.Mem.WriteU64(addr, math.Float64bits(v))
	})

	addCast("u8", func(v float64) float64 { return float64(uint8(truncI64(v))) })
	addCast("s8", func(v float64) float64 { return float64(int8(truncI64(v))) })
	addCast("u16", func(v float64) float64 { return float64(uint16(truncI64(v))) })
	addCast("s16", func(v float64) float64 { return float64(int16(truncI64(v))) })
	addCast("u32", func(v float64) float64 { return float64(uint32(truncI64(v))) })
	addCast("s32", func(v float64) float64 { return float64(int32(truncI64(v))) })

	ft["callstack"] = &expr.Func{Name: "callstack", Arity: 1, Call: func(ctx interface{}, args []expr.Arg) float64 {
		c := ctx.(*evalCtx)
		var frames []Stackframe
		{
			release := c.enter()
			var err error
			frames, err = c.t.Stack.Callstack()
			release()
			if err != nil {
				return 0
			}
		}

		num := args[0].Num(ctx)
		if expr.IsNum(num) {
			addr := uint32(truncI64(num))
			for _, f := range frames {
				if f.Ret == addr {
					return 1
				}
			}
			return 0
		}
		if s, ok := args[0].Str(); ok {
			for _, f := range frames {
				if strings.Contains(f.Name, s) {
					return 1
				}
			}
		}
		return 0
	}}

	ft["streq"] = &expr.Func{Name: "streq", Arity: 2, Call: func(ctx interface{}, args []expr.Arg) float64 {
		c := ctx.(*evalCtx)
		release := c.enter()
		defer release()
		var strs [2]string
		for i := range args {
			s, ok := resolveStringArg(c, args[i])
			if !ok {
				return 0
			}
			strs[i] = s
		}
		if strs[0] == strs[1] {
			return 1
		}
		return 0
	}}

	return ft
}

// resolveStringArg resolves one streq argument: a numeric value is the
// guest address of a NUL terminated string, a string literal stands for
// itself. The guard is already held; nested host function calls made while
// evaluating the argument reuse it through the context.
func resolveStringArg(c *evalCtx, a expr.Arg) (string, bool) {
	num := a.Num(c)
	if expr.IsNum(num) {
		s, err := c.t.Mem.ReadCString(uint32(truncI64(num)))
		if err != nil {
			return "", false
		}
		return s, true
	}
	if s, ok := a.Str(); ok {
		return s, true
	}
	return "", false
}

// FuncNames returns the names of the host function library, sorted. The
// front-end uses it for completion and its funcs command.
func (t *Target) FuncNames() []string {
	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
