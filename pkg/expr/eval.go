package expr

import "math"

type node interface {
	eval(ctx interface{}) float64
}

type numberNode float64

func (n numberNode) eval(interface{}) float64 { return float64(n) }

// stringNode evaluates to NaN; the literal itself is only reachable through
// Arg.Str inside a host function call.
type stringNode string

func (stringNode) eval(interface{}) float64 { return math.NaN() }

type varNode struct {
	v *Variable
}

func (n varNode) eval(interface{}) float64 { return n.v.Value }

type assignNode struct {
	v   *Variable
	rhs node
}

func (n assignNode) eval(ctx interface{}) float64 {
	val := n.rhs.eval(ctx)
	n.v.Value = val
	return val
}

type unaryNode struct {
	op string
	x  node
}

func (n unaryNode) eval(ctx interface{}) float64 {
	v := n.x.eval(ctx)
	switch n.op {
	case "-":
		return -v
	case "!":
		return boolVal(v == 0)
	case "~":
		return float64(^toInt(v))
	}
	panic("unknown unary operator " + n.op)
}

type binaryNode struct {
	op   string
	l, r node
}

func (n binaryNode) eval(ctx interface{}) float64 {
	// Logical operators short-circuit and never evaluate the right side
	// unless they must; everything else is strict.
	switch n.op {
	case "&&":
		if n.l.eval(ctx) == 0 {
			return 0
		}
		return boolVal(n.r.eval(ctx) != 0)
	case "||":
		if n.l.eval(ctx) != 0 {
			return 1
		}
		return boolVal(n.r.eval(ctx) != 0)
	case ",":
		n.l.eval(ctx)
		return n.r.eval(ctx)
	}

	l := n.l.eval(ctx)
	r := n.r.eval(ctx)
	switch n.op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "/":
		return l / r
	case "%":
		return math.Mod(l, r)
	case "==":
		return boolVal(l == r)
	case "!=":
		return boolVal(l != r)
	case "<":
		return boolVal(l < r)
	case "<=":
		return boolVal(l <= r)
	case ">":
		return boolVal(l > r)
	case ">=":
		return boolVal(l >= r)
	case "&":
		return float64(toInt(l) & toInt(r))
	case "|":
		return float64(toInt(l) | toInt(r))
	case "^":
		return float64(toInt(l) ^ toInt(r))
	case "<<":
		return float64(toInt(l) << (uint64(toInt(r)) & 63))
	case ">>":
		return float64(toInt(l) >> (uint64(toInt(r)) & 63))
	}
	panic("unknown binary operator " + n.op)
}

type ternaryNode struct {
	cond, then, els node
}

func (n ternaryNode) eval(ctx interface{}) float64 {
	if n.cond.eval(ctx) != 0 {
		return n.then.eval(ctx)
	}
	return n.els.eval(ctx)
}

type callNode struct {
	fn   *Func
	args []node
}

func (n callNode) eval(ctx interface{}) float64 {
	if len(n.args) != n.fn.Arity {
		return 0
	}
	args := make([]Arg, len(n.args))
	for i, a := range n.args {
		args[i] = Arg{n: a}
	}
	return n.fn.Call(ctx, args)
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// toInt truncates for the bitwise operators. NaN and infinities map to 0
// so that no float-to-int conversion is ever out of range.
func toInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v >= math.MaxInt64 || v <= math.MinInt64 {
		return 0
	}
	return int64(v)
}
