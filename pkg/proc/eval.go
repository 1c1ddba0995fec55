package proc

import (
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/gekkodbg/gekko/pkg/expr"
	"github.com/gekkodbg/gekko/pkg/logflags"
)

// Condition is one compiled condition expression together with its cached
// register bindings. It lives as long as the breakpoint or watch that owns
// it; bindings are resolved once at compile time and never re-resolved.
type Condition struct {
	t     *Target
	ex    *expr.Expression
	binds []varBinding
}

// CompileCondition compiles text and resolves every referenced identifier
// against the register binding table. A syntax error yields no partial
// result; identifiers that match no register silently bind to constant
// zero.
func (t *Target) CompileCondition(text string) (*Condition, error) {
	ex, err := expr.Parse(text, t.funcs)
	if err != nil {
		return nil, err
	}
	vars := ex.Vars()
	binds := make([]varBinding, len(vars))
	for i, v := range vars {
		binds[i] = lookupBinding(v.Name)
	}
	return &Condition{t: t, ex: ex, binds: binds}, nil
}

// Text returns the condition's original source text.
func (c *Condition) Text() string {
	return c.ex.Text()
}

// Vars exposes the condition's variables for display after an evaluation.
func (c *Condition) Vars() []*expr.Variable {
	return c.ex.Vars()
}

type syncDirection int

const (
	syncFrom syncDirection = iota
	syncTo
)

// Eval runs one evaluation: pull bound register values into the variable
// slots, evaluate, push writable slots back, report. Interpreting the
// result is the caller's business (zero false, nonzero true, NaN
// alerting).
func (c *Condition) Eval() float64 {
	ctx := &evalCtx{t: c.t}

	c.synchronize(ctx, syncFrom)
	result := c.ex.Eval(ctx)
	c.synchronize(ctx, syncTo)
	c.report(result)

	return result
}

// synchronize copies between processor state and the expression's variable
// slots, in the given direction, under the access guard. Read-only
// bindings (pc, unmatched names) are skipped on the way back.
func (c *Condition) synchronize(ctx *evalCtx, dir syncDirection) {
	release := ctx.enter()
	defer release()
	cpu := c.t.CPU
	for i, v := range c.ex.Vars() {
		if dir == syncFrom {
			v.Value = c.binds[i].load(cpu)
		} else {
			c.binds[i].store(cpu, v.Value)
		}
	}
}

// report scans the result and every variable slot for NaN and emits the
// evaluation trace. A NaN raises a non-fatal notice through the target's
// Notify hook; it never aborts the evaluation.
func (c *Condition) report(result float64) {
	isNaN := math.IsNaN(result)
	var vars strings.Builder
	for _, v := range c.ex.Vars() {
		if math.IsNaN(v.Value) {
			isNaN = true
		}
		fmt.Fprintf(&vars, "  %s=%v", v.Name, v.Value)
	}

	if isNaN && c.t.Notify != nil {
		c.t.Notify("condition has encountered a NaN")
	}

	if result != 0 || isNaN {
		logflags.EvaluatorLogger().Infof("condition returned: %v. Vars:%s", result, vars.String())
	}
}

// ConditionCache reuses compiled conditions across re-arms of identical
// condition text, so a breakpoint engine toggling the same condition does
// not pay for recompilation. Failed compiles are not cached.
type ConditionCache struct {
	t     *Target
	cache *lru.Cache
}

// NewConditionCache returns a cache holding up to size compiled
// conditions for t.
func NewConditionCache(t *Target, size int) (*ConditionCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ConditionCache{t: t, cache: c}, nil
}

// Compile returns the compiled form of text, reusing a previous compile of
// the same text when present.
func (cc *ConditionCache) Compile(text string) (*Condition, error) {
	if v, ok := cc.cache.Get(text); ok {
		return v.(*Condition), nil
	}
	cond, err := cc.t.CompileCondition(text)
	if err != nil {
		return nil, err
	}
	cc.cache.Add(text, cond)
	return cond, nil
}
