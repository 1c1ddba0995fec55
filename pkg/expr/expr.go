// Package expr implements the condition language used by breakpoints and
// watchpoints: a C-like expression grammar with literals, register
// identifiers, the usual arithmetic/bitwise/logical operators, the ternary
// operator, assignment to identifiers and calls into a host function table.
//
// Every value in the language is a float64. There is no integer type:
// unsigned 64-bit guest values (for example the storage read by read_f64)
// cannot all be represented exactly and lose precision above 2^53. This is
// a deliberate property of the language, not something callers should try
// to correct for.
package expr

import "math"

// Variable is the scratch cell for one identifier referenced by an
// expression. The evaluator overwrites Value before each evaluation and
// reads it back afterwards; the expression itself reads and writes it
// during evaluation.
type Variable struct {
	Name  string
	Value float64
}

// Expression is the compiled, repeatedly evaluable form of one source
// string. It is immutable except for the Value slots of its variables.
type Expression struct {
	text string
	root node
	vars []*Variable
}

// Parse compiles text against funcs, which resolves function call names at
// parse time. It returns no partial result: any syntax error, unknown
// operator, unterminated string or unknown function name fails the whole
// compile.
func Parse(text string, funcs FuncTable) (*Expression, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, funcs: funcs, byName: make(map[string]*Variable)}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Expression{text: text, root: root, vars: p.vars}, nil
}

// Text returns the original source text.
func (e *Expression) Text() string {
	return e.text
}

// Vars returns the expression's variables, one per distinct identifier, in
// source order of first occurrence. The returned slice is shared with the
// expression and must not be modified.
func (e *Expression) Vars() []*Variable {
	return e.vars
}

// Eval evaluates the expression. The ctx value is passed through, opaquely,
// to every host function call made during evaluation.
func (e *Expression) Eval(ctx interface{}) float64 {
	return e.root.eval(ctx)
}

// Func is one entry of the host function library. Arity is enforced when
// the function is called during evaluation, not at parse time; a call with
// the wrong number of arguments evaluates to 0.
type Func struct {
	Name  string
	Arity int
	Call  func(ctx interface{}, args []Arg) float64
}

// FuncTable maps a callable name to its entry. Names are resolved against
// it at parse time; it is never consulted again after a successful compile.
type FuncTable map[string]*Func

// Arg is an unevaluated argument subexpression handed to a host function.
type Arg struct {
	n node
}

// Num evaluates the argument numerically. A bare string literal evaluates
// to NaN, which is how host functions distinguish the two argument forms.
func (a Arg) Num(ctx interface{}) float64 {
	return a.n.eval(ctx)
}

// Str returns the argument's string literal contents, if it is one.
func (a Arg) Str() (string, bool) {
	if s, ok := a.n.(stringNode); ok {
		return string(s), true
	}
	return "", false
}

// IsNum reports whether v can be used as a guest address, mirroring the
// NaN-means-string convention of Arg.Num.
func IsNum(v float64) bool {
	return !math.IsNaN(v)
}
